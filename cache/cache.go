// Package cache implements a thread-safe, in-memory LRU cache with
// time-based expiration (after-write and after-access), weight-based
// eviction, removal notifications, hit/miss/load/eviction statistics,
// and (via LoadingCache) a loader with refresh-after-write, per spec
// section 4.9. There is no teacher analogue for this subsystem in
// github.com/joeycumines/go-utilpkg; its map+intrusive-list shape is
// grounded structurally on other_examples' tempuscache.Cache, adapted
// per spec section 4.9.7 to inline prev/next on the entry instead of
// boxing nodes in container/list.Element.
package cache

import (
	"sync"
	"time"

	"github.com/flowforge/reactor/internal/rxlog"
	"github.com/flowforge/reactor/ticker"
)

// Cache is a thread-safe, fixed-policy LRU map. Construct one with
// New[K, V]()...Build(). All operations hold a single mutex (spec
// section 4.9.6: the cache deliberately does not optimize lookups for
// lock-freedom, since every Get also mutates LRU order).
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	entries map[K]*entry[K, V]
	head    *entry[K, V] // most-recently-used
	tail    *entry[K, V] // least-recently-used

	currentSize   int64
	currentWeight int64

	maxSize   int64 // 0 = unbounded
	maxWeight int64 // 0 = unbounded
	weigher   Weigher[K, V]

	expireAfterWrite  time.Duration
	expireAfterAccess time.Duration

	listener RemovalListener[K, V]
	tick     ticker.Ticker
	stats    *Stats
}

// Get returns the value for key, if present and not expired. A hit
// moves the entry to the head of the LRU list and updates its access
// timestamp; an expired entry is removed (emitting the corresponding
// RemovalNotification) and reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[K, V]) getLocked(key K) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		c.stats.recordMiss()
		var zero V
		return zero, false
	}
	now := c.tick.ReadNanos()
	if cause, expired := c.expiryCause(e, now); expired {
		c.removeLocked(e, cause)
		c.stats.recordMiss()
		var zero V
		return zero, false
	}
	e.accessNanos = now
	c.moveToHead(e)
	c.stats.recordHit()
	return e.value, true
}

// expiryCause reports whether e is expired at now, and if so, which
// cause applies. Write-ttl is checked first, per spec section 4.9.3.
func (c *Cache[K, V]) expiryCause(e *entry[K, V], now int64) (RemovalCause, bool) {
	if c.expireAfterWrite > 0 && now-e.writeNanos > int64(c.expireAfterWrite) {
		return CauseExpiredAfterWrite, true
	}
	if c.expireAfterAccess > 0 && now-e.accessNanos > int64(c.expireAfterAccess) {
		return CauseExpiredAfterAccess, true
	}
	return 0, false
}

// Put inserts or replaces key's value. Replacing an existing,
// non-expired entry emits CauseReplaced; a brand-new entry emits
// nothing. Eviction (size or weight) may follow, each emitting
// CauseSize.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

func (c *Cache[K, V]) putLocked(key K, value V) *entry[K, V] {
	now := c.tick.ReadNanos()
	weight := c.weightOf(key, value)
	if e, ok := c.entries[key]; ok {
		if cause, expired := c.expiryCause(e, now); expired {
			c.removeLocked(e, cause)
		}
	}
	if e, ok := c.entries[key]; ok {
		old := e.value
		c.currentWeight += weight - e.weight
		e.value = value
		e.weight = weight
		e.writeNanos = now
		e.accessNanos = now
		c.moveToHead(e)
		c.notify(key, old, CauseReplaced)
		c.evictIfNeeded()
		return e
	}
	e := &entry[K, V]{key: key, value: value, writeNanos: now, accessNanos: now, weight: weight}
	c.entries[key] = e
	c.currentSize++
	c.currentWeight += weight
	c.pushHead(e)
	c.evictIfNeeded()
	return e
}

func (c *Cache[K, V]) weightOf(key K, value V) int64 {
	if c.weigher == nil {
		return 1
	}
	return c.weigher(key, value)
}

// PutIfAbsent inserts value for key only if no non-expired entry exists
// for key already, returning the existing value (and true) if one did.
func (c *Cache[K, V]) PutIfAbsent(key K, value V) (existing V, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		now := c.tick.ReadNanos()
		if cause, expired := c.expiryCause(e, now); expired {
			c.removeLocked(e, cause)
		} else {
			return e.value, true
		}
	}
	c.putLocked(key, value)
	var zero V
	return zero, false
}

// PutAll inserts or replaces every key/value pair in m.
func (c *Cache[K, V]) PutAll(m map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		c.putLocked(k, v)
	}
}

// Invalidate removes key, if present, emitting CauseExplicit.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e, CauseExplicit)
	}
}

// InvalidateAll removes every key in keys that is present, each
// emitting CauseExplicit. With no arguments, it clears the entire
// cache.
func (c *Cache[K, V]) InvalidateAll(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		for _, e := range c.entries {
			c.removeLocked(e, CauseExplicit)
		}
		return
	}
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			c.removeLocked(e, CauseExplicit)
		}
	}
}

// AsMap returns a snapshot of every non-expired entry. Expired entries
// not yet cleaned up are excluded but not removed by this call.
func (c *Cache[K, V]) AsMap() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.tick.ReadNanos()
	out := make(map[K]V, len(c.entries))
	for k, e := range c.entries {
		if _, expired := c.expiryCause(e, now); !expired {
			out[k] = e.value
		}
	}
	return out
}

// EstimatedSize reports the number of entries currently stored,
// including any not-yet-cleaned expired entries (spec section 4.9.2).
func (c *Cache[K, V]) EstimatedSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// CleanUp forcibly removes every expired entry. Normal operations
// (Get, Put) already remove expired entries lazily as they're touched;
// CleanUp is for entries nothing has touched recently.
func (c *Cache[K, V]) CleanUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.tick.ReadNanos()
	for e := c.tail; e != nil; {
		prev := e.prev
		if cause, expired := c.expiryCause(e, now); expired {
			c.removeLocked(e, cause)
		}
		e = prev
	}
}

// Stats returns a snapshot of the cache's counters (all zero if
// WithStats(true) was never configured).
func (c *Cache[K, V]) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// --- intrusive LRU list maintenance ---

func (c *Cache[K, V]) pushHead(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *Cache[K, V]) moveToHead(e *entry[K, V]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushHead(e)
}

// removeLocked detaches e from the map and list and delivers its
// RemovalNotification. Caller must hold c.mu.
func (c *Cache[K, V]) removeLocked(e *entry[K, V], cause RemovalCause) {
	c.unlink(e)
	delete(c.entries, e.key)
	c.currentSize--
	c.currentWeight -= e.weight
	if cause.WasEvicted() {
		c.stats.recordEviction(e.weight)
	}
	c.notify(e.key, e.value, cause)
}

// evictIfNeeded evicts LRU-tail entries while the configured size or
// weight bound is exceeded (spec section 4.9.4). Caller must hold c.mu.
func (c *Cache[K, V]) evictIfNeeded() {
	if c.maxSize > 0 {
		for c.currentSize > c.maxSize && c.tail != nil {
			c.removeLocked(c.tail, CauseSize)
		}
	}
	if c.maxWeight > 0 {
		for c.currentWeight > c.maxWeight && c.tail != nil {
			c.removeLocked(c.tail, CauseSize)
		}
	}
}

// notify invokes the removal listener, if any, recovering any panic so
// a misbehaving listener can never break cache integrity (spec
// sections 4.9.6 and 7).
func (c *Cache[K, V]) notify(key K, value V, cause RemovalCause) {
	if c.listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			rxlog.Warn(nil, "cache: removal listener panicked", nil, rxlog.F("panic", r), rxlog.F("cause", cause.String()))
		}
	}()
	c.listener(RemovalNotification[K, V]{Key: key, Value: value, Cause: cause})
}
