package cache

import (
	"runtime"
	"time"

	"github.com/flowforge/reactor/ticker"
)

// Weigher computes the weight of one entry, used by weight-based
// eviction (spec section 4.9.4). Weight is fixed at insertion time;
// replacing an entry recomputes it.
type Weigher[K comparable, V any] func(key K, value V) int64

// Loader computes the value for a key on a cache miss or refresh, for a
// LoadingCache. Per spec section 4.9.9, a Loader must never "return
// null" - in Go terms, callers are expected to return ErrNilLoadResult
// if there is no value for the key, rather than a zero V masquerading as
// a real value. GetOrLoad does not substitute it: a Loader's (zero V, nil)
// result is cached as-is.
type Loader[K comparable, V any] func(key K) (V, error)

// Builder configures and constructs a Cache or LoadingCache. The zero
// value is ready to use; chain With* calls and finish with Build or
// BuildLoading, mirroring catrate.NewLimiter's single-construction-call
// idiom but spread across a chain (spec section 5.9), since the cache
// has many more independent toggles than a limiter.
type Builder[K comparable, V any] struct {
	maxSize            int64
	maxWeight          int64
	weigher            Weigher[K, V]
	expireAfterWrite   time.Duration
	expireAfterAccess  time.Duration
	refreshAfterWrite  time.Duration
	initialCapacity    int
	recordStats        bool
	tick               ticker.Ticker
	listener           RemovalListener[K, V]
	refreshConcurrency int
}

// New starts a Builder with defaults: no size/weight bound, no
// expiration, no stats, the system ticker.
func New[K comparable, V any]() *Builder[K, V] {
	return &Builder[K, V]{}
}

// WithMaximumSize bounds the cache to at most n entries, evicting the
// least-recently-used entry past that bound. Mutually exclusive with
// WithMaximumWeight.
func (b *Builder[K, V]) WithMaximumSize(n int64) *Builder[K, V] {
	if n < 0 {
		panic("cache: negative maximum size")
	}
	b.maxSize = n
	return b
}

// WithMaximumWeight bounds the cache to at most w total weight (summed
// via the configured Weigher), evicting the least-recently-used entry
// past that bound. Mutually exclusive with WithMaximumSize; requires
// WithWeigher.
func (b *Builder[K, V]) WithMaximumWeight(w int64) *Builder[K, V] {
	if w < 0 {
		panic("cache: negative maximum weight")
	}
	b.maxWeight = w
	return b
}

// WithWeigher sets the per-entry weight function required by
// WithMaximumWeight.
func (b *Builder[K, V]) WithWeigher(w Weigher[K, V]) *Builder[K, V] {
	b.weigher = w
	return b
}

// WithExpirationAfterWrite expires an entry d after it was last written
// (Put or successful refresh).
func (b *Builder[K, V]) WithExpirationAfterWrite(d time.Duration) *Builder[K, V] {
	if d < 0 {
		panic("cache: negative expire-after-write")
	}
	b.expireAfterWrite = d
	return b
}

// WithExpirationAfterAccess expires an entry d after it was last read or
// written, whichever is more recent.
func (b *Builder[K, V]) WithExpirationAfterAccess(d time.Duration) *Builder[K, V] {
	if d < 0 {
		panic("cache: negative expire-after-access")
	}
	b.expireAfterAccess = d
	return b
}

// WithRefreshAfterWrite enables refresh-after-write on a LoadingCache:
// once an entry is d old, the next GetOrLoad returns the current value
// immediately and enqueues a background reload (plain Get never
// triggers a refresh) (spec section
// 4.9.5). Only consulted by BuildLoading; ignored by Build. d should be
// smaller than any configured expire-after-write, or entries will
// simply expire before a refresh has a chance to run.
func (b *Builder[K, V]) WithRefreshAfterWrite(d time.Duration) *Builder[K, V] {
	if d < 0 {
		panic("cache: negative refresh-after-write")
	}
	b.refreshAfterWrite = d
	return b
}

// WithInitialCapacity pre-sizes the backing map.
func (b *Builder[K, V]) WithInitialCapacity(n int) *Builder[K, V] {
	if n < 0 {
		panic("cache: negative initial capacity")
	}
	b.initialCapacity = n
	return b
}

// WithStats turns on atomic hit/miss/load/eviction counters. Off by
// default, matching the source system's opt-in with_stats()/no_stats()
// toggle.
func (b *Builder[K, V]) WithStats(enabled bool) *Builder[K, V] {
	b.recordStats = enabled
	return b
}

// WithTicker overrides the clock used for write/access timestamps and
// expiration checks. Required to deterministically test expiration and
// refresh with a ticker.ManualTicker; defaults to ticker.System.
func (b *Builder[K, V]) WithTicker(t ticker.Ticker) *Builder[K, V] {
	b.tick = t
	return b
}

// WithRemovalListener registers a callback invoked once per removal
// (explicit, replaced, size/weight eviction, or expiration), with the
// corresponding RemovalCause.
func (b *Builder[K, V]) WithRemovalListener(fn RemovalListener[K, V]) *Builder[K, V] {
	b.listener = fn
	return b
}

// WithRefreshConcurrency bounds how many background refreshes a
// LoadingCache runs at once. Defaults to min(GOMAXPROCS, 4), per spec
// section 9's resolution of the refresh-executor sizing open question.
// Ignored by Build.
func (b *Builder[K, V]) WithRefreshConcurrency(n int) *Builder[K, V] {
	if n <= 0 {
		panic("cache: refresh concurrency must be positive")
	}
	b.refreshConcurrency = n
	return b
}

func (b *Builder[K, V]) validate() {
	if b.maxSize > 0 && b.maxWeight > 0 {
		panic("cache: maximum size and maximum weight are mutually exclusive")
	}
	if b.maxWeight > 0 && b.weigher == nil {
		panic("cache: maximum weight requires a weigher")
	}
}

func (b *Builder[K, V]) tickerOrDefault() ticker.Ticker {
	if b.tick != nil {
		return b.tick
	}
	return ticker.System()
}

// Build constructs a plain Cache (no loader, no refresh).
func (b *Builder[K, V]) Build() *Cache[K, V] {
	b.validate()
	return newCache[K, V](b)
}

// BuildLoading constructs a LoadingCache whose GetOrLoad and
// background refresh use loader to populate missing or stale entries.
func (b *Builder[K, V]) BuildLoading(loader Loader[K, V]) *LoadingCache[K, V] {
	if loader == nil {
		panic("cache: nil loader")
	}
	b.validate()
	c := newCache[K, V](b)
	concurrency := b.refreshConcurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
		if concurrency > 4 {
			concurrency = 4
		}
	}
	return newLoadingCache(c, loader, b.refreshAfterWrite, concurrency)
}

func newCache[K comparable, V any](b *Builder[K, V]) *Cache[K, V] {
	capacity := b.initialCapacity
	c := &Cache[K, V]{
		entries:           make(map[K]*entry[K, V], capacity),
		maxSize:           b.maxSize,
		maxWeight:         b.maxWeight,
		weigher:           b.weigher,
		expireAfterWrite:  b.expireAfterWrite,
		expireAfterAccess: b.expireAfterAccess,
		listener:          b.listener,
		tick:              b.tickerOrDefault(),
	}
	if b.recordStats {
		c.stats = &Stats{}
	}
	return c
}
