package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flowforge/reactor/internal/rxlog"
	"github.com/flowforge/reactor/scheduler"
)

// ErrNilLoadResult is the error a Loader returns to report "no value
// for this key" (spec section 4.9.9: "Loader returning null is rejected
// as error"). Go has no null a Loader could return by accident in place
// of a real V, so the convention is explicit: a Loader with nothing to
// return yields ErrNilLoadResult (or any error matching it via
// errors.Is) instead of a zero V.
var ErrNilLoadResult = errors.New("cache: loader returned no value for key")

// LoadingCache adds a Loader and (optionally) background
// refresh-after-write on top of Cache. Construct one with
// New[K, V]()...BuildLoading(loader).
type LoadingCache[K comparable, V any] struct {
	*Cache[K, V]

	loader            Loader[K, V]
	refreshAfterWrite time.Duration

	sched   scheduler.Scheduler
	permits chan struct{} // bounds concurrent background refreshes

	pendingMu sync.Mutex
	pending   map[K]struct{}
}

func newLoadingCache[K comparable, V any](c *Cache[K, V], loader Loader[K, V], refreshAfterWrite time.Duration, concurrency int) *LoadingCache[K, V] {
	return &LoadingCache[K, V]{
		Cache:             c,
		loader:            loader,
		refreshAfterWrite: refreshAfterWrite,
		sched:             scheduler.NewBlocking(c.tick),
		permits:           make(chan struct{}, concurrency),
		pending:           make(map[K]struct{}),
	}
}

// GetOrLoad returns the cached value for key, loading it via the
// configured Loader on a miss or expiry. A non-expired entry whose age
// exceeds the configured refresh-after-write duration is returned
// immediately, with a background refresh enqueued (deduplicated per
// key) rather than blocking the caller (spec section 4.9.5).
//
// On a Loader error, the failure is counted in load-failure stats and
// returned to the caller; the cache is left unchanged. ErrNilLoadResult
// from the loader is treated the same way (spec section 4.9.9).
func (lc *LoadingCache[K, V]) GetOrLoad(key K) (V, error) {
	lc.mu.Lock()
	if e, ok := lc.entries[key]; ok {
		now := lc.tick.ReadNanos()
		if cause, expired := lc.expiryCause(e, now); expired {
			lc.removeLocked(e, cause)
		} else {
			e.accessNanos = now
			lc.moveToHead(e)
			lc.stats.recordHit()
			value := e.value
			if lc.refreshAfterWrite > 0 && now-e.writeNanos > int64(lc.refreshAfterWrite) {
				lc.triggerRefresh(key)
			}
			lc.mu.Unlock()
			return value, nil
		}
	}
	lc.stats.recordMiss()
	lc.mu.Unlock()
	return lc.load(key)
}

// load runs the Loader synchronously, records stats, and on success
// stores the result in the cache.
func (lc *LoadingCache[K, V]) load(key K) (V, error) {
	start := lc.tick.ReadNanos()
	value, err := lc.loader(key)
	elapsed := time.Duration(lc.tick.ReadNanos() - start)
	if err != nil {
		lc.stats.recordLoadFailure(elapsed)
		var zero V
		return zero, err
	}
	lc.stats.recordLoadSuccess(elapsed)
	lc.mu.Lock()
	lc.putLocked(key, value)
	lc.mu.Unlock()
	return value, nil
}

// triggerRefresh enqueues a background reload of key if one is not
// already pending, bounded to the configured refresh concurrency.
// Caller must hold lc.mu; triggerRefresh releases nothing extra (the
// refresh work itself runs on the scheduler, not inline).
func (lc *LoadingCache[K, V]) triggerRefresh(key K) {
	lc.pendingMu.Lock()
	if _, already := lc.pending[key]; already {
		lc.pendingMu.Unlock()
		return
	}
	lc.pending[key] = struct{}{}
	lc.pendingMu.Unlock()

	lc.sched.Execute(func() {
		defer func() {
			lc.pendingMu.Lock()
			delete(lc.pending, key)
			lc.pendingMu.Unlock()
		}()

		select {
		case lc.permits <- struct{}{}:
		default:
			// refresh executor saturated: drop and log, refresh is
			// best-effort per spec section 9's open-question resolution.
			rxlog.Warn(nil, "cache: refresh dropped, executor saturated", nil, rxlog.F("key", key))
			return
		}
		defer func() { <-lc.permits }()

		start := lc.tick.ReadNanos()
		value, err := lc.loader(key)
		elapsed := time.Duration(lc.tick.ReadNanos() - start)
		if err != nil {
			lc.stats.recordLoadFailure(elapsed)
			rxlog.Warn(nil, "cache: refresh failed, keeping stale value", err, rxlog.F("key", key))
			return
		}
		lc.stats.recordLoadSuccess(elapsed)
		lc.mu.Lock()
		lc.putLocked(key, value)
		lc.mu.Unlock()
	})
}

// Shutdown releases the background refresh scheduler's resources. It
// does not clear the cache.
func (lc *LoadingCache[K, V]) Shutdown() {
	_ = lc.sched.Shutdown(context.Background())
}
