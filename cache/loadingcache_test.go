package cache_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/cache"
	"github.com/flowforge/reactor/ticker"
)

func TestLoadingCacheGetOrLoadPopulatesOnMiss(t *testing.T) {
	var calls atomic.Int32
	lc := cache.New[string, int]().BuildLoading(func(key string) (int, error) {
		calls.Add(1)
		return len(key), nil
	})

	v, err := lc.GetOrLoad("hello")
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.EqualValues(t, 1, calls.Load())

	v, err = lc.GetOrLoad("hello")
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.EqualValues(t, 1, calls.Load(), "second call should hit the cache, not the loader")
}

func TestLoadingCacheGetOrLoadPropagatesLoaderError(t *testing.T) {
	wantErr := errors.New("boom")
	lc := cache.New[string, int]().WithStats(true).BuildLoading(func(string) (int, error) {
		return 0, wantErr
	})

	_, err := lc.GetOrLoad("k")
	require.ErrorIs(t, err, wantErr)

	snap := lc.Stats()
	require.EqualValues(t, 1, snap.LoadFailureCount)
}

func TestLoadingCacheNilLoadResultConvention(t *testing.T) {
	lc := cache.New[string, int]().BuildLoading(func(string) (int, error) {
		return 0, cache.ErrNilLoadResult
	})
	_, err := lc.GetOrLoad("k")
	require.ErrorIs(t, err, cache.ErrNilLoadResult)
}

func TestLoadingCacheRefreshAfterWriteServesStaleThenUpdates(t *testing.T) {
	tick := ticker.Manual()
	refreshed := make(chan struct{}, 1)
	var version atomic.Int32
	version.Store(1)

	lc := cache.New[string, int]().
		WithExpirationAfterWrite(time.Minute).
		WithRefreshAfterWrite(30 * time.Second).
		WithTicker(tick).
		BuildLoading(func(key string) (int, error) {
			v := int(version.Load())
			select {
			case refreshed <- struct{}{}:
			default:
			}
			return v, nil
		})

	v, err := lc.GetOrLoad("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	<-refreshed // drain the synchronous initial load's signal

	version.Store(2)
	tick.Advance(31 * time.Second) // past refresh-after-write, before expire-after-write

	v, err = lc.GetOrLoad("a")
	require.NoError(t, err)
	require.Equal(t, 1, v, "stale value is served immediately while refresh runs in the background")

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("background refresh never ran")
	}

	require.Eventually(t, func() bool {
		v, _ := lc.Get("a")
		return v == 2
	}, time.Second, time.Millisecond, "refreshed value should eventually replace the stale one")

	lc.Shutdown()
}

func TestLoadingCacheRefreshFailureKeepsStaleValue(t *testing.T) {
	tick := ticker.Manual()
	attempted := make(chan struct{}, 1)
	fail := atomic.Bool{}

	lc := cache.New[string, int]().
		WithRefreshAfterWrite(30 * time.Second).
		WithTicker(tick).
		BuildLoading(func(key string) (int, error) {
			if fail.Load() {
				select {
				case attempted <- struct{}{}:
				default:
				}
				return 0, errors.New("loader unavailable")
			}
			return 1, nil
		})

	v, err := lc.GetOrLoad("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	fail.Store(true)
	tick.Advance(31 * time.Second)
	_, err = lc.GetOrLoad("a")
	require.NoError(t, err)

	select {
	case <-attempted:
	case <-time.After(time.Second):
		t.Fatal("background refresh never attempted")
	}

	// give the failed refresh a moment to (not) write back
	time.Sleep(20 * time.Millisecond)
	v, ok := lc.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v, "a failed refresh must leave the cached value untouched")

	lc.Shutdown()
}
