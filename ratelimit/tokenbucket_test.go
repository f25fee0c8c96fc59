package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/ratelimit"
	"github.com/flowforge/reactor/ticker"
)

func TestTokenBucketBurstThenThrottle(t *testing.T) {
	tick := ticker.Manual()
	tb := ratelimit.NewTokenBucket(10, 5, tick)

	for i := 0; i < 5; i++ {
		require.True(t, tb.TryAcquire(1), "burst permit %d", i)
	}
	require.False(t, tb.TryAcquire(1), "burst exhausted")
	require.Equal(t, float64(0), tb.AvailablePermits())

	tick.Advance(100 * time.Millisecond)
	require.True(t, tb.TryAcquire(1))
}

func TestTokenBucketAcquireBlocksAndReportsWait(t *testing.T) {
	tick := ticker.Manual()
	tb := ratelimit.NewTokenBucket(10, 1, tick)
	require.True(t, tb.TryAcquire(1))

	wait := tb.EstimatedWait(1)
	require.InDelta(t, float64(100*time.Millisecond), float64(wait), float64(time.Millisecond))

	// With no reservation outstanding, Acquire is granted at once and
	// pushes the next free slot 100ms ahead; the following Acquire must
	// wait that long, past its 1ms deadline.
	first, err := tb.Acquire(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, first)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = tb.Acquire(ctx, 1)
	require.Error(t, err)
}

func TestTokenBucketRatePerSecond(t *testing.T) {
	tick := ticker.Manual()
	tb := ratelimit.NewTokenBucket(42, 1, tick)
	require.Equal(t, float64(42), tb.RatePerSecond())
}
