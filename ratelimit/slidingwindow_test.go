package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/ratelimit"
	"github.com/flowforge/reactor/ticker"
)

func TestSlidingWindowAdmitsUpToMaxThenWaitsForExpiry(t *testing.T) {
	tick := ticker.Manual()
	sw := ratelimit.NewSlidingWindow(2, time.Second, tick)

	require.True(t, sw.TryAcquire(1))
	tick.Advance(400 * time.Millisecond)
	require.True(t, sw.TryAcquire(1))
	require.False(t, sw.TryAcquire(1))

	tick.Advance(601 * time.Millisecond) // first entry now outside the window
	require.True(t, sw.TryAcquire(1))
}

func TestSlidingWindowEstimatedWait(t *testing.T) {
	tick := ticker.Manual()
	sw := ratelimit.NewSlidingWindow(1, time.Second, tick)
	require.True(t, sw.TryAcquire(1))
	require.False(t, sw.TryAcquire(1))

	wait := sw.EstimatedWait(1)
	require.InDelta(t, float64(time.Second), float64(wait), float64(time.Millisecond))
}
