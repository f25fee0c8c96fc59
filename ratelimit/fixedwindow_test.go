package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/ratelimit"
	"github.com/flowforge/reactor/ticker"
)

func TestFixedWindowResetsAfterWindowElapses(t *testing.T) {
	tick := ticker.Manual()
	fw := ratelimit.NewFixedWindow(3, time.Second, tick)

	require.True(t, fw.TryAcquire(1))
	require.True(t, fw.TryAcquire(1))
	require.True(t, fw.TryAcquire(1))
	require.False(t, fw.TryAcquire(1))

	tick.Advance(time.Second)
	require.True(t, fw.TryAcquire(1))
}

func TestFixedWindowRatePerSecond(t *testing.T) {
	tick := ticker.Manual()
	fw := ratelimit.NewFixedWindow(100, time.Second, tick)
	require.Equal(t, float64(100), fw.RatePerSecond())
}
