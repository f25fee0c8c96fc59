package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/ratelimit"
	"github.com/flowforge/reactor/ticker"
)

func TestInstrumentedTracksAcquiresAndRejections(t *testing.T) {
	tick := ticker.Manual()
	inst := ratelimit.Instrument(ratelimit.NewTokenBucket(10, 2, tick))

	require.True(t, inst.TryAcquire(1))
	require.True(t, inst.TryAcquire(1))
	require.False(t, inst.TryAcquire(1))

	snap := inst.Stats()
	require.EqualValues(t, 2, snap.Acquires)
	require.EqualValues(t, 1, snap.Rejections)
	require.InDelta(t, 1.0/3.0, snap.RejectionRate(), 1e-9)
}

func TestInstrumentedRatePerSecondDelegates(t *testing.T) {
	inst := ratelimit.Instrument(ratelimit.Unlimited())
	require.Equal(t, ratelimit.Unlimited().RatePerSecond(), inst.RatePerSecond())
}
