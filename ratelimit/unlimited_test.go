package ratelimit_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/ratelimit"
)

func TestUnlimitedNeverBlocksOrRejects(t *testing.T) {
	u := ratelimit.Unlimited()
	require.True(t, u.TryAcquire(1_000_000))
	wait, err := u.Acquire(context.Background(), 1_000_000)
	require.NoError(t, err)
	require.Zero(t, wait)
	require.True(t, math.IsInf(u.AvailablePermits(), 1))
	require.True(t, math.IsInf(u.RatePerSecond(), 1))
	require.Zero(t, u.EstimatedWait(1))
}
