package ratelimit

import (
	"context"
	"math"
	"time"
)

// unlimited is the always-allow Limiter: every call succeeds instantly,
// per spec section 4.8.3's "unlimited variant".
type unlimited struct{}

// Unlimited returns a Limiter that never blocks and never rejects.
func Unlimited() Limiter { return unlimited{} }

func (unlimited) Acquire(context.Context, int) (time.Duration, error) { return 0, nil }
func (unlimited) TryAcquire(int) bool                                 { return true }
func (u unlimited) WithLimit(ctx context.Context, fn func() error) error {
	return withLimit(ctx, u, 1, fn)
}
func (u unlimited) WithLimitN(ctx context.Context, n int, fn func() error) error {
	return withLimit(ctx, u, n, fn)
}
func (unlimited) AvailablePermits() float64         { return math.Inf(1) }
func (unlimited) EstimatedWait(int) time.Duration   { return 0 }
func (unlimited) RatePerSecond() float64            { return math.Inf(1) }
