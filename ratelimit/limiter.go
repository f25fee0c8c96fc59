// Package ratelimit provides a uniform rate limiter interface with three
// interchangeable strategies (token bucket, fixed window, sliding
// window) plus an always-allow Unlimited variant, per spec section 4.8.
//
// Unlike the rest of this module's concurrency primitives, Acquire is a
// deliberately blocking, synchronous call: it sleeps the calling
// goroutine for as long as the strategy says a caller must wait, the
// way catrate and the source system's RateLimiter both do. Callers that
// want cooperative, non-blocking behaviour use TryAcquire instead.
package ratelimit

import (
	"context"
	"time"
)

// Limiter is the shared surface every rate-limiting strategy implements.
type Limiter interface {
	// Acquire blocks until n permits are available (sleeping the calling
	// goroutine for the computed wait, or returning early if ctx is
	// done), then returns how long it waited.
	Acquire(ctx context.Context, n int) (time.Duration, error)
	// TryAcquire reports whether n permits were available right now,
	// consuming them if so, without blocking.
	TryAcquire(n int) bool
	// WithLimit acquires one permit, runs fn, and returns fn's error (or
	// the acquisition's, if acquiring itself failed).
	WithLimit(ctx context.Context, fn func() error) error
	// WithLimitN is WithLimit acquiring n permits.
	WithLimitN(ctx context.Context, n int, fn func() error) error
	// AvailablePermits reports the number of permits usable right now
	// without waiting.
	AvailablePermits() float64
	// EstimatedWait reports how long Acquire(n) would currently have to
	// wait, without actually acquiring anything.
	EstimatedWait(n int) time.Duration
	// RatePerSecond reports the strategy's configured steady-state rate,
	// or +Inf for Unlimited.
	RatePerSecond() float64
}

// withLimit is the shared WithLimit/WithLimitN implementation: every
// strategy below delegates to it rather than re-implementing the
// acquire-then-run-then-return-error pattern.
func withLimit(ctx context.Context, l Limiter, n int, fn func() error) error {
	if _, err := l.Acquire(ctx, n); err != nil {
		return err
	}
	return fn()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
