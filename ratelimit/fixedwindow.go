package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/reactor/ticker"
)

// FixedWindow is a coarse-grained Limiter: it tracks a single counter
// that resets to zero every window, per spec section 4.8.2. A single
// mutex guards it; hot-path contention is expected to be low relative
// to TokenBucket's CAS retries.
type FixedWindow struct {
	mu            sync.Mutex
	maxOperations int
	window        time.Duration
	tick          ticker.Ticker
	windowStart   int64
	count         int
}

// NewFixedWindow constructs a FixedWindow allowing up to maxOperations
// acquisitions per window.
func NewFixedWindow(maxOperations int, window time.Duration, tick ticker.Ticker) *FixedWindow {
	requirePositive("maxOperations", maxOperations)
	requirePositive("window", window)
	return &FixedWindow{
		maxOperations: maxOperations,
		window:        window,
		tick:          tick,
		windowStart:   tick.ReadNanos(),
	}
}

// resetIfExpired rolls the window forward if it has elapsed. Caller must
// hold fw.mu.
func (fw *FixedWindow) resetIfExpired(now int64) {
	if now-fw.windowStart >= int64(fw.window) {
		fw.windowStart = now
		fw.count = 0
	}
}

// TryAcquire implements Limiter.
func (fw *FixedWindow) TryAcquire(n int) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	now := fw.tick.ReadNanos()
	fw.resetIfExpired(now)
	if fw.count+n > fw.maxOperations {
		return false
	}
	fw.count += n
	return true
}

// Acquire implements Limiter, blocking until the current window has
// capacity for n operations.
func (fw *FixedWindow) Acquire(ctx context.Context, n int) (time.Duration, error) {
	waited := time.Duration(0)
	for {
		fw.mu.Lock()
		now := fw.tick.ReadNanos()
		fw.resetIfExpired(now)
		if fw.count+n <= fw.maxOperations {
			fw.count += n
			fw.mu.Unlock()
			return waited, nil
		}
		wait := time.Duration(fw.windowStart+int64(fw.window) - now)
		fw.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// WithLimit implements Limiter.
func (fw *FixedWindow) WithLimit(ctx context.Context, fn func() error) error {
	return withLimit(ctx, fw, 1, fn)
}

// WithLimitN implements Limiter.
func (fw *FixedWindow) WithLimitN(ctx context.Context, n int, fn func() error) error {
	return withLimit(ctx, fw, n, fn)
}

// AvailablePermits implements Limiter.
func (fw *FixedWindow) AvailablePermits() float64 {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	now := fw.tick.ReadNanos()
	fw.resetIfExpired(now)
	return float64(fw.maxOperations - fw.count)
}

// EstimatedWait implements Limiter.
func (fw *FixedWindow) EstimatedWait(n int) time.Duration {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	now := fw.tick.ReadNanos()
	fw.resetIfExpired(now)
	if fw.count+n <= fw.maxOperations {
		return 0
	}
	return time.Duration(fw.windowStart+int64(fw.window) - now)
}

// RatePerSecond implements Limiter.
func (fw *FixedWindow) RatePerSecond() float64 {
	return float64(fw.maxOperations) / fw.window.Seconds()
}
