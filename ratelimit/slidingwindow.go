package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/flowforge/reactor/ticker"
)

// SlidingWindow is a Limiter that keeps a ring buffer of recent
// acquisition timestamps, accepting a request only if fewer than
// maxOperations remain within the trailing window, per spec section
// 4.8.3.
type SlidingWindow struct {
	mu            sync.Mutex
	maxOperations int
	window        time.Duration
	tick          ticker.Ticker
	events        *timestampRing
}

// NewSlidingWindow constructs a SlidingWindow allowing up to
// maxOperations acquisitions within any trailing window duration.
func NewSlidingWindow(maxOperations int, window time.Duration, tick ticker.Ticker) *SlidingWindow {
	requirePositive("maxOperations", maxOperations)
	requirePositive("window", window)
	return &SlidingWindow{
		maxOperations: maxOperations,
		window:        window,
		tick:          tick,
		events:        newTimestampRing(8),
	}
}

// TryAcquire implements Limiter.
func (sw *SlidingWindow) TryAcquire(n int) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := sw.tick.ReadNanos()
	sw.events.DropBefore(now - int64(sw.window))
	if sw.events.Len()+n > sw.maxOperations {
		return false
	}
	for i := 0; i < n; i++ {
		sw.events.PushBack(now)
	}
	return true
}

// Acquire implements Limiter, blocking until the oldest in-window
// acquisitions age out enough to admit n more.
func (sw *SlidingWindow) Acquire(ctx context.Context, n int) (time.Duration, error) {
	waited := time.Duration(0)
	for {
		sw.mu.Lock()
		now := sw.tick.ReadNanos()
		sw.events.DropBefore(now - int64(sw.window))
		if sw.events.Len()+n <= sw.maxOperations {
			for i := 0; i < n; i++ {
				sw.events.PushBack(now)
			}
			sw.mu.Unlock()
			return waited, nil
		}
		oldest := sw.events.Get(0)
		wait := time.Duration(oldest+int64(sw.window) - now)
		sw.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// WithLimit implements Limiter.
func (sw *SlidingWindow) WithLimit(ctx context.Context, fn func() error) error {
	return withLimit(ctx, sw, 1, fn)
}

// WithLimitN implements Limiter.
func (sw *SlidingWindow) WithLimitN(ctx context.Context, n int, fn func() error) error {
	return withLimit(ctx, sw, n, fn)
}

// AvailablePermits implements Limiter.
func (sw *SlidingWindow) AvailablePermits() float64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := sw.tick.ReadNanos()
	sw.events.DropBefore(now - int64(sw.window))
	return float64(sw.maxOperations - sw.events.Len())
}

// EstimatedWait implements Limiter.
func (sw *SlidingWindow) EstimatedWait(n int) time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := sw.tick.ReadNanos()
	sw.events.DropBefore(now - int64(sw.window))
	if sw.events.Len()+n <= sw.maxOperations {
		return 0
	}
	oldest := sw.events.Get(0)
	return time.Duration(oldest+int64(sw.window) - now)
}

// RatePerSecond implements Limiter.
func (sw *SlidingWindow) RatePerSecond() float64 {
	return float64(sw.maxOperations) / sw.window.Seconds()
}
