package ratelimit

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/flowforge/reactor/ticker"
)

// tokenBucketState is the single immutable record CAS-updated by every
// Acquire/TryAcquire, mirroring catrate's packed-atomic category state:
// storedPermits is how many tokens are sitting in the bucket right now
// (as of nextFreeTicketNanos), and nextFreeTicketNanos is the earliest
// time at which a newly requested token becomes available.
type tokenBucketState struct {
	storedPermits       float64
	nextFreeTicketNanos int64
}

// TokenBucket is the default Limiter strategy: a classic lock-free token
// bucket, refilled continuously at permitsPerSecond up to burstSize,
// implemented exactly per spec section 4.8.1's five-step algorithm.
type TokenBucket struct {
	state            atomic.Pointer[tokenBucketState]
	tick             ticker.Ticker
	permitsPerSecond float64
	burstSize        float64
	intervalNanos    float64
}

// NewTokenBucket constructs a TokenBucket allowing permitsPerSecond
// sustained throughput with bursts up to burstSize permits.
func NewTokenBucket(permitsPerSecond float64, burstSize int, tick ticker.Ticker) *TokenBucket {
	requirePositive("permitsPerSecond", permitsPerSecond)
	requirePositive("burstSize", burstSize)
	tb := &TokenBucket{
		tick:             tick,
		permitsPerSecond: permitsPerSecond,
		burstSize:        float64(burstSize),
		intervalNanos:    1e9 / permitsPerSecond,
	}
	tb.state.Store(&tokenBucketState{
		storedPermits:       float64(burstSize),
		nextFreeTicketNanos: tick.ReadNanos(),
	})
	return tb
}

// reserve performs the CAS-retried five-step reservation and returns the
// wait duration the caller must observe before its permits are actually
// usable.
func (tb *TokenBucket) reserve(n int) time.Duration {
	k := float64(n)
	for {
		now := tb.tick.ReadNanos()
		cur := tb.state.Load()

		stored := cur.storedPermits
		nextFree := cur.nextFreeTicketNanos
		if float64(now) > float64(nextFree) {
			elapsed := float64(now-nextFree) / tb.intervalNanos
			stored = math.Min(tb.burstSize, stored+elapsed)
			nextFree = now
		}

		used := math.Min(stored, k)
		fresh := k - used
		newNextFree := int64(math.Max(float64(nextFree), float64(now)) + fresh*tb.intervalNanos)

		next := &tokenBucketState{
			storedPermits:       stored - used,
			nextFreeTicketNanos: newNextFree,
		}
		if tb.state.CompareAndSwap(cur, next) {
			wait := time.Duration(nextFree) - time.Duration(now)
			if wait < 0 {
				wait = 0
			}
			return wait
		}
	}
}

// Acquire implements Limiter.
func (tb *TokenBucket) Acquire(ctx context.Context, n int) (time.Duration, error) {
	if n <= 0 {
		return 0, nil
	}
	wait := tb.reserve(n)
	if err := sleep(ctx, wait); err != nil {
		return wait, err
	}
	return wait, nil
}

// TryAcquire implements Limiter: it succeeds only if n permits are
// available with zero wait, otherwise it leaves the bucket untouched.
func (tb *TokenBucket) TryAcquire(n int) bool {
	if n <= 0 {
		return true
	}
	k := float64(n)
	for {
		now := tb.tick.ReadNanos()
		cur := tb.state.Load()

		stored := cur.storedPermits
		nextFree := cur.nextFreeTicketNanos
		if float64(now) > float64(nextFree) {
			elapsed := float64(now-nextFree) / tb.intervalNanos
			stored = math.Min(tb.burstSize, stored+elapsed)
			nextFree = now
		}

		if stored < k || now < nextFree {
			return false
		}

		next := &tokenBucketState{
			storedPermits:       stored - k,
			nextFreeTicketNanos: nextFree,
		}
		if tb.state.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// WithLimit implements Limiter.
func (tb *TokenBucket) WithLimit(ctx context.Context, fn func() error) error {
	return withLimit(ctx, tb, 1, fn)
}

// WithLimitN implements Limiter.
func (tb *TokenBucket) WithLimitN(ctx context.Context, n int, fn func() error) error {
	return withLimit(ctx, tb, n, fn)
}

// AvailablePermits implements Limiter.
func (tb *TokenBucket) AvailablePermits() float64 {
	now := tb.tick.ReadNanos()
	cur := tb.state.Load()
	stored := cur.storedPermits
	if float64(now) > float64(cur.nextFreeTicketNanos) {
		elapsed := float64(now-cur.nextFreeTicketNanos) / tb.intervalNanos
		stored = math.Min(tb.burstSize, stored+elapsed)
	}
	return stored
}

// EstimatedWait implements Limiter without mutating any state. It
// reports the time until n permits have accumulated in the bucket.
// Acquire can return sooner: when no earlier reservation is
// outstanding it grants the permits at once, with zero wait, and the
// time they cost is waited out by the next caller.
func (tb *TokenBucket) EstimatedWait(n int) time.Duration {
	available := tb.AvailablePermits()
	k := float64(n)
	if available >= k {
		return 0
	}
	fresh := k - available
	return time.Duration(fresh * tb.intervalNanos)
}

// RatePerSecond implements Limiter.
func (tb *TokenBucket) RatePerSecond() float64 {
	return tb.permitsPerSecond
}
