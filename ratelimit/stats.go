package ratelimit

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joeycumines/floater"
)

// Stats holds atomic counters for an Instrumented Limiter: how many
// acquire attempts succeeded vs. were rejected (TryAcquire returning
// false, or Acquire returning an error), and the cumulative time
// callers spent waiting in successful Acquires.
// This is the rate-limiter-scoped sibling of cache.Stats, per
// SPEC_FULL's supplemental data-model addition - off by default, opted
// into via Instrument.
type Stats struct {
	acquires       atomic.Int64
	rejections     atomic.Int64
	totalWaitNanos atomic.Int64
}

func (s *Stats) recordAcquire(wait time.Duration) {
	if s != nil {
		s.acquires.Add(1)
		s.totalWaitNanos.Add(int64(wait))
	}
}

func (s *Stats) recordRejection() {
	if s != nil {
		s.rejections.Add(1)
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Acquires:       s.acquires.Load(),
		Rejections:     s.rejections.Load(),
		TotalWaitNanos: s.totalWaitNanos.Load(),
	}
}

// StatsSnapshot is an immutable view of an Instrumented Limiter's
// counters at some instant.
type StatsSnapshot struct {
	Acquires       int64
	Rejections     int64
	TotalWaitNanos int64
}

// RejectionRate is Rejections / (Acquires + Rejections), or 0.0 if
// nothing was ever attempted.
func (s StatsSnapshot) RejectionRate() float64 {
	total := s.Acquires + s.Rejections
	if total == 0 {
		return 0.0
	}
	return float64(s.Rejections) / float64(total)
}

// AverageWait is the mean wait duration across every successful
// Acquire, or 0 if none have succeeded yet.
func (s StatsSnapshot) AverageWait() time.Duration {
	if s.Acquires == 0 {
		return 0
	}
	return time.Duration(s.TotalWaitNanos / s.Acquires)
}

// String renders a human-readable summary, formatting the average wait
// with floater so a fractional-nanosecond average doesn't print as an
// unreadable run of digits.
func (s StatsSnapshot) String() string {
	wait := s.AverageWait()
	return "RateLimiterStats{acquires=" + strconv.FormatInt(s.Acquires, 10) +
		", rejections=" + strconv.FormatInt(s.Rejections, 10) +
		", rejectionRate=" + strconv.FormatFloat(s.RejectionRate(), 'f', 4, 64) +
		", avgWait=" + floater.FormatUnitsNanosTrimmed(int64(wait/time.Second), int32(wait%time.Second)) + "s}"
}

// Instrumented wraps a Limiter with Stats tracking: every TryAcquire
// and every Acquire is counted as an acquire or a rejection (an Acquire
// that returns an error is a rejection), and every successful Acquire's
// observed wait is accumulated.
type Instrumented struct {
	Limiter
	stats *Stats
}

// Instrument wraps l so that its usage is tracked in a Stats snapshot,
// retrievable via Instrumented.Stats.
func Instrument(l Limiter) *Instrumented {
	return &Instrumented{Limiter: l, stats: &Stats{}}
}

// Stats returns a snapshot of the wrapped Limiter's usage counters.
func (i *Instrumented) Stats() StatsSnapshot {
	return i.stats.Snapshot()
}

// Acquire implements Limiter, recording the observed wait.
func (i *Instrumented) Acquire(ctx context.Context, n int) (time.Duration, error) {
	wait, err := i.Limiter.Acquire(ctx, n)
	if err != nil {
		i.stats.recordRejection()
		return wait, err
	}
	i.stats.recordAcquire(wait)
	return wait, nil
}

// TryAcquire implements Limiter, recording the outcome.
func (i *Instrumented) TryAcquire(n int) bool {
	ok := i.Limiter.TryAcquire(n)
	if ok {
		i.stats.recordAcquire(0)
	} else {
		i.stats.recordRejection()
	}
	return ok
}

// WithLimit implements Limiter, going through the instrumented Acquire.
func (i *Instrumented) WithLimit(ctx context.Context, fn func() error) error {
	return withLimit(ctx, i, 1, fn)
}

// WithLimitN implements Limiter, going through the instrumented Acquire.
func (i *Instrumented) WithLimitN(ctx context.Context, n int, fn func() error) error {
	return withLimit(ctx, i, n, fn)
}
