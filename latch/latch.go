// Package latch provides a one-shot, completable result shared by many
// waiters, used by the rx package's Fiber to hand off a stream's final
// value (or error) between the goroutine driving it and whoever joins.
package latch

import (
	"context"
	"sync/atomic"
)

// Latch is a single-assignment container: the first Complete or
// CompleteError call wins, and every subsequent Get (already waiting or
// not yet called) observes that result. The zero Latch is not usable;
// construct one with New.
type Latch[A any] struct {
	state atomic.Pointer[state[A]]
}

type state[A any] struct {
	done    bool
	value   A
	err     error
	waiters []chan struct{} // nil once done
}

// New returns a pending Latch.
func New[A any]() *Latch[A] {
	l := &Latch[A]{}
	l.state.Store(&state[A]{})
	return l
}

// Complete resolves the Latch with v, waking any waiters. It returns true
// only if this call performed the resolution; a Latch can only be
// completed once.
func (l *Latch[A]) Complete(v A) bool {
	return l.complete(v, nil)
}

// CompleteError resolves the Latch with an error, waking any waiters. It
// returns true only if this call performed the resolution.
func (l *Latch[A]) CompleteError(err error) bool {
	var zero A
	return l.complete(zero, err)
}

func (l *Latch[A]) complete(v A, err error) bool {
	for {
		cur := l.state.Load()
		if cur.done {
			return false
		}
		next := &state[A]{done: true, value: v, err: err}
		if l.state.CompareAndSwap(cur, next) {
			for _, w := range cur.waiters {
				close(w)
			}
			return true
		}
	}
}

// TryGet returns the result without blocking, iff the Latch has already
// completed successfully. A Latch completed with an error reports
// false, same as a Latch still pending; use Get to observe the error.
func (l *Latch[A]) TryGet() (A, bool) {
	cur := l.state.Load()
	if !cur.done || cur.err != nil {
		var zero A
		return zero, false
	}
	return cur.value, true
}

// IsCompleted reports whether the Latch has been resolved.
func (l *Latch[A]) IsCompleted() bool {
	return l.state.Load().done
}

// Get blocks cooperatively (registering a wake channel, not spinning)
// until the Latch is completed or ctx is done, whichever comes first.
func (l *Latch[A]) Get(ctx context.Context) (A, error) {
	if v, ok := l.TryGet(); ok {
		return v, l.state.Load().err
	}

	ch := make(chan struct{})
	for {
		cur := l.state.Load()
		if cur.done {
			return cur.value, cur.err
		}
		next := &state[A]{waiters: append(append([]chan struct{}(nil), cur.waiters...), ch)}
		if l.state.CompareAndSwap(cur, next) {
			break
		}
	}

	select {
	case <-ctx.Done():
		var zero A
		return zero, ctx.Err()
	case <-ch:
		cur := l.state.Load()
		return cur.value, cur.err
	}
}
