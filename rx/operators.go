package rx

import (
	"context"

	"github.com/flowforge/reactor/scheduler"
)

// Try is the success-or-failure payload Transform receives, mirroring
// the event it was derived from without exposing the Stream machinery
// itself.
type Try[A any] struct {
	Value A
	Err   error
	// Completed is true for the synthetic Try delivered on upstream
	// completion (Value and Err are both zero in that case).
	Completed bool
}

// Map transforms every emitted value with f. Go generics don't support
// generic methods carrying their own type parameters, so this (and the
// other type-changing operators) is a free function rather than a
// Stream method.
func Map[A, B any](s Stream[A], f func(A) B) Stream[B] {
	return Stream[B]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[B]) Subscription {
		return s.subscribe(ctx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				return obs(OnNext(f(ev.Value)))
			case KindError:
				return obs(OnError[B](ev.Err))
			default:
				return obs(OnCompletion[B]())
			}
		})
	}}
}

// Filter drops values for which p returns false. A dropped value does
// not count against downstream demand: Filter asks upstream for one
// more item in its place.
func Filter[A any](s Stream[A], p func(A) bool) Stream[A] {
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		return s.subscribe(ctx, sched, func(ev Event[A]) Result {
			if ev.Kind == KindNext && !p(ev.Value) {
				return Request(1)
			}
			return obs(ev)
		})
	}}
}

// Transform maps every event (success, failure, or completion) to
// exactly one B, flattening the three-event protocol into a plain
// value stream that never itself errors (the B stream completes
// normally once the synthetic "completed" Try has been delivered).
func Transform[A, B any](s Stream[A], f func(Try[A]) B) Stream[B] {
	return Stream[B]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[B]) Subscription {
		return s.subscribe(ctx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				return obs(OnNext(f(Try[A]{Value: ev.Value})))
			case KindError:
				res := obs(OnNext(f(Try[A]{Err: ev.Err})))
				if res.IsStop() {
					return res
				}
				obs(OnCompletion[B]())
				return Stop()
			default:
				res := obs(OnNext(f(Try[A]{Completed: true})))
				if res.IsStop() {
					return res
				}
				obs(OnCompletion[B]())
				return Stop()
			}
		})
	}}
}

// Recover intercepts an upstream OnError: if f returns ok, the returned
// Stream replaces the remainder of the sequence (itself run fresh from
// the error); otherwise the error propagates downstream unchanged.
func Recover[A any](s Stream[A], f func(error) (Stream[A], bool)) Stream[A] {
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		var sub Subscription
		sub = s.subscribe(ctx, sched, func(ev Event[A]) Result {
			if ev.Kind == KindError {
				if replacement, ok := f(ev.Err); ok {
					sub = replacement.subscribe(ctx, sched, obs)
					return Stop()
				}
			}
			return obs(ev)
		})
		return Subscription{
			cancelFn:  func() { sub.Cancel() },
			requestFn: func(n int64) { sub.Request(n) },
		}
	}}
}

// FlatMap subscribes to f(v) for each emitted v, one inner Stream at a
// time (concatenation order): the next outer value is not requested
// until the current inner Stream completes. Bounded-concurrency,
// interleaved flat-mapping is ParFlatMap.
func FlatMap[A, B any](s Stream[A], f func(A) Stream[B]) Stream[B] {
	return Stream[B]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[B]) Subscription {
		var outer Subscription
		var inner Subscription
		outer = s.subscribe(ctx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				// Block the outer handler itself until the inner Stream
				// finishes, then return Request(1) from here - the outer
				// pump's own return-value channel - instead of Paused().
				// A synchronous outer source (e.g. Sequence) never returns
				// from its subscribe call until its pump parks or finishes,
				// so a Request(1) issued later via the outer Subscription
				// would have nothing to reach: it hasn't been assigned yet,
				// and the pump has nowhere else to observe it.
				done := make(chan struct{})
				failed := false
				inner = f(ev.Value).subscribe(ctx, sched, func(innerEv Event[B]) Result {
					switch innerEv.Kind {
					case KindNext:
						return obs(innerEv)
					case KindError:
						obs(innerEv)
						failed = true
						close(done)
						return Stop()
					default:
						close(done)
						return Stop()
					}
				})
				<-done
				if failed {
					return Stop()
				}
				return Request(1)
			case KindError:
				return obs(OnError[B](ev.Err))
			default:
				return obs(OnCompletion[B]())
			}
		})
		return Subscription{
			cancelFn: func() {
				outer.Cancel()
				inner.Cancel()
			},
			requestFn: func(n int64) { outer.Request(n) },
		}
	}}
}
