package rx

import (
	"context"

	"github.com/flowforge/reactor/latch"
	"github.com/flowforge/reactor/scheduler"
)

// Fiber is a running Stream detached from its caller: Start launches the
// Stream immediately (treating it as a single eventual result, per
// await's semantics) and returns a handle that can be polled, joined, or
// cancelled independently of the goroutine that created it.
type Fiber[A any] struct {
	sub   Subscription
	latch *latch.Latch[A]
}

// Start subscribes to s on sched and returns a Fiber representing the
// in-flight computation. The Stream's last emitted value before
// completion becomes the Fiber's result; an OnError terminates it with
// that error.
func Start[A any](ctx context.Context, s Stream[A], sched scheduler.Scheduler) *Fiber[A] {
	l := latch.New[A]()
	runCtx, cancel := context.WithCancel(ctx)

	var last A
	sub := s.subscribe(runCtx, sched, func(ev Event[A]) Result {
		switch ev.Kind {
		case KindNext:
			last = ev.Value
			return Continue()
		case KindError:
			l.CompleteError(ev.Err)
			return Stop()
		default:
			l.Complete(last)
			return Stop()
		}
	})

	return &Fiber[A]{sub: Subscription{cancelFn: func() { cancel(); sub.Cancel() }, requestFn: sub.Request}, latch: l}
}

// Join blocks until the fiber completes (returning its result), fails
// (returning its error), or ctx is done. Joining a cancelled fiber
// returns ErrCancelled if the fiber has not already settled with a more
// specific error.
func (f *Fiber[A]) Join(ctx context.Context) (A, error) {
	return f.latch.Get(ctx)
}

// Poll returns the fiber's result (and any error) without blocking if it
// has already settled; the trailing bool reports whether it has. A
// fiber that settled with an error reports that error here, not a
// value - TryGet alone can't distinguish "not done" from "done with
// error", so settled-ness is checked via IsCompleted first.
func (f *Fiber[A]) Poll() (A, error, bool) {
	if !f.latch.IsCompleted() {
		var zero A
		return zero, nil, false
	}
	v, err := f.latch.Get(context.Background())
	return v, err, true
}

// IsDone reports whether the fiber has settled (successfully, with an
// error, or via cancellation).
func (f *Fiber[A]) IsDone() bool {
	return f.latch.IsCompleted()
}

// Cancel requests the fiber stop running. If it has not already
// settled, Cancel resolves it with ErrCancelled.
func (f *Fiber[A]) Cancel() {
	f.sub.Cancel()
	f.latch.CompleteError(ErrCancelled)
}
