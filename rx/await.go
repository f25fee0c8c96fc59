package rx

import (
	"context"
	"sync"

	"github.com/flowforge/reactor/scheduler"
)

// await runs s to completion and returns its final emitted value (the
// last OnNext seen before OnCompletion) or its error. It is the shared
// building block for the parallel combinators and the resource
// bracket, all of which treat a Stream as a single eventual result, per
// spec section 4.7.3's promise-like framing of race/par_sequence/zip.
func await[A any](ctx context.Context, s Stream[A], sched scheduler.Scheduler) (A, error) {
	var mu sync.Mutex
	var last A
	done := make(chan struct{})
	var result A
	var resultErr error
	once := false

	Run(ctx, s, sched, func(ev Event[A]) Result {
		switch ev.Kind {
		case KindNext:
			mu.Lock()
			last = ev.Value
			mu.Unlock()
			return Continue()
		case KindError:
			if !once {
				once = true
				resultErr = ev.Err
				close(done)
			}
			return Stop()
		default:
			if !once {
				once = true
				mu.Lock()
				result = last
				mu.Unlock()
				close(done)
			}
			return Stop()
		}
	})

	select {
	case <-done:
		return result, resultErr
	case <-ctx.Done():
		var zero A
		return zero, ctx.Err()
	}
}
