package rx

import (
	"context"

	"github.com/flowforge/reactor/scheduler"
)

// Unit is the value type for streams whose only purpose is to signal
// completion, such as a Resource's release and finalizer actions.
type Unit struct{}

// Resource describes an acquire/release/finalizers triple per spec
// section 4.7.5: Acquire produces the resource value, Release returns it,
// and Finalizers are additional cleanup actions run after Release,
// innermost-first (LIFO), regardless of how the body using the resource
// ended.
type Resource[A any] struct {
	Acquire    Stream[A]
	Release    func(A) Stream[Unit]
	Finalizers []Stream[Unit]
}

// Use acquires r, runs body with the acquired value, and then always
// runs Release followed by every Finalizer in LIFO order, even if body
// panics or errors. If Acquire itself fails (including by cancellation
// of ctx), Use returns that error without running Release or any
// Finalizer. Cleanup
// errors never replace a successful body result in isolation: they are
// attached as suppressed causes to whichever error actually failed the
// operation (the body's, if it failed; otherwise the first cleanup
// failure).
func Use[A, B any](ctx context.Context, r Resource[A], sched scheduler.Scheduler, body func(A) (B, error)) (B, error) {
	var zero B

	value, err := await(ctx, r.Acquire, sched)
	if err != nil {
		return zero, err
	}

	result, bodyErr := func() (result B, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if e, ok := rec.(error); ok {
					err = e
				} else {
					err = &panicError{value: rec}
				}
			}
		}()
		return body(value)
	}()

	var suppressed []error
	if _, releaseErr := await(ctx, r.Release(value), sched); releaseErr != nil {
		suppressed = append(suppressed, releaseErr)
	}
	for i := len(r.Finalizers) - 1; i >= 0; i-- {
		if _, finErr := await(ctx, r.Finalizers[i], sched); finErr != nil {
			suppressed = append(suppressed, finErr)
		}
	}

	if len(suppressed) == 0 {
		return result, bodyErr
	}
	if bodyErr != nil {
		return zero, &SuppressedError{Primary: bodyErr, Suppressed: suppressed}
	}
	return zero, &SuppressedError{Primary: suppressed[0], Suppressed: suppressed[1:]}
}

// panicError wraps a non-error value recovered from a Use body panic so
// it can still travel through the ordinary (B, error) return path.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return "rx: resource body panicked"
}
