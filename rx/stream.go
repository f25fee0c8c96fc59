package rx

import (
	"context"
	"sync"

	"github.com/flowforge/reactor/scheduler"
)

// Subscription is the handle returned by Run, letting a caller pull more
// demand or cancel an in-flight execution. The zero Subscription is
// inert (both methods are no-ops), matching a Stream that already
// completed synchronously.
type Subscription struct {
	cancelFn  func()
	requestFn func(n int64)
}

// Cancel terminates the subscription; idempotent, and terminal (further
// events are not delivered after Cancel, though an event already in
// flight may still be observed).
func (s Subscription) Cancel() {
	if s.cancelFn != nil {
		s.cancelFn()
	}
}

// Request asks the running Stream for n additional events, on top of
// whatever demand the Observer's own Results have expressed. Has no
// effect on an unbounded (Continue) or already-terminated subscription.
func (s Subscription) Request(n int64) {
	if n <= 0 {
		return
	}
	if s.requestFn != nil {
		s.requestFn(n)
	}
}

// Stream is a lazy, declarative description of an asynchronous sequence
// of A values. Constructing one (via Single, Map, etc.) has no side
// effect; nothing runs until Run subscribes an Observer.
type Stream[A any] struct {
	subscribe func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription
}

// Run subscribes obs to s, returning a Subscription the caller can use
// to request more demand or cancel. sched drives any asynchronous work
// the Stream needs (FromFuture, Variable, buffering operators, ...).
func Run[A any](ctx context.Context, s Stream[A], sched scheduler.Scheduler, obs Observer[A]) Subscription {
	return s.subscribe(ctx, sched, obs)
}

// demandState tracks pull credit across a pump loop that delivers many
// events to a single Observer call-by-call: Continue is unbounded (the
// unbounded flag), a finite Result adds its Request(n) to the credit
// (Paused adds nothing), and credit is decremented once per delivered
// event. Subscription.Request adds external credit on top of whatever
// the Observer's own Results express.
type demandState struct {
	mu        sync.Mutex
	unbounded bool
	credit    int64
	cancelled bool
	wake      chan struct{} // non-nil only while a pump goroutine is parked waiting for credit
}

func newDemandState() *demandState {
	return &demandState{unbounded: true}
}

func (d *demandState) applyResult(r Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelled {
		return
	}
	n, finite := r.Remaining()
	if !finite {
		d.unbounded = true
		d.credit = 0
		return
	}
	d.unbounded = false
	d.credit += n
}

// addCredit is called by Subscription.Request; it never reduces
// existing credit, and has no effect once unbounded.
func (d *demandState) addCredit(n int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelled || d.unbounded {
		return
	}
	d.credit += n
	if d.wake != nil {
		close(d.wake)
		d.wake = nil
	}
}

func (d *demandState) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled = true
	if d.wake != nil {
		close(d.wake)
		d.wake = nil
	}
}

func (d *demandState) isCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

// tryConsume reports whether the pump may deliver one more event right
// now, consuming one unit of finite credit if so.
func (d *demandState) tryConsume() (allowed bool, waitCh chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelled {
		return false, nil
	}
	if d.unbounded {
		return true, nil
	}
	if d.credit > 0 {
		d.credit--
		return true, nil
	}
	d.wake = make(chan struct{})
	return false, d.wake
}

// Single returns a Stream that emits v once, then completes.
func Single[A any](v A) Stream[A] { return Sequence(v) }

// Empty returns a Stream that completes immediately without emitting.
func Empty[A any]() Stream[A] { return Sequence[A]() }

// Exception returns a Stream that fails immediately with err, without
// emitting any value.
func Exception[A any](err error) Stream[A] {
	return Stream[A]{subscribe: func(_ context.Context, _ scheduler.Scheduler, obs Observer[A]) Subscription {
		obs(OnError[A](err))
		return Subscription{}
	}}
}

// Sequence returns a Stream that emits each of xs, in order, then
// completes.
func Sequence[A any](xs ...A) Stream[A] {
	items := append([]A(nil), xs...)
	return Stream[A]{subscribe: func(ctx context.Context, _ scheduler.Scheduler, obs Observer[A]) Subscription {
		demand := newDemandState()
		idx := 0
		var pump func()
		pump = func() {
			for {
				if ctx.Err() != nil || demand.isCancelled() {
					return
				}
				if idx >= len(items) {
					obs(OnCompletion[A]())
					return
				}
				allowed, wait := demand.tryConsume()
				if !allowed {
					if wait == nil {
						return
					}
					// Park off the subscriber's goroutine, so the subscribe
					// call returns the Subscription whose Request closes wait.
					go func() {
						select {
						case <-wait:
							pump()
						case <-ctx.Done():
						}
					}()
					return
				}
				v := items[idx]
				idx++
				res := obs(OnNext(v))
				if res.IsStop() {
					demand.cancel()
					return
				}
				demand.applyResult(res)
			}
		}
		pump()
		return Subscription{
			cancelFn:  demand.cancel,
			requestFn: demand.addCredit,
		}
	}}
}

// FromFuture returns a Stream that runs fn asynchronously on sched,
// emitting its result (or error) exactly once.
func FromFuture[A any](fn func(ctx context.Context) (A, error)) Stream[A] {
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		sched.Execute(func() {
			v, err := fn(runCtx)
			if runCtx.Err() != nil {
				return
			}
			if err != nil {
				obs(OnError[A](err))
				return
			}
			if obs(OnNext(v)).IsStop() {
				return
			}
			obs(OnCompletion[A]())
		})
		return Subscription{cancelFn: cancel}
	}}
}

// Var is a push source: external code calls Push/Complete/Error to feed
// values to whatever Stream subscribes to it, via Variable.
type Var[A any] struct {
	mu        sync.Mutex
	observers []Observer[A]
	done      bool
	err       error
}

// NewVariable returns a fresh Var and the Stream subscribers attach to.
func NewVariable[A any]() (*Var[A], Stream[A]) {
	v := &Var[A]{}
	s := Stream[A]{subscribe: func(_ context.Context, _ scheduler.Scheduler, obs Observer[A]) Subscription {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.done {
			if v.err != nil {
				obs(OnError[A](v.err))
			} else {
				obs(OnCompletion[A]())
			}
			return Subscription{}
		}
		v.observers = append(v.observers, obs)
		idx := len(v.observers) - 1
		return Subscription{cancelFn: func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if idx < len(v.observers) {
				v.observers[idx] = nil
			}
		}}
	}}
	return v, s
}

// Push delivers v to every currently subscribed Observer.
func (v *Var[A]) Push(val A) {
	v.mu.Lock()
	obs := append([]Observer[A](nil), v.observers...)
	done := v.done
	v.mu.Unlock()
	if done {
		return
	}
	for _, o := range obs {
		if o != nil {
			o(OnNext(val))
		}
	}
}

// Complete marks the Var as finished successfully, notifying every
// current subscriber exactly once.
func (v *Var[A]) Complete() {
	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return
	}
	v.done = true
	obs := v.observers
	v.observers = nil
	v.mu.Unlock()
	for _, o := range obs {
		if o != nil {
			o(OnCompletion[A]())
		}
	}
}

// Error marks the Var as finished with err, notifying every current
// subscriber exactly once.
func (v *Var[A]) Error(err error) {
	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return
	}
	v.done = true
	v.err = err
	obs := v.observers
	v.observers = nil
	v.mu.Unlock()
	for _, o := range obs {
		if o != nil {
			o(OnError[A](err))
		}
	}
}
