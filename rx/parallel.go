package rx

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flowforge/reactor/scheduler"
	"github.com/flowforge/reactor/semaphore"
)

// Pair is the result of ParZip.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the result of ParZip3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Race runs every stream concurrently and settles with whichever
// completes (successfully or with an error) first, cancelling the
// rest. If streams is empty, the returned Stream never settles,
// mirroring the teacher's ChainedPromise.Race on an empty input.
func Race[A any](streams ...Stream[A]) Stream[A] {
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		if len(streams) == 0 {
			return Subscription{cancelFn: cancel}
		}
		type outcome struct {
			v   A
			err error
		}
		resCh := make(chan outcome, len(streams))
		for _, st := range streams {
			st := st
			sched.Execute(func() {
				v, err := await(runCtx, st, sched)
				select {
				case resCh <- outcome{v, err}:
				default:
				}
			})
		}
		go func() {
			select {
			case r := <-resCh:
				cancel()
				if r.err != nil {
					obs(OnError[A](r.err))
					return
				}
				if obs(OnNext(r.v)).IsStop() {
					return
				}
				obs(OnCompletion[A]())
			case <-runCtx.Done():
			}
		}()
		return Subscription{cancelFn: cancel}
	}}
}

// ParSequence runs every stream concurrently (unbounded parallelism)
// and collects their results in input order. If any participant fails,
// the first error is surfaced and the rest are cancelled; per spec
// section 9's open question, the result slice is only meaningful on
// full success, so a failure delivers OnError without ever emitting a
// partial slice.
func ParSequence[A any](streams ...Stream[A]) Stream[[]A] {
	return ParSequenceN(max(1, len(streams)), streams...)
}

// ParSequenceN is ParSequence with an explicit bound p on concurrently
// running streams.
func ParSequenceN[A any](p int, streams ...Stream[A]) Stream[[]A] {
	if p <= 0 {
		panic("rx: parallelism must be positive")
	}
	return Stream[[]A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[[]A]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		go func() {
			if len(streams) == 0 {
				obs(OnNext([]A{}))
				obs(OnCompletion[[]A]())
				return
			}
			g, gctx := errgroup.WithContext(runCtx)
			g.SetLimit(p)
			results := make([]A, len(streams))
			for i, st := range streams {
				i, st := i, st
				g.Go(func() error {
					v, err := await(gctx, st, sched)
					if err != nil {
						return err
					}
					results[i] = v
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				obs(OnError[[]A](err))
				return
			}
			if obs(OnNext(results)).IsStop() {
				return
			}
			obs(OnCompletion[[]A]())
		}()
		return Subscription{cancelFn: cancel}
	}}
}

// ParTraverse maps f over xs and runs the resulting streams via
// ParSequence.
func ParTraverse[X, A any](xs []X, f func(X) Stream[A]) Stream[[]A] {
	streams := make([]Stream[A], len(xs))
	for i, x := range xs {
		streams[i] = f(x)
	}
	return ParSequence(streams...)
}

// ParZip runs a and b concurrently and combines their results as a
// Pair once both succeed.
func ParZip[A, B any](a Stream[A], b Stream[B]) Stream[Pair[A, B]] {
	return Stream[Pair[A, B]]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[Pair[A, B]]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		go func() {
			g, gctx := errgroup.WithContext(runCtx)
			var av A
			var bv B
			g.Go(func() (err error) { av, err = awaitPair(gctx, a, sched); return })
			g.Go(func() (err error) { bv, err = awaitPair(gctx, b, sched); return })
			if err := g.Wait(); err != nil {
				obs(OnError[Pair[A, B]](err))
				return
			}
			if obs(OnNext(Pair[A, B]{First: av, Second: bv})).IsStop() {
				return
			}
			obs(OnCompletion[Pair[A, B]]())
		}()
		return Subscription{cancelFn: cancel}
	}}
}

// ParZip3 is ParZip for three streams.
func ParZip3[A, B, C any](a Stream[A], b Stream[B], c Stream[C]) Stream[Triple[A, B, C]] {
	return Stream[Triple[A, B, C]]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[Triple[A, B, C]]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		go func() {
			g, gctx := errgroup.WithContext(runCtx)
			var av A
			var bv B
			var cv C
			g.Go(func() (err error) { av, err = awaitPair(gctx, a, sched); return })
			g.Go(func() (err error) { bv, err = awaitPair(gctx, b, sched); return })
			g.Go(func() (err error) { cv, err = awaitPair(gctx, c, sched); return })
			if err := g.Wait(); err != nil {
				obs(OnError[Triple[A, B, C]](err))
				return
			}
			if obs(OnNext(Triple[A, B, C]{First: av, Second: bv, Third: cv})).IsStop() {
				return
			}
			obs(OnCompletion[Triple[A, B, C]]())
		}()
		return Subscription{cancelFn: cancel}
	}}
}

// awaitPair is await, spelled out for use inside an errgroup.Go closure
// with named returns.
func awaitPair[A any](ctx context.Context, s Stream[A], sched scheduler.Scheduler) (A, error) {
	return await(ctx, s, sched)
}

// Merge interleaves emissions from every stream as they arrive (order
// across streams is unspecified), completing once all have completed.
// If any stream errors, the error propagates immediately and the rest
// are cancelled.
func Merge[A any](streams ...Stream[A]) Stream[A] {
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		if len(streams) == 0 {
			obs(OnCompletion[A]())
			return Subscription{cancelFn: cancel}
		}

		var mu sync.Mutex
		remaining := len(streams)
		finished := false
		subs := make([]Subscription, len(streams))

		finishOnce := func() {
			mu.Lock()
			if finished {
				mu.Unlock()
				return
			}
			finished = true
			mu.Unlock()
			cancel()
			for _, sub := range subs {
				sub.Cancel()
			}
		}

		for i, st := range streams {
			i := i
			subs[i] = st.subscribe(runCtx, sched, func(ev Event[A]) Result {
				mu.Lock()
				done := finished
				mu.Unlock()
				if done {
					return Stop()
				}
				switch ev.Kind {
				case KindNext:
					return obs(ev)
				case KindError:
					obs(ev)
					finishOnce()
					return Stop()
				default:
					mu.Lock()
					remaining--
					r := remaining
					mu.Unlock()
					if r == 0 {
						obs(OnCompletion[A]())
						finishOnce()
					}
					return Stop()
				}
			})
		}
		return Subscription{cancelFn: finishOnce}
	}}
}

// ParFlatMap flat-maps f over s with bounded concurrency p: up to p
// inner streams run at once, their emissions interleaved downstream
// (order across inner streams unspecified, like Merge).
func ParFlatMap[A, B any](s Stream[A], p int, f func(A) Stream[B]) Stream[B] {
	if p <= 0 {
		panic("rx: parallelism must be positive")
	}
	return Stream[B]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[B]) Subscription {
		runCtx, cancel := context.WithCancel(ctx)
		sem := semaphore.New(p)
		var wg sync.WaitGroup
		var mu sync.Mutex
		outerDone := false
		failed := false

		maybeFinish := func() {
			mu.Lock()
			d := outerDone
			mu.Unlock()
			if !d {
				return
			}
			wg.Wait()
			mu.Lock()
			f := failed
			mu.Unlock()
			if !f {
				obs(OnCompletion[B]())
			}
		}

		outerSub := s.subscribe(runCtx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				wg.Add(1)
				v := ev.Value
				sched.Execute(func() {
					defer wg.Done()
					if err := sem.Acquire(runCtx, 1); err != nil {
						return
					}
					defer sem.Release(1)
					f(v).subscribe(runCtx, sched, func(innerEv Event[B]) Result {
						switch innerEv.Kind {
						case KindNext:
							return obs(innerEv)
						case KindError:
							mu.Lock()
							failed = true
							mu.Unlock()
							obs(innerEv)
							cancel()
							return Stop()
						default:
							return Stop()
						}
					})
				})
				return Request(1)
			case KindError:
				mu.Lock()
				failed = true
				mu.Unlock()
				return obs(ev)
			default:
				mu.Lock()
				outerDone = true
				mu.Unlock()
				go maybeFinish()
				return Stop()
			}
		})
		return Subscription{cancelFn: func() {
			cancel()
			outerSub.Cancel()
		}}
	}}
}
