package rx

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowforge/reactor/scheduler"
)

// OverflowStrategy selects what OnBackpressureBuffer does when its
// internal buffer is full and a new upstream value arrives.
type OverflowStrategy int

const (
	// DropOldest discards the buffer's oldest value to make room.
	DropOldest OverflowStrategy = iota
	// DropNewest discards the incoming value, keeping the buffer as is.
	DropNewest
	// ErrorStrategy fails the stream with BackpressureOverflowError.
	ErrorStrategy
)

// BackpressureOverflowError is delivered via OnError when
// OnBackpressureBuffer is configured with ErrorStrategy and its buffer
// overflows.
type BackpressureOverflowError struct {
	Capacity int
}

func (e *BackpressureOverflowError) Error() string {
	return fmt.Sprintf("rx: backpressure buffer overflow (capacity %d)", e.Capacity)
}

// Buffer collects Capacity upstream values before emitting them
// downstream as a single []A, used for latency shaping (trading
// per-item latency for fewer, larger downstream deliveries). A short
// final batch is flushed on upstream completion.
func Buffer[A any](s Stream[A], capacity int) Stream[[]A] {
	if capacity <= 0 {
		panic("rx: buffer capacity must be positive")
	}
	return Stream[[]A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[[]A]) Subscription {
		var pending []A
		return s.subscribe(ctx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				pending = append(pending, ev.Value)
				if len(pending) < capacity {
					return Continue()
				}
				batch := pending
				pending = nil
				return obs(OnNext(batch))
			case KindError:
				return obs(OnError[[]A](ev.Err))
			default:
				if len(pending) != 0 {
					batch := pending
					pending = nil
					if res := obs(OnNext(batch)); res.IsStop() {
						return res
					}
				}
				return obs(OnCompletion[[]A]())
			}
		})
	}}
}

// OnBackpressureDrop silently discards upstream emissions whenever the
// downstream Observer's own demand (as expressed by its returned
// Results, or subsequent Subscription.Request calls) is exhausted. The
// upstream is never slowed down: this operator always reports Continue
// to it. onDrop, if non-nil, is invoked (synchronously) for every
// dropped value.
func OnBackpressureDrop[A any](s Stream[A], onDrop func(A)) Stream[A] {
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		ds := newDemandState()
		sub := s.subscribe(ctx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				allowed, _ := ds.tryConsume()
				if !allowed {
					if onDrop != nil {
						onDrop(ev.Value)
					}
					return Continue()
				}
				res := obs(ev)
				if res.IsStop() {
					ds.cancel()
					return Stop()
				}
				ds.applyResult(res)
				return Continue()
			case KindError:
				return obs(ev)
			default:
				return obs(ev)
			}
		})
		return Subscription{
			cancelFn: func() {
				ds.cancel()
				sub.Cancel()
			},
			requestFn: ds.addCredit,
		}
	}}
}

// OnBackpressureLatest keeps only the most recently dropped value when
// the downstream is saturated, delivering it as soon as demand resumes
// (equivalent to OnBackpressureBuffer with capacity 1 and DropOldest).
func OnBackpressureLatest[A any](s Stream[A]) Stream[A] {
	return OnBackpressureBuffer(s, 1, DropOldest)
}

// OnBackpressureBuffer buffers upstream emissions (up to capacity) while
// the downstream Observer is saturated, draining them as demand
// resumes. On overflow, strategy decides whether to drop the oldest
// buffered value, drop the incoming value, or fail the stream.
func OnBackpressureBuffer[A any](s Stream[A], capacity int, strategy OverflowStrategy) Stream[A] {
	if capacity <= 0 {
		panic("rx: backpressure buffer capacity must be positive")
	}
	return Stream[A]{subscribe: func(ctx context.Context, sched scheduler.Scheduler, obs Observer[A]) Subscription {
		ds := newDemandState()

		buf := &bufferedQueue[A]{notify: make(chan struct{}, 1)}

		drainDone := make(chan struct{})
		sched.Execute(func() {
			defer close(drainDone)
			for {
				buf.mu.Lock()
				if len(buf.items) == 0 {
					if buf.terminal != nil {
						err := buf.terminal
						buf.mu.Unlock()
						if *err != nil {
							obs(OnError[A](*err))
						} else {
							obs(OnCompletion[A]())
						}
						return
					}
					buf.mu.Unlock()
					select {
					case <-buf.notify:
						continue
					case <-ctx.Done():
						return
					}
				}
				allowed, wait := ds.tryConsume()
				if !allowed && wait == nil {
					// Cancelled. If the buffer failed (an ErrorStrategy
					// overflow), deliver that error now, ahead of the values
					// still buffered.
					err := buf.terminal
					buf.mu.Unlock()
					if err != nil && *err != nil {
						obs(OnError[A](*err))
					}
					return
				}
				if !allowed {
					buf.mu.Unlock()
					select {
					case <-wait:
						continue
					case <-buf.notify:
						continue
					case <-ctx.Done():
						return
					}
				}
				v := buf.items[0]
				buf.items = buf.items[1:]
				buf.mu.Unlock()
				res := obs(OnNext(v))
				if res.IsStop() {
					ds.cancel()
					return
				}
				ds.applyResult(res)
			}
		})

		sub := s.subscribe(ctx, sched, func(ev Event[A]) Result {
			switch ev.Kind {
			case KindNext:
				overflowErr := buf.push(ev.Value, capacity, strategy)
				if overflowErr != nil {
					buf.setTerminal(&overflowErr)
					ds.cancel()
					return Stop()
				}
				return Continue()
			case KindError:
				buf.setTerminal(&ev.Err)
				return Continue()
			default:
				var noErr error
				buf.setTerminal(&noErr)
				return Continue()
			}
		})

		return Subscription{
			cancelFn: func() {
				ds.cancel()
				sub.Cancel()
			},
			requestFn: ds.addCredit,
		}
	}}
}

// bufferedQueue is the internal overflow buffer backing
// OnBackpressureBuffer/OnBackpressureLatest.
type bufferedQueue[A any] struct {
	mu       sync.Mutex
	items    []A
	terminal *error // non-nil once upstream has completed or errored
	notify   chan struct{}
}

func (b *bufferedQueue[A]) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *bufferedQueue[A]) setTerminal(err *error) {
	b.mu.Lock()
	if b.terminal == nil {
		b.terminal = err
	}
	b.mu.Unlock()
	b.signal()
}

// push adds v to the buffer, applying strategy on overflow. It returns
// a non-nil error only under ErrorStrategy overflow, in which case the
// caller must treat the stream as terminally failed.
func (b *bufferedQueue[A]) push(v A, capacity int, strategy OverflowStrategy) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) < capacity {
		b.items = append(b.items, v)
		b.signal()
		return nil
	}
	switch strategy {
	case DropOldest:
		b.items = append(b.items[1:], v)
		b.signal()
		return nil
	case DropNewest:
		return nil
	case ErrorStrategy:
		return &BackpressureOverflowError{Capacity: capacity}
	default:
		return nil
	}
}
