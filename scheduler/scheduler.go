// Package scheduler provides a task executor with delayed and
// fixed-rate scheduling, used by the rx runner to drive deferred stream
// work and by the cache package to run background refreshes.
//
// Three execution models are offered: a bounded worker pool
// (NewDefault), an unbounded goroutine-per-task pool intended for
// blocking work (NewBlocking), and a single cooperative worker
// (NewSingleThreaded).
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowforge/reactor/internal/rxlog"
	"github.com/flowforge/reactor/ticker"
)

// pollInterval bounds how long a pending Schedule/ScheduleAtFixedRate entry
// can sit past its deadline before the poll loop notices it. It is not tied
// to the supplied Ticker: a ticker.ManualTicker only changes on Advance/Set,
// so firing still has to be driven by a real wall-clock wake-up, just one
// that re-checks logical time on each wake rather than sleeping for a
// duration computed from the ticker (which could be arbitrary, or never
// arrive, under a manual clock).
const pollInterval = time.Millisecond

// Scheduler runs tasks, optionally delayed or repeating.
type Scheduler interface {
	// Execute submits task for immediate (best-effort) execution. A task
	// panic is recovered and logged; it never propagates to the caller or
	// crashes a worker.
	Execute(task func())

	// Schedule runs task once, after delay has elapsed according to the
	// Scheduler's Ticker. The returned CancelToken can prevent the task
	// from running, if cancelled before it fires.
	Schedule(delay time.Duration, task func()) CancelToken

	// ScheduleAtFixedRate runs task repeatedly: first after initialDelay,
	// then every period, until cancelled or the Scheduler is shut down.
	// A missed tick (the prior run plus period already elapsed by the
	// time it would fire) is not caught up; the next fire is rebased off
	// the current time.
	ScheduleAtFixedRate(initialDelay, period time.Duration, task func()) CancelToken

	// Parallelism reports the number of worker goroutines backing this
	// Scheduler, or 0 if the Scheduler spawns one goroutine per task.
	Parallelism() int

	// Shutdown stops accepting new work and waits for in-flight tasks to
	// finish. Schedule and ScheduleAtFixedRate tasks that have not fired
	// yet are dropped without running. If ctx is done first, Shutdown
	// returns ctx's error without waiting further; in-flight tasks are
	// not interrupted.
	Shutdown(ctx context.Context) error
}

// CancelToken cancels a pending Schedule or ScheduleAtFixedRate
// registration. It is a comparable value type; the underlying
// cancellation state is shared by reference.
type CancelToken struct {
	state *cancelState
}

type cancelState struct {
	cancelled atomic.Bool
	// remove, guarded by mu, proactively drops the associated entry from
	// its timer heap on a successful Cancel, instead of leaving it to be
	// popped and discarded once its (possibly distant) deadline arrives.
	// It's reassigned each time ScheduleAtFixedRate re-pushes a fired
	// entry's next occurrence, hence the lock rather than a plain field.
	mu     sync.Mutex
	remove func()
}

// Cancel prevents the associated task from running again. It returns true
// only on the call that performs the cancelled transition; later calls
// return false. A task already in flight is not interrupted.
func (c CancelToken) Cancel() bool {
	if c.state == nil {
		return false
	}
	ok := c.state.cancelled.CompareAndSwap(false, true)
	if ok {
		c.state.mu.Lock()
		remove := c.state.remove
		c.state.mu.Unlock()
		if remove != nil {
			remove()
		}
	}
	return ok
}

// IsCancelled reports whether Cancel has taken effect.
func (c CancelToken) IsCancelled() bool {
	return c.state != nil && c.state.cancelled.Load()
}

func newCancelToken() CancelToken {
	return CancelToken{state: &cancelState{}}
}

type impl struct {
	tick        ticker.Ticker
	parallelism int // 0 means unbounded (one goroutine per task)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	taskCh chan func() // unused when parallelism == 0

	mu   sync.Mutex
	heap timerHeap
	wake chan struct{}

	shutdownOnce sync.Once
}

// NewDefault returns a Scheduler backed by a fixed pool of parallelism
// worker goroutines, suitable for short, non-blocking tasks. parallelism
// must be positive.
func NewDefault(parallelism int, tick ticker.Ticker) Scheduler {
	if parallelism <= 0 {
		panic("scheduler: parallelism must be positive")
	}
	return newImpl(parallelism, tick)
}

// NewBlocking returns a Scheduler that runs every task on its own
// goroutine, appropriate for tasks that may block (e.g. a cache refresh
// loader performing I/O).
func NewBlocking(tick ticker.Ticker) Scheduler {
	return newImpl(0, tick)
}

// NewSingleThreaded returns a Scheduler with exactly one worker goroutine,
// running tasks strictly one at a time in submission order (subject to
// delay/period ordering), for hosts that require single-threaded task
// execution.
func NewSingleThreaded(tick ticker.Ticker) Scheduler {
	return newImpl(1, tick)
}

func newImpl(parallelism int, tick ticker.Ticker) *impl {
	if tick == nil {
		tick = ticker.System()
	}
	ctx, cancel := context.WithCancel(context.Background())
	x := &impl{
		tick:        tick,
		parallelism: parallelism,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		wake:        make(chan struct{}, 1),
	}
	if parallelism > 0 {
		x.taskCh = make(chan func())
		for i := 0; i < parallelism; i++ {
			x.wg.Add(1)
			go x.worker()
		}
	}
	x.wg.Add(1)
	go x.pollLoop()
	go func() {
		x.wg.Wait()
		close(x.done)
	}()
	return x
}

func (x *impl) Parallelism() int { return x.parallelism }

func (x *impl) worker() {
	defer x.wg.Done()
	for {
		select {
		case <-x.ctx.Done():
			return
		case task := <-x.taskCh:
			runRecovered(task)
		}
	}
}

// runRecovered invokes task, logging and swallowing any panic.
func runRecovered(task func()) {
	defer func() {
		if r := recover(); r != nil {
			rxlog.Error(nil, "scheduler: recovered task panic", nil, rxlog.F("panic", r))
		}
	}()
	task()
}

func (x *impl) Execute(task func()) {
	if task == nil {
		return
	}
	if x.ctx.Err() != nil {
		return
	}
	if x.parallelism == 0 {
		x.wg.Add(1)
		go func() {
			defer x.wg.Done()
			runRecovered(task)
		}()
		return
	}
	select {
	case <-x.ctx.Done():
	case x.taskCh <- task:
	}
}

func (x *impl) Schedule(delay time.Duration, task func()) CancelToken {
	if task == nil {
		return CancelToken{}
	}
	token := newCancelToken()
	entry := &timerEntry{
		deadline: x.tick.ReadNanos() + int64(delay),
		task:     task,
		token:    token.state,
	}
	x.pushEntry(entry)
	return token
}

func (x *impl) ScheduleAtFixedRate(initialDelay, period time.Duration, task func()) CancelToken {
	if task == nil || period <= 0 {
		return CancelToken{}
	}
	token := newCancelToken()
	entry := &timerEntry{
		deadline: x.tick.ReadNanos() + int64(initialDelay),
		period:   int64(period),
		task:     task,
		token:    token.state,
	}
	x.pushEntry(entry)
	return token
}

func (x *impl) pushEntry(e *timerEntry) {
	e.token.mu.Lock()
	e.token.remove = func() {
		x.mu.Lock()
		x.heap.remove(e)
		x.mu.Unlock()
	}
	e.token.mu.Unlock()
	x.mu.Lock()
	x.heap.push(e)
	x.mu.Unlock()
	select {
	case x.wake <- struct{}{}:
	default:
	}
}

func (x *impl) pollLoop() {
	defer x.wg.Done()
	t := time.NewTimer(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-x.ctx.Done():
			return
		case <-x.wake:
		case <-t.C:
		}
		x.fireDue()
		t.Reset(pollInterval)
	}
}

func (x *impl) fireDue() {
	now := x.tick.ReadNanos()
	var due []*timerEntry
	x.mu.Lock()
	for {
		next := x.heap.peek()
		if next == nil || next.deadline > now {
			break
		}
		due = append(due, x.heap.popMin())
	}
	x.mu.Unlock()

	for _, e := range due {
		if e.token.cancelled.Load() {
			continue
		}
		x.Execute(e.task)
		if e.period > 0 && !e.token.cancelled.Load() {
			next := e.deadline + e.period
			if next <= now {
				next = now + e.period
			}
			x.pushEntry(&timerEntry{deadline: next, period: e.period, task: e.task, token: e.token})
		}
	}
}

func (x *impl) Shutdown(ctx context.Context) error {
	var err error
	x.shutdownOnce.Do(func() {
		x.cancel()
	})
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-x.done:
	}
	return err
}

var (
	defaultOnce sync.Once
	defaultInst Scheduler
)

// Default returns a process-wide Scheduler, lazily constructed on first
// use with parallelism equal to runtime.GOMAXPROCS(0) and the system
// clock. Callers that want deterministic shutdown should construct their
// own Scheduler instead; Default has no automatic shutdown hook (Go has
// no portable process-exit hook), so it is the caller's responsibility to
// call Shutdown if that matters.
func Default() Scheduler {
	defaultOnce.Do(func() {
		defaultInst = NewDefault(runtime.GOMAXPROCS(0), ticker.System())
	})
	return defaultInst
}
