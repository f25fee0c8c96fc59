package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/scheduler"
	"github.com/flowforge/reactor/ticker"
)

func TestExecuteRunsTask(t *testing.T) {
	s := scheduler.NewDefault(2, ticker.System())
	defer s.Shutdown(context.Background())

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	s.Execute(func() {
		ran.Store(true)
		wg.Done()
	})
	wg.Wait()
	require.True(t, ran.Load())
}

func TestExecuteRecoversPanic(t *testing.T) {
	s := scheduler.NewDefault(1, ticker.System())
	defer s.Shutdown(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	s.Execute(func() {
		defer wg.Done()
		panic("boom")
	})
	var ran atomic.Bool
	s.Execute(func() {
		defer wg.Done()
		ran.Store(true)
	})
	wg.Wait()
	require.True(t, ran.Load(), "worker must survive a panic in a prior task")
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	tk := ticker.Manual()
	s := scheduler.NewDefault(1, tk)
	defer s.Shutdown(context.Background())

	fired := make(chan struct{})
	s.Schedule(100*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
		t.Fatal("task fired before delay elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	tk.Advance(100 * time.Millisecond)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not fire after manual clock advance")
	}
}

func TestScheduleCancelPreventsFire(t *testing.T) {
	tk := ticker.Manual()
	s := scheduler.NewDefault(1, tk)
	defer s.Shutdown(context.Background())

	var fired atomic.Bool
	token := s.Schedule(50*time.Millisecond, func() { fired.Store(true) })
	require.True(t, token.Cancel())
	require.False(t, token.Cancel(), "second cancel must return false")

	tk.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestScheduleAtFixedRateRepeats(t *testing.T) {
	tk := ticker.Manual()
	s := scheduler.NewDefault(1, tk)
	defer s.Shutdown(context.Background())

	var count atomic.Int32
	token := s.ScheduleAtFixedRate(10*time.Millisecond, 10*time.Millisecond, func() {
		count.Add(1)
	})
	defer token.Cancel()

	for i := 0; i < 3; i++ {
		tk.Advance(10 * time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}
	require.GreaterOrEqual(t, count.Load(), int32(3))

	token.Cancel()
	stopped := count.Load()
	tk.Advance(100 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, stopped, count.Load(), "no further fires after cancel")
}

func TestShutdownWaitsForInFlight(t *testing.T) {
	s := scheduler.NewBlocking(ticker.System())

	started := make(chan struct{})
	release := make(chan struct{})
	s.Execute(func() {
		close(started)
		<-release
	})
	<-started

	done := make(chan error, 1)
	go func() { done <- s.Shutdown(context.Background()) }()

	select {
	case <-done:
		t.Fatal("shutdown returned before in-flight task finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
}

func TestShutdownForcedByContext(t *testing.T) {
	s := scheduler.NewBlocking(ticker.System())
	block := make(chan struct{})
	defer close(block)
	s.Execute(func() { <-block })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParallelism(t *testing.T) {
	require.Equal(t, 4, scheduler.NewDefault(4, ticker.System()).Parallelism())
	require.Equal(t, 1, scheduler.NewSingleThreaded(ticker.System()).Parallelism())
	require.Equal(t, 0, scheduler.NewBlocking(ticker.System()).Parallelism())
}

func TestSingleThreadedRunsSerially(t *testing.T) {
	s := scheduler.NewSingleThreaded(ticker.System())
	defer s.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		s.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	require.Len(t, order, 5)
}

func TestDefaultSchedulerIsSingleton(t *testing.T) {
	require.Same(t, anyScheduler(scheduler.Default()), anyScheduler(scheduler.Default()))
}

func anyScheduler(s scheduler.Scheduler) any { return s }
