package latch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/latch"
)

func TestCompleteThenGet(t *testing.T) {
	l := latch.New[int]()
	require.True(t, l.Complete(42))
	require.False(t, l.Complete(99), "second complete must not win")

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestCompleteErrorThenGet(t *testing.T) {
	l := latch.New[int]()
	boom := errors.New("boom")
	require.True(t, l.CompleteError(boom))

	_, err := l.Get(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestTryGetBeforeComplete(t *testing.T) {
	l := latch.New[string]()
	_, ok := l.TryGet()
	require.False(t, ok)
	require.False(t, l.IsCompleted())

	l.Complete("done")
	v, ok := l.TryGet()
	require.True(t, ok)
	require.Equal(t, "done", v)
	require.True(t, l.IsCompleted())
}

func TestTryGetReportsNoneOnErrorCompletion(t *testing.T) {
	l := latch.New[int]()
	require.True(t, l.CompleteError(errors.New("boom")))

	_, ok := l.TryGet()
	require.False(t, ok, "try_get must be None for a latch completed with an error")
	require.True(t, l.IsCompleted())
}

func TestGetBlocksUntilComplete(t *testing.T) {
	l := latch.New[int]()

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background())
			require.NoError(t, err)
			results[i] = v
		}()
	}

	time.Sleep(10 * time.Millisecond)
	l.Complete(7)
	wg.Wait()

	for _, v := range results {
		require.Equal(t, 7, v)
	}
}

func TestGetRespectsContextCancellation(t *testing.T) {
	l := latch.New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := l.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
