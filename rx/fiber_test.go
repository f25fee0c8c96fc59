package rx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/rx"
)

func TestFiberJoinReturnsLastValue(t *testing.T) {
	sched := newSched()
	f := rx.Start[int](context.Background(), rx.Sequence(1, 2, 3), sched)
	v, err := f.Join(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestFiberJoinPropagatesError(t *testing.T) {
	sched := newSched()
	sentinel := errors.New("boom")
	f := rx.Start[int](context.Background(), rx.Exception[int](sentinel), sched)
	_, err := f.Join(context.Background())
	require.ErrorIs(t, err, sentinel)
}

func TestFiberCancelResolvesWithCancelledError(t *testing.T) {
	sched := newSched()
	v, s := rx.NewVariable[int]()
	f := rx.Start[int](context.Background(), s, sched)
	f.Cancel()
	_, err := f.Join(context.Background())
	require.ErrorIs(t, err, rx.ErrCancelled)
	v.Push(1) // no observers left; must not panic
}

func TestFiberPollReportsFailure(t *testing.T) {
	sched := newSched()
	sentinel := errors.New("boom")
	f := rx.Start[int](context.Background(), rx.Exception[int](sentinel), sched)
	require.Eventually(t, func() bool {
		_, _, done := f.Poll()
		return done
	}, time.Second, time.Millisecond)
	_, err, done := f.Poll()
	require.True(t, done)
	require.ErrorIs(t, err, sentinel)
}

func TestFiberPollReportsCompletion(t *testing.T) {
	sched := newSched()
	f := rx.Start[int](context.Background(), rx.Single(5), sched)
	require.Eventually(t, func() bool {
		_, _, done := f.Poll()
		return done
	}, time.Second, time.Millisecond)
	v, err, done := f.Poll()
	require.True(t, done)
	require.NoError(t, err)
	require.Equal(t, 5, v)
}
