package rx_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/rx"
)

func TestMapTransformsValues(t *testing.T) {
	sched := newSched()
	got, err := collect[string](t, rx.Map(rx.Sequence(1, 2, 3), func(n int) string {
		if n == 2 {
			return "two"
		}
		return "other"
	}), sched)
	require.NoError(t, err)
	require.Equal(t, []string{"other", "two", "other"}, got)
}

func TestFilterDropsAndRequestsReplacement(t *testing.T) {
	sched := newSched()
	got, err := collect[int](t, rx.Filter(rx.Sequence(1, 2, 3, 4, 5, 6), func(n int) bool { return n%2 == 0 }), sched)
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 6}, got)
}

func TestTransformFlattensErrorIntoValue(t *testing.T) {
	sched := newSched()
	sentinel := errors.New("fail")
	got, err := collect[string](t, rx.Transform[int, string](rx.Exception[int](sentinel), func(tr rx.Try[int]) string {
		if tr.Err != nil {
			return "err:" + tr.Err.Error()
		}
		if tr.Completed {
			return "done"
		}
		return "val"
	}), sched)
	require.NoError(t, err)
	require.Equal(t, []string{"err:fail"}, got)
}

func TestRecoverReplacesFailedStream(t *testing.T) {
	sched := newSched()
	sentinel := errors.New("fail")
	got, err := collect[int](t, rx.Recover(rx.Exception[int](sentinel), func(e error) (rx.Stream[int], bool) {
		if errors.Is(e, sentinel) {
			return rx.Sequence(9, 9), true
		}
		return rx.Stream[int]{}, false
	}), sched)
	require.NoError(t, err)
	require.Equal(t, []int{9, 9}, got)
}

func TestRecoverPropagatesUnhandledError(t *testing.T) {
	sched := newSched()
	sentinel := errors.New("fail")
	_, err := collect[int](t, rx.Recover(rx.Exception[int](sentinel), func(e error) (rx.Stream[int], bool) {
		return rx.Stream[int]{}, false
	}), sched)
	require.ErrorIs(t, err, sentinel)
}

func TestFlatMapConcatenatesSequentially(t *testing.T) {
	sched := newSched()
	got, err := collect[int](t, rx.FlatMap(rx.Sequence(1, 2), func(n int) rx.Stream[int] {
		return rx.Sequence(n*10, n*10+1)
	}), sched)
	require.NoError(t, err)
	require.Equal(t, []int{10, 11, 20, 21}, got)
}

func TestFlatMapStopsOuterOnInnerError(t *testing.T) {
	sched := newSched()
	sentinel := errors.New("inner fail")
	got, err := collect[int](t, rx.FlatMap(rx.Sequence(1, 2), func(n int) rx.Stream[int] {
		if n == 1 {
			return rx.Exception[int](sentinel)
		}
		return rx.Sequence(n * 10)
	}), sched)
	require.ErrorIs(t, err, sentinel)
	require.Empty(t, got)
}
