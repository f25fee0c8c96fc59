package rx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/rx"
)

func unitStream() rx.Stream[rx.Unit] { return rx.Single(rx.Unit{}) }

func TestUseRunsReleaseAndFinalizersLIFOOnSuccess(t *testing.T) {
	sched := newSched()
	var order []string

	r := rx.Resource[int]{
		Acquire: rx.Single(42),
		Release: func(int) rx.Stream[rx.Unit] {
			order = append(order, "release")
			return unitStream()
		},
		Finalizers: []rx.Stream[rx.Unit]{
			rx.FromFuture(func(ctx context.Context) (rx.Unit, error) {
				order = append(order, "finalizer-1")
				return rx.Unit{}, nil
			}),
			rx.FromFuture(func(ctx context.Context) (rx.Unit, error) {
				order = append(order, "finalizer-2")
				return rx.Unit{}, nil
			}),
		},
	}

	result, err := rx.Use[int, int](context.Background(), r, sched, func(v int) (int, error) {
		order = append(order, "body")
		return v + 1, nil
	})
	require.NoError(t, err)
	require.Equal(t, 43, result)
	require.Equal(t, []string{"body", "release", "finalizer-2", "finalizer-1"}, order)
}

func TestUseAccumulatesSuppressedErrorsFromCleanup(t *testing.T) {
	sched := newSched()
	releaseErr := errors.New("release failed")
	finalizerErr := errors.New("finalizer failed")

	r := rx.Resource[int]{
		Acquire: rx.Single(1),
		Release: func(int) rx.Stream[rx.Unit] {
			return rx.Exception[rx.Unit](releaseErr)
		},
		Finalizers: []rx.Stream[rx.Unit]{
			rx.Exception[rx.Unit](finalizerErr),
		},
	}

	bodyErr := errors.New("body failed")
	_, err := rx.Use[int, int](context.Background(), r, sched, func(int) (int, error) {
		return 0, bodyErr
	})
	var suppressed *rx.SuppressedError
	require.ErrorAs(t, err, &suppressed)
	require.Equal(t, bodyErr, suppressed.Primary)
	require.Equal(t, []error{releaseErr, finalizerErr}, suppressed.Suppressed)
}

func TestUseSurfacesCleanupErrorWhenBodySucceeds(t *testing.T) {
	sched := newSched()
	releaseErr := errors.New("release failed")

	r := rx.Resource[int]{
		Acquire: rx.Single(1),
		Release: func(int) rx.Stream[rx.Unit] {
			return rx.Exception[rx.Unit](releaseErr)
		},
	}

	_, err := rx.Use[int, int](context.Background(), r, sched, func(int) (int, error) {
		return 7, nil
	})
	var suppressed *rx.SuppressedError
	require.ErrorAs(t, err, &suppressed)
	require.Equal(t, releaseErr, suppressed.Primary)
	require.Empty(t, suppressed.Suppressed)
}
