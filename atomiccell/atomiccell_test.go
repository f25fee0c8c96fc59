package atomiccell_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/atomiccell"
)

func TestGetSet(t *testing.T) {
	c := atomiccell.Of(1)
	require.Equal(t, 1, c.Get())
	c.Set(2)
	require.Equal(t, 2, c.Get())
}

func TestGetAndSet(t *testing.T) {
	c := atomiccell.Of("a")
	require.Equal(t, "a", c.GetAndSet("b"))
	require.Equal(t, "b", c.Get())
}

func TestUpdateAndGet(t *testing.T) {
	c := atomiccell.Of(10)
	got := c.UpdateAndGet(func(v int) int { return v + 5 })
	require.Equal(t, 15, got)
	require.Equal(t, 15, c.Get())
}

func TestGetAndUpdate(t *testing.T) {
	c := atomiccell.Of(10)
	prev := c.GetAndUpdate(func(v int) int { return v + 5 })
	require.Equal(t, 10, prev)
	require.Equal(t, 15, c.Get())
}

func TestModify(t *testing.T) {
	c := atomiccell.Of(10)
	doubled := atomiccell.Modify(c, func(v int) (int, int) { return v + 1, v * 2 })
	require.Equal(t, 20, doubled)
	require.Equal(t, 11, c.Get())
}

func TestCompareAndSwap(t *testing.T) {
	c := atomiccell.Of(1)
	require.True(t, c.CompareAndSwap(1, 2))
	require.Equal(t, 2, c.Get())
	require.False(t, c.CompareAndSwap(1, 3))
	require.Equal(t, 2, c.Get())
}

func TestCellOfCompareAndSwap(t *testing.T) {
	c := atomiccell.OfComparable(1)
	require.True(t, c.CompareAndSwap(1, 2))
	require.False(t, c.CompareAndSwap(1, 3))
	require.Equal(t, 2, c.Get())
}

func TestUpdateUnderContention(t *testing.T) {
	c := atomiccell.Of(0)
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()
	require.Equal(t, n, c.Get())
}
