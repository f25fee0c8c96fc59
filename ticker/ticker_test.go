package ticker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/ticker"
)

func TestSystemTickerMonotonic(t *testing.T) {
	tk := ticker.System()
	prev := tk.ReadNanos()
	for i := 0; i < 1000; i++ {
		cur := tk.ReadNanos()
		require.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestManualTickerAdvance(t *testing.T) {
	tk := ticker.Manual()
	require.Equal(t, int64(0), tk.ReadNanos())

	tk.Advance(time.Second)
	require.Equal(t, int64(time.Second), tk.ReadNanos())

	tk.Advance(500 * time.Millisecond)
	require.Equal(t, int64(1500*time.Millisecond), tk.ReadNanos())
}

func TestManualTickerNeverAutoAdvances(t *testing.T) {
	tk := ticker.Manual()
	tk.Advance(time.Minute)
	v1 := tk.ReadNanos()
	time.Sleep(10 * time.Millisecond)
	v2 := tk.ReadNanos()
	require.Equal(t, v1, v2)
}

func TestManualTickerSet(t *testing.T) {
	tk := ticker.ManualAt(100)
	tk.Set(200)
	require.Equal(t, int64(200), tk.ReadNanos())

	require.Panics(t, func() { tk.Set(50) })
}

func TestManualTickerNegativeAdvancePanics(t *testing.T) {
	tk := ticker.Manual()
	require.Panics(t, func() { tk.Advance(-time.Second) })
}
