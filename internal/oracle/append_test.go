package oracle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// S6: append oracle out-of-order. Threads allocate keys 101, 102, 103
// with 103 and 102 publishing before 101; rows stays at 100 until 101
// resolves, then jumps straight to 103 in that one sweep.
func TestScenarioS6_AppendOutOfOrder(t *testing.T) {
	a := NewAppend(100)

	k1 := a.Reserve()
	k2 := a.Reserve()
	k3 := a.Reserve()
	require.Equal(t, []uint64{101, 102, 103}, []uint64{k1, k2, k3})

	a.Resolve(103)
	require.Equal(t, uint64(100), a.Rows())
	require.Equal(t, 1, a.Pending())

	a.Resolve(102)
	require.Equal(t, uint64(100), a.Rows(), "rows must not advance past the unresolved 101")
	require.Equal(t, 2, a.Pending())

	a.Resolve(101)
	require.Equal(t, uint64(103), a.Rows(), "one sweep must absorb 101, 102 and 103")
	require.Equal(t, 0, a.Pending())
}

func TestAppend_InOrderNeverBlocks(t *testing.T) {
	a := NewAppend(0)
	for i := uint64(1); i <= 50; i++ {
		got := a.Reserve()
		require.Equal(t, i, got)
		a.Resolve(got)
		require.Equal(t, i, a.Rows())
	}
}

func TestAppend_ConcurrentResolveConverges(t *testing.T) {
	a := NewAppend(0)
	const n = 200
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = a.Reserve()
	}

	var wg sync.WaitGroup
	for _, k := range keys {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Resolve(k)
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(n), a.Rows())
	require.Equal(t, 0, a.Pending())
}
