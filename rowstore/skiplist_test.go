package rowstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func level0Keys(head *SkipListHead) [][]byte {
	var out [][]byte
	for n := head.Head[0].Load(); n != nil; n = n.Next[0].Load() {
		out = append(out, n.Key)
	}
	return out
}

func insertAt(t *testing.T, core *Core, txn TxnManager, leaf *Leaf, gapIdx int, key, value []byte) error {
	t.Helper()
	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, gapIdx, core.Cache)
	pos := Search(head, key, BytesComparator)
	cur := &Cursor{Leaf: leaf, Key: key, Value: value, Txn: txn, Position: pos}
	cur.SearchSmallest = gapIdx == leaf.entries
	cur.Slot = gapIdx
	return core.Modify(cur, false)
}

// S1: empty page, two inserts of keys A < B.
func TestScenarioS1_TwoInsertsAscending(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(0)

	require.NoError(t, insertAt(t, core, txn, leaf, 0, []byte("A"), []byte("va")))
	require.NoError(t, insertAt(t, core, txn, leaf, 0, []byte("B"), []byte("vb")))

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)
	keys := level0Keys(head)
	require.Len(t, keys, 2)
	require.Equal(t, "A", string(keys[0]))
	require.Equal(t, "B", string(keys[1]))

	tail := head.Tail[0].Load()
	require.Equal(t, "B", string(tail.Key))
}

// S2: two writers race to insert the same key B into the same gap
// between A and C. Exactly one wins; the other restarts and succeeds
// on retry.
func TestScenarioS2_ConcurrentInsertSameGap(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(0)

	require.NoError(t, insertAt(t, core, txn, leaf, 0, []byte("A"), []byte("va")))
	require.NoError(t, insertAt(t, core, txn, leaf, 0, []byte("C"), []byte("vc")))

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)

	// Both writers position against the same observed state (between
	// A and C) before either publishes.
	pos1 := Search(head, []byte("B"), BytesComparator)
	pos2 := Search(head, []byte("B"), BytesComparator)

	cur1 := &Cursor{Leaf: leaf, Key: []byte("B"), Value: []byte("v1"), Txn: txn, Position: pos1}
	cur2 := &Cursor{Leaf: leaf, Key: []byte("B"), Value: []byte("v2"), Txn: txn, Position: pos2}

	err1 := core.Modify(cur1, false)
	err2 := core.Modify(cur2, false)

	require.NoError(t, err1)
	require.True(t, IsRestart(err2), "second writer must restart: %v", err2)

	// Retry: re-position and it succeeds.
	pos2b := Search(head, []byte("B"), BytesComparator)
	cur2b := &Cursor{Leaf: leaf, Key: []byte("B"), Value: []byte("v2"), Txn: txn, Position: pos2b}
	require.NoError(t, core.Modify(cur2b, false))

	keys := level0Keys(head)
	require.Len(t, keys, 3)
	require.Equal(t, []string{"A", "B", "C"}, []string{string(keys[0]), string(keys[1]), string(keys[2])})
}

// Invariant 7: a solo writer on an idle page never observes restart.
func TestInvariant_SoloWriterNeverRestarts(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(0)

	keys := []string{"m", "a", "z", "c", "b", "y", "x"}
	for _, k := range keys {
		err := insertAt(t, core, txn, leaf, 0, []byte(k), []byte("v"))
		require.NoError(t, err)
	}

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)
	got := level0Keys(head)
	require.Len(t, got, len(keys))
	for i := 1; i < len(got); i++ {
		require.Less(t, BytesComparator(got[i-1], got[i]), 0, "level-0 list must be strictly ascending")
	}
}

// Invariant 2: every node reachable at level k>0 is reachable at level k-1.
func TestInvariant_LevelContainment(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(0)

	for i := 0; i < 200; i++ {
		k := []byte{byte(i)}
		require.NoError(t, insertAt(t, core, txn, leaf, 0, k, []byte("v")))
	}

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)

	for lvl := 1; lvl < MaxDepth; lvl++ {
		for n := head.Head[lvl].Load(); n != nil; n = n.Next[lvl].Load() {
			require.True(t, reachableAtLevel(head, lvl-1, n.Key), "key %v reachable at %d but not %d", n.Key, lvl, lvl-1)
		}
	}
}

func reachableAtLevel(head *SkipListHead, level int, key []byte) bool {
	for n := head.Head[level].Load(); n != nil; n = n.Next[level].Load() {
		if BytesComparator(n.Key, key) == 0 {
			return true
		}
	}
	return false
}

// Invariant 3: tail correctness.
func TestInvariant_TailCorrectness(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(0)

	for i := 0; i < 100; i++ {
		k := []byte{byte(i)}
		require.NoError(t, insertAt(t, core, txn, leaf, 0, k, []byte("v")))
	}

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)

	for lvl := 0; lvl < MaxDepth; lvl++ {
		tail := head.Tail[lvl].Load()
		if tail == nil {
			require.Nil(t, head.Head[lvl].Load())
			continue
		}
		require.Nil(t, tail.Next[lvl].Load(), "tail at level %d must have no successor", lvl)
	}
}

// S5: smallest-key insert lands in gaps[N].
func TestScenarioS5_SmallestKeyInsert(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(3) // 3 on-page keys -> gaps[0..3], smallest gap is index 3 (=N)

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, leaf.entries, core.Cache)
	pos := Search(head, []byte("aaa"), BytesComparator)
	cur := &Cursor{
		Leaf:     leaf,
		Key:      []byte("aaa"),
		Value:    []byte("v"),
		Txn:      txn,
		Position: pos,
	}
	cur.SearchSmallest = true
	require.NoError(t, core.Modify(cur, false))

	require.Equal(t, leaf.entries, cur.GapIndex(leaf.entries))
	got := level0Keys(head)
	require.Len(t, got, 1)
	require.Equal(t, "aaa", string(got[0]))
}

// Crash-free concurrency smoke test: many goroutines inserting disjoint
// keys into the same gap concurrently, retrying on restart.
func TestConcurrentInsertsRetryToCompletion(t *testing.T) {
	txn := newFakeTxnManager()
	core, _ := newTestCore()
	leaf := NewLeaf(0)

	const perWorker = 50
	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := []byte{byte(w), byte(i)}
				for {
					gaps := leaf.EnsureGaps(core.Cache)
					head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)
					pos := Search(head, key, BytesComparator)
					cur := &Cursor{Leaf: leaf, Key: key, Value: []byte("v"), Txn: txn, Position: pos}
					err := core.Modify(cur, false)
					if err == nil {
						break
					}
					require.True(t, IsRestart(err), "unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	gaps := leaf.EnsureGaps(core.Cache)
	head, _ := leaf.EnsureGapHead(gaps, 0, core.Cache)
	got := level0Keys(head)
	require.Len(t, got, workers*perWorker)
	for i := 1; i < len(got); i++ {
		require.Less(t, BytesComparator(got[i-1], got[i]), 0)
	}
}
