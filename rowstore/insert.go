package rowstore

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"unsafe"
)

// MaxDepth bounds the height of any skip-list node; a compile-time
// constant per spec.md §3.
const MaxDepth = 17

// insertNodeFixedSize is the fixed footprint (excluding per-level
// forward pointers and key bytes) an insert node contributes to
// in-memory accounting. Forward pointer and key cost is added on top
// by InsertNode.size, which insertPublish charges at publish time.
const insertNodeFixedSize = int64(unsafe.Sizeof(InsertNode{}))
const forwardPtrSize = int64(unsafe.Sizeof(atomic.Pointer[InsertNode]{}))

// InsertNode is a new-key record with variable-height forward pointers
// and an update-chain head (component C). Upd is treated exactly like
// an on-page updates[] slot once published: later versions of this
// inserted key attach there the same way they would on an existing
// page key.
type InsertNode struct {
	Key  []byte
	Upd  atomic.Pointer[Update]
	Next []atomic.Pointer[InsertNode] // length == height, levels 0..height-1
}

func newInsertNode(key []byte, height int, upd *Update) *InsertNode {
	n := &InsertNode{
		Key:  cloneKey(key),
		Next: make([]atomic.Pointer[InsertNode], height),
	}
	n.Upd.Store(upd)
	return n
}

func (n *InsertNode) height() int { return len(n.Next) }

// size is the full allocation footprint: fixed struct cost, one
// forward pointer per level, the key bytes, and the update node
// chained onto it.
func (n *InsertNode) size() int64 {
	return insertNodeFixedSize + forwardPtrSize*int64(len(n.Next)) + int64(len(n.Key)) + n.Upd.Load().size()
}

// SkipListHead anchors one ordered gap list (component D): an array of
// forward heads plus tails, one entry per level. tail[level] is nil
// when that level is empty.
type SkipListHead struct {
	Head [MaxDepth]atomic.Pointer[InsertNode]
	Tail [MaxDepth]atomic.Pointer[InsertNode]
}

const skipListHeadSize = int64(unsafe.Sizeof(SkipListHead{}))

// DepthChooser draws skip-list heights from the geometric distribution
// specified in spec.md §3 (ratio 1/4, bounded by MaxDepth). It is
// shared by every writer on a store, so access is serialized by a
// mutex — cheap relative to the per-page serialization ticket it feeds
// into, and kept separate from it since readers never touch it.
type DepthChooser struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewDepthChooser builds a DepthChooser seeded deterministically, so a
// given (seed, sequence of calls) reproduces the same skip-list shape
// — useful for the workload driver's reproducible runs (SPEC_FULL.md §7).
func NewDepthChooser(seed int64) *DepthChooser {
	return &DepthChooser{rnd: rand.New(rand.NewSource(seed))}
}

// Choose draws a height in [1, MaxDepth] with P(h >= k+1) = (1/4)^k.
func (d *DepthChooser) Choose() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := 1
	for h < MaxDepth && d.rnd.Intn(4) == 0 {
		h++
	}
	return h
}
