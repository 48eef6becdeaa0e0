package rowstore

import (
	"sync"
	"sync/atomic"
)

const updatePtrSize = int64(8)

// Leaf is the mutation state of a single B-tree leaf page (component
// E). It carries N on-page keys (materialized elsewhere, outside this
// package's scope) and two lazily allocated parallel arrays: updates,
// one version-chain head per on-page slot, and gaps, one skip-list
// head per gap between/around on-page keys.
type Leaf struct {
	entries int

	updates atomic.Pointer[[]atomic.Pointer[Update]]
	gaps    atomic.Pointer[[]atomic.Pointer[SkipListHead]]

	writeGen atomic.Uint32

	// ticket is the per-page serialization step (component F):
	// readers never take it, writers hold it for the duration of a
	// single publish.
	ticket sync.Mutex
}

// NewLeaf creates the mutation state for a page carrying entries
// on-page keys.
func NewLeaf(entries int) *Leaf {
	return &Leaf{entries: entries}
}

// Entries returns N, the number of on-page keys.
func (l *Leaf) Entries() int { return l.entries }

// bumpWriteGen advances the page's write generation; called once per
// successful publish so a writer that has been asleep across a
// generation wrap restarts rather than trusting a stale position.
func (l *Leaf) bumpWriteGen() { l.writeGen.Add(1) }

// WriteGen snapshots the current write generation for a caller about
// to position a cursor, so it can later detect a wrap.
func (l *Leaf) WriteGen() uint32 { return l.writeGen.Load() }

// writeGenWrapped reports whether gen, snapshotted by a writer before
// building its node, has wrapped since. With a 32-bit counter and any
// plausible number of writes this is unreachable, but the check must
// exist per spec.md §4.5.
func (l *Leaf) writeGenWrapped(gen uint32) bool {
	return l.writeGen.Load() < gen
}

// ensureUpdates lazily allocates the per-slot update-head array,
// publishing it with a single-attempt CAS from absent; the losing
// racer's candidate is simply dropped (Go's GC reclaims it — there is
// no explicit free path to mirror here).
func (l *Leaf) ensureUpdates(cache CacheAccounting) *[]atomic.Pointer[Update] {
	if p := l.updates.Load(); p != nil {
		return p
	}
	candidate := make([]atomic.Pointer[Update], l.entries)
	if l.updates.CompareAndSwap(nil, &candidate) {
		cache.IncrInMem(l, int64(l.entries)*updatePtrSize)
		return &candidate
	}
	return l.updates.Load()
}

// EnsureGaps is the insert-path analogue of ensureUpdates: N+1 gap
// slots, one per gap between or around on-page keys.
func (l *Leaf) EnsureGaps(cache CacheAccounting) *[]atomic.Pointer[SkipListHead] {
	if p := l.gaps.Load(); p != nil {
		return p
	}
	candidate := make([]atomic.Pointer[SkipListHead], l.entries+1)
	if l.gaps.CompareAndSwap(nil, &candidate) {
		cache.IncrInMem(l, int64(l.entries+1)*updatePtrSize)
		return &candidate
	}
	return l.gaps.Load()
}

// EnsureGapHead lazily allocates the skip-list head for one gap,
// again by single-attempt CAS with losing-side discard. It reports
// whether this call won the allocation: a freshly created head is
// necessarily empty, so the caller must re-seed its predecessor stack
// against it (spec.md §4.3.2, §9 open question).
func (l *Leaf) EnsureGapHead(gaps *[]atomic.Pointer[SkipListHead], idx int, cache CacheAccounting) (*SkipListHead, bool) {
	slot := &(*gaps)[idx]
	if h := slot.Load(); h != nil {
		return h, false
	}
	candidate := &SkipListHead{}
	if slot.CompareAndSwap(nil, candidate) {
		cache.IncrInMem(l, skipListHeadSize)
		return candidate, true
	}
	return slot.Load(), false
}

// Core wires the mutation engine to its external collaborators: the
// cache accounting object and a shared skip-list depth source. One
// Core typically serves every leaf page in a store. The transaction
// manager is supplied per call (on the Cursor) rather than fixed on
// Core, since a Core is shared across concurrently open sessions, each
// with its own current transaction.
type Core struct {
	Cache CacheAccounting
	Depth *DepthChooser

	Metrics *Metrics
}

// NewCore builds a Core ready to serve Modify/PruneLeaf calls.
func NewCore(cache CacheAccounting, seed int64) *Core {
	return &Core{
		Cache:   cache,
		Depth:   NewDepthChooser(seed),
		Metrics: NewMetrics(),
	}
}

// Modify is the single entry point exposed to the cursor layer
// (spec.md §6): it dispatches on cur.Compare to the update path
// (installing a new version on an existing slot) or the insert path
// (splicing a new key into a gap's skip list). Both paths build their
// node outside any lock and only take the per-page ticket inside the
// serialization step. cur.Txn is the caller's current transaction.
func (c *Core) Modify(cur *Cursor, isRemove bool) (err error) {
	var txnRegistered bool
	defer func() {
		if err != nil && txnRegistered {
			cur.Txn.Unmodify()
		}
	}()

	if cur.Compare == 0 {
		txnRegistered, err = c.doUpdate(cur, isRemove)
		return err
	}
	txnRegistered, err = c.doInsert(cur, isRemove)
	return err
}

func (c *Core) doUpdate(cur *Cursor, isRemove bool) (bool, error) {
	leaf := cur.Leaf
	updates := leaf.ensureUpdates(c.Cache)

	var entry *atomic.Pointer[Update]
	if cur.Ins != nil {
		entry = &cur.Ins.Upd
	} else {
		entry = &(*updates)[cur.Slot]
	}

	oldHead := entry.Load()
	if err := cur.Txn.UpdateCheck(oldHead); err != nil {
		return false, err
	}

	payload := cur.Value
	if isRemove {
		payload = nil
	}
	upd := NewUpdate(payload)

	txnID, err := cur.Txn.Modify()
	if err != nil {
		return false, err
	}
	upd.TxnID = txnID

	gen := leaf.WriteGen()
	obsolete, err := c.updatePublish(leaf, gen, cur.Txn, entry, oldHead, upd)
	if err != nil {
		return true, err
	}
	if obsolete != nil {
		c.freeObsolete(leaf, obsolete)
	}
	return true, nil
}

func (c *Core) doInsert(cur *Cursor, isRemove bool) (bool, error) {
	leaf := cur.Leaf
	gaps := leaf.EnsureGaps(c.Cache)
	gapIdx := cur.GapIndex(leaf.entries)

	head, fresh := leaf.EnsureGapHead(gaps, gapIdx, c.Cache)
	if fresh {
		// The cursor's stack was built against whatever head the
		// caller observed (possibly none); a head we just won the
		// allocation race for is necessarily empty, so every level
		// re-seeds to "append at the empty head" rather than trusting
		// a stack the caller could not have built against it.
		for lvl := 0; lvl < MaxDepth; lvl++ {
			cur.Prev[lvl] = &head.Head[lvl]
			cur.NextObserved[lvl] = nil
		}
	}

	height := c.Depth.Choose()
	payload := cur.Value
	if isRemove {
		payload = nil
	}
	upd := NewUpdate(payload)

	txnID, err := cur.Txn.Modify()
	if err != nil {
		return false, err
	}
	upd.TxnID = txnID

	ins := newInsertNode(cur.Key, height, upd)
	cur.Ins = ins

	gen := leaf.WriteGen()
	if err := c.insertPublish(leaf, gen, head, &cur.Position, ins); err != nil {
		return true, err
	}
	return true, nil
}

// markDirty notifies the cache layer that the page (and its tree) now
// has unwritten content.
func (l *Leaf) markDirty(cache CacheAccounting) {
	cache.MarkPageAndTreeDirty(l)
}
