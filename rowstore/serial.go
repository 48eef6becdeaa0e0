package rowstore

import (
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/dgraph-io/rowstore/internal/x"
)

// updatePublish is the update half of the serialization / publish
// step (component F, spec.md §4.5). It runs under the page's
// serialization ticket: readers never take this lock, and at most one
// writer executes it per page at a time.
func (c *Core) updatePublish(leaf *Leaf, gen uint32, txn TxnManager, entry *atomic.Pointer[Update], oldHead, newUpd *Update) (*Update, error) {
	leaf.ticket.Lock()
	defer leaf.ticket.Unlock()

	if leaf.writeGenWrapped(gen) {
		c.Metrics.restarts.Inc()
		return nil, ErrRestart
	}

	current := entry.Load()
	if current != oldHead {
		// A racing writer installed a newer version while we built
		// ours. The new version still lands on top of it — visibility
		// is evaluated per reader, not by arrival order — but the
		// transaction manager gets one more say on whether that's
		// permitted under our isolation rules.
		if err := txn.UpdateCheck(current); err != nil {
			return nil, err
		}
		oldHead = current
	}

	newUpd.Next.Store(oldHead)
	entry.Store(newUpd)
	c.Cache.IncrInMem(leaf, newUpd.size())
	c.Metrics.updatesPublished.Inc()

	obsolete := obsoleteCheck(txn, newUpd.Next.Load())

	leaf.bumpWriteGen()
	leaf.markDirty(c.Cache)
	return obsolete, nil
}

// insertPublish is the insert half (spec.md §4.5): it validates every
// level of the writer's observed position, then performs the two-phase
// publish that keeps the list correct for lock-free readers.
func (c *Core) insertPublish(leaf *Leaf, gen uint32, head *SkipListHead, pos *Position, newIns *InsertNode) error {
	leaf.ticket.Lock()
	defer leaf.ticket.Unlock()

	if leaf.writeGenWrapped(gen) {
		c.Metrics.restarts.Inc()
		return ErrRestart
	}

	h := newIns.height()
	for lvl := 0; lvl < h; lvl++ {
		if pos.Prev[lvl] == nil || pos.Prev[lvl].Load() != pos.NextObserved[lvl] {
			if glog.V(2) {
				glog.Infof("rowstore: restart at level %d, position stale", lvl)
			}
			c.Metrics.restarts.Inc()
			return ErrRestart
		}
		if pos.NextObserved[lvl] == nil {
			if tail := head.Tail[lvl].Load(); tail != nil && pos.Prev[lvl] != &tail.Next[lvl] {
				c.Metrics.restarts.Inc()
				return ErrRestart
			}
		}
	}

	// Phase 1: point the new node's own forward pointers at what its
	// predecessors currently observe. newIns is still thread-local, so
	// no reader can reach it yet — no barrier required here.
	for lvl := 0; lvl < h; lvl++ {
		newIns.Next[lvl].Store(pos.Prev[lvl].Load())
	}

	// Phase 2: link the predecessors to newIns. Every atomic.Pointer
	// store below is a release, and a reader's Load an acquire, so a
	// reader that reaches newIns through a freshly updated predecessor
	// already observes newIns.Next fully initialized.
	for lvl := 0; lvl < h; lvl++ {
		if tail := head.Tail[lvl].Load(); tail == nil || pos.Prev[lvl] == &tail.Next[lvl] {
			head.Tail[lvl].Store(newIns)
		}
		pos.Prev[lvl].Store(newIns)
	}

	x.AssertTrue(head.Head[0].Load() != nil)
	c.Cache.IncrInMem(leaf, newIns.size())
	c.Metrics.insertsPublished.Inc()
	leaf.bumpWriteGen()
	leaf.markDirty(c.Cache)
	return nil
}
