// Package mvcc implements the transaction manager rowstore consumes
// through rowstore.TxnManager: an Oracle allocating ids and tracking
// the set of active transactions, and a Txn handed to one cursor/
// session at a time. It is the concrete collaborator the workload
// driver opens per worker iteration; rowstore itself never imports it.
package mvcc

import (
	"sync"

	"github.com/golang/glog"

	"github.com/dgraph-io/rowstore/rowstore"
)

// Isolation is the concrete level a Txn runs at. The workload driver's
// own config.Isolation additionally offers "pick one at random per op"
// (IsolationRandom), which is resolved to one of these before Begin is
// called — this package only ever sees a concrete level.
type Isolation int

const (
	ReadUncommitted Isolation = iota
	ReadCommitted
	Snapshot
)

// Oracle is the global coordinator: one per store, shared by every
// session. It allocates transaction ids, tracks which are still
// active, and exposes the watermark the obsolete collector prunes
// against. Grounded on the teacher's oracle/watermark pattern in
// posting/mvcc.go (Txn.StartTs, the cache's commitTs bookkeeping).
type Oracle struct {
	mu        sync.Mutex
	nextID    rowstore.TxnID
	active    map[rowstore.TxnID]*Txn
	aborted   map[rowstore.TxnID]bool
	watermark rowstore.TxnID // lowest id not known safe: VisibleAll(id) == id < watermark
}

// NewOracle returns an Oracle with its id sequence starting at 1: 0 is
// reserved to mean "no version" (rowstore.Update.TxnID's zero value).
func NewOracle() *Oracle {
	return &Oracle{
		nextID:    1,
		active:    make(map[rowstore.TxnID]*Txn),
		aborted:   make(map[rowstore.TxnID]bool),
		watermark: 1,
	}
}

// Begin opens a new transaction at the given isolation level. The
// returned Txn is not yet registered with the oracle: it only takes an
// id (and becomes visible to VisibleAll's watermark computation) on
// its first Modify call, mirroring WiredTiger's "a transaction's id is
// undefined until its first update."
func (o *Oracle) Begin(iso Isolation) *Txn {
	return &Txn{
		oracle: o,
		iso:    iso,
	}
}

// allocate assigns txn its id and registers it active. Called once,
// lazily, from Txn.Modify.
func (o *Oracle) allocate(txn *Txn) rowstore.TxnID {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextID
	o.nextID++
	o.active[id] = txn
	return id
}

// release removes txn from the active set and recomputes the
// watermark. Called on commit and on rollback alike: either way the
// id stops being "in flight" from the pruner's point of view.
func (o *Oracle) release(id rowstore.TxnID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
	o.recomputeWatermarkLocked()
}

func (o *Oracle) recomputeWatermarkLocked() {
	w := o.nextID
	for id := range o.active {
		if id < w {
			w = id
		}
	}
	o.watermark = w
}

// isActive reports whether id still belongs to a transaction that has
// neither committed nor rolled back.
func (o *Oracle) isActive(id rowstore.TxnID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

// VisibleAll implements rowstore.TxnManager.VisibleAll: id is safe to
// collect once it no longer belongs to any in-flight transaction and
// every id below it has also drained. Pure watermark comparison, no
// per-id bookkeeping kept past release — that's what makes the
// obsolete collector's sweep O(1) per version rather than a map probe.
func (o *Oracle) VisibleAll(id rowstore.TxnID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return id < o.watermark
}

// markAborted records that id's transaction rolled back, for
// diagnostics only. rowstore has no undo path of its own (Unmodify
// only reverses a single in-flight Modify call before publish); once a
// multi-write transaction publishes some versions and then aborts,
// those versions stay in place unless the caller writes compensating
// versions back; internal/workload's rollback handling does not.
func (o *Oracle) markAborted(id rowstore.TxnID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborted[id] = true
	if glog.V(2) {
		glog.Infof("rowstore/mvcc: txn %d aborted", id)
	}
}

// Snapshot is a point-in-time read of oracle state, for driver
// reporting and tests.
type Snapshot struct {
	NextID    rowstore.TxnID
	Active    int
	Watermark rowstore.TxnID
}

func (o *Oracle) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{NextID: o.nextID, Active: len(o.active), Watermark: o.watermark}
}
