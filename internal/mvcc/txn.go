package mvcc

import (
	"sync"

	"github.com/golang/glog"

	"github.com/dgraph-io/rowstore/rowstore"
)

// Txn implements rowstore.TxnManager for one session. It is not safe
// for concurrent use by multiple cursors: one Txn backs one session's
// current transaction, the way a single WT_SESSION's txn state backs
// every cursor opened on it.
type Txn struct {
	oracle *Oracle
	iso    Isolation

	mu     sync.Mutex
	id     rowstore.TxnID // 0 until the first Modify call
	writes int            // Modify calls not reversed by Unmodify
	done   bool
}

// ID returns the transaction's id, or 0 if Modify has not been called
// yet; it never allocates one itself. Used by the driver/oracle for
// logging; the core never calls this directly.
func (t *Txn) ID() rowstore.TxnID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *Txn) ensureID() rowstore.TxnID {
	if t.id == 0 {
		t.id = t.oracle.allocate(t)
	}
	return t.id
}

// UpdateCheck implements rowstore.TxnManager.UpdateCheck. A write-write
// conflict against another still-active transaction is rejected
// regardless of isolation level — that part of WiredTiger's rule is
// universal. Snapshot isolation additionally rejects writing on top of
// a version committed after this transaction began (first-committer-
// wins); read-committed/read-uncommitted allow it (last-committer-
// wins, no snapshot to protect).
func (t *Txn) UpdateCheck(head *rowstore.Update) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if head == nil {
		return nil
	}
	if t.id != 0 && head.TxnID == t.id {
		return nil // our own earlier write in this same transaction
	}
	if t.oracle.isActive(head.TxnID) {
		return rowstore.ErrWriteConflict
	}
	if t.iso == Snapshot && t.id != 0 && head.TxnID > t.id {
		return rowstore.ErrWriteConflict
	}
	return nil
}

// Modify implements rowstore.TxnManager.Modify.
func (t *Txn) Modify() (rowstore.TxnID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return 0, rowstore.ErrWriteConflict
	}
	id := t.ensureID()
	t.writes++
	return id, nil
}

// Unmodify implements rowstore.TxnManager.Unmodify.
func (t *Txn) Unmodify() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writes == 0 {
		glog.Warningf("rowstore/mvcc: Unmodify called with no outstanding Modify on txn %d", t.id)
		return
	}
	t.writes--
}

// VisibleAll implements rowstore.TxnManager.VisibleAll by delegating
// to the shared oracle watermark.
func (t *Txn) VisibleAll(id rowstore.TxnID) bool {
	return t.oracle.VisibleAll(id)
}

// Commit finalizes the transaction: its id (if one was ever allocated)
// stops blocking the watermark, so every version it published becomes
// eligible for collection once older than the new watermark.
func (t *Txn) Commit() {
	t.mu.Lock()
	id := t.id
	t.done = true
	t.mu.Unlock()

	if id != 0 {
		t.oracle.release(id)
	}
	if glog.V(3) {
		glog.Infof("rowstore/mvcc: txn %d committed, %d write(s)", id, t.writes)
	}
}

// Rollback finalizes the transaction without making its writes safe:
// versions it already published remain on the tree (rowstore has no
// cross-page undo of its own) but are marked aborted for diagnostics.
// A multi-write transaction that fails partway (e.g. a truncate that
// has already removed some keys) leaves its earlier writes in place;
// a caller needing true atomicity across several Modify calls would
// have to replay compensating writes itself, which this driver does
// not attempt.
func (t *Txn) Rollback() {
	t.mu.Lock()
	id := t.id
	t.done = true
	t.mu.Unlock()

	if id != 0 {
		t.oracle.markAborted(id)
		t.oracle.release(id)
	}
}
