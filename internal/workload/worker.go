package workload

import (
	"context"
	"math/rand"

	"github.com/golang/glog"

	"github.com/dgraph-io/rowstore/internal/mvcc"
	"github.com/dgraph-io/rowstore/rowstore"
)

// Stats accumulates one worker's lifetime operation counts. All
// fields are plain ints: a Stats is owned by exactly one worker
// goroutine and only merged into the run total after that worker
// returns.
type Stats struct {
	Inserts      int64
	Updates      int64
	Removes      int64
	Searches     int64
	Truncates    int64
	Commits      int64
	Rollbacks    int64
	Conflicts    int64
	RetryExhaust int64
}

func (s *Stats) add(o Stats) {
	s.Inserts += o.Inserts
	s.Updates += o.Updates
	s.Removes += o.Removes
	s.Searches += o.Searches
	s.Truncates += o.Truncates
	s.Commits += o.Commits
	s.Rollbacks += o.Rollbacks
	s.Conflicts += o.Conflicts
	s.RetryExhaust += o.RetryExhaust
}

// worker runs one thread's share of Config.Ops against a shared
// Store, mirroring ops.c's per-thread operation loop: each iteration
// picks an operation by weighted dice roll, opens (or, once
// LongRunningTxn lets a prior iteration leave one open, reuses) a
// transaction at the configured isolation, and retries on restart up
// to MaxRestartRetries before counting the operation a failure.
type worker struct {
	id    int
	store *Store
	cfg   Config
	rng   *rand.Rand
	stats Stats

	// activeTxn is the transaction a prior iteration left open (the
	// "leave open" outcome of the commit/rollback dice, gated by
	// LongRunningTxn) — the next iteration continues it instead of
	// starting a fresh one.
	activeTxn *mvcc.Txn
}

func newWorker(id int, store *Store, cfg Config) *worker {
	return &worker{
		id:    id,
		store: store,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed + int64(id) + 1)),
	}
}

// run executes the worker's op budget and returns its final stats.
// ops <= 0 means "until ctx is done" (the Timer-bounded mode). A
// transaction left open by the final iteration is flushed before
// returning, so Commits+Rollbacks always accounts for every txn the
// worker ever opened.
func (w *worker) run(ctx context.Context, ops int) (Stats, error) {
	for n := 0; ops <= 0 || n < ops; n++ {
		select {
		case <-ctx.Done():
			w.flushActiveTxn()
			return w.stats, nil
		default:
		}
		if err := w.step(); err != nil {
			w.flushActiveTxn()
			return w.stats, err
		}
	}
	w.flushActiveTxn()
	return w.stats, nil
}

func (w *worker) flushActiveTxn() {
	if w.activeTxn == nil {
		return
	}
	w.activeTxn.Commit()
	w.stats.Commits++
	w.activeTxn = nil
}

// step performs exactly one operation: key selection, dice roll,
// transaction, retry loop, the re-read-and-walk verification pass,
// then the commit/rollback/leave-open decision.
func (w *worker) step() error {
	key := w.randomKey()
	txn := w.activeTxn
	if txn == nil {
		txn = w.store.Oracle.Begin(w.resolveIsolation())
	}

	var err error
	isSearch := false
	switch roll := w.rng.Intn(100); {
	case roll < w.cfg.DeletePct:
		err = w.doRemove(txn, key)
	case roll < w.cfg.DeletePct+w.cfg.InsertPct:
		err = w.doInsert(txn, w.nextAppendKey())
	case roll < w.cfg.DeletePct+w.cfg.InsertPct+w.cfg.WritePct:
		err = w.doWrite(txn, key)
	case roll < w.cfg.DeletePct+w.cfg.InsertPct+w.cfg.WritePct+w.cfg.TruncatePct:
		err = w.doTruncate(txn, key)
	default:
		err = w.doSearch(txn, key)
		isSearch = true
	}

	if err != nil {
		if rowstore.IsWriteConflict(err) {
			w.stats.Conflicts++
		}
		txn.Rollback()
		w.activeTxn = nil
		w.stats.Rollbacks++
		return nil
	}

	w.verifyWalk(key)

	// A read-only iteration has nothing at stake in the commit dice —
	// it always settles immediately, the way the pure-search case
	// behaved before the dice existed.
	if isSearch {
		txn.Commit()
		w.activeTxn = nil
		w.stats.Commits++
		return nil
	}

	switch roll := w.rng.Intn(100); {
	case roll < 40:
		txn.Commit()
		w.activeTxn = nil
		w.stats.Commits++
	case roll < 50:
		txn.Rollback()
		w.activeTxn = nil
		w.stats.Rollbacks++
	default:
		if w.cfg.LongRunningTxn {
			w.activeTxn = txn
		} else {
			txn.Commit()
			w.activeTxn = nil
			w.stats.Commits++
		}
	}
	return nil
}

// verifyWalk re-reads key, then takes a random number (1-100) of
// next/prev steps in a random direction, the way a positioned cursor
// would walk the skip list to verify the neighborhood it landed in.
// This store's whole keyspace is one ordinal-keyed gap, so a "step" is
// expressed as the adjacent ordinal rather than a raw forward pointer
// walk; a step past either end of the populated range stops early.
func (w *worker) verifyWalk(key []byte) {
	w.store.Lookup(key)

	ordinal := DecodeKey(key)
	rows := w.store.Append.Rows()
	forward := w.rng.Intn(2) == 0
	steps := w.rng.Intn(100) + 1
	for i := 0; i < steps; i++ {
		if forward {
			if ordinal >= rows {
				break
			}
			ordinal++
		} else {
			if ordinal <= 1 {
				break
			}
			ordinal--
		}
		w.store.Lookup(EncodeKey(ordinal))
	}
}

func (w *worker) resolveIsolation() mvcc.Isolation {
	iso := w.cfg.Isolation
	if iso == IsolationRandom {
		switch w.rng.Intn(3) {
		case 0:
			iso = IsolationReadUncommitted
		case 1:
			iso = IsolationReadCommitted
		default:
			iso = IsolationSnapshot
		}
	}
	switch iso {
	case IsolationReadUncommitted:
		return mvcc.ReadUncommitted
	case IsolationSnapshot:
		return mvcc.Snapshot
	default:
		return mvcc.ReadCommitted
	}
}

// randomKey picks a uniformly random row out of the rows populated (or
// appended) so far.
func (w *worker) randomKey() []byte {
	rows := w.store.Append.Rows()
	if rows == 0 {
		rows = 1
	}
	ordinal := uint64(w.rng.Int63n(int64(rows))) + 1
	return EncodeKey(ordinal)
}

// nextAppendKey reserves the next appendable ordinal, mirroring ops.c's
// append-cursor insert path (spec.md §4.8, scenario S6): reservation
// order need not match resolution order, so Append.Resolve is called
// only after the insert itself has published.
func (w *worker) nextAppendKey() uint64 {
	return w.store.Append.Reserve()
}

func (w *worker) doInsert(txn *mvcc.Txn, ordinal uint64) error {
	key := EncodeKey(ordinal)
	value := GenerateValue(w.rng, ordinal)
	err := w.store.Insert(txn, key, value, w.cfg.MaxRestartRetries)
	w.accountRetry(err)
	if err != nil {
		return err
	}
	w.stats.Inserts++
	w.store.Append.Resolve(ordinal)
	return nil
}

func (w *worker) doWrite(txn *mvcc.Txn, key []byte) error {
	ordinal := DecodeKey(key)
	value := GenerateValue(w.rng, ordinal)
	err := w.store.Insert(txn, key, value, w.cfg.MaxRestartRetries)
	w.accountRetry(err)
	if err != nil {
		return err
	}
	w.stats.Updates++
	return nil
}

func (w *worker) doRemove(txn *mvcc.Txn, key []byte) error {
	err := w.store.Remove(txn, key, w.cfg.MaxRestartRetries)
	w.accountRetry(err)
	if err != nil {
		return err
	}
	w.stats.Removes++
	return nil
}

// doTruncate removes a short run of contiguous keys starting at key,
// the row-store analogue of ops.c's range truncate: this leaf has no
// native range-delete, so it is expressed as repeated single-key
// removes within one transaction. A restart exhaustion partway through
// the run is not undone — rowstore has no cross-call undo — so a
// failed truncate can leave its earlier keys removed.
func (w *worker) doTruncate(txn *mvcc.Txn, key []byte) error {
	const span = 4
	start := DecodeKey(key)
	rows := w.store.Append.Rows()
	removed := 0
	for i := uint64(0); i < span; i++ {
		ordinal := start + i
		if ordinal > rows {
			break
		}
		if err := w.store.Remove(txn, EncodeKey(ordinal), w.cfg.MaxRestartRetries); err != nil {
			w.accountRetry(err)
			return err
		}
		removed++
	}
	if removed > 0 {
		w.stats.Truncates++
	}
	return nil
}

func (w *worker) doSearch(txn *mvcc.Txn, key []byte) error {
	_, _ = w.store.Lookup(key)
	w.stats.Searches++
	return nil
}

func (w *worker) accountRetry(err error) {
	if err == nil {
		return
	}
	if rowstore.IsRestart(err) {
		w.stats.RetryExhaust++
		if glog.V(2) {
			glog.Infof("workload: worker %d exhausted %d restart retries", w.id, w.cfg.MaxRestartRetries)
		}
	}
}
