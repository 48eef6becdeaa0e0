package workload

import (
	"context"
	"math/rand"

	"github.com/golang/glog"

	"github.com/dgraph-io/rowstore/internal/mvcc"
	"github.com/dgraph-io/rowstore/internal/oracle"
	"github.com/dgraph-io/rowstore/rowstore"
)

// Store wires one rowstore.Core to a single, zero-on-page-key Leaf —
// the whole keyspace lives in that leaf's one gap's skip list, so every
// row (old or brand new) is reached through rowstore.Search against
// the same *rowstore.SkipListHead. This is the smallest faithful
// instantiation of components A-G: appendable stores need no on-page
// keys at all, only a gap to grow.
type Store struct {
	Core   *rowstore.Core
	Leaf   *rowstore.Leaf
	Cache  *rowstore.AtomicAccounting
	Oracle *mvcc.Oracle
	Append *oracle.Append

	// Ref, when set, receives a mirrored copy of every successful
	// insert/update/remove for read-after-write comparison (spec.md
	// §4.8's reference-store oracle). Only meaningful for
	// single-threaded runs: Reference carries no MVCC of its own.
	Ref *oracle.Reference
}

// NewStore builds an empty store: no rows, watermark at its initial
// position, append resolver starting at 0.
func NewStore(seed int64) *Store {
	cache := &rowstore.AtomicAccounting{}
	return &Store{
		Core:   rowstore.NewCore(cache, seed),
		Leaf:   rowstore.NewLeaf(0),
		Cache:  cache,
		Oracle: mvcc.NewOracle(),
		Append: oracle.NewAppend(0),
	}
}

// head returns the (lazily allocated) skip-list head for the store's
// one and only gap.
func (s *Store) head() *rowstore.SkipListHead {
	gaps := s.Leaf.EnsureGaps(s.Cache)
	h, _ := s.Leaf.EnsureGapHead(gaps, 0, s.Cache)
	return h
}

// Populate bulk-loads rows keys single-threaded before workers start,
// mirroring ops.c's pre-run load phase (SPEC_FULL.md §7). Every key
// gets its own auto-committed, read-committed transaction: there is no
// concurrency yet to conflict with, so one retry attempt always
// suffices.
func (s *Store) Populate(ctx context.Context, rows uint64) error {
	rng := rand.New(rand.NewSource(1))
	for i := uint64(1); i <= rows; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		key := EncodeKey(i)
		value := GenerateValue(rng, i)
		txn := s.Oracle.Begin(mvcc.ReadCommitted)
		if err := s.Insert(txn, key, value, 1); err != nil {
			txn.Rollback()
			return err
		}
		txn.Commit()
		s.Append.Resolve(i)
	}
	// Populate never reserves through s.Append — it drives ordinals
	// directly — so next never advanced past 0. Re-seed the resolver at
	// the row count just established, or the first worker reservation
	// would collide with an already-populated key instead of growing
	// the keyspace.
	s.Append = oracle.NewAppend(rows)
	if glog.V(1) {
		glog.Infof("rowstore/workload: populated %d rows", rows)
	}
	return nil
}

// Insert writes key=value, retrying on restart up to maxRetries times.
// A brand-new key is spliced into the skip list; an existing key gets
// a new version on top of its chain.
func (s *Store) Insert(txn *mvcc.Txn, key, value []byte, maxRetries int) error {
	if err := s.modify(txn, key, value, false, maxRetries); err != nil {
		return err
	}
	if s.Ref != nil {
		if err := s.Ref.Mirror(key, value); err != nil {
			glog.Warningf("workload: reference mirror failed for key %x: %v", key, err)
		}
	}
	return nil
}

// Remove tombstones key, retrying on restart up to maxRetries times.
// If key has never been inserted, this follows the same path as a
// fresh insert of a tombstone value (spec.md §4.4, scenario S4): the
// skip list gains a node whose only version is a tombstone.
func (s *Store) Remove(txn *mvcc.Txn, key []byte, maxRetries int) error {
	if err := s.modify(txn, key, nil, true, maxRetries); err != nil {
		return err
	}
	if s.Ref != nil {
		if err := s.Ref.MirrorDelete(key); err != nil {
			glog.Warningf("workload: reference mirror-delete failed for key %x: %v", key, err)
		}
	}
	return nil
}

// Verify compares every row in [1, rows] against the reference store.
// It is only meaningful once Ref is set and the run that populated the
// keyspace has finished.
func (s *Store) Verify(rows uint64) error {
	if s.Ref == nil {
		return nil
	}
	for i := uint64(1); i <= rows; i++ {
		key := EncodeKey(i)
		value, found := s.Lookup(key)
		if !found {
			value = nil
		}
		if err := s.Ref.Compare(key, value); err != nil {
			return err
		}
	}
	return nil
}

// modify runs the search-then-publish sequence for one key, reseeding
// the position and retrying up to maxRetries times when the
// serialization step reports a restart. The leaf carries zero on-page
// keys, so every key — existing or brand new — resolves to gap 0:
// GapIndex is always equal to Entries() (both zero), so SearchSmallest
// is unconditionally true here.
func (s *Store) modify(txn *mvcc.Txn, key, value []byte, isRemove bool, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		head := s.head()
		pos := rowstore.Search(head, key, rowstore.BytesComparator)
		cur := &rowstore.Cursor{Leaf: s.Leaf, Key: key, Value: value, Txn: txn, Position: pos}
		cur.SearchSmallest = true
		cur.Slot = 0
		err = s.Core.Modify(cur, isRemove)
		if err == nil {
			return nil
		}
		if !rowstore.IsRestart(err) {
			return err
		}
	}
	return err
}

// Lookup positions a read-only cursor against key and reports its
// current live payload. A tombstone or an absent key both report
// found=false, matching the core's definition of "no version" from the
// reader's point of view.
func (s *Store) Lookup(key []byte) (value []byte, found bool) {
	head := s.head()
	pos := rowstore.Search(head, key, rowstore.BytesComparator)
	if pos.Compare != 0 || pos.Ins == nil {
		return nil, false
	}
	upd := pos.Ins.Upd.Load()
	if upd == nil || upd.Tombstone() {
		return nil, false
	}
	return upd.Payload, true
}
