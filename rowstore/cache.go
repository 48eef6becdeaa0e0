package rowstore

import "sync/atomic"

// CacheAccounting is the slice of the cache layer the mutation core
// consumes for in-memory byte bookkeeping and dirty-page tracking. The
// core updates it monotonically: increments on a winning allocation,
// decrements on the exact byte count a collector truncation freed.
type CacheAccounting interface {
	IncrInMem(leaf *Leaf, bytes int64)
	DecrInMem(leaf *Leaf, bytes int64)
	MarkPageAndTreeDirty(leaf *Leaf)
}

// AtomicAccounting is a CacheAccounting backed by plain in-process
// counters — the default for embedding rowstore without a real page
// cache underneath it, and the implementation the test suite drives to
// assert invariant 6 of SPEC_FULL.md §11 (accounting == live bytes).
type AtomicAccounting struct {
	bytes atomic.Int64
	dirty atomic.Int64
}

func (a *AtomicAccounting) IncrInMem(_ *Leaf, n int64) { a.bytes.Add(n) }
func (a *AtomicAccounting) DecrInMem(_ *Leaf, n int64) { a.bytes.Add(-n) }
func (a *AtomicAccounting) MarkPageAndTreeDirty(_ *Leaf) {
	a.dirty.Store(1)
}

// InMemBytes returns the current net byte accounting.
func (a *AtomicAccounting) InMemBytes() int64 { return a.bytes.Load() }

// Dirty reports whether MarkPageAndTreeDirty was ever called.
func (a *AtomicAccounting) Dirty() bool { return a.dirty.Load() != 0 }
