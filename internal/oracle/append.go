// Package oracle implements the workload driver's two out-of-process
// collaborators: the append oracle (spec.md §4.8, scenario S6) and an
// optional external reference store the single-threaded driver mirrors
// mutations into for read-after-write comparison.
package oracle

import "sync"

// Append resolves out-of-order key allocation into in-order
// publication for appendable stores. Writers reserve a key before
// doing the (possibly slow) work of inserting it, so reservation order
// and completion order can differ; Append's invariant is that Rows
// never advances past an unresolved reservation — a reader that
// observes Rows() == N knows every key in [1, N] is fully published.
type Append struct {
	mu   sync.Mutex
	rows uint64
	next uint64
	done map[uint64]struct{}
}

// NewAppend starts the resolver at an existing row count, e.g. after a
// bulk-load Populate phase.
func NewAppend(initialRows uint64) *Append {
	return &Append{
		rows: initialRows,
		next: initialRows,
		done: make(map[uint64]struct{}),
	}
}

// Reserve allocates the next key in reservation order. The caller owns
// that key and must eventually call Resolve once its insert publishes,
// whether or not earlier-reserved keys have resolved yet.
func (a *Append) Reserve() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return a.next
}

// Resolve marks key as published and absorbs every contiguous
// completed reservation starting at rows+1, advancing Rows by however
// many resolve in this one sweep.
func (a *Append) Resolve(key uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done[key] = struct{}{}
	for {
		if _, ok := a.done[a.rows+1]; !ok {
			return
		}
		delete(a.done, a.rows+1)
		a.rows++
	}
}

// Rows returns the highest key for which every key in [1, Rows()] has
// resolved.
func (a *Append) Rows() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rows
}

// Pending returns the count of resolved keys not yet absorbed into
// Rows because an earlier reservation is still unresolved, for driver
// diagnostics. Reserved keys that have not resolved are not counted.
func (a *Append) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.done)
}
