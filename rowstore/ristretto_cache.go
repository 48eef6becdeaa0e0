package rowstore

import (
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
	"github.com/golang/glog"
)

// RistrettoAccounting is a CacheAccounting backed by a real bounded
// ristretto.Cache, for embedding rowstore under an actual memory
// budget rather than the unbounded AtomicAccounting used by tests and
// the workload driver. Each leaf's running byte cost is kept in a
// per-leaf atomic counter (ristretto's cost is a fixed value per Set,
// not an incrementable one) and mirrored into the cache on every
// change, so eviction pressure reflects the leaf's current size.
type RistrettoAccounting struct {
	cache *ristretto.Cache
	costs sync.Map // *Leaf -> *atomic.Int64
}

// NewRistrettoAccounting builds a RistrettoAccounting with maxCost
// bytes of tracked budget. Evictions are logged, not acted on: rowstore
// itself has no write-back path, so an embedder wiring this in is
// expected to treat an eviction as a signal to checkpoint that leaf
// (see internal/workload.Compactor for the analogous hook).
func NewRistrettoAccounting(maxCost int64) (*RistrettoAccounting, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / 32, // ~10x the expected distinct-leaf count at typical page sizes
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
		OnEvict: func(item *ristretto.Item) {
			if glog.V(1) {
				glog.Infof("rowstore: cache evicted leaf at cost %d", item.Cost)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoAccounting{cache: cache}, nil
}

func (r *RistrettoAccounting) leafCost(leaf *Leaf) *atomic.Int64 {
	v, _ := r.costs.LoadOrStore(leaf, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// IncrInMem implements CacheAccounting.
func (r *RistrettoAccounting) IncrInMem(leaf *Leaf, n int64) {
	total := r.leafCost(leaf).Add(n)
	r.cache.Set(leaf, struct{}{}, total)
}

// DecrInMem implements CacheAccounting.
func (r *RistrettoAccounting) DecrInMem(leaf *Leaf, n int64) {
	total := r.leafCost(leaf).Add(-n)
	r.cache.Set(leaf, struct{}{}, total)
}

// MarkPageAndTreeDirty implements CacheAccounting. ristretto has no
// notion of dirty pages; this only logs the mark at verbosity 3.
func (r *RistrettoAccounting) MarkPageAndTreeDirty(_ *Leaf) {
	if glog.V(3) {
		glog.Infof("rowstore: leaf marked dirty")
	}
}

// Metrics exposes ristretto's own hit/miss/cost counters for the
// driver to report alongside the core's own Metrics.
func (r *RistrettoAccounting) Metrics() *ristretto.Metrics {
	return r.cache.Metrics
}

// Close releases the underlying cache's background goroutines.
func (r *RistrettoAccounting) Close() {
	r.cache.Close()
}
