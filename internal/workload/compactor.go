package workload

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/dgraph-io/rowstore/internal/mvcc"
)

// Compactor reclaims obsolete MVCC versions, standing in for ops.c's
// background checkpoint/compaction thread. The row-store core has no
// on-disk compaction: its analogue is the obsolete-version sweep
// (rowstore.Core.PruneLeaf), so Compactor just drives that
// periodically while the workers are running.
type Compactor interface {
	Compact(ctx context.Context) error
}

// leafCompactor runs PruneLeaf against the shared store on a fixed
// tick, using a short-lived read-uncommitted transaction purely to
// satisfy the TxnManager parameter — pruning touches no row data, only
// already-obsolete version chains.
type leafCompactor struct {
	store *Store
}

func (c *leafCompactor) Compact(ctx context.Context) error {
	txn := c.store.Oracle.Begin(mvcc.ReadUncommitted) // prune does not read row content
	defer txn.Commit()
	c.store.Core.PruneLeaf(c.store.Leaf, txn)
	return nil
}

// runCompactor ticks Compactor.Compact until ctx is done, logging
// failures but never aborting the run over a single failed sweep.
func runCompactor(ctx context.Context, c Compactor, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Compact(ctx); err != nil {
				glog.Warningf("workload: compaction sweep failed: %v", err)
			}
		}
	}
}
