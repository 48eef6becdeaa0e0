package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Driver owns one Store and runs Config's populate/mixed-operation/
// maintenance phases against it, fanning workers out with errgroup the
// way the teacher's bulk loader fans out map-phase goroutines.
type Driver struct {
	Store  *Store
	Config Config

	// SessionID identifies this run in logs, the way ops.c's format
	// binary stamps a run id into its output.
	SessionID uuid.UUID
}

// NewDriver builds a Driver with a fresh Store and a freshly minted
// session id.
func NewDriver(cfg Config) *Driver {
	return &Driver{
		Store:     NewStore(cfg.Seed),
		Config:    cfg,
		SessionID: uuid.New(),
	}
}

// Result summarizes one Run call.
type Result struct {
	SessionID uuid.UUID
	Stats     Stats
	Elapsed   time.Duration
}

// Run executes Populate followed by the mixed-operation phase, with an
// optional background compactor, and returns aggregate statistics.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	glog.Infof("workload: session %s starting, rows=%d threads=%d", d.SessionID, d.Config.Rows, d.Config.Threads)

	if err := d.Store.Populate(ctx, uint64(d.Config.Rows)); err != nil {
		return Result{}, fmt.Errorf("populate: %w", err)
	}

	var compactCtx context.Context
	var stopCompact context.CancelFunc
	if d.Config.Checkpoints {
		compactCtx, stopCompact = context.WithCancel(ctx)
		go runCompactor(compactCtx, &leafCompactor{store: d.Store}, 200*time.Millisecond)
		defer stopCompact()
	}

	stats, err := d.runWorkers(ctx)
	if stopCompact != nil {
		stopCompact()
	}
	if err != nil {
		return Result{}, err
	}

	result := Result{SessionID: d.SessionID, Stats: stats, Elapsed: time.Since(start)}
	glog.Infof("workload: session %s done in %s: %+v", d.SessionID, result.Elapsed, result.Stats)
	return result, nil
}

// runWorkers fans Config.Threads workers out over errgroup, splitting
// an Ops budget evenly (ops.c's thread_ops) and leaving each worker
// unbounded when only Timer is set.
func (d *Driver) runWorkers(ctx context.Context) (Stats, error) {
	runCtx := ctx
	if d.Config.Timer > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.Config.Timer)
		defer cancel()
	}

	perWorkerOps := 0
	if d.Config.Ops > 0 {
		perWorkerOps = d.Config.Ops / d.Config.Threads
	}

	g, gctx := errgroup.WithContext(runCtx)
	results := make([]Stats, d.Config.Threads)
	for i := 0; i < d.Config.Threads; i++ {
		i := i
		g.Go(func() error {
			w := newWorker(i, d.Store, d.Config)
			stats, err := w.run(gctx, perWorkerOps)
			results[i] = stats
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var total Stats
	for _, s := range results {
		total.add(s)
	}
	return total, nil
}
