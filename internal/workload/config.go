// Package workload implements the mixed-operation driver that
// exercises rowstore: worker threads hammering insert/update/remove/
// search/range against one shared leaf page, an optional
// checkpointer, and an optional reference-store oracle.
package workload

import "time"

// Isolation selects the isolation level a worker's transaction opens
// at, per spec.md §4.8 and SPEC_FULL.md §9.
type Isolation int

const (
	IsolationReadUncommitted Isolation = iota
	IsolationReadCommitted
	IsolationSnapshot
	IsolationRandom
)

func (i Isolation) String() string {
	switch i {
	case IsolationReadUncommitted:
		return "read-uncommitted"
	case IsolationReadCommitted:
		return "read-committed"
	case IsolationSnapshot:
		return "snapshot"
	case IsolationRandom:
		return "random"
	default:
		return "unknown"
	}
}

// StoreShape selects what the keys-by-ordinal driver lays rows out as;
// only Row is implemented by this module (fixed/variable-column are
// named for config-surface parity with the original driver, per
// spec.md §6, and rejected at startup by the rowformat CLI's
// parseStoreShape).
type StoreShape int

const (
	ShapeRow StoreShape = iota
	ShapeFixedColumn
	ShapeVariableColumn
)

// Config is the full set of driver knobs from spec.md §6, plus the
// SPEC_FULL.md §7 additions (TruncatePct, MaxRestartRetries, Seed).
type Config struct {
	Rows    int
	Threads int
	Ops     int           // per-run operation budget; 0 means unbounded (use Timer)
	Timer   time.Duration // wall-clock budget; 0 means unbounded (use Ops)

	DeletePct   int
	InsertPct   int
	WritePct    int
	TruncatePct int // SPEC_FULL.md §7: remainder after Delete/Insert/Write/Truncate is Search

	Checkpoints       bool
	Isolation         Isolation
	LongRunningTxn    bool
	StoreShape        StoreShape
	MaxRestartRetries int

	Seed int64

	// CompareOracle marks a run as a single-threaded reference-store
	// comparison run (spec.md §4.8); the verify command sets it. The
	// driver does not read it: mirroring happens whenever Store.Ref is
	// set. Only meaningful when Threads == 1.
	CompareOracle bool
}

// DefaultConfig mirrors the original driver's defaults: 10% each of
// deletes, inserts and writes, no truncates, the remainder being
// search traffic.
func DefaultConfig() Config {
	return Config{
		Rows:              10_000,
		Threads:           8,
		Ops:               1_000_000,
		DeletePct:         10,
		InsertPct:         10,
		WritePct:          10,
		TruncatePct:       0,
		Checkpoints:       true,
		Isolation:         IsolationRandom,
		LongRunningTxn:    false,
		StoreShape:        ShapeRow,
		MaxRestartRetries: 50,
		Seed:              1,
	}
}

// SearchPct is the implied remainder: spec.md §6's "unspecified rest
// is search".
func (c Config) SearchPct() int {
	rest := 100 - c.DeletePct - c.InsertPct - c.WritePct - c.TruncatePct
	if rest < 0 {
		return 0
	}
	return rest
}
