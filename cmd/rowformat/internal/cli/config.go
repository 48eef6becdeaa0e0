package cli

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/dgraph-io/rowstore/internal/workload"
)

func buildConfig(v *viper.Viper) (workload.Config, error) {
	cfg := workload.DefaultConfig()
	cfg.Rows = v.GetInt("rows")
	cfg.Threads = v.GetInt("threads")
	cfg.Ops = v.GetInt("ops")
	cfg.Timer = v.GetDuration("timer")
	cfg.DeletePct = v.GetInt("delete-pct")
	cfg.InsertPct = v.GetInt("insert-pct")
	cfg.WritePct = v.GetInt("write-pct")
	cfg.TruncatePct = v.GetInt("truncate-pct")
	cfg.Checkpoints = v.GetBool("checkpoints")
	cfg.Seed = v.GetInt64("seed")
	cfg.MaxRestartRetries = v.GetInt("max-restart-retries")

	iso, err := parseIsolation(v.GetString("isolation"))
	if err != nil {
		return workload.Config{}, err
	}
	cfg.Isolation = iso

	shape, err := parseStoreShape(v.GetString("store-shape"))
	if err != nil {
		return workload.Config{}, err
	}
	cfg.StoreShape = shape

	if cfg.DeletePct+cfg.InsertPct+cfg.WritePct+cfg.TruncatePct > 100 {
		return workload.Config{}, fmt.Errorf("delete-pct + insert-pct + write-pct + truncate-pct exceeds 100")
	}
	if cfg.Threads < 1 {
		return workload.Config{}, fmt.Errorf("threads must be at least 1")
	}
	return cfg, nil
}

func parseIsolation(s string) (workload.Isolation, error) {
	switch s {
	case "read-uncommitted":
		return workload.IsolationReadUncommitted, nil
	case "read-committed":
		return workload.IsolationReadCommitted, nil
	case "snapshot":
		return workload.IsolationSnapshot, nil
	case "random":
		return workload.IsolationRandom, nil
	default:
		return 0, fmt.Errorf("unknown isolation level %q", s)
	}
}

func parseStoreShape(s string) (workload.StoreShape, error) {
	switch s {
	case "row":
		return workload.ShapeRow, nil
	case "fixed-column", "variable-column":
		return 0, fmt.Errorf("store-shape %q is not implemented by this driver; only row is supported", s)
	default:
		return 0, fmt.Errorf("unknown store-shape %q", s)
	}
}
