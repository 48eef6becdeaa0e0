package workload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDriver_RunCompletesOpBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows = 200
	cfg.Threads = 4
	cfg.Ops = 400
	cfg.Checkpoints = false

	d := NewDriver(cfg)
	result, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(400), result.Stats.Commits+result.Stats.Rollbacks)
	require.NotEqual(t, result.SessionID.String(), "")
}

func TestDriver_TimerBoundedRunStopsOnDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows = 100
	cfg.Threads = 2
	cfg.Ops = 0
	cfg.Timer = 50 * time.Millisecond
	cfg.Checkpoints = false

	d := NewDriver(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result, err := d.Run(ctx)
	require.NoError(t, err)
	require.Greater(t, result.Stats.Commits+result.Stats.Rollbacks, int64(0))
}

func TestDriver_CheckpointsRunWithoutError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rows = 50
	cfg.Threads = 2
	cfg.Ops = 100
	cfg.Checkpoints = true

	d := NewDriver(cfg)
	result, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(100), result.Stats.Commits+result.Stats.Rollbacks)
}
