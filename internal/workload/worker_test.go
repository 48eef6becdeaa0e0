package workload

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Rows = 100
	cfg.Threads = 1
	cfg.Ops = 200
	cfg.Checkpoints = false
	return cfg
}

func TestWorker_RunRespectsOpBudget(t *testing.T) {
	s := NewStore(5)
	require.NoError(t, s.Populate(context.Background(), 100))

	cfg := testConfig()
	w := newWorker(0, s, cfg)
	stats, err := w.run(context.Background(), cfg.Ops)
	require.NoError(t, err)
	require.Equal(t, int64(cfg.Ops), stats.Commits+stats.Rollbacks)
}

func TestWorker_IsolationRandomResolvesToConcreteLevel(t *testing.T) {
	s := NewStore(6)
	cfg := testConfig()
	cfg.Isolation = IsolationRandom
	w := newWorker(0, s, cfg)
	for i := 0; i < 20; i++ {
		iso := w.resolveIsolation()
		require.Contains(t, []int{0, 1, 2}, int(iso))
	}
}

func TestWorker_PureDeleteWorkloadNeverErrors(t *testing.T) {
	s := NewStore(7)
	require.NoError(t, s.Populate(context.Background(), 50))

	cfg := testConfig()
	cfg.DeletePct, cfg.InsertPct, cfg.WritePct, cfg.TruncatePct = 100, 0, 0, 0
	cfg.Ops = 50
	w := newWorker(0, s, cfg)
	stats, err := w.run(context.Background(), cfg.Ops)
	require.NoError(t, err)
	require.Equal(t, int64(50), stats.Removes)
}

// A pure-search workload is fully deterministic: no mutation means no
// restarts, conflicts, or rollbacks, so its resulting Stats can be
// compared against an exact expectation rather than just a sum.
func TestWorker_PureSearchWorkloadMatchesExpectedStats(t *testing.T) {
	s := NewStore(9)
	require.NoError(t, s.Populate(context.Background(), 30))

	cfg := testConfig()
	cfg.DeletePct, cfg.InsertPct, cfg.WritePct, cfg.TruncatePct = 0, 0, 0, 0
	cfg.Ops = 40
	w := newWorker(0, s, cfg)
	stats, err := w.run(context.Background(), cfg.Ops)
	require.NoError(t, err)

	want := Stats{Searches: 40, Commits: 40}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestWorker_TruncateRemovesContiguousRun(t *testing.T) {
	s := NewStore(8)
	require.NoError(t, s.Populate(context.Background(), 20))

	cfg := testConfig()
	cfg.DeletePct, cfg.InsertPct, cfg.WritePct, cfg.TruncatePct = 0, 0, 0, 100
	cfg.Ops = 1
	w := newWorker(0, s, cfg)
	stats, err := w.run(context.Background(), cfg.Ops)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Truncates)

	var removed []uint64
	for i := uint64(1); i <= 20; i++ {
		if _, found := s.Lookup(EncodeKey(i)); !found {
			removed = append(removed, i)
		}
	}
	require.NotEmpty(t, removed)
	require.LessOrEqual(t, len(removed), 4)
	require.Equal(t, uint64(len(removed)-1), removed[len(removed)-1]-removed[0], "removed keys must form one contiguous run")
}
