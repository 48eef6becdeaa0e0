package cli

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dgraph-io/rowstore/internal/workload"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Populate rows then run the mixed-operation workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(v)
			if err != nil {
				return err
			}
			return runWorkload(cmd.Context(), cfg, v)
		},
	}
}

func runWorkload(ctx context.Context, cfg workload.Config, v *viper.Viper) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	driver := workload.NewDriver(cfg)

	if v.GetBool("metrics") {
		addr := v.GetString("metrics-addr")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(driver.Store.Core.Metrics.Registry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	logger.Info("starting run",
		zap.String("session", driver.SessionID.String()),
		zap.Int("rows", cfg.Rows),
		zap.Int("threads", cfg.Threads),
		zap.String("isolation", cfg.Isolation.String()),
	)

	result, err := driver.Run(ctx)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}

	snapshot := driver.Store.Core.Metrics.Snapshot()
	logger.Info("run complete",
		zap.String("session", result.SessionID.String()),
		zap.Duration("elapsed", result.Elapsed),
		zap.Int64("inserts", result.Stats.Inserts),
		zap.Int64("updates", result.Stats.Updates),
		zap.Int64("removes", result.Stats.Removes),
		zap.Int64("searches", result.Stats.Searches),
		zap.Int64("truncates", result.Stats.Truncates),
		zap.Int64("commits", result.Stats.Commits),
		zap.Int64("rollbacks", result.Stats.Rollbacks),
		zap.Int64("conflicts", result.Stats.Conflicts),
		zap.Int64("retry_exhaustions", result.Stats.RetryExhaust),
		zap.Float64("core_restarts", snapshot.Restarts),
		zap.Float64("obsolete_bytes_freed", snapshot.ObsoleteBytesFreed),
	)
	return nil
}
