package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dgraph-io/rowstore/internal/oracle"
	"github.com/dgraph-io/rowstore/internal/workload"
)

func newVerifyCommand(v *viper.Viper) *cobra.Command {
	var refDir string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run single-threaded against a reference badger store and compare every key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(v)
			if err != nil {
				return err
			}
			cfg.Threads = 1
			cfg.CompareOracle = true
			return runVerify(cmd.Context(), cfg, refDir)
		},
	}
	cmd.Flags().StringVar(&refDir, "ref-dir", "", "directory for the reference badger store (temp dir if empty)")
	return cmd
}

func runVerify(ctx context.Context, cfg workload.Config, refDir string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if refDir == "" {
		var err error
		refDir, err = os.MkdirTemp("", "rowformat-ref-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(refDir)
	}

	ref, err := oracle.OpenReference(refDir)
	if err != nil {
		return fmt.Errorf("opening reference store: %w", err)
	}
	defer ref.Close()

	driver := workload.NewDriver(cfg)
	driver.Store.Ref = ref

	logger.Info("starting verify run", zap.String("session", driver.SessionID.String()), zap.String("ref_dir", refDir))

	result, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if err := driver.Store.Verify(driver.Store.Append.Rows()); err != nil {
		logger.Error("verification failed", zap.Error(err))
		return err
	}

	logger.Info("verification passed",
		zap.String("session", result.SessionID.String()),
		zap.Duration("elapsed", result.Elapsed),
		zap.Uint64("rows_verified", driver.Store.Append.Rows()),
	)
	return nil
}
