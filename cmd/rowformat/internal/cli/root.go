// Package cli implements rowformat's command surface: run drives the
// mixed-operation workload, verify layers the reference-store oracle
// on top of a single-threaded run.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Execute builds and runs the rowformat root command.
func Execute() error {
	root := newRootCommand()
	return root.Execute()
}

// normalizeFlagName lets underscore-flavored flag names (as might arrive
// from a generated config or an older script) resolve to the dash-flavored
// ones this command actually defines.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "rowformat",
		Short: "Mixed-operation stress driver for the in-memory row store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			return nil
		},
	}

	root.PersistentFlags().SetNormalizeFunc(normalizeFlagName)
	root.PersistentFlags().String("config", "", "optional config file (yaml/json/toml), overridden by flags")
	root.PersistentFlags().Int("rows", 10_000, "rows to populate before the run starts")
	root.PersistentFlags().Int("threads", 8, "concurrent worker goroutines")
	root.PersistentFlags().Int("ops", 1_000_000, "total operation budget across all threads (0 = unbounded, use --timer)")
	root.PersistentFlags().Duration("timer", 0, "wall-clock run budget (0 = unbounded, use --ops)")
	root.PersistentFlags().Int("delete-pct", 10, "percent of operations that remove a key")
	root.PersistentFlags().Int("insert-pct", 10, "percent of operations that append a new key")
	root.PersistentFlags().Int("write-pct", 10, "percent of operations that overwrite an existing key")
	root.PersistentFlags().Int("truncate-pct", 0, "percent of operations that remove a short contiguous run")
	root.PersistentFlags().Bool("checkpoints", true, "run the background obsolete-version sweep while workers run")
	root.PersistentFlags().String("isolation", "random", "read-uncommitted|read-committed|snapshot|random")
	root.PersistentFlags().String("store-shape", "row", "row (only shape implemented; fixed-column|variable-column are accepted and rejected at startup)")
	root.PersistentFlags().Int64("seed", 1, "PRNG seed for value generation and per-worker key selection")
	root.PersistentFlags().Int("max-restart-retries", 50, "restart retries per operation before it counts as a failure")
	root.PersistentFlags().Bool("metrics", false, "serve Prometheus metrics on --metrics-addr while the run executes")
	root.PersistentFlags().String("metrics-addr", ":9100", "address to serve /metrics on when --metrics is set")

	_ = v.BindPFlags(root.PersistentFlags())
	v.SetEnvPrefix("ROWFORMAT")
	v.AutomaticEnv()

	root.AddCommand(newRunCommand(v))
	root.AddCommand(newVerifyCommand(v))
	return root
}
