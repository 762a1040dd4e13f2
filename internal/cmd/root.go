// Package cmd implements the omnistor command line interface.
//
// Output contract: data records (JSONL) go to stdout, logs go to
// stderr. Commands exit non-zero on failure; partial batch failures
// are reported in the result record and exit with code 1.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/internal/config"
	"github.com/omnistor/omnistor/internal/observability"
	"github.com/omnistor/omnistor/pkg/output"
	"github.com/omnistor/omnistor/pkg/provider"
)

var rootCmd = &cobra.Command{
	Use:   "omnistor",
	Short: "Capability-gated storage operations across object stores and filesystems",
	Long: `omnistor lists, transfers, plans, and executes storage operations
against configured backends (S3-compatible object stores and local
filesystems) through one capability-gated contract.

Backends are named profiles in the config file:

  default_backend: archive
  backends:
    archive:
      type: s3
      bucket: my-archive
      region: us-east-1
    scratch:
      type: file
      base_dir: /srv/scratch`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfig    string
	flagBackend   string
	flagLogLevel  string
	flagLogFormat string

	appConfig *config.Config
)

// versionInfo carries build-time identity, injected via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build identity for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&flagBackend, "backend", "b", "", "Backend profile name")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (json|console)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.Logging.Level = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.Logging.Format = flagLogFormat
		}
		if err := observability.Init(cfg.Logging); err != nil {
			return err
		}
		appConfig = cfg
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "omnistor %s (commit %s, built %s)\n",
			versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
	},
}

// Execute runs the CLI with signal-driven cancellation. SIGINT and
// SIGTERM cancel the command context; in-flight batches stop at the
// next operation boundary.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "omnistor: %v\n", err)
		return 1
	}
	return 0
}

// openBackend resolves the selected backend profile and constructs its
// provider. Callers own Close.
func openBackend(ctx context.Context) (provider.Provider, error) {
	b, err := appConfig.Backend(flagBackend)
	if err != nil {
		return nil, err
	}
	return config.OpenBackend(ctx, b)
}

// newWriter builds the stdout JSONL writer with a fresh job ID.
func newWriter(p provider.Provider) *output.JSONLWriter {
	return output.NewJSONLWriter(os.Stdout, uuid.NewString(), p.Scheme())
}
