package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnistor/omnistor/internal/config"
	"github.com/omnistor/omnistor/internal/observability"
	"github.com/omnistor/omnistor/pkg/executor"
	"github.com/omnistor/omnistor/pkg/manifest"
	"github.com/omnistor/omnistor/pkg/output"
	"github.com/omnistor/omnistor/pkg/provider"
)

var applyFlags = struct {
	transferFlags
	dryRun bool
}{}

var applyCmd = &cobra.Command{
	Use:   "apply <manifest>",
	Short: "Execute a batch of operations from a manifest file",
	Long: `Load a YAML or JSON manifest of operations and execute them in order
against the backend it names (or the one selected with --backend).
Operations run strictly sequentially; a failing operation is recorded
and the batch continues. With --dry-run the resolved operations are
printed and nothing is executed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		ops := m.Pending()

		backendName := flagBackend
		if backendName == "" {
			backendName = m.Backend
		}
		b, err := appConfig.Backend(backendName)
		if err != nil {
			return err
		}

		if applyFlags.dryRun {
			for _, op := range ops {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
					op.Type, op.Source, op.Destination, op.ID)
			}
			return nil
		}

		p, err := config.OpenBackend(ctx, b)
		if err != nil {
			return err
		}
		defer p.Close()

		w := newWriter(p)
		defer w.Close()

		opts, err := applyFlags.options(w)
		if err != nil {
			return err
		}

		exec := executor.New(p, observability.Logger).WithTransferOptions(opts)
		var progress executor.ProgressFunc
		if applyFlags.progress {
			progress = func(pr executor.Progress) {
				observability.CLILogger.Info("operation done",
					zap.Int("index", pr.CurrentIndex),
					zap.String("file", pr.CurrentFile),
					zap.Float64("overall", pr.OverallProgress))
			}
		}

		res, err := exec.Execute(ctx, ops, progress)
		if err != nil {
			return err
		}
		if werr := w.WriteResult(&output.ResultRecord{Result: provider.OK(*res)}); werr != nil {
			return werr
		}
		if res.Cancelled {
			return provider.ErrCancelled
		}
		if res.FailureCount > 0 {
			return fmt.Errorf("%d of %d operations failed", res.FailureCount, len(ops))
		}
		return nil
	},
}

func init() {
	// Recursion and filtering come from the manifest itself; only
	// throttling and reporting are command-level here.
	applyCmd.Flags().Float64Var(&applyFlags.rateLimit, "rate-limit", 0, "max backend requests per second (0 = config default)")
	applyCmd.Flags().BoolVar(&applyFlags.progress, "progress", false, "log per-operation progress")
	applyCmd.Flags().BoolVar(&applyFlags.dryRun, "dry-run", false, "print resolved operations without executing")
	rootCmd.AddCommand(applyCmd)
}
