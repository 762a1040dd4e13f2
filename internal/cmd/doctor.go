package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnistor/omnistor/internal/observability"
	"github.com/omnistor/omnistor/pkg/preflight"
)

var doctorFlags = struct {
	mode        string
	strategy    string
	probePrefix string
}{}

var doctorCmd = &cobra.Command{
	Use:   "doctor [prefix]",
	Short: "Verify backend connectivity and permissions",
	Long: `Run staged preflight checks against the selected backend: a list
probe, a one-byte read probe, and optionally a write probe that leaves
nothing behind. The report is printed as JSON; the command exits
non-zero when any check is denied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}

		spec := preflight.Spec{
			Mode:          preflight.Mode(doctorFlags.mode),
			ProbeStrategy: preflight.ProbeStrategy(doctorFlags.strategy),
			ProbePrefix:   doctorFlags.probePrefix,
		}
		switch spec.Mode {
		case preflight.ModePlanOnly, preflight.ModeReadSafe, preflight.ModeWriteProbe:
		default:
			return fmt.Errorf("unknown preflight mode %q", doctorFlags.mode)
		}

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		rec, runErr := preflight.Run(ctx, p, prefix, spec)
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if runErr != nil {
			observability.CLILogger.Error("preflight failed",
				zap.String("backend", rec.Backend),
				zap.Error(runErr))
			return runErr
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFlags.mode, "mode", string(preflight.ModeReadSafe),
		"check depth (plan-only|read-safe|write-probe)")
	doctorCmd.Flags().StringVar(&doctorFlags.strategy, "probe-strategy", string(preflight.ProbeMultipartAbort),
		"write probe strategy (multipart-abort|put-delete)")
	doctorCmd.Flags().StringVar(&doctorFlags.probePrefix, "probe-prefix", "",
		"prefix for probe objects (default .omnistor-preflight/)")
	rootCmd.AddCommand(doctorCmd)
}
