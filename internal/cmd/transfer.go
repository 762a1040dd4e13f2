package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnistor/omnistor/internal/observability"
	"github.com/omnistor/omnistor/pkg/match"
	"github.com/omnistor/omnistor/pkg/output"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

// transferFlags are the filtering and throttling flags shared by the
// recursive transfer commands.
type transferFlags struct {
	recursive bool
	includes  []string
	excludes  []string
	rateLimit float64
	progress  bool
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "operate on the whole prefix")
	cmd.Flags().StringSliceVar(&f.includes, "include", nil, "glob patterns to include (repeatable)")
	cmd.Flags().StringSliceVar(&f.excludes, "exclude", nil, "glob patterns to exclude (repeatable)")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", 0, "max backend requests per second (0 = config default)")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "emit progress records")
}

// options builds transfer options from the flags and config, wiring
// progress events to the JSONL writer when enabled.
func (f *transferFlags) options(w output.Writer) (transfer.Options, error) {
	opts := transfer.Options{RateLimit: f.rateLimit}
	if opts.RateLimit == 0 && appConfig != nil {
		opts.RateLimit = appConfig.Transfer.RateLimit
	}

	if len(f.includes) > 0 || len(f.excludes) > 0 {
		m, err := match.New(match.Config{
			Includes: f.includes,
			Excludes: f.excludes,
		})
		if err != nil {
			return transfer.Options{}, err
		}
		opts.Matcher = m
	}

	if f.progress && w != nil {
		opts.Progress = func(ev transfer.ProgressEvent) {
			_ = w.WriteProgress(&output.ProgressRecord{Event: ev})
		}
	}
	return opts, nil
}

// emitSummary writes the closing summary record and logs it.
func emitSummary(w output.Writer, op string, sum *transfer.Summary, started time.Time) {
	if sum == nil {
		sum = &transfer.Summary{}
	}
	_ = w.WriteSummary(&output.SummaryRecord{
		Operation:        op,
		Entries:          sum.Entries,
		BytesTransferred: sum.BytesTransferred,
		DurationMS:       time.Since(started).Milliseconds(),
	})
	observability.CLILogger.Info("done",
		zap.String("operation", op),
		zap.Int64("entries", sum.Entries),
		zap.Int64("bytes", sum.BytesTransferred),
		zap.Duration("elapsed", time.Since(started)))
}

// emitError writes a failure record carrying the canonical status.
func emitError(w output.Writer, err error, path string) {
	_ = w.WriteError(&output.ErrorRecord{
		Status:  provider.StatusOf(err),
		Message: err.Error(),
		Path:    path,
	})
}
