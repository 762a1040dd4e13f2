package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/output"
	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

var lsFlags = struct {
	transferFlags
	max   int
	token string
}{}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List entries under a path",
	Long: `List entries under a path on the selected backend, one entry record
per line. Without --recursive only the immediate level is listed;
directories carry a trailing slash. With --recursive the full subtree
is enumerated across backend pages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		w := newWriter(p)
		defer w.Close()
		started := time.Now()

		opts, err := lsFlags.options(w)
		if err != nil {
			return err
		}

		var entries []provider.Entry
		if lsFlags.recursive {
			entries, err = transfer.Enumerate(ctx, p, path, opts)
			if err != nil {
				emitError(w, err, path)
				return err
			}
		} else {
			res, lerr := p.List(ctx, path, provider.ListOptions{
				MaxEntries:        lsFlags.max,
				ContinuationToken: lsFlags.token,
			})
			if lerr != nil {
				emitError(w, lerr, path)
				return lerr
			}
			entries = res.Entries
		}

		var bytes int64
		for i := range entries {
			if err := w.WriteEntry(&output.EntryRecord{Entry: entries[i]}); err != nil {
				return err
			}
			bytes += entries[i].Size
		}
		emitSummary(w, "ls", &transfer.Summary{
			Entries:          int64(len(entries)),
			BytesTransferred: bytes,
		}, started)
		return nil
	},
}

func init() {
	lsFlags.register(lsCmd)
	lsCmd.Flags().IntVar(&lsFlags.max, "max", 0, "max entries per page (non-recursive)")
	lsCmd.Flags().StringVar(&lsFlags.token, "token", "", "continuation token from a previous page")
	rootCmd.AddCommand(lsCmd)
}
