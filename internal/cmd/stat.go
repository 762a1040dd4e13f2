package cmd

import (
	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/output"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show metadata for a single entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		w := newWriter(p)
		defer w.Close()

		entry, err := p.Stat(ctx, path)
		if err != nil {
			emitError(w, err, path)
			return err
		}
		return w.WriteEntry(&output.EntryRecord{Entry: *entry})
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}
