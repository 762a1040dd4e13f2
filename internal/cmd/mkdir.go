package cmd

import (
	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>...",
	Short: "Create directories or directory markers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		w := newWriter(p)
		defer w.Close()

		for _, path := range args {
			if err := p.Mkdir(ctx, path); err != nil {
				emitError(w, err, path)
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
}
