package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

var rmFlags = struct {
	transferFlags
	missingOK bool
}{}

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Delete objects or subtrees",
	Long: `Delete the named paths on the selected backend. With --recursive each
path is treated as a prefix and the whole subtree is removed, using
batched deletes where the backend supports them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		w := newWriter(p)
		defer w.Close()
		started := time.Now()

		opts, err := rmFlags.options(w)
		if err != nil {
			return err
		}

		total := &transfer.Summary{}
		for _, path := range args {
			if rmFlags.recursive {
				sum, derr := transfer.DeleteTree(ctx, p, path, true, opts)
				if derr != nil {
					emitError(w, derr, path)
					return derr
				}
				total.Entries += sum.Entries
				continue
			}
			derr := p.Delete(ctx, path, provider.DeleteOptions{MissingOK: rmFlags.missingOK})
			if derr != nil {
				emitError(w, derr, path)
				return derr
			}
			total.Entries++
		}
		emitSummary(w, "rm", total, started)
		return nil
	},
}

func init() {
	rmFlags.register(rmCmd)
	rmCmd.Flags().BoolVar(&rmFlags.missingOK, "missing-ok", false, "treat already-absent paths as success")
	rootCmd.AddCommand(rmCmd)
}
