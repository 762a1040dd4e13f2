package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/transfer"
)

var getFlags transferFlags

var getCmd = &cobra.Command{
	Use:   "get <remote> <local>",
	Short: "Download an object or subtree to the local filesystem",
	Long: `Download a single object, or with --recursive a whole prefix, from the
selected backend into a local directory tree. Existing local files are
replaced; partial downloads never leave a truncated destination file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, dst := args[0], args[1]

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		w := newWriter(p)
		defer w.Close()
		started := time.Now()

		opts, err := getFlags.options(w)
		if err != nil {
			return err
		}

		sum, err := transfer.Download(ctx, p, src, dst, getFlags.recursive, opts)
		if err != nil {
			emitError(w, err, src)
			return err
		}
		emitSummary(w, "get", sum, started)
		return nil
	},
}

func init() {
	getFlags.register(getCmd)
	rootCmd.AddCommand(getCmd)
}
