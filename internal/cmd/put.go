package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/transfer"
)

var putFlags transferFlags

var putCmd = &cobra.Command{
	Use:   "put <local> <remote>",
	Short: "Upload a local file or directory to the backend",
	Long: `Upload a single local file, or with --recursive a whole directory
tree, to the selected backend. Payloads above the multipart threshold
are uploaded in chunks when the backend supports it; a failed chunked
upload is aborted so no partial object remains.`,
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

		opts, err := putFlags.options(w)
		if err != nil {
			return err
		}

		sum, err := transfer.Upload(ctx, p, src, dst, putFlags.recursive, opts)
		if err != nil {
			emitError(w, err, dst)
			return err
		}
		emitSummary(w, "put", sum, started)
		return nil
	},
}

func init() {
	putFlags.register(putCmd)
	rootCmd.AddCommand(putCmd)
}
