package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/provider"
	"github.com/omnistor/omnistor/pkg/transfer"
)

var cpFlags transferFlags

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy an object or subtree within the backend",
	Long: `Copy an object, or with --recursive a whole prefix, to a new path on
the same backend. Server-side copy is used when the backend supports
it; otherwise content is streamed through the client.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopyMove(cmd, args, &cpFlags, "cp", transfer.Copy)
	},
}

var mvFlags transferFlags

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Move an object or subtree within the backend",
	Long: `Move an object, or with --recursive a whole prefix, to a new path on
the same backend. An atomic rename is used where the backend offers
one; otherwise each entry is copied and the source deleted only after
its copy succeeds.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopyMove(cmd, args, &mvFlags, "mv", transfer.Move)
	},
}

type copyMoveFunc func(ctx context.Context, p provider.Provider, src, dst string, recursive bool, opts transfer.Options) (*transfer.Summary, error)

func runCopyMove(cmd *cobra.Command, args []string, flags *transferFlags, op string, fn copyMoveFunc) error {
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

	opts, err := flags.options(w)
	if err != nil {
		return err
	}

	sum, err := fn(ctx, p, src, dst, flags.recursive, opts)
	if err != nil {
		emitError(w, err, src)
		return err
	}
	emitSummary(w, op, sum, started)
	return nil
}

func init() {
	cpFlags.register(cpCmd)
	mvFlags.register(mvCmd)
	rootCmd.AddCommand(cpCmd, mvCmd)
}
