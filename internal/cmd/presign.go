package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/omnistor/omnistor/pkg/provider"
)

var presignExpiry time.Duration

var presignCmd = &cobra.Command{
	Use:   "presign <path>",
	Short: "Mint a time-limited URL for direct object access",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		if !p.Capabilities().Has(provider.CapPresignedURLs) {
			return fmt.Errorf("backend %q: %w: presigned URLs", p.Scheme(), provider.ErrUnimplemented)
		}
		signer, ok := p.(provider.Presigner)
		if !ok {
			return fmt.Errorf("backend %q: %w: presigned URLs", p.Scheme(), provider.ErrUnimplemented)
		}

		url, err := signer.PresignedURL(ctx, path, presignExpiry)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

func init() {
	presignCmd.Flags().DurationVar(&presignExpiry, "expiry", 15*time.Minute, "URL validity window")
	rootCmd.AddCommand(presignCmd)
}
