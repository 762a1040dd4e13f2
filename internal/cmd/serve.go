package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnistor/omnistor/internal/observability"
	"github.com/omnistor/omnistor/internal/server"
	"github.com/omnistor/omnistor/pkg/transfer"
)

var serveFlags = struct {
	host string
	port int
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve the storage operations API over HTTP: list and stat entries,
build change plans, and apply operation batches against the selected
backend. The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		cfg := appConfig.Server
		if serveFlags.host != "" {
			cfg.Host = serveFlags.host
		}
		if serveFlags.port != 0 {
			cfg.Port = serveFlags.port
		}

		srv := server.New(cfg, p, observability.Logger, versionInfo.Version).
			WithTransferOptions(transfer.Options{RateLimit: appConfig.Transfer.RateLimit})

		observability.Logger.Info("starting server",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("backend", p.Scheme()))
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "bind address (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
