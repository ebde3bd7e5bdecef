package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ravindran79-arch/smartbid-compliance/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the SmartBid Compliance API server.

The server will:
  - Load configuration from smartbid.yaml (or --config)
  - Or load configuration from SMARTBID_* environment variables
  - Open the usage and report stores
  - Serve the relay, billing, audit and live usage endpoints
  - Reload the trial limit when the config file changes or on SIGHUP

Environment variables (for container deployments):
  SMARTBID_DATABASE_DSN   - Database path (default: smartbid.db)
  SMARTBID_SERVER_PORT    - Server port (default: 8080)
  GEMINI_API_KEY          - Generative AI API key
  STRIPE_SECRET_KEY       - Stripe secret key
  STRIPE_WEBHOOK_SECRET   - Stripe webhook signing secret
  SMARTBID_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  smartbid serve
  smartbid serve --config /etc/smartbid/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(background(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		Commit:     commit,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	return app.Run(ctx)
}

// background is used by commands that run outside cobra's context.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
