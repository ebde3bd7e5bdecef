package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ravindran79-arch/smartbid-compliance/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration (file, then environment) and report problems.

Secrets are reported as set or unset, never printed.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration valid")
	fmt.Fprintf(out, "  Listen:         %s\n", cfg.Server.Addr())
	fmt.Fprintf(out, "  Database:       %s (%s)\n", cfg.Database.Driver, cfg.Database.DSN)
	fmt.Fprintf(out, "  Usage backend:  %s (namespace %s)\n", cfg.Usage.Backend, cfg.Usage.Namespace)
	fmt.Fprintf(out, "  Trial limit:    %d\n", cfg.Usage.TrialLimit)
	fmt.Fprintf(out, "  LLM API key:    %s\n", setOrUnset(cfg.LLM.APIKey))
	fmt.Fprintf(out, "  Stripe key:     %s\n", setOrUnset(cfg.Billing.SecretKey))
	fmt.Fprintf(out, "  Webhook secret: %s\n", setOrUnset(cfg.Billing.WebhookSecret))
	return nil
}

func setOrUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return "set"
}
