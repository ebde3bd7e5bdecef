package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/clock"
	"github.com/ravindran79-arch/smartbid-compliance/bootstrap"
	"github.com/ravindran79-arch/smartbid-compliance/config"
	"github.com/ravindran79-arch/smartbid-compliance/domain/entitlement"
	"github.com/ravindran79-arch/smartbid-compliance/pkg/formatter"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect usage records",
	Long: `Inspect per-user usage records in the configured store.

Examples:
  smartbid usage show vendor-42
  smartbid usage show vendor-42 -o json`,
}

var usageShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show a user's counters, subscription and gate decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsageShow,
}

var usageView = formatter.View{
	Kind:    "usage",
	Columns: []string{"userId", "initiatorChecks", "bidderChecks", "isSubscribed", "billingCustomerId", "updatedAt", "gate"},
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageShowCmd)
}

// openStores loads configuration and opens the configured stores.
func openStores(cmd *cobra.Command) (*config.Config, *bootstrap.Stores, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	stores, err := bootstrap.OpenStores(background(cmd), cfg, clock.Real{}, zerolog.Nop())
	if err != nil {
		return nil, nil, fmt.Errorf("open stores: %w", err)
	}
	return cfg, stores, nil
}

func runUsageShow(cmd *cobra.Command, args []string) error {
	f, err := formatter.Get(outputFormat)
	if err != nil {
		return err
	}

	cfg, stores, err := openStores(cmd)
	if err != nil {
		return err
	}
	defer stores.Close()

	rec, err := stores.Usage.Get(background(cmd), args[0])
	if err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	decision := entitlement.Check(rec, cfg.Usage.TrialLimit)

	return f.FormatRecord(cmd.OutOrStdout(), usageView, map[string]any{
		"userId":            rec.UserID,
		"initiatorChecks":   rec.InitiatorChecks,
		"bidderChecks":      fmt.Sprintf("%d / %d", rec.BidderChecks, decision.Limit),
		"isSubscribed":      rec.IsSubscribed,
		"billingCustomerId": rec.BillingCustomerID,
		"updatedAt":         rec.UpdatedAt,
		"gate":              gateSummary(decision),
		"decision":          decision,
	})
}

func gateSummary(d entitlement.Decision) string {
	switch {
	case d.Subscribed:
		return "allowed (subscribed)"
	case d.Allowed:
		return fmt.Sprintf("allowed (%d trial audits left)", d.Remaining)
	default:
		return "blocked (trial exhausted)"
	}
}
