package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smartbid",
	Short: "Bid compliance audits with a metered trial and subscription billing",
	Long: `SmartBid Compliance audits vendor bids against RFQ requirements.

It relays audit prompts to a generative AI model, meters bidder audits
against a free trial, and links Stripe subscriptions to users.

Quick start:
  smartbid validate   # Check configuration
  smartbid serve      # Start the API server

Inspection:
  smartbid usage show <user>   # Show a user's usage record
  smartbid reports list <user> # List a user's stored reports`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "smartbid.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format for inspection commands (table, json, yaml)")
}
