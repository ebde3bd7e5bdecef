package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ravindran79-arch/smartbid-compliance/pkg/formatter"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect stored compliance reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List a user's reports, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsList,
}

var reportsLimit int

var reportsView = formatter.View{
	Kind:    "reports",
	Columns: []string{"id", "created", "role", "findings", "summary"},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd)

	reportsListCmd.Flags().IntVar(&reportsLimit, "limit", 20, "number of reports to show")
}

func runReportsList(cmd *cobra.Command, args []string) error {
	f, err := formatter.Get(outputFormat)
	if err != nil {
		return err
	}

	_, stores, err := openStores(cmd)
	if err != nil {
		return err
	}
	defer stores.Close()

	reports, err := stores.Reports.ListByOwner(background(cmd), args[0], reportsLimit)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	rows := make([]map[string]any, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, map[string]any{
			"id":       r.ID,
			"created":  time.UnixMilli(r.Timestamp).UTC(),
			"role":     r.Role,
			"findings": len(r.Findings),
			"summary":  r.ExecutiveSummary,
		})
	}
	return f.FormatList(cmd.OutOrStdout(), reportsView, rows)
}
