package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"freetier-alerts/internal/app"
)

var (
	alertsLimit   int
	alertsSummary bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Display recent alert events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.AlertsOptions{
			Limit:   alertsLimit,
			Summary: alertsSummary,
		}
		return getApp().Alerts(cmd.Context(), opts)
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Number of alerts to display")
	alertsCmd.Flags().BoolVar(&alertsSummary, "summary", false, "Append the trailing-week summary")
}
