package cli

import (
	"github.com/spf13/cobra"

	"freetier-alerts/internal/app"
)

var (
	statusMonth  string
	statusReport bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display classified usage standings for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.StatusOptions{
			Month:  statusMonth,
			Report: statusReport,
		}
		return getApp().Status(cmd.Context(), opts)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusMonth, "month", "", "Month to inspect (YYYY-MM, defaults to current)")
	statusCmd.Flags().BoolVar(&statusReport, "report", false, "Append summary counts")
}
