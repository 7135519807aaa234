package cli

import (
	"github.com/spf13/cobra"

	"freetier-alerts/internal/app"
)

var recommendMonth string

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print optimisation recommendations for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RecommendOptions{
			Month: recommendMonth,
		}
		return getApp().Recommend(cmd.Context(), opts)
	},
}

func init() {
	recommendCmd.Flags().StringVar(&recommendMonth, "month", "", "Month to inspect (YYYY-MM, defaults to current)")
}
