package cli

import (
	"github.com/spf13/cobra"

	"freetier-alerts/internal/app"
)

var (
	simulateResource  string
	simulateSubMetric string
	simulateAmount    float64
	simulateUnit      string
	simulateCost      float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-usage",
	Short: "Inject a synthetic observation and exercise the alert path",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{
			Resource:  simulateResource,
			SubMetric: simulateSubMetric,
			Amount:    simulateAmount,
			Unit:      simulateUnit,
			Cost:      simulateCost,
		}
		return getApp().SimulateUsage(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateResource, "resource", "", "Resource identifier")
	simulateCmd.Flags().StringVar(&simulateSubMetric, "sub-metric", "", "Sub-metric identifier")
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 0, "Usage amount for today")
	simulateCmd.Flags().StringVar(&simulateUnit, "unit", "", "Usage unit")
	simulateCmd.Flags().Float64Var(&simulateCost, "cost", 0, "Cost incurred (USD)")
}
