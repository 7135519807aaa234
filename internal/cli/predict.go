package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"freetier-alerts/internal/app"
)

var (
	predictResource  string
	predictSubMetric string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Project month-to-date usage and estimate breach dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (predictResource == "") != (predictSubMetric == "") {
			return fmt.Errorf("--resource and --sub-metric must be provided together")
		}

		opts := app.PredictOptions{
			Resource:  predictResource,
			SubMetric: predictSubMetric,
		}
		return getApp().Predict(cmd.Context(), opts)
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictResource, "resource", "", "Restrict to one resource")
	predictCmd.Flags().StringVar(&predictSubMetric, "sub-metric", "", "Restrict to one sub-metric")
}
