package cli

import (
	"github.com/spf13/cobra"

	"freetier-alerts/internal/app"
)

var (
	exportMonth     string
	exportCSVPath   string
	exportPNGPath   string
	exportTrendDays int
	exportMaxRows   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export monthly standings as CSV and/or the cost trend as PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Month:     exportMonth,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			TrendDays: exportTrendDays,
			MaxRows:   exportMaxRows,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "Month to export (YYYY-MM, defaults to current)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write status CSV")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write cost trend chart")
	exportCmd.Flags().IntVar(&exportTrendDays, "trend-days", 0, "Trailing window for the cost trend (defaults to config)")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Maximum CSV rows (defaults to config)")
}
