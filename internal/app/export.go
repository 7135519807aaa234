package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"freetier-alerts/internal/classify"
	"freetier-alerts/internal/storage"
)

// Export writes the month's statuses as CSV and/or the cost trend as PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	month, err := a.resolveMonth(opts.Month)
	if err != nil {
		return err
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = a.Config.Export.TrendDays
	}
	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	l, _ := a.newLedger(store)

	if opts.CSVPath != "" {
		aggregates, err := l.Aggregate(ctx, month, "", "")
		if err != nil {
			return err
		}
		statuses, err := classify.ClassifyAll(aggregates)
		if err != nil {
			return err
		}
		if len(statuses) > opts.MaxRows {
			statuses = statuses[:opts.MaxRows]
		}
		if err := writeStatusCSV(opts.CSVPath, month.String(), statuses); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Int("rows", len(statuses)).Msg("status CSV written")
	}

	if opts.PNGPath != "" {
		points, err := l.CostTrend(ctx, opts.TrendDays)
		if err != nil {
			return err
		}
		if len(points) < 2 {
			a.Logger.Info().Msg("not enough cost trend points for a chart")
			return nil
		}
		if err := a.writeTrendPNG(opts.PNGPath, points); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Int("points", len(points)).Msg("cost trend PNG written")
	}

	return nil
}

func writeStatusCSV(path, month string, statuses []classify.PeriodStatus) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"month", "resource", "sub_metric", "total_usage", "unit", "allowance", "allowance_unit", "usage_percentage", "remaining", "severity", "days_tracked"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, status := range statuses {
		allowance := ""
		if status.Allowance != nil {
			allowance = status.Allowance.String()
		}
		percentage := ""
		if status.UsagePercentage != nil {
			percentage = status.UsagePercentage.StringFixed(2)
		}
		record := []string{
			month,
			status.Resource,
			status.SubMetric,
			status.TotalUsage.String(),
			status.Unit,
			allowance,
			status.AllowanceUnit,
			percentage,
			status.RemainingDisplay(),
			string(status.Severity),
			fmt.Sprintf("%d", status.DaysTracked),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func (a *App) writeTrendPNG(path string, points []storage.CostTrendPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	cost := make([]float64, len(points))
	resources := make([]float64, len(points))

	for i, point := range points {
		x[i] = point.Date
		cost[i] = point.TotalCost.InexactFloat64()
		resources[i] = float64(point.ResourceCount)
	}

	costFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  a.Config.Export.ChartWidthPx,
		Height: a.Config.Export.ChartHeightPx,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Daily cost (USD)",
			ValueFormatter: costFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Active resources",
			ValueFormatter: costFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Daily cost",
				XValues: x,
				YValues: cost,
			},
			chart.TimeSeries{
				Name:    "Active resources",
				XValues: x,
				YValues: resources,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
