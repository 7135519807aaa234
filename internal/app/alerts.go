package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Alerts prints recent alert events, optionally with the weekly summary.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot list alerts")
	}
	defer closeStore()

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts recorded")
	} else {
		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Created (UTC)\tDate\tResource\tSub-metric\tUsed%\tSeverity\tAck")
		for _, alert := range alerts {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
				alert.CreatedAt.UTC().Format(time.RFC3339),
				alert.Date.UTC().Format("2006-01-02"),
				sanitizeInline(alert.Resource),
				sanitizeInline(alert.SubMetric),
				alert.UsagePercentage.StringFixed(1),
				alert.Severity,
				alert.Acknowledged,
			)
		}
		writer.Flush()
	}

	if !opts.Summary {
		return nil
	}

	l, _ := a.newLedger(store)
	generator := a.newGenerator(l, store)
	summary, err := generator.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stdout, "alert summary (%s): %d total\n", summary.Period, summary.TotalAlerts)
	for _, row := range summary.BySeverity {
		fmt.Fprintf(os.Stdout, "  %-8s %d  [%s]\n", row.Severity, row.Count, strings.Join(row.Resources, ", "))
	}
	for _, day := range summary.DailyTrend {
		fmt.Fprintf(os.Stdout, "  %s  %d\n", day.Date.UTC().Format("2006-01-02"), day.Count)
	}
	return nil
}
