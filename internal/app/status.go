package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"freetier-alerts/internal/classify"
)

// Status prints the classified standing of every tracked pair for a month.
func (a *App) Status(ctx context.Context, opts StatusOptions) error {
	month, err := a.resolveMonth(opts.Month)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show status")
	}
	defer closeStore()

	l, _ := a.newLedger(store)
	aggregates, err := l.Aggregate(ctx, month, "", "")
	if err != nil {
		return err
	}
	statuses, err := classify.ClassifyAll(aggregates)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Fprintf(os.Stdout, "no usage recorded for %s\n", month)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Resource\tSub-metric\tUsage\tAllowance\tUsed%\tRemaining\tDays\tSeverity")

	for _, status := range statuses {
		allowance := "-"
		if status.Allowance != nil {
			allowance = fmt.Sprintf("%s %s", status.Allowance.String(), status.AllowanceUnit)
		}
		percentage := "-"
		if status.UsagePercentage != nil {
			percentage = status.UsagePercentage.StringFixed(1)
		}

		fmt.Fprintf(
			writer,
			"%s\t%s\t%s %s\t%s\t%s\t%s\t%d\t%s\n",
			sanitizeInline(status.Resource),
			sanitizeInline(status.SubMetric),
			status.TotalUsage.String(),
			status.Unit,
			allowance,
			percentage,
			status.RemainingDisplay(),
			status.DaysTracked,
			status.Severity,
		)
	}

	writer.Flush()

	if opts.Report {
		printReportSummary(month.String(), statuses)
	}
	return nil
}

func printReportSummary(month string, statuses []classify.PeriodStatus) {
	atRisk := 0
	critical := 0
	for _, status := range statuses {
		switch status.Severity {
		case classify.SeverityCritical:
			critical++
			atRisk++
		case classify.SeverityWarning:
			atRisk++
		}
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stdout, "report month:      %s\n", month)
	fmt.Fprintf(os.Stdout, "tracked standings: %d\n", len(statuses))
	fmt.Fprintf(os.Stdout, "at risk (>=75%%):   %d\n", atRisk)
	fmt.Fprintf(os.Stdout, "critical (>=90%%):  %d\n", critical)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
