package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"freetier-alerts/internal/advisor"
	"freetier-alerts/internal/classify"
)

// Recommend prints optimisation advice for the month's standings.
func (a *App) Recommend(ctx context.Context, opts RecommendOptions) error {
	month, err := a.resolveMonth(opts.Month)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot recommend")
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

	recommendations := advisor.Recommend(statuses)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Priority\tResource\tTitle\tAction")
	for _, rec := range recommendations {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			rec.Priority,
			sanitizeInline(rec.Resource),
			rec.Title,
			rec.Action,
		)
	}
	writer.Flush()
	return nil
}
