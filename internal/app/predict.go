package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"freetier-alerts/internal/predict"
)

// Predict projects month-to-date consumption to the end of the period and
// prints which allowances are on track to breach.
func (a *App) Predict(ctx context.Context, opts PredictOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot predict")
	}
	defer closeStore()

	l, registry := a.newLedger(store)
	predictor := predict.New(l, registry, a.Logger)
	asOf := time.Now().UTC()

	var predictions []predict.BreachPrediction
	if opts.Resource != "" && opts.SubMetric != "" {
		prediction, err := predictor.Predict(ctx, opts.Resource, opts.SubMetric, asOf)
		if err != nil {
			return err
		}
		if prediction == nil {
			fmt.Fprintf(os.Stdout, "%s (%s): not tracked or no usage this month\n", opts.Resource, opts.SubMetric)
			return nil
		}
		predictions = append(predictions, *prediction)
	} else {
		predictions, err = predictor.PredictAll(ctx, asOf)
		if err != nil {
			return err
		}
	}

	if len(predictions) == 0 {
		fmt.Fprintln(os.Stdout, "no tracked usage this month")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Resource\tSub-metric\tCurrent\tDaily avg\tProjected\tAllowance\tBreach in\tBreach date\tConfidence")

	for _, p := range predictions {
		breachIn := "-"
		breachDate := "-"
		if p.DaysToBreach != nil {
			breachIn = fmt.Sprintf("%d days", *p.DaysToBreach)
			breachDate = p.ProjectedBreachDate.Format("2006-01-02")
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			sanitizeInline(p.Resource),
			sanitizeInline(p.SubMetric),
			p.CurrentUsage.String(),
			p.DailyAverage.StringFixed(2),
			p.ProjectedUsage.StringFixed(2),
			p.Allowance.String(),
			p.Unit,
			breachIn,
			breachDate,
			p.Confidence,
		)
	}

	writer.Flush()
	return nil
}
