package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"freetier-alerts/internal/collector"
	"freetier-alerts/internal/ledger"
	"freetier-alerts/internal/service"
)

// SimulateUsage injects one synthetic observation for today and drives the
// full collection pipeline against it. Useful for exercising thresholds and
// notification channels without an upstream feed.
func (a *App) SimulateUsage(ctx context.Context, opts SimulateOptions) error {
	if opts.Resource == "" || opts.SubMetric == "" {
		return errors.New("--resource and --sub-metric are required")
	}
	if opts.Amount < 0 || opts.Cost < 0 {
		return errors.New("--amount and --cost must be non-negative")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot simulate")
	}
	defer closeStore()

	now := time.Now().UTC()
	fetcher := &collector.StaticFetcher{Observations: []ledger.Observation{{
		Date:      now,
		Resource:  opts.Resource,
		SubMetric: opts.SubMetric,
		Amount:    decimal.NewFromFloat(opts.Amount),
		Unit:      opts.Unit,
		Cost:      decimal.NewFromFloat(opts.Cost),
	}}}

	l, _ := a.newLedger(store)
	generator := a.newGenerator(l, store)

	svc := service.New(a.Config, nil, fetcher, l, generator, nil, a.Logger)
	return svc.ProcessWindow(ctx, now)
}
