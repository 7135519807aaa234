package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Backfill re-ingests historical usage from the upstream feed, one day's
// batch at a time. Replays over already-stored days are harmless because
// the ledger replaces by identity key.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	from := opts.From.UTC().Truncate(24 * time.Hour)
	to := opts.To.UTC().Truncate(24 * time.Hour)
	if !from.Before(to) {
		return errors.New("backfill range is empty; check --from/--to")
	}

	fetcher := a.newCollector()

	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written")
		observations, err := fetcher.FetchUsage(ctx, from, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "would ingest %d records between %s and %s\n",
			len(observations), from.Format("2006-01-02"), to.Format("2006-01-02"))
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; cannot backfill")
	}
	defer closeStore()

	l, _ := a.newLedger(store)

	written := 0
	rejected := 0
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		observations, err := fetcher.FetchUsage(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("fetch %s: %w", day.Format("2006-01-02"), err)
		}
		if len(observations) == 0 {
			continue
		}

		result, err := l.Upsert(ctx, observations)
		if err != nil {
			return err
		}
		written += result.Written
		rejected += len(result.Rejected)

		if err := l.RefreshDailyCostSummary(ctx, observations); err != nil {
			return err
		}
	}

	a.Logger.Info().Int("written", written).Int("rejected", rejected).Msg("backfill complete")
	if rejected > 0 {
		return fmt.Errorf("backfill rejected %d malformed records; check logs", rejected)
	}
	return nil
}
