// Package ledger is the durable record of daily usage observations. Writes
// are validated per record, enriched with the matching quota definition,
// and replace-or-insert by (date, resource, sub-metric).
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/quota"
	"freetier-alerts/internal/storage"
)

// Observation is one inbound usage record before enrichment.
type Observation struct {
	Date      time.Time
	Resource  string
	SubMetric string
	Amount    decimal.Decimal
	Unit      string
	Cost      decimal.Decimal
}

// ValidationError describes why one record was rejected before any write.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("observation %d: %s %s", e.Index, e.Field, e.Reason)
}

// UpsertResult reports the outcome of one batch. Rejected records never
// reach storage; accepted records are written even when siblings fail
// validation (per-record atomicity, not batch atomicity).
type UpsertResult struct {
	Written  int
	Rejected []*ValidationError
}

// Ledger mediates validated access to the observation store.
type Ledger struct {
	store    storage.ObservationStore
	registry *quota.Registry
	logger   zerolog.Logger
}

// New constructs a Ledger.
func New(store storage.ObservationStore, registry *quota.Registry, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		registry: registry,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// Upsert validates each observation, attaches its allowance, and writes it
// under the identity key. Replaying the same batch leaves stored state
// unchanged. A storage failure aborts and propagates; validation failures
// are collected in the result.
func (l *Ledger) Upsert(ctx context.Context, observations []Observation) (UpsertResult, error) {
	result := UpsertResult{}

	for i, obs := range observations {
		if vErr := validate(i, obs); vErr != nil {
			result.Rejected = append(result.Rejected, vErr)
			l.logger.Warn().Err(vErr).Str("resource", obs.Resource).Msg("rejected observation")
			continue
		}

		record := storage.UsageObservation{
			Date:      day(obs.Date),
			Resource:  obs.Resource,
			SubMetric: obs.SubMetric,
			Amount:    obs.Amount,
			Unit:      obs.Unit,
			Cost:      obs.Cost,
			FreeTier:  obs.Cost.IsZero(),
			CreatedAt: time.Now().UTC(),
		}

		def, err := l.registry.Lookup(ctx, obs.Resource, obs.SubMetric)
		if err != nil {
			return result, err
		}
		if def != nil {
			limit := def.MonthlyLimit
			record.Allowance = &limit
			record.AllowanceUnit = def.Unit
		} else {
			record.AllowanceUnit = obs.Unit
		}

		if err := l.store.UpsertObservation(ctx, record); err != nil {
			return result, fmt.Errorf("upsert ledger row: %w", err)
		}
		result.Written++
	}

	l.logger.Info().
		Int("written", result.Written).
		Int("rejected", len(result.Rejected)).
		Msg("ledger batch processed")
	return result, nil
}

// Aggregate sums observations per (resource, sub-metric) within the period.
// Empty resource/subMetric filters match everything.
func (l *Ledger) Aggregate(ctx context.Context, month Month, resource, subMetric string) ([]storage.UsageAggregate, error) {
	from, to := month.Bounds()
	aggregates, err := l.store.AggregateMonth(ctx, from, to, resource, subMetric)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", month, err)
	}
	return aggregates, nil
}

// CostTrend returns the ascending daily cost rollup over the trailing
// window.
func (l *Ledger) CostTrend(ctx context.Context, windowDays int) ([]storage.CostTrendPoint, error) {
	if windowDays <= 0 {
		return nil, &ValidationError{Field: "windowDays", Reason: "must be positive"}
	}
	from := day(time.Now().UTC()).AddDate(0, 0, -windowDays)
	points, err := l.store.CostTrend(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("cost trend: %w", err)
	}
	return points, nil
}

// RefreshDailyCostSummary recomputes the rollup rows for every distinct day
// in the batch.
func (l *Ledger) RefreshDailyCostSummary(ctx context.Context, observations []Observation) error {
	seen := map[time.Time]struct{}{}
	for _, obs := range observations {
		d := day(obs.Date)
		if d.IsZero() {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		if err := l.store.RefreshDailyCostSummary(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func validate(index int, obs Observation) *ValidationError {
	switch {
	case obs.Date.IsZero():
		return &ValidationError{Index: index, Field: "date", Reason: "is required"}
	case obs.Resource == "":
		return &ValidationError{Index: index, Field: "resource", Reason: "is required"}
	case obs.SubMetric == "":
		return &ValidationError{Index: index, Field: "subMetric", Reason: "is required"}
	case obs.Amount.IsNegative():
		return &ValidationError{Index: index, Field: "amount", Reason: "must be non-negative"}
	case obs.Cost.IsNegative():
		return &ValidationError{Index: index, Field: "cost", Reason: "must be non-negative"}
	}
	return nil
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
