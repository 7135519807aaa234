// Package alerting converts severity crossings into persisted alert events
// and delivers them to external channels.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/classify"
	"freetier-alerts/internal/ledger"
	"freetier-alerts/internal/storage"
)

// Options tune generator behaviour.
type Options struct {
	// Dedupe suppresses a second alert for the same
	// (resource, sub-metric, day, severity). Disabling it restores the
	// append-every-run audit behaviour.
	Dedupe bool
	// AnomalyCostFloor is the cost above which an observation is flagged.
	AnomalyCostFloor decimal.Decimal
	// CriticalCost is the cost above which an anomaly is critical.
	CriticalCost decimal.Decimal
}

// Anomaly flags an observation whose nonzero cost contradicts a free
// allowance, independent of percentage-of-allowance tracking.
type Anomaly struct {
	Date      time.Time
	Resource  string
	SubMetric string
	Cost      decimal.Decimal
	Severity  classify.Severity
	Message   string
}

// WeeklySummary aggregates the trailing week of alert volume.
type WeeklySummary struct {
	Period      string
	BySeverity  []storage.AlertSummaryRow
	DailyTrend  []storage.DailyAlertCount
	TotalAlerts int64
	GeneratedAt time.Time
}

// Generator persists and dispatches alerts for standings at or above the
// warning threshold.
type Generator struct {
	ledger     *ledger.Ledger
	alertStore storage.AlertStore
	notifier   Notifier
	opts       Options
	logger     zerolog.Logger
}

// NewGenerator constructs a Generator. notifier may be nil.
func NewGenerator(l *ledger.Ledger, alertStore storage.AlertStore, notifier Notifier, opts Options, logger zerolog.Logger) *Generator {
	return &Generator{
		ledger:     l,
		alertStore: alertStore,
		notifier:   notifier,
		opts:       opts,
		logger:     logger.With().Str("component", "alert_generator").Logger(),
	}
}

// Generate classifies every standing in the period and persists one alert
// per standing at or above 75% of its allowance. Standings without a
// tracked allowance never alert.
func (g *Generator) Generate(ctx context.Context, month ledger.Month) ([]storage.AlertEvent, error) {
	aggregates, err := g.ledger.Aggregate(ctx, month, "", "")
	if err != nil {
		return nil, err
	}
	statuses, err := classify.ClassifyAll(aggregates)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	events := make([]storage.AlertEvent, 0)

	for _, status := range statuses {
		if status.Allowance == nil || status.UsagePercentage == nil {
			continue
		}
		if status.Severity != classify.SeverityWarning && status.Severity != classify.SeverityCritical {
			continue
		}

		event := storage.AlertEvent{
			Resource:        status.Resource,
			SubMetric:       status.SubMetric,
			CurrentUsage:    status.TotalUsage,
			LimitValue:      *status.Allowance,
			UsagePercentage: *status.UsagePercentage,
			Severity:        string(status.Severity),
			Message:         alertMessage(status),
			Date:            today,
		}

		if g.opts.Dedupe {
			count, err := g.alertStore.CountAlerts(ctx, today, event.Resource, event.SubMetric, event.Severity)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				g.logger.Debug().
					Str("resource", event.Resource).
					Str("sub_metric", event.SubMetric).
					Str("severity", event.Severity).
					Msg("alert already recorded today; skipping")
				continue
			}
		}

		stored, err := g.alertStore.InsertAlert(ctx, event)
		if err != nil {
			return nil, fmt.Errorf("persist alert: %w", err)
		}
		events = append(events, stored)

		if g.notifier != nil {
			if err := g.notifier.Notify(ctx, stored); err != nil {
				g.logger.Error().Err(err).
					Str("resource", stored.Resource).
					Msg("failed to dispatch alert")
			}
		}
	}

	if len(events) > 0 {
		g.logger.Warn().Int("alerts", len(events)).Str("month", month.String()).Msg("free tier alerts generated")
	}
	return events, nil
}

// CheckCostAnomalies flags observations whose cost exceeds the anomaly
// floor. Pure: nothing is persisted.
func (g *Generator) CheckCostAnomalies(observations []ledger.Observation) []Anomaly {
	anomalies := make([]Anomaly, 0)
	for _, obs := range observations {
		if obs.Cost.LessThanOrEqual(g.opts.AnomalyCostFloor) {
			continue
		}

		severity := classify.SeverityWarning
		if obs.Cost.GreaterThan(g.opts.CriticalCost) {
			severity = classify.SeverityCritical
		}

		anomalies = append(anomalies, Anomaly{
			Date:      obs.Date,
			Resource:  obs.Resource,
			SubMetric: obs.SubMetric,
			Cost:      obs.Cost,
			Severity:  severity,
			Message: fmt.Sprintf("Unexpected cost of $%s detected for %s - free tier may be exceeded",
				obs.Cost.StringFixed(2), obs.Resource),
		})
	}
	return anomalies
}

// Summary reports alert volume over the trailing seven days.
func (g *Generator) Summary(ctx context.Context) (WeeklySummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -7)

	bySeverity, err := g.alertStore.SummarizeAlerts(ctx, since)
	if err != nil {
		return WeeklySummary{}, err
	}
	trend, err := g.alertStore.DailyAlertCounts(ctx, since)
	if err != nil {
		return WeeklySummary{}, err
	}

	summary := WeeklySummary{
		Period:      "last 7 days",
		BySeverity:  bySeverity,
		DailyTrend:  trend,
		GeneratedAt: time.Now().UTC(),
	}
	for _, row := range bySeverity {
		summary.TotalAlerts += row.Count
	}
	return summary, nil
}

func alertMessage(status classify.PeriodStatus) string {
	percentage := status.UsagePercentage.StringFixed(1)
	if status.Severity == classify.SeverityCritical {
		return fmt.Sprintf("CRITICAL: %s (%s) is at %s%% of free tier limit - charges may apply soon",
			status.Resource, status.SubMetric, percentage)
	}
	return fmt.Sprintf("WARNING: %s (%s) is at %s%% of free tier limit",
		status.Resource, status.SubMetric, percentage)
}
