// Package predict projects month-to-date consumption forward to estimate
// when an allowance will be exhausted. The projection is linear; with fewer
// than seven observed days it is reported at low confidence, and callers
// should treat it as a heuristic, not a statistical guarantee.
package predict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/ledger"
	"freetier-alerts/internal/quota"
	"freetier-alerts/internal/storage"
)

// Confidence grades the projection signal.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"

	// confidenceDayFloor is the observed-day count below which a linear
	// projection is considered too little signal.
	confidenceDayFloor = 7
)

var (
	// ErrInvalidAsOfDay rejects projections anchored before day one of the
	// period; the daily average would divide by zero.
	ErrInvalidAsOfDay = errors.New("predict: as-of day must be at least 1")
	// ErrInvalidPeriod rejects non-positive period lengths.
	ErrInvalidPeriod = errors.New("predict: days in period must be at least 1")
	// ErrInvalidAllowance rejects non-positive allowances.
	ErrInvalidAllowance = errors.New("predict: allowance must be positive")
)

// Projection is the pure arithmetic core of a prediction. DaysToBreach is
// nil when the current rate does not exhaust the allowance.
type Projection struct {
	DailyAverage   decimal.Decimal
	ProjectedUsage decimal.Decimal
	DaysToBreach   *int
	Confidence     Confidence
}

// BreachPrediction is the forward projection for one (resource, sub-metric).
// ProjectedBreachDate is nil exactly when DaysToBreach is nil.
type BreachPrediction struct {
	Resource            string
	SubMetric           string
	CurrentUsage        decimal.Decimal
	ProjectedUsage      decimal.Decimal
	Allowance           decimal.Decimal
	Unit                string
	DailyAverage        decimal.Decimal
	DaysToBreach        *int
	ProjectedBreachDate *time.Time
	Confidence          Confidence
}

// Project extrapolates month-to-date usage over the full period.
func Project(monthToDate, allowance decimal.Decimal, asOfDay, daysInPeriod int) (Projection, error) {
	if asOfDay < 1 {
		return Projection{}, ErrInvalidAsOfDay
	}
	if daysInPeriod < 1 {
		return Projection{}, ErrInvalidPeriod
	}
	if !allowance.IsPositive() {
		return Projection{}, ErrInvalidAllowance
	}

	dailyAverage := monthToDate.Div(decimal.NewFromInt(int64(asOfDay)))
	projected := dailyAverage.Mul(decimal.NewFromInt(int64(daysInPeriod)))

	proj := Projection{
		DailyAverage:   dailyAverage,
		ProjectedUsage: projected,
		Confidence:     ConfidenceLow,
	}
	if asOfDay >= confidenceDayFloor {
		proj.Confidence = ConfidenceMedium
	}

	if projected.LessThanOrEqual(allowance) {
		return proj, nil
	}

	days := int(allowance.Sub(monthToDate).Div(dailyAverage).Ceil().IntPart())
	if days < 1 {
		days = 1
	}
	proj.DaysToBreach = &days
	return proj, nil
}

// Predictor resolves predictions against the ledger and quota registry.
type Predictor struct {
	ledger   *ledger.Ledger
	registry *quota.Registry
	logger   zerolog.Logger
}

// New constructs a Predictor.
func New(l *ledger.Ledger, registry *quota.Registry, logger zerolog.Logger) *Predictor {
	return &Predictor{
		ledger:   l,
		registry: registry,
		logger:   logger.With().Str("component", "predictor").Logger(),
	}
}

// Predict projects one pair as of the given day. A nil prediction with a
// nil error means the pair is not tracked or has no usage this month;
// "on track, no breach" is a non-nil prediction with nil DaysToBreach.
func (p *Predictor) Predict(ctx context.Context, resource, subMetric string, asOf time.Time) (*BreachPrediction, error) {
	def, err := p.registry.Lookup(ctx, resource, subMetric)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, nil
	}

	month := ledger.MonthOf(asOf)
	aggregates, err := p.ledger.Aggregate(ctx, month, resource, subMetric)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, nil
	}

	return p.predictOne(aggregates[0], def.MonthlyLimit, def.Unit, asOf)
}

// PredictAll projects every tracked pair with usage in the period of asOf.
// Pairs without an allowance are skipped.
func (p *Predictor) PredictAll(ctx context.Context, asOf time.Time) ([]BreachPrediction, error) {
	month := ledger.MonthOf(asOf)
	aggregates, err := p.ledger.Aggregate(ctx, month, "", "")
	if err != nil {
		return nil, err
	}

	predictions := make([]BreachPrediction, 0, len(aggregates))
	for _, agg := range aggregates {
		if agg.Allowance == nil {
			continue
		}
		prediction, err := p.predictOne(agg, *agg.Allowance, agg.AllowanceUnit, asOf)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, *prediction)
	}
	return predictions, nil
}

func (p *Predictor) predictOne(agg storage.UsageAggregate, allowance decimal.Decimal, unit string, asOf time.Time) (*BreachPrediction, error) {
	asOf = asOf.UTC()
	month := ledger.MonthOf(asOf)

	proj, err := Project(agg.TotalUsage, allowance, asOf.Day(), month.Days())
	if err != nil {
		return nil, fmt.Errorf("project %s/%s: %w", agg.Resource, agg.SubMetric, err)
	}

	prediction := &BreachPrediction{
		Resource:       agg.Resource,
		SubMetric:      agg.SubMetric,
		CurrentUsage:   agg.TotalUsage,
		ProjectedUsage: proj.ProjectedUsage,
		Allowance:      allowance,
		Unit:           unit,
		DailyAverage:   proj.DailyAverage,
		DaysToBreach:   proj.DaysToBreach,
		Confidence:     proj.Confidence,
	}

	if proj.DaysToBreach != nil {
		breachDay := asOf.Day() + *proj.DaysToBreach
		if breachDay > month.Days() {
			breachDay = month.Days()
		}
		breachDate := time.Date(month.Year, month.Month, breachDay, 0, 0, 0, 0, time.UTC)
		prediction.ProjectedBreachDate = &breachDate
	}

	return prediction, nil
}
