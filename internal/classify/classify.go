// Package classify turns period aggregates into severity-tiered standings.
// It is the single source of truth for the threshold ladder; the alert
// generator and the advisor both consume its output.
package classify

import (
	"errors"

	"github.com/shopspring/decimal"

	"freetier-alerts/internal/storage"
)

// Severity tiers a standing by percentage of allowance consumed.
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityOK       Severity = "ok"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Threshold boundaries, inclusive on the lower edge.
var (
	ThresholdInfo     = decimal.NewFromInt(50)
	ThresholdWarning  = decimal.NewFromInt(75)
	ThresholdCritical = decimal.NewFromInt(90)
)

// ErrZeroAllowance rejects aggregates whose stored allowance is not
// positive; the percentage would be undefined.
var ErrZeroAllowance = errors.New("classify: allowance must be positive")

// PeriodStatus is one (resource, sub-metric) standing within one period.
// UsagePercentage and Remaining are nil when no allowance is tracked.
type PeriodStatus struct {
	Resource        string
	SubMetric       string
	TotalUsage      decimal.Decimal
	Unit            string
	Allowance       *decimal.Decimal
	AllowanceUnit   string
	Category        storage.ResourceCategory
	UsagePercentage *decimal.Decimal
	Remaining       *decimal.Decimal
	Severity        Severity
	AvgCost         decimal.Decimal
	DaysTracked     int
}

// RemainingDisplay renders the remaining headroom, with the "unlimited"
// sentinel for untracked resources.
func (s PeriodStatus) RemainingDisplay() string {
	if s.Remaining == nil {
		return "unlimited"
	}
	return s.Remaining.String()
}

// Classify derives the standing for one aggregate row. Pure: no side
// effects, deterministic for a given input.
func Classify(agg storage.UsageAggregate) (PeriodStatus, error) {
	status := PeriodStatus{
		Resource:      agg.Resource,
		SubMetric:     agg.SubMetric,
		TotalUsage:    agg.TotalUsage,
		Unit:          agg.Unit,
		Allowance:     agg.Allowance,
		AllowanceUnit: agg.AllowanceUnit,
		Category:      agg.Category,
		AvgCost:       agg.AvgCost,
		DaysTracked:   agg.DaysTracked,
		Severity:      SeverityUnknown,
	}

	if agg.Allowance == nil {
		return status, nil
	}
	if !agg.Allowance.IsPositive() {
		return PeriodStatus{}, ErrZeroAllowance
	}

	percentage := agg.TotalUsage.Div(*agg.Allowance).Mul(decimal.NewFromInt(100))
	remaining := agg.Allowance.Sub(agg.TotalUsage)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	status.UsagePercentage = &percentage
	status.Remaining = &remaining
	status.Severity = severityFor(percentage)
	return status, nil
}

// ClassifyAll classifies every aggregate, preserving order.
func ClassifyAll(aggregates []storage.UsageAggregate) ([]PeriodStatus, error) {
	statuses := make([]PeriodStatus, 0, len(aggregates))
	for _, agg := range aggregates {
		status, err := Classify(agg)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func severityFor(percentage decimal.Decimal) Severity {
	switch {
	case percentage.GreaterThanOrEqual(ThresholdCritical):
		return SeverityCritical
	case percentage.GreaterThanOrEqual(ThresholdWarning):
		return SeverityWarning
	case percentage.GreaterThanOrEqual(ThresholdInfo):
		return SeverityInfo
	default:
		return SeverityOK
	}
}
