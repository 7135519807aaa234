package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResourceCategory buckets resources for recommendation rules. Stored
// alongside quota definitions so consumers never match on display names.
type ResourceCategory string

const (
	CategoryCompute       ResourceCategory = "compute"
	CategoryStorage       ResourceCategory = "storage"
	CategoryServerless    ResourceCategory = "serverless"
	CategoryDatabase      ResourceCategory = "database"
	CategoryMessaging     ResourceCategory = "messaging"
	CategoryObservability ResourceCategory = "observability"
	CategoryGeneral       ResourceCategory = "general"
)

// UsageObservation is one resource's measured consumption on one calendar
// day. Identity key is (Date, Resource, SubMetric); a second write under
// the same key replaces the first.
type UsageObservation struct {
	Date          time.Time
	Resource      string
	SubMetric     string
	Amount        decimal.Decimal
	Unit          string
	Cost          decimal.Decimal
	Allowance     *decimal.Decimal
	AllowanceUnit string
	FreeTier      bool
	CreatedAt     time.Time
}

// QuotaDefinition is the static monthly allowance for a
// (resource, sub-metric) pair.
type QuotaDefinition struct {
	Resource     string
	SubMetric    string
	MonthlyLimit decimal.Decimal
	Unit         string
	Category     ResourceCategory
	Description  string
}

// UsageAggregate is one month's summed standing for a
// (resource, sub-metric) pair, as returned by AggregateMonth.
type UsageAggregate struct {
	Resource      string
	SubMetric     string
	TotalUsage    decimal.Decimal
	Unit          string
	Allowance     *decimal.Decimal
	AllowanceUnit string
	Category      ResourceCategory
	AvgCost       decimal.Decimal
	DaysTracked   int
}

// AlertEvent records a severity crossing. The alerts table is append-only;
// Acknowledged is flipped by external tooling only.
type AlertEvent struct {
	ID              int64
	Resource        string
	SubMetric       string
	CurrentUsage    decimal.Decimal
	LimitValue      decimal.Decimal
	UsagePercentage decimal.Decimal
	Severity        string
	Message         string
	Date            time.Time
	Acknowledged    bool
	CreatedAt       time.Time
}

// CostTrendPoint is one day of the trailing cost rollup.
type CostTrendPoint struct {
	Date          time.Time
	TotalCost     decimal.Decimal
	ResourceCount int
}

// AlertSummaryRow aggregates alerts of one severity over a window.
type AlertSummaryRow struct {
	Severity  string
	Count     int64
	Resources []string
}

// DailyAlertCount is one day of alert volume.
type DailyAlertCount struct {
	Date  time.Time
	Count int64
}
