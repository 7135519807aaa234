package predict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/ledger"
	"freetier-alerts/internal/quota"
	"freetier-alerts/internal/storage"
)

func TestProjectBreach(t *testing.T) {
	// 300 hours consumed of 750 by day 10 of a 30-day period.
	proj, err := Project(decimal.NewFromInt(300), decimal.NewFromInt(750), 10, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !proj.DailyAverage.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("daily average = %s, want 30", proj.DailyAverage.String())
	}
	if !proj.ProjectedUsage.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("projected = %s, want 900", proj.ProjectedUsage.String())
	}
	if proj.DaysToBreach == nil {
		t.Fatal("expected a breach")
	}
	if *proj.DaysToBreach != 15 {
		t.Fatalf("days to breach = %d, want 15", *proj.DaysToBreach)
	}
	if proj.Confidence != ConfidenceMedium {
		t.Fatalf("confidence = %s, want medium", proj.Confidence)
	}
}

func TestProjectOnTrack(t *testing.T) {
	proj, err := Project(decimal.NewFromInt(100), decimal.NewFromInt(750), 15, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.DaysToBreach != nil {
		t.Fatalf("days to breach = %d, want nil", *proj.DaysToBreach)
	}
}

func TestProjectExactExhaustionIsNotBreach(t *testing.T) {
	// Projected usage lands exactly on the allowance.
	proj, err := Project(decimal.NewFromInt(375), decimal.NewFromInt(750), 15, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.DaysToBreach != nil {
		t.Fatal("exact exhaustion should not count as breach")
	}
}

func TestProjectDaysToBreachFloorsAtOne(t *testing.T) {
	// Already over the allowance.
	proj, err := Project(decimal.NewFromInt(800), decimal.NewFromInt(750), 10, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj.DaysToBreach == nil || *proj.DaysToBreach != 1 {
		t.Fatalf("days to breach = %v, want 1", proj.DaysToBreach)
	}
}

func TestProjectLowConfidenceEarlyInPeriod(t *testing.T) {
	cases := []struct {
		asOfDay int
		want    Confidence
	}{
		{1, ConfidenceLow},
		{6, ConfidenceLow},
		{7, ConfidenceMedium},
		{28, ConfidenceMedium},
	}

	for _, tc := range cases {
		proj, err := Project(decimal.NewFromInt(10), decimal.NewFromInt(750), tc.asOfDay, 30)
		if err != nil {
			t.Fatalf("day %d: unexpected error: %v", tc.asOfDay, err)
		}
		if proj.Confidence != tc.want {
			t.Fatalf("day %d: confidence = %s, want %s", tc.asOfDay, proj.Confidence, tc.want)
		}
	}
}

func TestProjectRejectsInvalidInput(t *testing.T) {
	if _, err := Project(decimal.NewFromInt(1), decimal.NewFromInt(750), 0, 30); !errors.Is(err, ErrInvalidAsOfDay) {
		t.Fatalf("expected ErrInvalidAsOfDay, got %v", err)
	}
	if _, err := Project(decimal.NewFromInt(1), decimal.NewFromInt(750), 5, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := Project(decimal.NewFromInt(1), decimal.Zero, 5, 30); !errors.Is(err, ErrInvalidAllowance) {
		t.Fatalf("expected ErrInvalidAllowance, got %v", err)
	}
}

type fakeObservationStore struct {
	aggregates []storage.UsageAggregate
}

func (f *fakeObservationStore) UpsertObservation(ctx context.Context, obs storage.UsageObservation) error {
	return nil
}

func (f *fakeObservationStore) AggregateMonth(ctx context.Context, from, to time.Time, resource, subMetric string) ([]storage.UsageAggregate, error) {
	if resource == "" && subMetric == "" {
		return f.aggregates, nil
	}
	var out []storage.UsageAggregate
	for _, agg := range f.aggregates {
		if agg.Resource == resource && agg.SubMetric == subMetric {
			out = append(out, agg)
		}
	}
	return out, nil
}

func (f *fakeObservationStore) CostTrend(ctx context.Context, from time.Time) ([]storage.CostTrendPoint, error) {
	return nil, nil
}

func (f *fakeObservationStore) RefreshDailyCostSummary(ctx context.Context, date time.Time) error {
	return nil
}

type fakeQuotaStore struct {
	defs map[string]storage.QuotaDefinition
}

func (f *fakeQuotaStore) InsertQuotaIgnore(ctx context.Context, def storage.QuotaDefinition) error {
	return nil
}

func (f *fakeQuotaStore) GetQuota(ctx context.Context, resource, subMetric string) (*storage.QuotaDefinition, error) {
	def, ok := f.defs[resource+"/"+subMetric]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

func (f *fakeQuotaStore) ListQuotas(ctx context.Context) ([]storage.QuotaDefinition, error) {
	return nil, nil
}

func newTestPredictor(obs *fakeObservationStore, quotas *fakeQuotaStore) *Predictor {
	logger := zerolog.Nop()
	registry := quota.NewRegistry(quotas, logger)
	l := ledger.New(obs, registry, logger)
	return New(l, registry, logger)
}

func TestPredictUntrackedPair(t *testing.T) {
	p := newTestPredictor(&fakeObservationStore{}, &fakeQuotaStore{defs: map[string]storage.QuotaDefinition{}})

	prediction, err := p.Predict(context.Background(), "Amazon CloudFront", "DataTransfer", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction != nil {
		t.Fatal("untracked pair should yield a nil prediction")
	}
}

func TestPredictNoUsageThisMonth(t *testing.T) {
	quotas := &fakeQuotaStore{defs: map[string]storage.QuotaDefinition{
		"EC2/t2.micro": {Resource: "EC2", SubMetric: "t2.micro", MonthlyLimit: decimal.NewFromInt(750), Unit: "hours"},
	}}
	p := newTestPredictor(&fakeObservationStore{}, quotas)

	prediction, err := p.Predict(context.Background(), "EC2", "t2.micro", time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction != nil {
		t.Fatal("pair without usage should yield a nil prediction")
	}
}

func TestPredictBreachDateClampedToPeriodEnd(t *testing.T) {
	// June has 30 days; projection from day 10 at 30/day breaches on day 25,
	// but a heavier rate late in the month must not spill past the period.
	quotas := &fakeQuotaStore{defs: map[string]storage.QuotaDefinition{
		"EC2/t2.micro": {Resource: "EC2", SubMetric: "t2.micro", MonthlyLimit: decimal.NewFromInt(750), Unit: "hours"},
	}}
	obs := &fakeObservationStore{aggregates: []storage.UsageAggregate{{
		Resource:   "EC2",
		SubMetric:  "t2.micro",
		TotalUsage: decimal.NewFromInt(300),
		Unit:       "hours",
	}}}
	p := newTestPredictor(obs, quotas)

	asOf := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	prediction, err := p.Predict(context.Background(), "EC2", "t2.micro", asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction == nil {
		t.Fatal("expected a prediction")
	}
	if prediction.DaysToBreach == nil || *prediction.DaysToBreach != 15 {
		t.Fatalf("days to breach = %v, want 15", prediction.DaysToBreach)
	}
	want := time.Date(2026, time.June, 25, 0, 0, 0, 0, time.UTC)
	if prediction.ProjectedBreachDate == nil || !prediction.ProjectedBreachDate.Equal(want) {
		t.Fatalf("breach date = %v, want %v", prediction.ProjectedBreachDate, want)
	}

	// Already over the allowance on the last day: the one-day floor would
	// point past June 30.
	asOf = time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	obs.aggregates[0].TotalUsage = decimal.NewFromInt(760)
	prediction, err = p.Predict(context.Background(), "EC2", "t2.micro", asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prediction == nil || prediction.ProjectedBreachDate == nil {
		t.Fatal("expected a breach prediction")
	}
	end := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)
	if prediction.ProjectedBreachDate.After(end) {
		t.Fatalf("breach date %v past period end", prediction.ProjectedBreachDate)
	}
}

func TestPredictAllSkipsUntracked(t *testing.T) {
	allowance := decimal.NewFromInt(750)
	obs := &fakeObservationStore{aggregates: []storage.UsageAggregate{
		{Resource: "EC2", SubMetric: "t2.micro", TotalUsage: decimal.NewFromInt(300), Allowance: &allowance, AllowanceUnit: "hours"},
		{Resource: "CloudFront", SubMetric: "DataTransfer", TotalUsage: decimal.NewFromInt(10)},
	}}
	p := newTestPredictor(obs, &fakeQuotaStore{})

	predictions, err := p.PredictAll(context.Background(), time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predictions) != 1 {
		t.Fatalf("got %d predictions, want 1", len(predictions))
	}
	if predictions[0].Resource != "EC2" {
		t.Fatalf("predicted %s, want EC2", predictions[0].Resource)
	}
}
