package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/quota"
	"freetier-alerts/internal/storage"
)

type memObservationStore struct {
	rows      map[string]storage.UsageObservation
	refreshed []time.Time
	failNext  error
}

func obsKey(date time.Time, resource, subMetric string) string {
	return date.Format("2006-01-02") + "|" + resource + "|" + subMetric
}

func (s *memObservationStore) UpsertObservation(ctx context.Context, obs storage.UsageObservation) error {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	if s.rows == nil {
		s.rows = map[string]storage.UsageObservation{}
	}
	s.rows[obsKey(obs.Date, obs.Resource, obs.SubMetric)] = obs
	return nil
}

func (s *memObservationStore) AggregateMonth(ctx context.Context, from, to time.Time, resource, subMetric string) ([]storage.UsageAggregate, error) {
	return nil, nil
}

func (s *memObservationStore) CostTrend(ctx context.Context, from time.Time) ([]storage.CostTrendPoint, error) {
	return nil, nil
}

func (s *memObservationStore) RefreshDailyCostSummary(ctx context.Context, date time.Time) error {
	s.refreshed = append(s.refreshed, date)
	return nil
}

type memQuotaStore struct {
	defs map[string]storage.QuotaDefinition
}

func (s *memQuotaStore) InsertQuotaIgnore(ctx context.Context, def storage.QuotaDefinition) error {
	return nil
}

func (s *memQuotaStore) GetQuota(ctx context.Context, resource, subMetric string) (*storage.QuotaDefinition, error) {
	def, ok := s.defs[resource+"/"+subMetric]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

func (s *memQuotaStore) ListQuotas(ctx context.Context) ([]storage.QuotaDefinition, error) {
	return nil, nil
}

func newTestLedger(obs *memObservationStore, quotas *memQuotaStore) *Ledger {
	logger := zerolog.Nop()
	return New(obs, quota.NewRegistry(quotas, logger), logger)
}

func TestUpsertValidatesPerRecord(t *testing.T) {
	store := &memObservationStore{}
	l := newTestLedger(store, &memQuotaStore{})

	day := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	batch := []Observation{
		{Date: day, Resource: "EC2", SubMetric: "t2.micro", Amount: decimal.NewFromInt(24), Unit: "hours"},
		{Resource: "EC2", SubMetric: "t2.micro", Amount: decimal.NewFromInt(24)},       // no date
		{Date: day, SubMetric: "t2.micro", Amount: decimal.NewFromInt(24)},             // no resource
		{Date: day, Resource: "EC2", Amount: decimal.NewFromInt(24)},                   // no sub-metric
		{Date: day, Resource: "S3", SubMetric: "Storage", Amount: decimal.NewFromInt(-1)},
		{Date: day, Resource: "S3", SubMetric: "Storage", Amount: decimal.NewFromInt(1), Cost: decimal.NewFromInt(-2)},
		{Date: day, Resource: "S3", SubMetric: "Storage", Amount: decimal.NewFromInt(2), Unit: "GB"},
	}

	result, err := l.Upsert(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Written != 2 {
		t.Fatalf("written = %d, want 2", result.Written)
	}
	if len(result.Rejected) != 5 {
		t.Fatalf("rejected = %d, want 5", len(result.Rejected))
	}

	fields := map[string]bool{}
	for _, vErr := range result.Rejected {
		fields[vErr.Field] = true
	}
	for _, field := range []string{"date", "resource", "subMetric", "amount", "cost"} {
		if !fields[field] {
			t.Fatalf("missing rejection for field %q", field)
		}
	}

	if len(store.rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(store.rows))
	}
}

func TestUpsertReplacesByIdentityKey(t *testing.T) {
	store := &memObservationStore{}
	l := newTestLedger(store, &memQuotaStore{})

	day := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	first := Observation{Date: day, Resource: "EC2", SubMetric: "t2.micro", Amount: decimal.NewFromInt(10), Unit: "hours"}
	second := first
	second.Amount = decimal.NewFromInt(24)

	if _, err := l.Upsert(context.Background(), []Observation{first}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := l.Upsert(context.Background(), []Observation{second}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if len(store.rows) != 1 {
		t.Fatalf("stored %d rows, want 1", len(store.rows))
	}
	got := store.rows[obsKey(day, "EC2", "t2.micro")]
	if !got.Amount.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("amount = %s, want 24 (second write wins)", got.Amount.String())
	}
}

func TestUpsertEnrichesFromQuotaCatalogue(t *testing.T) {
	quotas := &memQuotaStore{defs: map[string]storage.QuotaDefinition{
		"EC2/t2.micro": {Resource: "EC2", SubMetric: "t2.micro", MonthlyLimit: decimal.NewFromInt(750), Unit: "hours"},
	}}
	store := &memObservationStore{}
	l := newTestLedger(store, quotas)

	day := time.Date(2026, time.June, 10, 13, 45, 0, 0, time.UTC)
	batch := []Observation{
		{Date: day, Resource: "EC2", SubMetric: "t2.micro", Amount: decimal.NewFromInt(24), Unit: "hours"},
		{Date: day, Resource: "CloudFront", SubMetric: "DataTransfer", Amount: decimal.NewFromInt(3), Unit: "GB", Cost: decimal.NewFromFloat(0.27)},
	}
	if _, err := l.Upsert(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	midnight := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	tracked := store.rows[obsKey(midnight, "EC2", "t2.micro")]
	if tracked.Allowance == nil || !tracked.Allowance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("allowance = %v, want 750", tracked.Allowance)
	}
	if tracked.AllowanceUnit != "hours" {
		t.Fatalf("allowance unit = %q, want hours", tracked.AllowanceUnit)
	}
	if !tracked.FreeTier {
		t.Fatal("zero-cost observation should be marked free tier")
	}
	if !tracked.Date.Equal(midnight) {
		t.Fatalf("date = %v, want truncated to midnight", tracked.Date)
	}

	untracked := store.rows[obsKey(midnight, "CloudFront", "DataTransfer")]
	if untracked.Allowance != nil {
		t.Fatal("untracked observation should carry no allowance")
	}
	if untracked.AllowanceUnit != "GB" {
		t.Fatalf("allowance unit = %q, want fallback to observation unit", untracked.AllowanceUnit)
	}
	if untracked.FreeTier {
		t.Fatal("costed observation should not be marked free tier")
	}
}

func TestUpsertStorageFailureAborts(t *testing.T) {
	store := &memObservationStore{failNext: context.DeadlineExceeded}
	l := newTestLedger(store, &memQuotaStore{})

	day := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	batch := []Observation{
		{Date: day, Resource: "EC2", SubMetric: "t2.micro", Amount: decimal.NewFromInt(1)},
		{Date: day, Resource: "S3", SubMetric: "Storage", Amount: decimal.NewFromInt(1)},
	}

	result, err := l.Upsert(context.Background(), batch)
	if err == nil {
		t.Fatal("expected storage error to propagate")
	}
	if result.Written != 0 {
		t.Fatalf("written = %d, want 0", result.Written)
	}
}

func TestCostTrendRejectsNonPositiveWindow(t *testing.T) {
	l := newTestLedger(&memObservationStore{}, &memQuotaStore{})
	if _, err := l.CostTrend(context.Background(), 0); err == nil {
		t.Fatal("expected validation error for zero window")
	}
}

func TestRefreshDailyCostSummaryDeduplicatesDays(t *testing.T) {
	store := &memObservationStore{}
	l := newTestLedger(store, &memQuotaStore{})

	day10 := time.Date(2026, time.June, 10, 8, 0, 0, 0, time.UTC)
	day11 := time.Date(2026, time.June, 11, 9, 0, 0, 0, time.UTC)
	batch := []Observation{
		{Date: day10, Resource: "EC2", SubMetric: "t2.micro"},
		{Date: day10, Resource: "S3", SubMetric: "Storage"},
		{Date: day11, Resource: "EC2", SubMetric: "t2.micro"},
	}
	if err := l.RefreshDailyCostSummary(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.refreshed) != 2 {
		t.Fatalf("refreshed %d days, want 2", len(store.refreshed))
	}
}
