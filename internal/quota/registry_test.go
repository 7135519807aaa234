package quota

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/storage"
)

type memQuotaStore struct {
	defs    map[string]storage.QuotaDefinition
	inserts int
}

func quotaKey(resource, subMetric string) string {
	return resource + "/" + subMetric
}

func (s *memQuotaStore) InsertQuotaIgnore(ctx context.Context, def storage.QuotaDefinition) error {
	s.inserts++
	if s.defs == nil {
		s.defs = map[string]storage.QuotaDefinition{}
	}
	key := quotaKey(def.Resource, def.SubMetric)
	if _, ok := s.defs[key]; ok {
		return nil
	}
	s.defs[key] = def
	return nil
}

func (s *memQuotaStore) GetQuota(ctx context.Context, resource, subMetric string) (*storage.QuotaDefinition, error) {
	def, ok := s.defs[quotaKey(resource, subMetric)]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

func (s *memQuotaStore) ListQuotas(ctx context.Context) ([]storage.QuotaDefinition, error) {
	out := make([]storage.QuotaDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, def)
	}
	return out, nil
}

func TestDefaultCatalogHasUniquePositiveEntries(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range DefaultCatalog() {
		if def.Resource == "" || def.SubMetric == "" || def.Unit == "" {
			t.Fatalf("incomplete definition: %+v", def)
		}
		if !def.MonthlyLimit.IsPositive() {
			t.Fatalf("%s/%s: limit %s is not positive", def.Resource, def.SubMetric, def.MonthlyLimit)
		}
		key := quotaKey(def.Resource, def.SubMetric)
		if seen[key] {
			t.Fatalf("duplicate catalogue key %s", key)
		}
		seen[key] = true
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	store := &memQuotaStore{}
	registry := NewRegistry(store, zerolog.Nop())
	catalog := DefaultCatalog()

	if err := registry.Seed(context.Background(), catalog); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := registry.Seed(context.Background(), catalog); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	if len(store.defs) != len(catalog) {
		t.Fatalf("stored %d definitions, want %d", len(store.defs), len(catalog))
	}

	ec2, err := registry.Lookup(context.Background(), "Amazon Elastic Compute Cloud - Compute", "t2.micro")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ec2 == nil || !ec2.MonthlyLimit.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("ec2 definition = %+v, want 750 hours", ec2)
	}
}

func TestSeedRejectsInvalidDefinitions(t *testing.T) {
	registry := NewRegistry(&memQuotaStore{}, zerolog.Nop())

	missing := []storage.QuotaDefinition{{Resource: "X", MonthlyLimit: decimal.NewFromInt(1)}}
	if err := registry.Seed(context.Background(), missing); err == nil {
		t.Fatal("expected error for missing sub-metric")
	}

	zero := []storage.QuotaDefinition{{Resource: "X", SubMetric: "Y"}}
	if err := registry.Seed(context.Background(), zero); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

func TestLookupAbsentIsNotAnError(t *testing.T) {
	registry := NewRegistry(&memQuotaStore{}, zerolog.Nop())

	def, err := registry.Lookup(context.Background(), "Amazon CloudFront", "DataTransfer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def != nil {
		t.Fatalf("expected nil definition, got %+v", def)
	}
}
