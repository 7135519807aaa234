// Package quota holds the static catalogue of monthly allowances and the
// registry that answers lookups against it.
package quota

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"freetier-alerts/internal/storage"
)

// Registry resolves (resource, sub-metric) pairs to their allowance.
// Definitions are seeded once; the registry exposes no update or delete.
type Registry struct {
	store  storage.QuotaStore
	logger zerolog.Logger
}

// NewRegistry wires a quota store into a Registry.
func NewRegistry(store storage.QuotaStore, logger zerolog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With().Str("component", "quota_registry").Logger(),
	}
}

// Seed inserts the given definitions, skipping any key already present.
// Calling it repeatedly never overwrites or duplicates an entry.
func (r *Registry) Seed(ctx context.Context, defs []storage.QuotaDefinition) error {
	for _, def := range defs {
		if def.Resource == "" || def.SubMetric == "" {
			return fmt.Errorf("quota definition missing resource or sub-metric")
		}
		if !def.MonthlyLimit.IsPositive() {
			return fmt.Errorf("quota %s/%s: monthly limit must be positive", def.Resource, def.SubMetric)
		}
		if err := r.store.InsertQuotaIgnore(ctx, def); err != nil {
			return fmt.Errorf("seed quota %s/%s: %w", def.Resource, def.SubMetric, err)
		}
	}
	r.logger.Debug().Int("definitions", len(defs)).Msg("quota catalogue seeded")
	return nil
}

// Lookup returns the definition for the pair, or nil when the resource has
// no tracked allowance. Absence is a legitimate state, not an error.
func (r *Registry) Lookup(ctx context.Context, resource, subMetric string) (*storage.QuotaDefinition, error) {
	def, err := r.store.GetQuota(ctx, resource, subMetric)
	if err != nil {
		return nil, fmt.Errorf("lookup quota %s/%s: %w", resource, subMetric, err)
	}
	return def, nil
}

// List returns every tracked definition.
func (r *Registry) List(ctx context.Context) ([]storage.QuotaDefinition, error) {
	return r.store.ListQuotas(ctx)
}
