package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS usage_observations (
        date           DATE NOT NULL,
        resource       TEXT NOT NULL,
        sub_metric     TEXT NOT NULL,
        amount         NUMERIC NOT NULL,
        unit           TEXT NOT NULL DEFAULT '',
        cost           NUMERIC NOT NULL DEFAULT 0,
        allowance      NUMERIC,
        allowance_unit TEXT NOT NULL DEFAULT '',
        free_tier      BOOLEAN NOT NULL DEFAULT TRUE,
        created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (date, resource, sub_metric)
    );`,

	`CREATE TABLE IF NOT EXISTS quota_definitions (
        resource      TEXT NOT NULL,
        sub_metric    TEXT NOT NULL,
        monthly_limit NUMERIC NOT NULL,
        unit          TEXT NOT NULL,
        category      TEXT NOT NULL DEFAULT 'general',
        description   TEXT NOT NULL DEFAULT '',
        PRIMARY KEY (resource, sub_metric)
    );`,

	`CREATE TABLE IF NOT EXISTS usage_alerts (
        id               BIGSERIAL PRIMARY KEY,
        resource         TEXT NOT NULL,
        sub_metric       TEXT NOT NULL,
        current_usage    NUMERIC NOT NULL,
        limit_value      NUMERIC NOT NULL,
        usage_percentage NUMERIC NOT NULL,
        severity         TEXT NOT NULL,
        message          TEXT NOT NULL,
        date             DATE NOT NULL,
        acknowledged     BOOLEAN NOT NULL DEFAULT FALSE,
        created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,

	`CREATE INDEX IF NOT EXISTS usage_alerts_date_idx
        ON usage_alerts (date, resource, sub_metric, severity);`,

	`CREATE TABLE IF NOT EXISTS daily_cost_summary (
        date           DATE PRIMARY KEY,
        total_cost     NUMERIC NOT NULL,
        free_tier_cost NUMERIC NOT NULL DEFAULT 0,
        paid_cost      NUMERIC NOT NULL DEFAULT 0,
        resource_count INTEGER NOT NULL DEFAULT 0,
        created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
}

// EnsureSchema creates the durable collections if they do not exist yet.
// Safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, execErr := pool.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("ensure schema: %w", execErr)
		}
	}
	return nil
}
