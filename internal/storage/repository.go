package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertObservationSQL = `INSERT INTO usage_observations (
        date,
        resource,
        sub_metric,
        amount,
        unit,
        cost,
        allowance,
        allowance_unit,
        free_tier,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (date, resource, sub_metric) DO UPDATE
    SET
        amount         = EXCLUDED.amount,
        unit           = EXCLUDED.unit,
        cost           = EXCLUDED.cost,
        allowance      = EXCLUDED.allowance,
        allowance_unit = EXCLUDED.allowance_unit,
        free_tier      = EXCLUDED.free_tier,
        created_at     = EXCLUDED.created_at;`

	aggregateMonthSQL = `SELECT
        u.resource,
        u.sub_metric,
        SUM(u.amount)::text,
        MIN(u.unit),
        MAX(u.allowance)::text,
        MIN(u.allowance_unit),
        COALESCE(MAX(q.category), 'general'),
        COALESCE(AVG(u.cost), 0)::text,
        COUNT(DISTINCT u.date)
    FROM usage_observations u
    LEFT JOIN quota_definitions q
        ON q.resource = u.resource AND q.sub_metric = u.sub_metric
    WHERE u.date >= $1
      AND u.date < $2
      AND ($3 = '' OR u.resource = $3)
      AND ($4 = '' OR u.sub_metric = $4)
    GROUP BY u.resource, u.sub_metric
    ORDER BY u.resource, u.sub_metric;`

	costTrendSQL = `SELECT
        date,
        SUM(cost)::text,
        COUNT(DISTINCT resource)
    FROM usage_observations
    WHERE date >= $1
    GROUP BY date
    ORDER BY date;`

	refreshDailyCostSummarySQL = `INSERT INTO daily_cost_summary (
        date, total_cost, free_tier_cost, paid_cost, resource_count
    )
    SELECT
        $1,
        COALESCE(SUM(cost), 0),
        COALESCE(SUM(cost) FILTER (WHERE cost <= 0), 0),
        COALESCE(SUM(cost) FILTER (WHERE cost > 0), 0),
        COUNT(DISTINCT resource)
    FROM usage_observations
    WHERE date = $1
    ON CONFLICT (date) DO UPDATE
    SET total_cost     = EXCLUDED.total_cost,
        free_tier_cost = EXCLUDED.free_tier_cost,
        paid_cost      = EXCLUDED.paid_cost,
        resource_count = EXCLUDED.resource_count,
        created_at     = now();`

	upsertQuotaSQL = `INSERT INTO quota_definitions (
        resource, sub_metric, monthly_limit, unit, category, description
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (resource, sub_metric) DO NOTHING;`

	getQuotaSQL = `SELECT
        resource, sub_metric, monthly_limit::text, unit, category, description
    FROM quota_definitions
    WHERE resource = $1 AND sub_metric = $2;`

	listQuotasSQL = `SELECT
        resource, sub_metric, monthly_limit::text, unit, category, description
    FROM quota_definitions
    ORDER BY resource, sub_metric;`

	insertAlertSQL = `INSERT INTO usage_alerts (
        resource,
        sub_metric,
        current_usage,
        limit_value,
        usage_percentage,
        severity,
        message,
        date
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    RETURNING id, acknowledged, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        resource,
        sub_metric,
        current_usage::text,
        limit_value::text,
        usage_percentage::text,
        severity,
        message,
        date,
        acknowledged,
        created_at
    FROM usage_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	countAlertsSQL = `SELECT COUNT(*)
    FROM usage_alerts
    WHERE date = $1
      AND resource = $2
      AND sub_metric = $3
      AND severity = $4;`

	summarizeAlertsSQL = `SELECT
        severity,
        COUNT(*),
        STRING_AGG(DISTINCT resource, ',')
    FROM usage_alerts
    WHERE date >= $1
    GROUP BY severity
    ORDER BY severity;`

	dailyAlertCountsSQL = `SELECT date, COUNT(*)
    FROM usage_alerts
    WHERE date >= $1
    GROUP BY date
    ORDER BY date;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ObservationStore defines operations over the usage ledger rows.
type ObservationStore interface {
	UpsertObservation(ctx context.Context, obs UsageObservation) error
	AggregateMonth(ctx context.Context, from, to time.Time, resource, subMetric string) ([]UsageAggregate, error)
	CostTrend(ctx context.Context, from time.Time) ([]CostTrendPoint, error)
	RefreshDailyCostSummary(ctx context.Context, date time.Time) error
}

// QuotaStore defines operations over the quota catalogue.
type QuotaStore interface {
	InsertQuotaIgnore(ctx context.Context, def QuotaDefinition) error
	GetQuota(ctx context.Context, resource, subMetric string) (*QuotaDefinition, error)
	ListQuotas(ctx context.Context) ([]QuotaDefinition, error)
}

// AlertStore defines operations over the append-only alert stream.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertEvent) (AlertEvent, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertEvent, error)
	CountAlerts(ctx context.Context, date time.Time, resource, subMetric, severity string) (int64, error)
	SummarizeAlerts(ctx context.Context, since time.Time) ([]AlertSummaryRow, error)
	DailyAlertCounts(ctx context.Context, since time.Time) ([]DailyAlertCount, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to observations, quotas, and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertObservation persists or replaces one ledger row by identity key.
func (s *Store) UpsertObservation(ctx context.Context, obs UsageObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var allowance interface{}
	if obs.Allowance != nil {
		allowance = obs.Allowance.String()
	}

	createdAt := obs.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, execErr := pool.Exec(ctx, upsertObservationSQL,
		obs.Date,
		obs.Resource,
		obs.SubMetric,
		obs.Amount.String(),
		obs.Unit,
		obs.Cost.String(),
		allowance,
		obs.AllowanceUnit,
		obs.FreeTier,
		createdAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert observation: %w", execErr)
	}
	return nil
}

// AggregateMonth sums ledger rows per (resource, sub-metric) within [from, to).
// Empty resource/subMetric filters match everything.
func (s *Store) AggregateMonth(ctx context.Context, from, to time.Time, resource, subMetric string) ([]UsageAggregate, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, aggregateMonthSQL, from, to, resource, subMetric)
	if queryErr != nil {
		return nil, fmt.Errorf("aggregate month: %w", queryErr)
	}
	defer rows.Close()

	aggregates := make([]UsageAggregate, 0)
	for rows.Next() {
		agg, scanErr := scanUsageAggregate(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		aggregates = append(aggregates, agg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return aggregates, nil
}

// CostTrend returns the ascending daily cost rollup starting at from.
func (s *Store) CostTrend(ctx context.Context, from time.Time) ([]CostTrendPoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, costTrendSQL, from)
	if queryErr != nil {
		return nil, fmt.Errorf("cost trend: %w", queryErr)
	}
	defer rows.Close()

	points := make([]CostTrendPoint, 0)
	for rows.Next() {
		var (
			point   CostTrendPoint
			costStr string
		)
		if err := rows.Scan(&point.Date, &costStr, &point.ResourceCount); err != nil {
			return nil, err
		}
		cost, convErr := decimal.NewFromString(costStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse daily cost: %w", convErr)
		}
		point.TotalCost = cost
		points = append(points, point)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// RefreshDailyCostSummary recomputes the rollup row for one day.
func (s *Store) RefreshDailyCostSummary(ctx context.Context, date time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, refreshDailyCostSummarySQL, date); execErr != nil {
		return fmt.Errorf("refresh daily cost summary: %w", execErr)
	}
	return nil
}

// InsertQuotaIgnore inserts a quota definition unless the key already exists.
func (s *Store) InsertQuotaIgnore(ctx context.Context, def QuotaDefinition) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, upsertQuotaSQL,
		def.Resource,
		def.SubMetric,
		def.MonthlyLimit.String(),
		def.Unit,
		string(def.Category),
		def.Description,
	)
	if execErr != nil {
		return fmt.Errorf("insert quota: %w", execErr)
	}
	return nil
}

// GetQuota looks up one quota definition; absence yields (nil, nil).
func (s *Store) GetQuota(ctx context.Context, resource, subMetric string) (*QuotaDefinition, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, getQuotaSQL, resource, subMetric)
	def, scanErr := scanQuotaDefinition(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, scanErr
	}
	return &def, nil
}

// ListQuotas returns every quota definition.
func (s *Store) ListQuotas(ctx context.Context) ([]QuotaDefinition, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listQuotasSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list quotas: %w", queryErr)
	}
	defer rows.Close()

	defs := make([]QuotaDefinition, 0)
	for rows.Next() {
		def, scanErr := scanQuotaDefinition(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		defs = append(defs, def)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return defs, nil
}

// InsertAlert appends an alert event. No conflict target: the alert stream
// is an audit trail.
func (s *Store) InsertAlert(ctx context.Context, alert AlertEvent) (AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertEvent{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Resource,
		alert.SubMetric,
		alert.CurrentUsage.String(),
		alert.LimitValue.String(),
		alert.UsagePercentage.String(),
		alert.Severity,
		alert.Message,
		alert.Date,
	)

	rec := alert
	if scanErr := row.Scan(&rec.ID, &rec.Acknowledged, &rec.CreatedAt); scanErr != nil {
		return AlertEvent{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertEvent, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertEvent, 0, limit)
	for rows.Next() {
		var (
			rec        AlertEvent
			usageStr   string
			limitStr   string
			percentStr string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Resource,
			&rec.SubMetric,
			&usageStr,
			&limitStr,
			&percentStr,
			&rec.Severity,
			&rec.Message,
			&rec.Date,
			&rec.Acknowledged,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.CurrentUsage, convErr = decimal.NewFromString(usageStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse current usage: %w", convErr)
		}
		rec.LimitValue, convErr = decimal.NewFromString(limitStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse limit value: %w", convErr)
		}
		rec.UsagePercentage, convErr = decimal.NewFromString(percentStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse usage percentage: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// CountAlerts counts alerts already stored for one standing on one day.
func (s *Store) CountAlerts(ctx context.Context, date time.Time, resource, subMetric, severity string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSQL, date, resource, subMetric, severity).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts: %w", scanErr)
	}
	return count, nil
}

// SummarizeAlerts groups alerts by severity since the given date.
func (s *Store) SummarizeAlerts(ctx context.Context, since time.Time) ([]AlertSummaryRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, summarizeAlertsSQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("summarize alerts: %w", queryErr)
	}
	defer rows.Close()

	summary := make([]AlertSummaryRow, 0)
	for rows.Next() {
		var (
			row       AlertSummaryRow
			resources sql.NullString
		)
		if err := rows.Scan(&row.Severity, &row.Count, &resources); err != nil {
			return nil, err
		}
		if resources.Valid && resources.String != "" {
			row.Resources = strings.Split(resources.String, ",")
		}
		summary = append(summary, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return summary, nil
}

// DailyAlertCounts returns per-day alert volume since the given date.
func (s *Store) DailyAlertCounts(ctx context.Context, since time.Time) ([]DailyAlertCount, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, dailyAlertCountsSQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("daily alert counts: %w", queryErr)
	}
	defer rows.Close()

	counts := make([]DailyAlertCount, 0)
	for rows.Next() {
		var count DailyAlertCount
		if err := rows.Scan(&count.Date, &count.Count); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

func scanUsageAggregate(rows pgx.Rows) (UsageAggregate, error) {
	var (
		resource     string
		subMetric    string
		totalStr     string
		unit         string
		allowanceStr sql.NullString
		allowUnit    string
		category     string
		avgCostStr   string
		daysTracked  int
	)

	if err := rows.Scan(
		&resource,
		&subMetric,
		&totalStr,
		&unit,
		&allowanceStr,
		&allowUnit,
		&category,
		&avgCostStr,
		&daysTracked,
	); err != nil {
		return UsageAggregate{}, err
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return UsageAggregate{}, fmt.Errorf("parse total usage: %w", err)
	}
	avgCost, err := decimal.NewFromString(avgCostStr)
	if err != nil {
		return UsageAggregate{}, fmt.Errorf("parse avg cost: %w", err)
	}

	agg := UsageAggregate{
		Resource:      resource,
		SubMetric:     subMetric,
		TotalUsage:    total,
		Unit:          unit,
		AllowanceUnit: allowUnit,
		Category:      ResourceCategory(category),
		AvgCost:       avgCost,
		DaysTracked:   daysTracked,
	}

	if allowanceStr.Valid {
		allowance, convErr := decimal.NewFromString(allowanceStr.String)
		if convErr != nil {
			return UsageAggregate{}, fmt.Errorf("parse allowance: %w", convErr)
		}
		agg.Allowance = &allowance
	}

	return agg, nil
}

func scanQuotaDefinition(row pgx.Row) (QuotaDefinition, error) {
	var (
		def      QuotaDefinition
		limitStr string
		category string
	)
	if err := row.Scan(
		&def.Resource,
		&def.SubMetric,
		&limitStr,
		&def.Unit,
		&category,
		&def.Description,
	); err != nil {
		return QuotaDefinition{}, err
	}

	limit, convErr := decimal.NewFromString(limitStr)
	if convErr != nil {
		return QuotaDefinition{}, fmt.Errorf("parse monthly limit: %w", convErr)
	}
	def.MonthlyLimit = limit
	def.Category = ResourceCategory(category)
	return def, nil
}
