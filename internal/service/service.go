package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"freetier-alerts/internal/alerting"
	"freetier-alerts/internal/collector"
	"freetier-alerts/internal/config"
	"freetier-alerts/internal/ledger"
	"freetier-alerts/internal/scheduler"
	"freetier-alerts/internal/storage"
)

// Service orchestrates collection, persistence, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   collector.UsageFetcher
	ledger    *ledger.Ledger
	generator *alerting.Generator
	logger    zerolog.Logger

	windowDays int
	alertsOn   bool
	locker     storage.AdvisoryLocker
	lockKey    int64
}

// New constructs the monitoring service. generator may be nil when
// alerting is disabled; locker may be nil when no store is configured.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetcher collector.UsageFetcher, l *ledger.Ledger, generator *alerting.Generator, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:  sched,
		fetcher:    fetcher,
		ledger:     l,
		generator:  generator,
		logger:     logger.With().Str("component", "service").Logger(),
		windowDays: cfg.Collector.WindowDays,
		alertsOn:   cfg.Alerting.Enabled,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the aligned collection loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessWindow)
}

// ProcessWindow executes one collection run anchored at the given window.
// Overlapping runs from another process are skipped via the advisory lock;
// the per-key replace semantics of the ledger make a retry harmless.
func (s *Service) ProcessWindow(ctx context.Context, window time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("window", window).Msg("skip window because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeWindow(ctx, window)
}

func (s *Service) executeWindow(ctx context.Context, window time.Time) error {
	to := window.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -s.windowDays)

	observations, err := s.fetcher.FetchUsage(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch usage: %w", err)
	}
	if len(observations) == 0 {
		s.logger.Info().Time("window", window).Msg("no usage records in window")
		return nil
	}

	result, err := s.ledger.Upsert(ctx, observations)
	if err != nil {
		return fmt.Errorf("persist usage: %w", err)
	}
	for _, rejected := range result.Rejected {
		s.logger.Warn().Err(rejected).Msg("usage record rejected")
	}

	if err := s.ledger.RefreshDailyCostSummary(ctx, observations); err != nil {
		s.logger.Error().Err(err).Msg("failed to refresh daily cost summary")
	}

	s.logger.Info().
		Time("window", window).
		Int("written", result.Written).
		Int("rejected", len(result.Rejected)).
		Msg("usage window recorded")

	if !s.alertsOn || s.generator == nil {
		return nil
	}

	month := ledger.MonthOf(window.UTC())
	alerts, err := s.generator.Generate(ctx, month)
	if err != nil {
		s.logger.Error().Err(err).Str("month", month.String()).Msg("failed to generate alerts")
	} else if len(alerts) > 0 {
		s.logger.Warn().Int("alerts", len(alerts)).Msg("threshold alerts recorded")
	}

	anomalies := s.generator.CheckCostAnomalies(observations)
	for _, anomaly := range anomalies {
		s.logger.Warn().
			Str("resource", anomaly.Resource).
			Str("sub_metric", anomaly.SubMetric).
			Str("severity", string(anomaly.Severity)).
			Str("cost", anomaly.Cost.String()).
			Msg(anomaly.Message)
	}

	return nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
