package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/alerting"
	"freetier-alerts/internal/collector"
	"freetier-alerts/internal/config"
	"freetier-alerts/internal/ledger"
	"freetier-alerts/internal/quota"
	"freetier-alerts/internal/scheduler"
	"freetier-alerts/internal/service"
	"freetier-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// openStore connects to the database, bootstraps the schema, and seeds the
// quota catalogue. Returns a nil store when no DSN is configured.
func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}

	if err := store.EnsureSchema(ctx); err != nil {
		closer()
		return nil, nil, err
	}

	registry := quota.NewRegistry(store, a.Logger)
	if err := registry.Seed(ctx, quota.DefaultCatalog()); err != nil {
		closer()
		return nil, nil, err
	}

	return store, closer, nil
}

func (a *App) newLedger(store *storage.Store) (*ledger.Ledger, *quota.Registry) {
	registry := quota.NewRegistry(store, a.Logger)
	return ledger.New(store, registry, a.Logger), registry
}

func (a *App) newGenerator(l *ledger.Ledger, store *storage.Store) *alerting.Generator {
	opts := alerting.Options{
		Dedupe:           a.Config.Alerting.Dedupe,
		AnomalyCostFloor: decimal.NewFromFloat(a.Config.Alerting.AnomalyCostFloor),
		CriticalCost:     decimal.NewFromFloat(a.Config.Alerting.CriticalCost),
	}
	return alerting.NewGenerator(l, store, a.newNotifier(), opts, a.Logger)
}

func (a *App) newCollector() collector.UsageFetcher {
	return collector.NewHTTP(collector.Options{
		BaseURL:   a.Config.Collector.BaseURL,
		Timeout:   a.Config.Collector.RequestTimeout,
		UserAgent: a.Config.Collector.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; the usage ledger requires a database")
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	l, _ := a.newLedger(store)
	generator := a.newGenerator(l, store)

	svc := service.New(a.Config, sched, a.newCollector(), l, generator, store, a.Logger)

	a.Logger.Info().Msg("starting free tier monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// StatusOptions configure the status command.
type StatusOptions struct {
	Month  string
	Report bool
}

// AlertsOptions configure the alerts command.
type AlertsOptions struct {
	Limit   int
	Summary bool
}

// PredictOptions configure the predict command.
type PredictOptions struct {
	Resource  string
	SubMetric string
}

// RecommendOptions configure the recommend command.
type RecommendOptions struct {
	Month string
}

// ExportOptions hold parameters for exporting status and trend data.
type ExportOptions struct {
	Month     string
	CSVPath   string
	PNGPath   string
	TrendDays int
	MaxRows   int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}

// SimulateOptions inject a synthetic observation.
type SimulateOptions struct {
	Resource  string
	SubMetric string
	Amount    float64
	Unit      string
	Cost      float64
}

func (a *App) resolveMonth(value string) (ledger.Month, error) {
	if value == "" {
		return ledger.MonthOf(time.Now().UTC()), nil
	}
	return ledger.ParseMonth(value)
}
