package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "tierwatch" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("interval = %v, want 24h", cfg.Scheduler.Interval)
	}
	if !cfg.Alerting.Enabled || !cfg.Alerting.Dedupe {
		t.Fatal("alerting and dedupe should default on")
	}
	if cfg.Alerting.Telegram.Enabled {
		t.Fatal("telegram should default off")
	}
	if cfg.Collector.WindowDays != 7 {
		t.Fatalf("window days = %d, want 7", cfg.Collector.WindowDays)
	}
	if cfg.Alerting.AnomalyCostFloor != 0.01 || cfg.Alerting.CriticalCost != 1.0 {
		t.Fatalf("anomaly thresholds = %v / %v", cfg.Alerting.AnomalyCostFloor, cfg.Alerting.CriticalCost)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  environment: production
scheduler:
  interval: 6h
collector:
  base_url: https://billing.example.com
  window_days: 3
alerting:
  dedupe: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.App.Environment != "production" {
		t.Fatalf("environment = %q", cfg.App.Environment)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Fatalf("interval = %v, want 6h", cfg.Scheduler.Interval)
	}
	if cfg.Collector.BaseURL != "https://billing.example.com" {
		t.Fatalf("base url = %q", cfg.Collector.BaseURL)
	}
	if cfg.Collector.WindowDays != 3 {
		t.Fatalf("window days = %d, want 3", cfg.Collector.WindowDays)
	}
	if cfg.Alerting.Dedupe {
		t.Fatal("dedupe should be disabled by file override")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load defaults: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Scheduler.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero interval")
	}

	cfg = base()
	cfg.Alerting.CriticalCost = 0.001
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for critical cost below anomaly floor")
	}

	cfg = base()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for telegram without credentials")
	}
}

func TestResolveMaxRows(t *testing.T) {
	cfg := Config{Export: ExportConfig{MaxRows: 5000}}
	if got := cfg.ResolveMaxRows(0); got != 5000 {
		t.Fatalf("got %d, want config default", got)
	}
	if got := cfg.ResolveMaxRows(25); got != 25 {
		t.Fatalf("got %d, want override", got)
	}
}
