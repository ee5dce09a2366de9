package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidateMonitorMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("monitor defaults should validate, got: %v", err)
	}
}

func TestValidateRequiresCredentialsForTrading(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error without API credentials")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api_key error, got: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Trading.Symbols = nil
	cfg.Trading.Leverage = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "unknown log_level", "at least one symbol", "leverage"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateOracleEngineNeedsStrategyURL(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	cfg.Trading.Engine = "oracle"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "strategy_url") {
		t.Fatalf("expected strategy_url error, got: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"
log_level = "debug"

[trading]
symbols = ["ETHUSDT", "SOLUSDT"]
interval = "5m"
tick_every = "30s"
leverage = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "monitor" || cfg.LogLevel != "debug" {
		t.Errorf("top-level fields not applied: %+v", cfg)
	}
	if len(cfg.Trading.Symbols) != 2 || cfg.Trading.Symbols[0] != "ETHUSDT" {
		t.Errorf("symbols = %v", cfg.Trading.Symbols)
	}
	if cfg.Trading.TickEvery.Duration != 30*time.Second {
		t.Errorf("tick_every = %v, want 30s", cfg.Trading.TickEvery.Duration)
	}
	if cfg.Trading.Leverage != 5 {
		t.Errorf("leverage = %d, want 5", cfg.Trading.Leverage)
	}
	// Untouched sections keep defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr default lost: %s", cfg.Redis.Addr)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"
`)

	t.Setenv("COINTRADE_EXCHANGE_API_KEY", "k-from-env")
	t.Setenv("COINTRADE_TRADING_SYMBOLS", "BTCUSDT, ETHUSDT")
	t.Setenv("COINTRADE_COOLDOWN_BLOCK", "90s")
	t.Setenv("COINTRADE_POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Exchange.APIKey != "k-from-env" {
		t.Errorf("api key override not applied: %q", cfg.Exchange.APIKey)
	}
	if len(cfg.Trading.Symbols) != 2 || cfg.Trading.Symbols[1] != "ETHUSDT" {
		t.Errorf("symbols override not applied: %v", cfg.Trading.Symbols)
	}
	if cfg.Cooldown.Block.Duration != 90*time.Second {
		t.Errorf("cooldown block = %v, want 90s", cfg.Cooldown.Block.Duration)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("run_migrations override not applied")
	}
}
