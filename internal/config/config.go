// Package config defines the top-level configuration for the trading agent
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by COINTRADE_* environment
// variables.
type Config struct {
	Trading  TradingConfig  `toml:"trading"`
	Exchange ExchangeConfig `toml:"exchange"`
	Oracle   OracleConfig   `toml:"oracle"`
	Gate     GateConfig     `toml:"gate"`
	Cooldown CooldownConfig `toml:"cooldown"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TradingConfig holds the symbols to trade and the sizing/cadence knobs of
// the scheduler loop.
type TradingConfig struct {
	Symbols          []string `toml:"symbols"`
	Interval         string   `toml:"interval"`
	CandleLimit      int      `toml:"candle_limit"`
	TickEvery        duration `toml:"tick_every"`
	Leverage         int      `toml:"leverage"`
	PositionFraction float64  `toml:"position_fraction"`
	Concurrency      int      `toml:"concurrency"`
	SlippageWarnBps  float64  `toml:"slippage_warn_bps"`
	Engine           string   `toml:"engine"`
}

// ExchangeConfig holds futures REST and websocket endpoints plus API
// credentials.
type ExchangeConfig struct {
	BaseURL    string   `toml:"base_url"`
	WsURL      string   `toml:"ws_url"`
	APIKey     string   `toml:"api_key"`
	APISecret  string   `toml:"api_secret"`
	RecvWindow int      `toml:"recv_window"`
	Timeout    duration `toml:"timeout"`
}

// OracleConfig holds the remote strategy and policy oracle endpoints. Empty
// URLs disable the corresponding oracle and the engine runs on local signals
// alone.
type OracleConfig struct {
	StrategyURL     string   `toml:"strategy_url"`
	StrategyKey     string   `toml:"strategy_key"`
	StrategyTimeout duration `toml:"strategy_timeout"`
	PolicyURL       string   `toml:"policy_url"`
	PolicyKey       string   `toml:"policy_key"`
	PolicyTimeout   duration `toml:"policy_timeout"`
}

// GateConfig holds the microstructure admission caps.
type GateConfig struct {
	MaxSpreadBps   float64 `toml:"max_spread_bps"`
	MaxSlippageBps float64 `toml:"max_slippage_bps"`
	MaxLatencyMs   float64 `toml:"max_latency_ms"`
	MaxQuoteAgeMs  float64 `toml:"max_quote_age_ms"`
}

// CooldownConfig holds the stop/slippage cooldown windows.
type CooldownConfig struct {
	Window duration `toml:"window"`
	Block  duration `toml:"block"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the cold-storage retention sweep.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	SweepEvery    duration `toml:"sweep_every"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "15s", "5m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			Symbols:          []string{"BTCUSDT"},
			Interval:         "1m",
			CandleLimit:      120,
			TickEvery:        duration{15 * time.Second},
			Leverage:         3,
			PositionFraction: 0.25,
			Concurrency:      1,
			SlippageWarnBps:  8,
			Engine:           "scalp",
		},
		Exchange: ExchangeConfig{
			BaseURL:    "https://fapi.binance.com",
			WsURL:      "wss://fstream.binance.com",
			RecvWindow: 5000,
			Timeout:    duration{10 * time.Second},
		},
		Oracle: OracleConfig{
			StrategyTimeout: duration{8 * time.Second},
			PolicyTimeout:   duration{5 * time.Second},
		},
		Gate: GateConfig{
			MaxSpreadBps:   3.0,
			MaxSlippageBps: 5.0,
			MaxLatencyMs:   250,
			MaxQuoteAgeMs:  1500,
		},
		Cooldown: CooldownConfig{
			Window: duration{2 * time.Minute},
			Block:  duration{time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "cointrade",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "cointrade-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			SweepEvery:    duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"entry", "exit", "flip", "cooldown"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validEngines = map[string]bool{
	"scalp":  true,
	"oracle": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	if len(c.Trading.Symbols) == 0 {
		errs = append(errs, "trading: at least one symbol is required")
	}
	if c.Trading.Interval == "" {
		errs = append(errs, "trading: interval must not be empty")
	}
	if c.Trading.CandleLimit < 30 {
		errs = append(errs, fmt.Sprintf("trading: candle_limit must be >= 30, got %d", c.Trading.CandleLimit))
	}
	if c.Trading.TickEvery.Duration <= 0 {
		errs = append(errs, "trading: tick_every must be positive")
	}
	if c.Trading.Leverage < 1 {
		errs = append(errs, "trading: leverage must be >= 1")
	}
	if c.Trading.PositionFraction <= 0 || c.Trading.PositionFraction > 1 {
		errs = append(errs, fmt.Sprintf("trading: position_fraction must be in (0, 1], got %g", c.Trading.PositionFraction))
	}
	if c.Trading.Concurrency < 1 {
		errs = append(errs, "trading: concurrency must be >= 1")
	}
	if !validEngines[strings.ToLower(c.Trading.Engine)] {
		errs = append(errs, fmt.Sprintf("trading: unknown engine %q (valid: scalp, oracle)", c.Trading.Engine))
	}

	// Exchange — credentials are required whenever orders can be placed.
	needsKeys := c.Mode == "trade" || c.Mode == "full"
	if c.Exchange.BaseURL == "" {
		errs = append(errs, "exchange: base_url must not be empty")
	}
	if c.Exchange.WsURL == "" {
		errs = append(errs, "exchange: ws_url must not be empty")
	}
	if needsKeys {
		if c.Exchange.APIKey == "" {
			errs = append(errs, "exchange: api_key is required for mode "+c.Mode)
		}
		if c.Exchange.APISecret == "" {
			errs = append(errs, "exchange: api_secret is required for mode "+c.Mode)
		}
	}

	// Oracle — the oracle engine cannot run without a strategy endpoint.
	if strings.ToLower(c.Trading.Engine) == "oracle" && c.Oracle.StrategyURL == "" {
		errs = append(errs, "oracle: strategy_url is required when trading.engine is \"oracle\"")
	}

	// Gate
	if c.Gate.MaxSpreadBps <= 0 {
		errs = append(errs, "gate: max_spread_bps must be > 0")
	}
	if c.Gate.MaxSlippageBps <= 0 {
		errs = append(errs, "gate: max_slippage_bps must be > 0")
	}

	// Cooldown
	if c.Cooldown.Window.Duration <= 0 {
		errs = append(errs, "cooldown: window must be positive")
	}
	if c.Cooldown.Block.Duration <= 0 {
		errs = append(errs, "cooldown: block must be positive")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive needs a reachable object store.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.SweepEvery.Duration <= 0 {
			errs = append(errs, "archive: sweep_every must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
