package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COINTRADE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present, ignore if missing.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COINTRADE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Trading ──
	setStringSlice(&cfg.Trading.Symbols, "COINTRADE_TRADING_SYMBOLS")
	setStr(&cfg.Trading.Interval, "COINTRADE_TRADING_INTERVAL")
	setInt(&cfg.Trading.CandleLimit, "COINTRADE_TRADING_CANDLE_LIMIT")
	setDuration(&cfg.Trading.TickEvery, "COINTRADE_TRADING_TICK_EVERY")
	setInt(&cfg.Trading.Leverage, "COINTRADE_TRADING_LEVERAGE")
	setFloat64(&cfg.Trading.PositionFraction, "COINTRADE_TRADING_POSITION_FRACTION")
	setInt(&cfg.Trading.Concurrency, "COINTRADE_TRADING_CONCURRENCY")
	setFloat64(&cfg.Trading.SlippageWarnBps, "COINTRADE_TRADING_SLIPPAGE_WARN_BPS")
	setStr(&cfg.Trading.Engine, "COINTRADE_TRADING_ENGINE")

	// ── Exchange ──
	setStr(&cfg.Exchange.BaseURL, "COINTRADE_EXCHANGE_BASE_URL")
	setStr(&cfg.Exchange.WsURL, "COINTRADE_EXCHANGE_WS_URL")
	setStr(&cfg.Exchange.APIKey, "COINTRADE_EXCHANGE_API_KEY")
	setStr(&cfg.Exchange.APISecret, "COINTRADE_EXCHANGE_API_SECRET")
	setInt(&cfg.Exchange.RecvWindow, "COINTRADE_EXCHANGE_RECV_WINDOW")
	setDuration(&cfg.Exchange.Timeout, "COINTRADE_EXCHANGE_TIMEOUT")

	// ── Oracle ──
	setStr(&cfg.Oracle.StrategyURL, "COINTRADE_ORACLE_STRATEGY_URL")
	setStr(&cfg.Oracle.StrategyKey, "COINTRADE_ORACLE_STRATEGY_KEY")
	setDuration(&cfg.Oracle.StrategyTimeout, "COINTRADE_ORACLE_STRATEGY_TIMEOUT")
	setStr(&cfg.Oracle.PolicyURL, "COINTRADE_ORACLE_POLICY_URL")
	setStr(&cfg.Oracle.PolicyKey, "COINTRADE_ORACLE_POLICY_KEY")
	setDuration(&cfg.Oracle.PolicyTimeout, "COINTRADE_ORACLE_POLICY_TIMEOUT")

	// ── Gate ──
	setFloat64(&cfg.Gate.MaxSpreadBps, "COINTRADE_GATE_MAX_SPREAD_BPS")
	setFloat64(&cfg.Gate.MaxSlippageBps, "COINTRADE_GATE_MAX_SLIPPAGE_BPS")
	setFloat64(&cfg.Gate.MaxLatencyMs, "COINTRADE_GATE_MAX_LATENCY_MS")
	setFloat64(&cfg.Gate.MaxQuoteAgeMs, "COINTRADE_GATE_MAX_QUOTE_AGE_MS")

	// ── Cooldown ──
	setDuration(&cfg.Cooldown.Window, "COINTRADE_COOLDOWN_WINDOW")
	setDuration(&cfg.Cooldown.Block, "COINTRADE_COOLDOWN_BLOCK")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COINTRADE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "COINTRADE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COINTRADE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COINTRADE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COINTRADE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COINTRADE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COINTRADE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COINTRADE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COINTRADE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COINTRADE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COINTRADE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COINTRADE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COINTRADE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COINTRADE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COINTRADE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COINTRADE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "COINTRADE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COINTRADE_S3_REGION")
	setStr(&cfg.S3.Bucket, "COINTRADE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COINTRADE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COINTRADE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COINTRADE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COINTRADE_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "COINTRADE_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "COINTRADE_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.SweepEvery, "COINTRADE_ARCHIVE_SWEEP_EVERY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "COINTRADE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "COINTRADE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "COINTRADE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "COINTRADE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "COINTRADE_MODE")
	setStr(&cfg.LogLevel, "COINTRADE_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
