package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/p8a1u7l/cointrade5-sub000/internal/blob/s3"
	"github.com/p8a1u7l/cointrade5-sub000/internal/cache/redis"
	"github.com/p8a1u7l/cointrade5-sub000/internal/config"
	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/engine"
	"github.com/p8a1u7l/cointrade5-sub000/internal/exchange"
	"github.com/p8a1u7l/cointrade5-sub000/internal/feed"
	"github.com/p8a1u7l/cointrade5-sub000/internal/notify"
	"github.com/p8a1u7l/cointrade5-sub000/internal/store/postgres"
)

// Dependencies bundles the infrastructure every application mode builds on.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Adapter exchange.Adapter
	Feed    *feed.BookTickerFeed

	DecisionStore domain.DecisionStore
	FillStore     domain.FillStore

	PriceCache domain.PriceCache
	SignalBus  domain.SignalBus

	Archiver domain.Archiver

	Notifier *notify.Notifier
	Recorder engine.Recorder
}

// needsPostgres reports whether the mode persists decisions and fills. Trade
// mode runs the engine without durable storage; only full mode persists.
func needsPostgres(mode string) bool {
	return mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	mode := strings.ToLower(cfg.Mode)

	// --- Exchange adapter and live quote feed ---
	deps.Adapter = exchange.NewBinance(exchange.BinanceConfig{
		BaseURL:    cfg.Exchange.BaseURL,
		APIKey:     cfg.Exchange.APIKey,
		APISecret:  cfg.Exchange.APISecret,
		Timeout:    cfg.Exchange.Timeout.Duration,
		RecvWindow: int64(cfg.Exchange.RecvWindow),
	}, logger)

	deps.Feed = feed.NewBookTickerFeed(
		strings.TrimRight(cfg.Exchange.WsURL, "/")+"/stream",
		cfg.Trading.Symbols,
		logger,
	)

	// --- PostgreSQL (modes that persist) ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.DecisionStore = postgres.NewDecisionStore(pool)
		deps.FillStore = postgres.NewFillStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, time.Hour)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 archiving (full mode, when enabled) ---
	if mode == "full" && cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		if deps.DecisionStore != nil && deps.FillStore != nil {
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.DecisionStore, deps.FillStore, logger)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	deps.Recorder = NewEventRecorder(deps.DecisionStore, deps.FillStore, deps.SignalBus, deps.Notifier, logger)

	return deps, cleanup, nil
}
