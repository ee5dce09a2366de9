package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p8a1u7l/cointrade5-sub000/internal/cache/redis"
	"github.com/p8a1u7l/cointrade5-sub000/internal/engine"
	"github.com/p8a1u7l/cointrade5-sub000/internal/market"
	"github.com/p8a1u7l/cointrade5-sub000/internal/oracle"
	"github.com/p8a1u7l/cointrade5-sub000/internal/scalp"
	"github.com/p8a1u7l/cointrade5-sub000/internal/signal"
)

// TradeMode runs the quote feed and the trading engine.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)

	eng, err := a.buildEngine(deps)
	if err != nil {
		return fmt.Errorf("trade mode: %w", err)
	}
	g.Go(func() error {
		return eng.Run(ctx)
	})

	return g.Wait()
}

// MonitorMode runs read-only observation: the quote feed keeps the price
// cache current and decision events from other instances are consumed off
// the bus. No orders are placed.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)

	g.Go(func() error {
		ch, err := deps.SignalBus.Subscribe(ctx, redis.ChannelDecisions)
		if err != nil {
			return fmt.Errorf("monitor mode: subscribe decisions: %w", err)
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				a.logger.InfoContext(ctx, "decision observed", slog.String("payload", string(msg)))
			}
		}
	})

	return g.Wait()
}

// FullMode runs trading plus the cold-storage retention sweep.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeed(ctx, g, deps)

	eng, err := a.buildEngine(deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	g.Go(func() error {
		return eng.Run(ctx)
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			a.runArchiveSweeper(ctx, deps)
			return nil
		})
	}

	return g.Wait()
}

// startFeed launches the bookTicker feed and mirrors mid prices into the
// price cache.
func (a *App) startFeed(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	deps.Feed.OnPrice = func(symbol string, mid float64, at time.Time) {
		if err := deps.PriceCache.SetPrice(ctx, symbol, mid, at); err != nil {
			a.logger.Debug("price cache update failed",
				slog.String("symbol", symbol),
				slog.Any("error", err),
			)
		}
	}
	g.Go(func() error {
		return deps.Feed.Run(ctx)
	})
}

// buildEngine assembles the full decision-and-execution stack on top of the
// wired infrastructure.
func (a *App) buildEngine(deps *Dependencies) (*engine.Engine, error) {
	gen := signal.NewGenerator(signal.DefaultConfig(), a.logger)
	provider := market.NewKlineProvider(deps.Adapter, gen, a.logger)

	gateCfg := scalp.DefaultGateConfig()
	gateCfg.MaxSpreadBps = a.cfg.Gate.MaxSpreadBps
	gateCfg.MaxSlippageBps = a.cfg.Gate.MaxSlippageBps
	gateCfg.MaxLatencyMs = a.cfg.Gate.MaxLatencyMs
	gateCfg.MaxQuoteAgeMs = a.cfg.Gate.MaxQuoteAgeMs
	gate := scalp.NewGate(gateCfg)

	var policy scalp.PolicyOracle = scalp.LocalPolicy{}
	if a.cfg.Oracle.PolicyURL != "" {
		policy = oracle.NewPolicyClient(oracle.Config{
			BaseURL: a.cfg.Oracle.PolicyURL,
			APIKey:  a.cfg.Oracle.PolicyKey,
			Timeout: a.cfg.Oracle.PolicyTimeout.Duration,
		})
	}
	merger := scalp.NewMerger(policy, a.logger)
	scalpEng := scalp.NewEngine(gate, merger, deps.Feed, nil, a.logger)

	var cache *engine.DecisionCache
	if a.cfg.Oracle.StrategyURL != "" {
		strat := oracle.NewStrategyClient(oracle.Config{
			BaseURL: a.cfg.Oracle.StrategyURL,
			APIKey:  a.cfg.Oracle.StrategyKey,
			Timeout: a.cfg.Oracle.StrategyTimeout.Duration,
		})
		cache = engine.NewDecisionCache(strat, a.logger)
	}

	mode := engine.ModeScalp
	if strings.ToLower(a.cfg.Trading.Engine) == "oracle" {
		mode = engine.ModeOracle
	}
	if mode == engine.ModeOracle && cache == nil {
		return nil, fmt.Errorf("oracle engine requires oracle.strategy_url")
	}

	filters := engine.NewFilterCache(deps.Adapter, 0, a.logger)
	normalizer := engine.NewNormalizer(filters)
	guard := engine.NewMarginGuard(normalizer, deps.Adapter, a.logger)
	ledger := engine.NewPositionLedger(deps.Adapter, a.logger)
	cooldown := engine.NewCooldownTracker(a.cfg.Cooldown.Window.Duration, a.cfg.Cooldown.Block.Duration)
	executor := engine.NewExecutor(engine.ExecutorConfig{
		Leverage:         a.cfg.Trading.Leverage,
		PositionFraction: a.cfg.Trading.PositionFraction,
	}, deps.Adapter, normalizer, guard, ledger, cooldown, a.logger)
	stops := scalp.NewStopTracker()

	return engine.New(engine.Config{
		Symbols:      a.cfg.Trading.Symbols,
		Interval:     a.cfg.Trading.Interval,
		CandleLimit:  a.cfg.Trading.CandleLimit,
		TickEvery:    a.cfg.Trading.TickEvery.Duration,
		Mode:         mode,
		Concurrency:  a.cfg.Trading.Concurrency,
		SlippageWarn: a.cfg.Trading.SlippageWarnBps,
	}, provider, scalpEng, cache, executor, ledger, cooldown, stops, filters, deps.Recorder, a.logger)
}

// runArchiveSweeper periodically moves aged decisions and fills to cold
// storage.
func (a *App) runArchiveSweeper(ctx context.Context, deps *Dependencies) {
	sweep := func() {
		cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
		if n, err := deps.Archiver.ArchiveDecisions(ctx, cutoff); err != nil {
			a.logger.ErrorContext(ctx, "decision archive sweep failed", slog.Any("error", err))
		} else if n > 0 {
			a.logger.InfoContext(ctx, "decisions archived", slog.Int64("count", n))
		}
		if n, err := deps.Archiver.ArchiveFills(ctx, cutoff); err != nil {
			a.logger.ErrorContext(ctx, "fill archive sweep failed", slog.Any("error", err))
		} else if n > 0 {
			a.logger.InfoContext(ctx, "fills archived", slog.Int64("count", n))
		}
	}

	ticker := time.NewTicker(a.cfg.Archive.SweepEvery.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
