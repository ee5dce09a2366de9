package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/exchange"
	"github.com/p8a1u7l/cointrade5-sub000/internal/signal"
)

// Provider returns a fully derived MarketSnapshot for a symbol.
type Provider interface {
	Snapshot(ctx context.Context, symbol, interval string, limit int) (*domain.MarketSnapshot, error)
}

// Indicator periods. The fast/slow EMA pair matches the scalp models'
// 20/50 regime read.
const (
	emaFastPeriod = 20
	emaSlowPeriod = 50
	rsiPeriod     = 14
	atrPeriod     = 14
	volPeriod     = 20
	srLookback    = 50
)

// KlineProvider builds snapshots from exchange klines and runs the local
// signal generator over the derived metrics.
type KlineProvider struct {
	adapter exchange.Adapter
	gen     *signal.Generator
	logger  *slog.Logger
}

func NewKlineProvider(adapter exchange.Adapter, gen *signal.Generator, logger *slog.Logger) *KlineProvider {
	return &KlineProvider{
		adapter: adapter,
		gen:     gen,
		logger:  logger.With(slog.String("component", "market_provider")),
	}
}

// Snapshot fetches candles and derives every metric the decision path
// consumes. The horizon changes assume a 1m base interval; on coarser
// intervals they degrade to the nearest available candle count.
func (p *KlineProvider) Snapshot(ctx context.Context, symbol, interval string, limit int) (*domain.MarketSnapshot, error) {
	if limit < emaSlowPeriod+2 {
		limit = emaSlowPeriod + 2
	}
	candles, err := p.adapter.Klines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("market: fetch klines %s/%s: %w", symbol, interval, err)
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("market: %s/%s: not enough candles (%d)", symbol, interval, len(candles))
	}

	emaFast := EMA(candles, emaFastPeriod)
	emaSlow := EMA(candles, emaSlowPeriod)
	rsi := RSI(candles, rsiPeriod)
	support, resistance := SupportResistance(candles, srLookback)

	last := len(candles) - 1
	snap := &domain.MarketSnapshot{
		Symbol:      symbol,
		Interval:    interval,
		Candles:     candles,
		LastPrice:   candles[last].Close,
		Change1m:    PercentChange(candles, 1),
		Change5m:    PercentChange(candles, 5),
		Change15m:   PercentChange(candles, 15),
		Change24h:   PercentChange(candles, min(1440, len(candles)-1)),
		EMAFast:     emaFast[last],
		EMASlow:     emaSlow[last],
		RSI14:       rsi[last],
		ATRPercent:  ATRPercent(candles, atrPeriod),
		VolumeRatio: VolumeRatio(candles, volPeriod),
		VolumeAccel: VolumeAccel(candles, 5, volPeriod),
		MFI:         MFI(candles, rsiPeriod),
		OBVSlope:    OBVSlope(candles, volPeriod),
		Support:     support,
		Resistance:  resistance,
		FetchedAt:   time.Now().UTC(),
	}

	snap.Signal = p.gen.Evaluate(snap)
	p.logger.Debug("snapshot built",
		slog.String("symbol", symbol),
		slog.Float64("price", snap.LastPrice),
		slog.String("bias", string(snap.Signal.Bias)),
		slog.Float64("confidence", snap.Signal.Confidence),
	)
	return snap, nil
}
