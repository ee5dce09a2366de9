// Package exchange defines the exchange adapter contract the engine trades
// through and provides a Binance-futures-compatible REST implementation.
package exchange

import (
	"context"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// OrderSide is the exchange-level order direction.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// MarketOrder describes a market order request.
type MarketOrder struct {
	Symbol     string
	Side       OrderSide
	Quantity   string // exact wire quantity from the normalizer
	ReduceOnly bool
}

// LimitOrder describes a limit order request.
type LimitOrder struct {
	Symbol      string
	Side        OrderSide
	Quantity    string
	Price       string
	TimeInForce string // GTC, IOC, FOK; defaults to GTC
	ReduceOnly  bool
}

// PositionRisk is the exchange's view of one open position. Quantity is
// signed: positive long, negative short.
type PositionRisk struct {
	Symbol     string
	Quantity   float64
	EntryPrice float64
	Leverage   int
	MarkPrice  float64
}

// Adapter is the full exchange surface the engine consumes. All calls are
// idempotency-agnostic; duplicate fills are a ledger-refresh concern, not an
// exactly-once contract.
type Adapter interface {
	AccountBalance(ctx context.Context) (available float64, err error)
	Positions(ctx context.Context) ([]PositionRisk, error)
	TradingFilters(ctx context.Context) (map[string]domain.TradingFilters, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	PlaceMarketOrder(ctx context.Context, ord MarketOrder) (domain.OrderFill, error)
	PlaceLimitOrder(ctx context.Context, ord LimitOrder) (domain.OrderFill, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	MaxNotionalForLeverage(ctx context.Context, symbol string, leverage int) (float64, error)
}
