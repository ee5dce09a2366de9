package engine

import (
	"context"
	"log/slog"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// marginBuffer keeps 10% of the leveraged margin headroom unused.
const marginBuffer = 0.9

// BracketSource exposes the exchange's leverage-bracket notional cap.
type BracketSource interface {
	MaxNotionalForLeverage(ctx context.Context, symbol string, leverage int) (float64, error)
}

// MarginVerdict is the guard's ruling on one order.
type MarginVerdict struct {
	Allowed bool
	Order   domain.NormalizedOrder
	Reason  string
}

// MarginGuard caps order notional by available margin and the exchange's
// leverage-bracket limit, re-normalizing the quantity when it must shrink.
type MarginGuard struct {
	normalizer *Normalizer
	brackets   BracketSource
	logger     *slog.Logger
}

func NewMarginGuard(normalizer *Normalizer, brackets BracketSource, logger *slog.Logger) *MarginGuard {
	return &MarginGuard{
		normalizer: normalizer,
		brackets:   brackets,
		logger:     logger.With(slog.String("component", "margin_guard")),
	}
}

// Check validates the normalized order against the margin cap. When the
// desired notional exceeds the cap, the quantity is recomputed from the cap
// and re-normalized; the order is rejected only when even the exchange's
// minimum notional no longer fits.
func (g *MarginGuard) Check(ctx context.Context, symbol string, leverage int, referencePrice float64, order domain.NormalizedOrder, availableMargin float64) MarginVerdict {
	if order.Zero() || referencePrice <= 0 {
		return MarginVerdict{Allowed: false, Order: order, Reason: "empty order"}
	}

	effLev := leverage
	if effLev < 1 {
		effLev = 1
	}
	cap := availableMargin * float64(effLev) * marginBuffer

	if g.brackets != nil {
		bracketCap, err := g.brackets.MaxNotionalForLeverage(ctx, symbol, effLev)
		if err != nil {
			// Bracket info is advisory; the exchange enforces it anyway
			// and the executor retries on a bracket rejection.
			g.logger.Debug("bracket lookup failed", slog.String("symbol", symbol), slog.Any("error", err))
		} else if bracketCap > 0 && bracketCap < cap {
			cap = bracketCap
		}
	}

	notional := order.Quantity * referencePrice
	if notional <= cap {
		return MarginVerdict{Allowed: true, Order: order}
	}

	if f := order.Filters; f.MinNotional > 0 && cap < f.MinNotional {
		return MarginVerdict{Allowed: false, Order: order, Reason: "margin cap below exchange minimum notional"}
	}

	reduced := NormalizeWith(order.Filters, cap/referencePrice, referencePrice)
	if reduced.Zero() {
		return MarginVerdict{Allowed: false, Order: reduced, Reason: "reduced quantity not normalizable"}
	}
	g.logger.Info("order reduced to margin cap",
		slog.String("symbol", symbol),
		slog.Float64("desired_notional", notional),
		slog.Float64("cap", cap),
		slog.String("quantity", reduced.Text),
	)
	return MarginVerdict{Allowed: true, Order: reduced}
}
