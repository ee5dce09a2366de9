package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/exchange"
)

// Conviction gate thresholds: minimum confidence/edge before an order is
// actually placed.
const (
	gateMinConfidence = 0.62
	gateMinLocalEdge  = 0.40
	gateMinLocalConf  = 0.55
)

// Retry policy for classified exchange rejections.
const (
	maxOrderAttempts = 3
	minRetryRelDiff  = 0.0001 // 0.01% relative quantity change required to retry
)

// ExecOutcome summarizes what the executor did for one decision.
type ExecOutcome string

const (
	OutcomeOpened  ExecOutcome = "opened"
	OutcomeClosed  ExecOutcome = "closed"
	OutcomeFlipped ExecOutcome = "flipped"
	OutcomeHeld    ExecOutcome = "held"
	OutcomeSkipped ExecOutcome = "skipped"
)

// ExecResult reports the fills produced by one decision.
type ExecResult struct {
	Outcome ExecOutcome
	Reason  string
	Close   *domain.OrderFill // reduce-only close, when one happened
	Entry   *domain.OrderFill // new entry, when one happened
	Side    exchange.OrderSide
}

// ExecutorConfig sizes new entries.
type ExecutorConfig struct {
	Leverage int
	// PositionFraction is the share of the leveraged margin committed per
	// entry.
	PositionFraction float64
}

// Executor resolves the position-transition state machine and places orders
// with bounded quantity-backoff retry on classified rejections.
type Executor struct {
	cfg        ExecutorConfig
	adapter    exchange.Adapter
	normalizer *Normalizer
	guard      *MarginGuard
	ledger     *PositionLedger
	cooldown   *CooldownTracker
	logger     *slog.Logger
}

func NewExecutor(cfg ExecutorConfig, adapter exchange.Adapter, normalizer *Normalizer, guard *MarginGuard, ledger *PositionLedger, cooldown *CooldownTracker, logger *slog.Logger) *Executor {
	if cfg.Leverage < 1 {
		cfg.Leverage = 1
	}
	if cfg.PositionFraction <= 0 || cfg.PositionFraction > 1 {
		cfg.PositionFraction = 0.25
	}
	return &Executor{
		cfg:        cfg,
		adapter:    adapter,
		normalizer: normalizer,
		guard:      guard,
		ledger:     ledger,
		cooldown:   cooldown,
		logger:     logger.With(slog.String("component", "order_executor")),
	}
}

// Execute applies the decision against the current position state. Fills
// invalidate the ledger cache eagerly.
func (e *Executor) Execute(ctx context.Context, d domain.Decision, price float64) (ExecResult, error) {
	pos, hasPos, err := e.ledger.Position(ctx, d.Symbol)
	if err != nil {
		return ExecResult{Outcome: OutcomeSkipped, Reason: "ledger unavailable"}, err
	}

	// Flat bias or an explicit exit closes whatever is open.
	if d.Bias == domain.BiasFlat || d.Action == domain.ActionExit {
		if !hasPos {
			return ExecResult{Outcome: OutcomeHeld, Reason: "nothing to exit"}, nil
		}
		fill, err := e.closePosition(ctx, pos)
		if err != nil {
			return ExecResult{Outcome: OutcomeSkipped, Reason: "close failed"}, err
		}
		return ExecResult{Outcome: OutcomeClosed, Close: fill, Side: closeSide(pos.Side)}, nil
	}

	if hasPos && pos.Side.Bias() == d.Bias {
		return ExecResult{Outcome: OutcomeHeld, Reason: "already positioned"}, nil
	}

	var closeFill *domain.OrderFill
	if hasPos {
		// Opposite side: the flip always closes first, even if the gate
		// then refuses the new entry.
		closeFill, err = e.closePosition(ctx, pos)
		if err != nil {
			return ExecResult{Outcome: OutcomeSkipped, Reason: "flip close failed"}, err
		}
	}

	if reason, ok := e.passesGate(d); !ok {
		outcome := OutcomeSkipped
		if closeFill != nil {
			outcome = OutcomeClosed
		}
		return ExecResult{Outcome: outcome, Reason: reason, Close: closeFill}, nil
	}
	if e.cooldown.IsBlocked(d.Symbol) {
		outcome := OutcomeSkipped
		if closeFill != nil {
			outcome = OutcomeClosed
		}
		return ExecResult{Outcome: outcome, Reason: "symbol in cooldown", Close: closeFill}, nil
	}

	entryFill, side, err := e.openPosition(ctx, d, price)
	if err != nil {
		return ExecResult{Outcome: OutcomeSkipped, Reason: "entry failed", Close: closeFill}, err
	}
	if entryFill == nil {
		outcome := OutcomeSkipped
		if closeFill != nil {
			outcome = OutcomeClosed
		}
		return ExecResult{Outcome: outcome, Reason: "no executable quantity", Close: closeFill}, nil
	}

	outcome := OutcomeOpened
	if closeFill != nil {
		outcome = OutcomeFlipped
	}
	return ExecResult{Outcome: outcome, Close: closeFill, Entry: entryFill, Side: side}, nil
}

// passesGate applies the conviction gate. A zero LocalConfidence counts as
// undefined.
func (e *Executor) passesGate(d domain.Decision) (string, bool) {
	if d.Confidence < gateMinConfidence {
		return fmt.Sprintf("confidence %.2f below gate", d.Confidence), false
	}
	if d.LocalEdge < gateMinLocalEdge {
		return fmt.Sprintf("local edge %.2f below gate", d.LocalEdge), false
	}
	if d.LocalConfidence > 0 && d.LocalConfidence < gateMinLocalConf {
		return fmt.Sprintf("local confidence %.2f below gate", d.LocalConfidence), false
	}
	return "", true
}

func (e *Executor) closePosition(ctx context.Context, pos domain.Position) (*domain.OrderFill, error) {
	order := e.normalizer.Normalize(pos.Symbol, pos.Quantity, 0)
	qtyText := order.Text
	if order.Zero() {
		// Dust below the filters still has to be flattened; send the raw
		// quantity and let the exchange round.
		qtyText = strconv.FormatFloat(pos.Quantity, 'f', -1, 64)
	}
	fill, err := e.adapter.PlaceMarketOrder(ctx, exchange.MarketOrder{
		Symbol:     pos.Symbol,
		Side:       closeSide(pos.Side),
		Quantity:   qtyText,
		ReduceOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: close %s: %w", pos.Symbol, err)
	}
	e.ledger.Invalidate()
	e.logger.Info("position closed",
		slog.String("symbol", pos.Symbol),
		slog.String("side", string(pos.Side)),
		slog.Float64("qty", fill.ExecutedQty),
		slog.Float64("avg_price", fill.AvgPrice),
	)
	return &fill, nil
}

func (e *Executor) openPosition(ctx context.Context, d domain.Decision, price float64) (*domain.OrderFill, exchange.OrderSide, error) {
	if price <= 0 {
		return nil, "", fmt.Errorf("engine: open %s: no reference price", d.Symbol)
	}
	side := exchange.SideBuy
	if d.Bias == domain.BiasShort {
		side = exchange.SideSell
	}

	margin, err := e.ledger.AvailableMargin(ctx)
	if err != nil {
		return nil, side, err
	}
	rawQty := margin * float64(e.cfg.Leverage) * e.cfg.PositionFraction / price
	if rawQty <= 0 {
		return nil, side, nil
	}

	order := e.normalizer.Normalize(d.Symbol, rawQty, price)
	if order.Zero() {
		return nil, side, nil
	}
	verdict := e.guard.Check(ctx, d.Symbol, e.cfg.Leverage, price, order, margin)
	if !verdict.Allowed {
		e.logger.Warn("entry blocked by margin guard",
			slog.String("symbol", d.Symbol),
			slog.String("reason", verdict.Reason),
		)
		return nil, side, nil
	}

	if err := e.adapter.SetLeverage(ctx, d.Symbol, e.cfg.Leverage); err != nil {
		// Leverage may already be set; a failure here is not worth
		// abandoning the entry over.
		e.logger.Debug("set leverage failed", slog.String("symbol", d.Symbol), slog.Any("error", err))
	}

	fill, err := e.placeWithRetry(ctx, d.Symbol, side, verdict.Order, rawQty, price)
	if err != nil {
		return nil, side, err
	}
	if fill == nil {
		return nil, side, nil
	}
	e.ledger.Invalidate()
	return fill, side, nil
}

// placeWithRetry attempts the order up to maxOrderAttempts times. Retryable
// rejections halve the raw quantity and re-normalize; a retry only proceeds
// when the new quantity differs materially from the prior attempt.
// Insufficient margin abandons the tick silently; unclassified errors
// propagate.
func (e *Executor) placeWithRetry(ctx context.Context, symbol string, side exchange.OrderSide, order domain.NormalizedOrder, rawQty, price float64) (*domain.OrderFill, error) {
	for attempt := 1; attempt <= maxOrderAttempts; attempt++ {
		fill, err := e.adapter.PlaceMarketOrder(ctx, exchange.MarketOrder{
			Symbol:   symbol,
			Side:     side,
			Quantity: order.Text,
		})
		if err == nil {
			e.logger.Info("order filled",
				slog.String("symbol", symbol),
				slog.String("side", string(side)),
				slog.String("qty", order.Text),
				slog.Float64("avg_price", fill.AvgPrice),
				slog.Int("attempt", attempt),
			)
			return &fill, nil
		}

		var rej *domain.RejectionError
		if !errors.As(err, &rej) {
			return nil, fmt.Errorf("engine: place order %s: %w", symbol, err)
		}
		if rej.Kind == domain.RejectInsufficientMargin {
			e.logger.Warn("insufficient margin, abandoning entry",
				slog.String("symbol", symbol),
				slog.String("qty", order.Text),
			)
			return nil, nil
		}
		if !rej.Retryable() {
			return nil, fmt.Errorf("engine: place order %s: %w", symbol, err)
		}

		rawQty /= 2
		next := e.normalizer.Normalize(symbol, rawQty, price)
		if next.Zero() {
			e.logger.Warn("retry quantity unnormalizable, aborting",
				slog.String("symbol", symbol),
				slog.String("rejection", string(rej.Kind)),
			)
			return nil, nil
		}
		rel := math.Abs(next.Quantity-order.Quantity) / order.Quantity
		if rel <= minRetryRelDiff {
			e.logger.Warn("retry quantity unchanged, aborting",
				slog.String("symbol", symbol),
				slog.String("qty", next.Text),
			)
			return nil, nil
		}
		e.logger.Info("rejection, retrying with reduced quantity",
			slog.String("symbol", symbol),
			slog.String("rejection", string(rej.Kind)),
			slog.String("qty", next.Text),
			slog.Int("attempt", attempt),
		)
		order = next
	}
	return nil, nil
}

func closeSide(s domain.PositionSide) exchange.OrderSide {
	if s == domain.PositionLong {
		return exchange.SideSell
	}
	return exchange.SideBuy
}
