package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/exchange"
)

// Live-state cache TTL. Fills invalidate eagerly; the TTL only bounds
// staleness between executions.
const ledgerTTL = 3 * time.Second

// dustQty is the exchange-quantity threshold under which a position is
// treated as closed.
const dustQty = 1e-9

// PositionLedger projects exchange position risk into domain Positions with
// a short TTL cache, and caches the available margin alongside. Strategy
// metadata (model, entry move, entry time) survives refreshes for positions
// the engine itself opened.
type PositionLedger struct {
	adapter exchange.Adapter
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	positions map[string]domain.Position
	meta      map[string]positionMeta
	margin    float64
	fetchedAt time.Time
}

type positionMeta struct {
	model     domain.StrategyModel
	entryMove float64
	entryTime time.Time
}

func NewPositionLedger(adapter exchange.Adapter, logger *slog.Logger) *PositionLedger {
	return &PositionLedger{
		adapter:   adapter,
		logger:    logger.With(slog.String("component", "position_ledger")),
		now:       time.Now,
		positions: make(map[string]domain.Position),
		meta:      make(map[string]positionMeta),
	}
}

// Position returns the open position for a symbol, refreshing the cache
// when stale. The bool reports whether a position exists.
func (l *PositionLedger) Position(ctx context.Context, symbol string) (domain.Position, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.refreshLocked(ctx, false); err != nil {
		return domain.Position{}, false, err
	}
	p, ok := l.positions[symbol]
	return p, ok, nil
}

// AvailableMargin returns the cached available balance, refreshing when
// stale.
func (l *PositionLedger) AvailableMargin(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.refreshLocked(ctx, false); err != nil {
		return 0, err
	}
	return l.margin, nil
}

// Snapshot returns a copy of all open positions for operational visibility.
func (l *PositionLedger) Snapshot(ctx context.Context) ([]domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.refreshLocked(ctx, false); err != nil {
		return nil, err
	}
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	return out, nil
}

// Invalidate forces the next read to hit the exchange. Called after every
// fill.
func (l *PositionLedger) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchedAt = time.Time{}
}

// RecordEntry attaches strategy metadata to a freshly opened position so the
// next refresh can carry it over.
func (l *PositionLedger) RecordEntry(symbol string, model domain.StrategyModel, entryMove float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.meta[symbol] = positionMeta{model: model, entryMove: entryMove, entryTime: l.now()}
}

func (l *PositionLedger) refreshLocked(ctx context.Context, force bool) error {
	if !force && l.now().Sub(l.fetchedAt) < ledgerTTL {
		return nil
	}

	risks, err := l.adapter.Positions(ctx)
	if err != nil {
		return fmt.Errorf("engine: refresh positions: %w", err)
	}
	margin, err := l.adapter.AccountBalance(ctx)
	if err != nil {
		return fmt.Errorf("engine: refresh balance: %w", err)
	}

	fresh := make(map[string]domain.Position, len(risks))
	for _, r := range risks {
		if math.Abs(r.Quantity) < dustQty {
			continue
		}
		side := domain.PositionLong
		if r.Quantity < 0 {
			side = domain.PositionShort
		}
		p := domain.Position{
			Symbol:     r.Symbol,
			Side:       side,
			Quantity:   math.Abs(r.Quantity),
			EntryPrice: r.EntryPrice,
			Leverage:   r.Leverage,
		}
		if m, ok := l.meta[r.Symbol]; ok {
			p.Model = m.model
			p.EntryMove = m.entryMove
			p.EntryTime = m.entryTime
		}
		fresh[r.Symbol] = p
	}

	// Drop metadata for positions that no longer exist.
	for sym := range l.meta {
		if _, ok := fresh[sym]; !ok {
			delete(l.meta, sym)
		}
	}

	l.positions = fresh
	l.margin = margin
	l.fetchedAt = l.now()
	l.logger.Debug("ledger refreshed",
		slog.Int("open_positions", len(fresh)),
		slog.Float64("available_margin", margin),
	)
	return nil
}
