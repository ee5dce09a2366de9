package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/p8a1u7l/cointrade5-sub000/internal/cache/redis"
	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/engine"
	"github.com/p8a1u7l/cointrade5-sub000/internal/notify"
)

// EventRecorder fans engine records out to the durable store, the signal
// bus, and the operator notifier. Every sink is best-effort: a failure is
// logged and never reaches the tick loop.
type EventRecorder struct {
	decisions domain.DecisionStore
	fills     domain.FillStore
	bus       domain.SignalBus
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewEventRecorder creates an EventRecorder. Any sink may be nil and is then
// skipped.
func NewEventRecorder(decisions domain.DecisionStore, fills domain.FillStore, bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) *EventRecorder {
	return &EventRecorder{
		decisions: decisions,
		fills:     fills,
		bus:       bus,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "recorder")),
	}
}

func (r *EventRecorder) RecordDecision(ctx context.Context, rec domain.DecisionRecord) {
	if r.decisions != nil {
		if err := r.decisions.Create(ctx, rec); err != nil {
			r.logger.Error("persist decision failed",
				slog.String("symbol", rec.Symbol),
				slog.Any("error", err),
			)
		}
	}
	r.publish(ctx, redis.ChannelDecisions, redis.StreamDecisions, rec)
}

func (r *EventRecorder) RecordFill(ctx context.Context, rec domain.FillRecord) {
	if r.fills != nil {
		if err := r.fills.Create(ctx, rec); err != nil {
			r.logger.Error("persist fill failed",
				slog.String("symbol", rec.Symbol),
				slog.Any("error", err),
			)
		}
	}
	r.publish(ctx, redis.ChannelFills, redis.StreamFills, rec)
	r.notifyFill(ctx, rec)
}

func (r *EventRecorder) publish(ctx context.Context, channel, stream string, v any) {
	if r.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal record failed", slog.Any("error", err))
		return
	}
	if err := r.bus.Publish(ctx, channel, payload); err != nil {
		r.logger.Warn("bus publish failed", slog.String("channel", channel), slog.Any("error", err))
	}
	if err := r.bus.StreamAppend(ctx, stream, payload); err != nil {
		r.logger.Warn("stream append failed", slog.String("stream", stream), slog.Any("error", err))
	}
}

func (r *EventRecorder) notifyFill(ctx context.Context, rec domain.FillRecord) {
	if r.notifier == nil {
		return
	}
	var err error
	if rec.ReduceOnly {
		// A reduce-only BUY closes a short, a reduce-only SELL closes a long.
		side := domain.PositionLong
		if rec.Side == "BUY" {
			side = domain.PositionShort
		}
		err = r.notifier.PositionClosed(ctx, rec.Symbol, side, rec.Quantity, rec.AvgPrice, false)
	} else {
		side := domain.PositionLong
		if rec.Side == "SELL" {
			side = domain.PositionShort
		}
		err = r.notifier.PositionOpened(ctx, rec.Symbol, side, rec.Quantity, rec.AvgPrice, rec.Model)
	}
	if err != nil {
		r.logger.Warn("fill notification failed", slog.String("symbol", rec.Symbol), slog.Any("error", err))
	}
}

var _ engine.Recorder = (*EventRecorder)(nil)
