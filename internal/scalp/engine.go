package scalp

import (
	"context"
	"log/slog"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// MicroSource provides the live microstructure snapshot for a symbol,
// typically backed by the bookTicker feed.
type MicroSource interface {
	Metrics(symbol string) (domain.MicrostructureMetrics, bool)
}

// RiskSource grades the concurrent news/shock risk for a symbol.
type RiskSource interface {
	Grade(symbol string) domain.RiskGrade
}

// StaticRisk is a RiskSource that always returns the same grade.
type StaticRisk struct{ RiskGrade domain.RiskGrade }

func (s StaticRisk) Grade(string) domain.RiskGrade { return s.RiskGrade }

// Engine runs the three strategy models over a snapshot, gates the results,
// and defers the final pick to the policy merger.
type Engine struct {
	strategies []Strategy
	gate       *Gate
	merger     *Merger
	micro      MicroSource
	risk       RiskSource
	logger     *slog.Logger

	profileLookback int
}

func NewEngine(gate *Gate, merger *Merger, micro MicroSource, risk RiskSource, logger *slog.Logger) *Engine {
	if risk == nil {
		risk = StaticRisk{RiskGrade: domain.RiskNone}
	}
	return &Engine{
		strategies:      []Strategy{Breakout{}, MeanReversion{}, EMA50Retest{}},
		gate:            gate,
		merger:          merger,
		micro:           micro,
		risk:            risk,
		logger:          logger.With(slog.String("component", "scalp_engine")),
		profileLookback: 60,
	}
}

// Evaluate produces the final candidate for one symbol tick.
func (e *Engine) Evaluate(ctx context.Context, snap *domain.MarketSnapshot, tickSize float64) domain.Candidate {
	session := SessionAt(time.Now().UTC())
	risk := e.risk.Grade(snap.Symbol)

	micro, ok := e.micro.Metrics(snap.Symbol)
	if !ok {
		// No live quote data: candidates would fail the gate on quote
		// age anyway, skip the model work.
		return domain.NoCandidate(snap.Symbol, "no microstructure data")
	}

	in := Inputs{
		Snapshot: snap,
		Profile:  BuildVolumeProfile(snap.Candles, e.profileLookback),
		Session:  session,
		Risk:     risk,
		Micro:    micro,
		TickSize: tickSize,
	}

	candidates := make([]domain.Candidate, 0, len(e.strategies))
	for _, s := range e.strategies {
		c := e.gate.Admit(s.Evaluate(in))
		candidates = append(candidates, c)
		if c.Signal != domain.SignalNone {
			e.logger.Debug("candidate",
				slog.String("symbol", snap.Symbol),
				slog.String("model", string(c.Model)),
				slog.String("side", string(c.Signal)),
				slog.Float64("quality", c.Quality),
			)
		}
	}

	return e.merger.Merge(ctx, snap, session, risk, candidates)
}
