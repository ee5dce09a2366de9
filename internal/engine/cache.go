package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// OracleResponse is the strategy oracle's answer for one symbol.
type OracleResponse struct {
	Bias       domain.Bias
	Confidence float64
	Reasoning  string
}

// StrategyOracle is the external decision service. It may fail or time out;
// the cache degrades to a safe fallback decision.
type StrategyOracle interface {
	Request(ctx context.Context, snap *domain.MarketSnapshot) (OracleResponse, error)
}

// Staleness thresholds for reusing a cached oracle decision.
const (
	maxContextShift = 0.12
	freshDriftPct   = 0.12 // percent
	freshMaxAge     = 240 * time.Second
	cooldownMaxAge  = 45 * time.Second
	cooldownDrift   = 0.25 // percent
)

// Local-signal strength thresholds that let the local read override a less
// confident oracle.
const (
	strongConfAndEdgeConf = 0.68
	strongConfAndEdgeEdge = 0.48
	strongConfAlone       = 0.82
	strongEdgeAlone       = 0.62
)

// contextSnapshot captures the metrics whose movement defines context shift.
type contextSnapshot struct {
	change5m   float64
	change15m  float64
	rsi        float64
	volRatio   float64
	edge       float64
	atrPercent float64
	confidence float64
	bias       domain.Bias
}

func snapshotContext(s *domain.MarketSnapshot) contextSnapshot {
	return contextSnapshot{
		change5m:   s.Change5m,
		change15m:  s.Change15m,
		rsi:        s.RSI14,
		volRatio:   s.VolumeRatio,
		edge:       s.Signal.EdgeScore,
		atrPercent: s.ATRPercent,
		confidence: s.Signal.Confidence,
		bias:       s.Signal.Bias,
	}
}

// contextShift is the maximum scale-normalized metric delta between two
// snapshots, infinite when the local bias flipped.
func contextShift(prev, cur contextSnapshot) float64 {
	if prev.bias != cur.bias {
		return math.Inf(1)
	}
	shift := math.Abs(cur.change5m-prev.change5m) / 6
	shift = math.Max(shift, math.Abs(cur.change15m-prev.change15m)/10)
	shift = math.Max(shift, math.Abs(cur.rsi-prev.rsi)/100)
	shift = math.Max(shift, math.Abs(cur.volRatio-prev.volRatio)/5)
	shift = math.Max(shift, math.Abs(cur.edge-prev.edge))
	shift = math.Max(shift, math.Abs(cur.atrPercent-prev.atrPercent)/5)
	shift = math.Max(shift, math.Abs(cur.confidence-prev.confidence))
	return shift
}

type cacheEntry struct {
	decision domain.Decision
	refPrice float64
	at       time.Time
	context  contextSnapshot
}

// DecisionCache decides per symbol whether to reuse the cached oracle
// decision or refresh it, and synthesizes safe fallbacks on oracle failure.
// All mutation happens from the single scheduler context; entries are
// replaced whole, never merged.
type DecisionCache struct {
	oracle  StrategyOracle
	entries map[string]*cacheEntry
	now     func() time.Time
	logger  *slog.Logger
}

func NewDecisionCache(oracle StrategyOracle, logger *slog.Logger) *DecisionCache {
	return &DecisionCache{
		oracle:  oracle,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
		logger:  logger.With(slog.String("component", "decision_cache")),
	}
}

// Decide returns the decision for this tick: a verbatim cache reuse when the
// context is stable, otherwise a fresh oracle call reconciled with the local
// signal, otherwise a fallback. hasPosition selects the failure mode.
func (c *DecisionCache) Decide(ctx context.Context, snap *domain.MarketSnapshot, hasPosition bool) domain.Decision {
	cur := snapshotContext(snap)

	if entry, ok := c.entries[snap.Symbol]; ok && entry.decision.Source == domain.ProvenanceOracle {
		if d, reused := c.tryReuse(entry, snap, cur); reused {
			return d
		}
	}

	resp, err := c.oracle.Request(ctx, snap)
	if err != nil {
		c.logger.Warn("oracle request failed",
			slog.String("symbol", snap.Symbol),
			slog.Bool("has_position", hasPosition),
			slog.Any("error", err),
		)
		return c.fallback(snap, hasPosition)
	}

	d := c.reconcile(snap, resp)
	c.entries[snap.Symbol] = &cacheEntry{
		decision: d,
		refPrice: snap.LastPrice,
		at:       c.now(),
		context:  cur,
	}
	return d
}

func (c *DecisionCache) tryReuse(entry *cacheEntry, snap *domain.MarketSnapshot, cur contextSnapshot) (domain.Decision, bool) {
	if snap.LastPrice <= 0 || entry.refPrice <= 0 {
		return domain.Decision{}, false
	}
	driftPct := math.Abs(snap.LastPrice-entry.refPrice) / entry.refPrice * 100
	age := c.now().Sub(entry.at)
	shift := contextShift(entry.context, cur)

	if shift >= maxContextShift {
		return domain.Decision{}, false
	}
	fresh := driftPct < freshDriftPct && age < freshMaxAge
	shortWindow := age < cooldownMaxAge && driftPct < cooldownDrift
	if !fresh && !shortWindow {
		return domain.Decision{}, false
	}

	d := entry.decision
	d.Reasoning = fmt.Sprintf("%s [cached %ds ago, drift %.3f%%]", d.Reasoning, int(age.Seconds()), driftPct)
	return d, true
}

// reconcile merges the oracle response with the local signal.
func (c *DecisionCache) reconcile(snap *domain.MarketSnapshot, resp OracleResponse) domain.Decision {
	sig := snap.Signal
	bias := resp.Bias
	if bias == "" {
		bias = sig.Bias
	}
	conf := resp.Confidence
	if conf < sig.Confidence {
		conf = sig.Confidence
	}

	reasoning := resp.Reasoning
	strong := (sig.Confidence >= strongConfAndEdgeConf && sig.EdgeScore >= strongConfAndEdgeEdge) ||
		sig.Confidence >= strongConfAlone ||
		sig.EdgeScore >= strongEdgeAlone
	if strong && conf < sig.Confidence {
		conf = sig.Confidence
	}
	if strong {
		reasoning = fmt.Sprintf("%s [local signal strong: conf %.2f edge %.2f]", reasoning, sig.Confidence, sig.EdgeScore)
	}

	action := domain.ActionEntry
	if bias == domain.BiasFlat {
		action = domain.ActionHold
	}

	return domain.Decision{
		Symbol:          snap.Symbol,
		Bias:            bias,
		Action:          action,
		Confidence:      conf,
		Reasoning:       reasoning,
		Source:          domain.ProvenanceOracle,
		LocalEdge:       sig.EdgeScore,
		LocalConfidence: sig.Confidence,
		LocalBias:       sig.Bias,
	}
}

// fallback synthesizes the oracle-failure decision: flatten an open
// position, hold when flat. Fallback decisions are never cached as oracle
// hits.
func (c *DecisionCache) fallback(snap *domain.MarketSnapshot, hasPosition bool) domain.Decision {
	sig := snap.Signal
	if hasPosition {
		return domain.Decision{
			Symbol:          snap.Symbol,
			Bias:            domain.BiasFlat,
			Action:          domain.ActionExit,
			Confidence:      math.Max(sig.Confidence, 0.8),
			Reasoning:       "oracle unavailable with open position, forcing exit",
			Source:          domain.ProvenanceFallback,
			LocalEdge:       sig.EdgeScore,
			LocalConfidence: sig.Confidence,
			LocalBias:       sig.Bias,
		}
	}
	return domain.Decision{
		Symbol:          snap.Symbol,
		Bias:            domain.BiasFlat,
		Action:          domain.ActionHold,
		Confidence:      0.2,
		Reasoning:       "oracle unavailable, holding flat",
		Source:          domain.ProvenanceFallback,
		LocalEdge:       sig.EdgeScore,
		LocalConfidence: sig.Confidence,
		LocalBias:       sig.Bias,
	}
}

// Invalidate drops the cached entry for a symbol.
func (c *DecisionCache) Invalidate(symbol string) {
	delete(c.entries, symbol)
}
