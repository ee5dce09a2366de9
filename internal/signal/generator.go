// Package signal computes the local directional signal: weighted long/short
// scores over the snapshot's derived metrics, reduced to bias, confidence,
// and an edge score.
package signal

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Config tunes the score weights and decision thresholds.
type Config struct {
	// MinScoreGap is the long/short score difference required before the
	// bias leaves flat.
	MinScoreGap float64
	// MomentumWeight scales the 5m/15m change contribution.
	MomentumWeight float64
	// TrendWeight scales the EMA alignment contribution.
	TrendWeight float64
	// FlowWeight scales the volume/OBV/MFI contribution.
	FlowWeight float64
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		MinScoreGap:    0.75,
		MomentumWeight: 1.0,
		TrendWeight:    1.0,
		FlowWeight:     1.0,
	}
}

// Generator derives a LocalSignal from a MarketSnapshot. It is stateless;
// one instance serves all symbols.
type Generator struct {
	cfg    Config
	logger *slog.Logger
}

func NewGenerator(cfg Config, logger *slog.Logger) *Generator {
	if cfg.MinScoreGap <= 0 {
		cfg = DefaultConfig()
	}
	return &Generator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "signal_generator")),
	}
}

// Evaluate scores the snapshot. LongScore and ShortScore accumulate
// non-negative evidence weights; their gap decides the bias and feeds the
// confidence and edge estimates.
func (g *Generator) Evaluate(snap *domain.MarketSnapshot) domain.LocalSignal {
	var long, short float64
	var reasons []string

	// Momentum: recent percent changes, 5m weighted over 15m.
	if snap.Change5m > 0.15 {
		long += g.cfg.MomentumWeight * 1.2
		reasons = append(reasons, fmt.Sprintf("5m +%.2f%%", snap.Change5m))
	} else if snap.Change5m < -0.15 {
		short += g.cfg.MomentumWeight * 1.2
		reasons = append(reasons, fmt.Sprintf("5m %.2f%%", snap.Change5m))
	}
	if snap.Change15m > 0.3 {
		long += g.cfg.MomentumWeight * 0.8
	} else if snap.Change15m < -0.3 {
		short += g.cfg.MomentumWeight * 0.8
	}

	// Trend: EMA alignment and price position relative to the slow EMA.
	if snap.EMAFast > snap.EMASlow && snap.LastPrice > snap.EMASlow {
		long += g.cfg.TrendWeight * 1.0
		reasons = append(reasons, "ema aligned up")
	} else if snap.EMAFast < snap.EMASlow && snap.LastPrice < snap.EMASlow {
		short += g.cfg.TrendWeight * 1.0
		reasons = append(reasons, "ema aligned down")
	}

	// RSI: extremes argue against continuation, mid-band with momentum
	// argues for it.
	switch {
	case snap.RSI14 >= 70:
		short += 0.6
		reasons = append(reasons, fmt.Sprintf("rsi overbought %.0f", snap.RSI14))
	case snap.RSI14 <= 30:
		long += 0.6
		reasons = append(reasons, fmt.Sprintf("rsi oversold %.0f", snap.RSI14))
	case snap.RSI14 > 55:
		long += 0.3
	case snap.RSI14 < 45:
		short += 0.3
	}

	// Flow: volume expansion confirms whichever side momentum points.
	if snap.VolumeRatio >= 1.5 {
		boost := g.cfg.FlowWeight * 0.5
		if snap.Change5m >= 0 {
			long += boost
		} else {
			short += boost
		}
		reasons = append(reasons, fmt.Sprintf("volume %.1fx", snap.VolumeRatio))
	}
	if snap.OBVSlope > 0.05 {
		long += g.cfg.FlowWeight * 0.4
	} else if snap.OBVSlope < -0.05 {
		short += g.cfg.FlowWeight * 0.4
	}
	if snap.MFI >= 80 {
		short += 0.3
	} else if snap.MFI <= 20 {
		long += 0.3
	}

	// Structure: proximity to support favors longs, resistance shorts.
	if snap.Support > 0 && snap.LastPrice > 0 {
		distSupport := (snap.LastPrice - snap.Support) / snap.LastPrice * 100
		distResist := (snap.Resistance - snap.LastPrice) / snap.LastPrice * 100
		if distSupport >= 0 && distSupport < 0.3 {
			long += 0.4
			reasons = append(reasons, "near support")
		}
		if distResist >= 0 && distResist < 0.3 {
			short += 0.4
			reasons = append(reasons, "near resistance")
		}
	}

	sig := domain.LocalSignal{
		LongScore:  long,
		ShortScore: short,
		Bias:       domain.BiasFlat,
	}

	gap := math.Abs(long - short)
	total := long + short
	if gap >= g.cfg.MinScoreGap {
		if long > short {
			sig.Bias = domain.BiasLong
		} else {
			sig.Bias = domain.BiasShort
		}
	}

	// Confidence: dominance of the winning side. Edge: evidence volume
	// scaled by dominance, both clamped to [0,1].
	if total > 0 {
		dominance := gap / total
		sig.Confidence = clamp01(0.5 + dominance/2)
		sig.EdgeScore = clamp01(dominance * math.Min(total/4, 1))
	}
	if sig.Bias == domain.BiasFlat {
		sig.Confidence = clamp01(sig.Confidence * 0.5)
	}
	sig.Reasoning = strings.Join(reasons, "; ")
	return sig
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
