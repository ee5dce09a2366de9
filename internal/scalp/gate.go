package scalp

import (
	"fmt"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// GateConfig holds the microstructure admission caps. Depth baselines are
// the minimum order-book bias (with-side depth over against-side depth)
// required per session.
type GateConfig struct {
	MaxSpreadBps   float64
	MaxSlippageBps float64
	MaxLatencyMs   float64
	MaxQuoteAgeMs  float64
	DepthBaseline  map[domain.TradingSession]float64
}

// DefaultGateConfig returns the production admission caps.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxSpreadBps:   3.0,
		MaxSlippageBps: 5.0,
		MaxLatencyMs:   250,
		MaxQuoteAgeMs:  1500,
		DepthBaseline: map[domain.TradingSession]float64{
			domain.SessionLondon: 0.9,
			domain.SessionNY:     0.9,
			domain.SessionBridge: 1.0,
			domain.SessionAsia:   1.1,
		},
	}
}

// highRiskTighten shrinks every cap when the risk grade is High.
const highRiskTighten = 0.75

// Gate enforces execution-condition admission. A breach forces the
// candidate's signal to NONE without touching its quality.
type Gate struct {
	cfg GateConfig
}

func NewGate(cfg GateConfig) *Gate {
	if cfg.MaxSpreadBps <= 0 {
		cfg = DefaultGateConfig()
	}
	return &Gate{cfg: cfg}
}

// Admit checks the candidate's microstructure snapshot against the caps and
// enforces the session/risk lockout. Candidates already at NONE pass through
// unchanged.
func (g *Gate) Admit(c domain.Candidate) domain.Candidate {
	if c.Signal == domain.SignalNone {
		return c
	}

	// NY and Bridge sessions under elevated risk are locked out entirely,
	// whatever the candidate scored.
	if (c.Session == domain.SessionNY || c.Session == domain.SessionBridge) &&
		(c.Risk == domain.RiskHigh || c.Risk == domain.RiskCritical) {
		c.Signal = domain.SignalNone
		c.Reasons = append(c.Reasons, "gate: session risk lockout")
		return c
	}

	spreadCap := g.cfg.MaxSpreadBps
	slipCap := g.cfg.MaxSlippageBps
	latCap := g.cfg.MaxLatencyMs
	ageCap := g.cfg.MaxQuoteAgeMs
	if c.Risk == domain.RiskHigh {
		spreadCap *= highRiskTighten
		slipCap *= highRiskTighten
		latCap *= highRiskTighten
		ageCap *= highRiskTighten
	}

	reject := func(reason string) domain.Candidate {
		c.Signal = domain.SignalNone
		c.Reasons = append(c.Reasons, "gate: "+reason)
		return c
	}

	m := c.Micro
	if m.SpreadBps > spreadCap {
		return reject(fmt.Sprintf("spread %.1fbp > %.1fbp", m.SpreadBps, spreadCap))
	}
	if m.SlippageBps > slipCap {
		return reject(fmt.Sprintf("slippage %.1fbp > %.1fbp", m.SlippageBps, slipCap))
	}
	if m.LatencyMs > latCap {
		return reject(fmt.Sprintf("latency %.0fms > %.0fms", m.LatencyMs, latCap))
	}
	if m.QuoteAgeMs > ageCap {
		return reject(fmt.Sprintf("quote age %.0fms > %.0fms", m.QuoteAgeMs, ageCap))
	}

	baseline, ok := g.cfg.DepthBaseline[c.Session]
	if !ok {
		baseline = 1.0
	}
	if bias := m.DepthBias(c.Signal); bias < baseline {
		return reject(fmt.Sprintf("depth bias %.2f < %.2f", bias, baseline))
	}
	return c
}
