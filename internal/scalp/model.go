package scalp

import (
	"math"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Inputs is the shared evaluation context handed to every strategy model on
// a tick. Built once per symbol so the models see identical state.
type Inputs struct {
	Snapshot *domain.MarketSnapshot
	Profile  VolumeProfile
	Session  domain.TradingSession
	Risk     domain.RiskGrade
	Micro    domain.MicrostructureMetrics
	TickSize float64
}

// Strategy is one candidate generator over the shared inputs.
type Strategy interface {
	Model() domain.StrategyModel
	Evaluate(in Inputs) domain.Candidate
}

// Per-model default take-profit R-multiples.
const (
	breakoutRR = 1.8
	meanRevRR  = 1.2
	ema50RR    = 1.5
)

// FlowRatio approximates the buy/sell volume ratio for the direction from
// candle colour over the window: volume on candles closing with the
// direction over volume against it.
func FlowRatio(candles []domain.Candle, sig domain.CandidateSignal, window int) float64 {
	if len(candles) == 0 {
		return 0
	}
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	var with, against float64
	for _, c := range candles[start:] {
		up := c.Bullish()
		if (up && sig == domain.SignalLong) || (!up && sig == domain.SignalShort) {
			with += c.Volume
		} else {
			against += c.Volume
		}
	}
	if against <= 0 {
		if with <= 0 {
			return 0
		}
		return math.Inf(1)
	}
	return with / against
}

// atrStopHint converts the snapshot ATR to a tick-denominated stop hint with
// a 2-tick floor.
func atrStopHint(snap *domain.MarketSnapshot, tickSize, atrMult float64) domain.StopHint {
	ticks := 2
	if tickSize > 0 {
		if t := int(math.Round(snap.ATRAbs() * atrMult / tickSize)); t > ticks {
			ticks = t
		}
	}
	return domain.StopHint{Type: domain.StopATR, Ticks: ticks}
}

// structureStopHint places the stop a small buffer beyond a structure level.
func structureStopHint(price, level, tickSize float64) domain.StopHint {
	ticks := 2
	if tickSize > 0 {
		dist := math.Abs(price-level) + 2*tickSize
		if t := int(math.Round(dist / tickSize)); t > ticks {
			ticks = t
		}
	}
	return domain.StopHint{Type: domain.StopStructure, Ticks: ticks}
}
