package scalp

import (
	"fmt"
	"math"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// MeanReversion fades a failed range probe: price pokes outside the value
// area, the move fails, and price closes back inside with RSI near the
// mid-band. The entry points back toward the point of control.
type MeanReversion struct{}

func (MeanReversion) Model() domain.StrategyModel { return domain.ModelMean }

const (
	meanRevProbeLookback = 4
	meanRevRSIBand       = 12.0 // RSI must be within 50±band
)

func (m MeanReversion) Evaluate(in Inputs) domain.Candidate {
	snap := in.Snapshot
	if len(snap.Candles) < meanRevProbeLookback+2 || in.Profile.ValueAreaHigh <= in.Profile.ValueAreaLow {
		return domain.NoCandidate(snap.Symbol, "meanrev: insufficient history")
	}

	last := snap.Candles[len(snap.Candles)-1]
	inside := last.Close < in.Profile.ValueAreaHigh && last.Close > in.Profile.ValueAreaLow
	if !inside {
		return domain.NoCandidate(snap.Symbol, "meanrev: price outside value area")
	}

	var sig domain.CandidateSignal
	var probedLevel float64
	probe := snap.Candles[len(snap.Candles)-1-meanRevProbeLookback:]
	for _, c := range probe {
		if c.High > in.Profile.ValueAreaHigh {
			sig, probedLevel = domain.SignalShort, in.Profile.ValueAreaHigh
		}
		if c.Low < in.Profile.ValueAreaLow {
			sig, probedLevel = domain.SignalLong, in.Profile.ValueAreaLow
		}
	}
	if sig == "" {
		return domain.NoCandidate(snap.Symbol, "meanrev: no failed probe")
	}

	if math.Abs(snap.RSI14-50) > meanRevRSIBand {
		return domain.NoCandidate(snap.Symbol, "meanrev: rsi not neutral")
	}

	flow := FlowRatio(snap.Candles, sig, 6)
	hasFVG := fairValueGap(snap.Candles, sig, 5)

	// Reversion trades against the regime by construction; alignment
	// scores only when the fade agrees with the slower trend.
	regime := 0.0
	if (sig == domain.SignalLong && snap.LastPrice > snap.EMASlow) ||
		(sig == domain.SignalShort && snap.LastPrice < snap.EMASlow) {
		regime = 1
	}

	q := scoreQuality(qualityInputs{
		regimeAligned: regime,
		orderFlow:     orderFlowScore(flow),
		pattern:       patternScore(confirmingPatterns(snap.Candles, sig)),
		rsiAligned:    rsiAligned(snap.RSI14, sig),
		fvgPresent:    boolScore(hasFVG),
		vpProximity:   in.Profile.Proximity(snap.LastPrice),
	}, in.Session, in.Risk)

	return domain.Candidate{
		Symbol:     snap.Symbol,
		Signal:     sig,
		Model:      domain.ModelMean,
		Quality:    q,
		EntryHint:  snap.LastPrice,
		Stop:       structureStopHint(snap.LastPrice, probedLevel, in.TickSize),
		TakeProfit: domain.TakeProfitPlan{RMultiple: meanRevRR, Label: "point of control"},
		Session:    in.Session,
		Risk:       in.Risk,
		Micro:      in.Micro,
		Reasons: []string{
			fmt.Sprintf("failed probe beyond %.6g, back in value area", probedLevel),
			fmt.Sprintf("rsi %.0f near mid, flow %.1f", snap.RSI14, flow),
		},
	}
}
