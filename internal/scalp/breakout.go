package scalp

import (
	"fmt"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Breakout fires when price clears the volume-profile extreme on an
// oversized candle with supporting order flow, a fair-value gap, and a
// retrace-and-reclaim confirmation within the last 2-3 candles.
type Breakout struct{}

func (Breakout) Model() domain.StrategyModel { return domain.ModelBreakout }

const breakoutBodyMult = 1.5

func (b Breakout) Evaluate(in Inputs) domain.Candidate {
	snap := in.Snapshot
	if len(snap.Candles) < 25 || in.Profile.High <= in.Profile.Low {
		return domain.NoCandidate(snap.Symbol, "breakout: insufficient history")
	}

	last := snap.Candles[len(snap.Candles)-1]
	avgBody := avgBodyOf(snap.Candles, 20)

	var sig domain.CandidateSignal
	var level float64
	switch {
	case last.Close > in.Profile.High && last.Bullish():
		sig, level = domain.SignalLong, in.Profile.High
	case last.Close < in.Profile.Low && !last.Bullish():
		sig, level = domain.SignalShort, in.Profile.Low
	default:
		return domain.NoCandidate(snap.Symbol, "breakout: no range break")
	}

	if avgBody <= 0 || last.Body() < breakoutBodyMult*avgBody {
		return domain.NoCandidate(snap.Symbol, "breakout: body below threshold")
	}

	flow := FlowRatio(snap.Candles, sig, 10)
	if orderFlowScore(flow) == 0 {
		return domain.NoCandidate(snap.Symbol, "breakout: order flow against")
	}

	hasFVG := fairValueGap(snap.Candles, sig, 5)
	if !hasFVG {
		return domain.NoCandidate(snap.Symbol, "breakout: no imbalance")
	}

	if !reclaimed(snap.Candles, sig, level, 3) {
		return domain.NoCandidate(snap.Symbol, "breakout: no retrace-and-reclaim")
	}

	regime := 0.0
	if (sig == domain.SignalLong && snap.EMAFast > snap.EMASlow) ||
		(sig == domain.SignalShort && snap.EMAFast < snap.EMASlow) {
		regime = 1
	}

	q := scoreQuality(qualityInputs{
		regimeAligned: regime,
		orderFlow:     orderFlowScore(flow),
		pattern:       patternScore(confirmingPatterns(snap.Candles, sig)),
		rsiAligned:    rsiAligned(snap.RSI14, sig),
		fvgPresent:    boolScore(hasFVG),
		vpProximity:   in.Profile.Proximity(level),
	}, in.Session, in.Risk)

	return domain.Candidate{
		Symbol:     snap.Symbol,
		Signal:     sig,
		Model:      domain.ModelBreakout,
		Quality:    q,
		EntryHint:  level,
		Stop:       structureStopHint(snap.LastPrice, level, in.TickSize),
		TakeProfit: domain.TakeProfitPlan{RMultiple: breakoutRR, Label: "range extension"},
		Session:    in.Session,
		Risk:       in.Risk,
		Micro:      in.Micro,
		Reasons: []string{
			fmt.Sprintf("broke profile %s at %.6g", sideWord(sig), level),
			fmt.Sprintf("body %.1fx avg, flow %.1f", last.Body()/avgBody, flow),
		},
	}
}

// reclaimed checks that within the last n candles price retraced to the
// broken level and closed back on the breakout side.
func reclaimed(candles []domain.Candle, sig domain.CandidateSignal, level float64, n int) bool {
	start := len(candles) - n
	if start < 0 {
		start = 0
	}
	touched := false
	for _, c := range candles[start:] {
		switch sig {
		case domain.SignalLong:
			if c.Low <= level {
				touched = true
			}
			if touched && c.Close > level {
				return true
			}
		case domain.SignalShort:
			if c.High >= level {
				touched = true
			}
			if touched && c.Close < level {
				return true
			}
		}
	}
	return false
}

func avgBodyOf(candles []domain.Candle, n int) float64 {
	end := len(candles) - 1
	start := end - n
	if start < 0 {
		start = 0
	}
	if end <= start {
		return 0
	}
	var sum float64
	for i := start; i < end; i++ {
		sum += candles[i].Body()
	}
	return sum / float64(end-start)
}

func sideWord(sig domain.CandidateSignal) string {
	if sig == domain.SignalLong {
		return "high"
	}
	return "low"
}
