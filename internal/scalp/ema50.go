package scalp

import (
	"fmt"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// EMA50Retest trades a fresh cross of the 50-period EMA: an above-average
// body through the EMA, a retrace back to it that holds, and a break of the
// nearest swing level in the cross direction.
type EMA50Retest struct{}

func (EMA50Retest) Model() domain.StrategyModel { return domain.ModelEMA50 }

const (
	ema50CrossLookback = 6
	ema50SwingLookback = 12
	ema50BodyMult      = 1.2
)

func (e EMA50Retest) Evaluate(in Inputs) domain.Candidate {
	snap := in.Snapshot
	if len(snap.Candles) < 55 || snap.EMASlow <= 0 {
		return domain.NoCandidate(snap.Symbol, "ema50: insufficient history")
	}

	last := snap.Candles[len(snap.Candles)-1]
	var sig domain.CandidateSignal
	switch {
	case snap.LastPrice > snap.EMASlow:
		sig = domain.SignalLong
	case snap.LastPrice < snap.EMASlow:
		sig = domain.SignalShort
	default:
		return domain.NoCandidate(snap.Symbol, "ema50: on the line")
	}

	crossIdx, ok := recentCross(snap.Candles, snap.EMASlow, sig, ema50CrossLookback)
	if !ok {
		return domain.NoCandidate(snap.Symbol, "ema50: no recent cross")
	}

	crossBody := snap.Candles[crossIdx].Body()
	avgBody := avgBodyOf(snap.Candles, 20)
	if avgBody <= 0 || crossBody < ema50BodyMult*avgBody {
		return domain.NoCandidate(snap.Symbol, "ema50: weak cross candle")
	}

	if !retestHeld(snap.Candles, crossIdx, snap.EMASlow, sig) {
		return domain.NoCandidate(snap.Symbol, "ema50: retest not confirmed")
	}

	swing, broke := swingBreak(snap.Candles, sig, ema50SwingLookback)
	if !broke {
		return domain.NoCandidate(snap.Symbol, "ema50: swing intact")
	}

	flow := FlowRatio(snap.Candles, sig, 8)
	hasFVG := fairValueGap(snap.Candles, sig, 5)

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
		vpProximity:   in.Profile.Proximity(snap.EMASlow),
	}, in.Session, in.Risk)

	return domain.Candidate{
		Symbol:     snap.Symbol,
		Signal:     sig,
		Model:      domain.ModelEMA50,
		Quality:    q,
		EntryHint:  snap.EMASlow,
		Stop:       atrStopHint(snap, in.TickSize, 1.0),
		TakeProfit: domain.TakeProfitPlan{RMultiple: ema50RR, Label: "trend continuation"},
		Session:    in.Session,
		Risk:       in.Risk,
		Micro:      in.Micro,
		Reasons: []string{
			fmt.Sprintf("ema50 cross %s held retest", sideDir(sig)),
			fmt.Sprintf("swing %.6g broken, body %.1fx avg", swing, last.Body()/avgBody),
		},
	}
}

// recentCross finds the candle within lookback that closed through the EMA
// in the signal direction from the other side.
func recentCross(candles []domain.Candle, ema float64, sig domain.CandidateSignal, lookback int) (int, bool) {
	start := len(candles) - lookback
	if start < 1 {
		start = 1
	}
	for i := len(candles) - 1; i >= start; i-- {
		prev, cur := candles[i-1], candles[i]
		if sig == domain.SignalLong && prev.Close <= ema && cur.Close > ema {
			return i, true
		}
		if sig == domain.SignalShort && prev.Close >= ema && cur.Close < ema {
			return i, true
		}
	}
	return 0, false
}

// retestHeld reports whether, after the cross, price came back to the EMA
// and closed on the cross side again.
func retestHeld(candles []domain.Candle, crossIdx int, ema float64, sig domain.CandidateSignal) bool {
	touched := false
	for i := crossIdx + 1; i < len(candles); i++ {
		c := candles[i]
		if sig == domain.SignalLong {
			if c.Low <= ema {
				touched = true
			}
			if touched && c.Close > ema {
				return true
			}
		} else {
			if c.High >= ema {
				touched = true
			}
			if touched && c.Close < ema {
				return true
			}
		}
	}
	return false
}

// swingBreak finds the most recent swing extreme (excluding the last two
// candles) and reports whether the last close took it out.
func swingBreak(candles []domain.Candle, sig domain.CandidateSignal, lookback int) (float64, bool) {
	end := len(candles) - 2
	start := end - lookback
	if start < 0 {
		start = 0
	}
	if end <= start {
		return 0, false
	}
	last := candles[len(candles)-1]
	if sig == domain.SignalLong {
		var swing float64
		for i := start; i < end; i++ {
			if candles[i].High > swing {
				swing = candles[i].High
			}
		}
		return swing, last.Close > swing
	}
	swing := candles[start].Low
	for i := start; i < end; i++ {
		if candles[i].Low < swing {
			swing = candles[i].Low
		}
	}
	return swing, last.Close < swing
}

func sideDir(sig domain.CandidateSignal) string {
	if sig == domain.SignalLong {
		return "up"
	}
	return "down"
}
