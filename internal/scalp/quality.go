package scalp

import "github.com/p8a1u7l/cointrade5-sub000/internal/domain"

// Quality score weights. The six components sum to 1 before session and
// risk multipliers are applied.
const (
	wRegime    = 0.30
	wOrderFlow = 0.25
	wPattern   = 0.15
	wRSI       = 0.10
	wFVG       = 0.10
	wProfile   = 0.10
)

// qualityInputs are the six component scores, each already in [0,1].
type qualityInputs struct {
	regimeAligned float64
	orderFlow     float64
	pattern       float64
	rsiAligned    float64
	fvgPresent    float64
	vpProximity   float64
}

// scoreQuality combines the components, applies the session weight and the
// risk-grade haircut, and enforces the hard session/risk gate: NY or Bridge
// under High/Critical risk is always zero.
func scoreQuality(in qualityInputs, session domain.TradingSession, risk domain.RiskGrade) float64 {
	if (session == domain.SessionNY || session == domain.SessionBridge) &&
		(risk == domain.RiskHigh || risk == domain.RiskCritical) {
		return 0
	}

	q := wRegime*in.regimeAligned +
		wOrderFlow*in.orderFlow +
		wPattern*in.pattern +
		wRSI*in.rsiAligned +
		wFVG*in.fvgPresent +
		wProfile*in.vpProximity

	q *= sessionWeight(session)
	switch risk {
	case domain.RiskHigh:
		q *= 0.8
	case domain.RiskCritical:
		q *= 0.7
	}
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}

// orderFlowScore buckets the directional volume ratio.
func orderFlowScore(ratio float64) float64 {
	switch {
	case ratio >= 3:
		return 1
	case ratio >= 2:
		return 0.8
	case ratio >= 1.5:
		return 0.5
	default:
		return 0
	}
}

// patternScore buckets the confirming-pattern count.
func patternScore(count int) float64 {
	switch {
	case count >= 3:
		return 1
	case count == 2:
		return 0.66
	case count == 1:
		return 0.33
	default:
		return 0
	}
}

// rsiAligned scores RSI agreement with the direction: mid-band momentum for
// continuation entries, without chasing exhaustion.
func rsiAligned(rsi float64, sig domain.CandidateSignal) float64 {
	switch sig {
	case domain.SignalLong:
		if rsi >= 50 && rsi <= 70 {
			return 1
		}
		if rsi > 40 && rsi < 50 {
			return 0.5
		}
	case domain.SignalShort:
		if rsi >= 30 && rsi <= 50 {
			return 1
		}
		if rsi > 50 && rsi < 60 {
			return 0.5
		}
	}
	return 0
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
