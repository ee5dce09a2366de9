package domain

import "time"

// CandidateSignal is the direction proposed by a scalp strategy model.
type CandidateSignal string

const (
	SignalLong  CandidateSignal = "LONG"
	SignalShort CandidateSignal = "SHORT"
	SignalNone  CandidateSignal = "NONE"
)

// StrategyModel identifies which candidate generator produced a Candidate.
type StrategyModel string

const (
	ModelBreakout StrategyModel = "BREAKOUT"
	ModelMean     StrategyModel = "MEAN"
	ModelEMA50    StrategyModel = "EMA50"
	ModelNone     StrategyModel = "NONE"
)

// TradingSession partitions the day by the dominant liquidity venue.
type TradingSession string

const (
	SessionAsia   TradingSession = "ASIA"
	SessionLondon TradingSession = "LONDON"
	SessionNY     TradingSession = "NY"
	SessionBridge TradingSession = "BRIDGE"
)

// RiskGrade is the concurrent news/shock risk assessment for a symbol.
type RiskGrade string

const (
	RiskNone     RiskGrade = "None"
	RiskElevated RiskGrade = "Elevated"
	RiskHigh     RiskGrade = "High"
	RiskCritical RiskGrade = "Critical"
)

// StopHintType distinguishes how a stop distance was derived.
type StopHintType string

const (
	StopATR       StopHintType = "atr"
	StopStructure StopHintType = "structure"
)

// StopHint carries the stop placement proposal of a candidate: a derivation
// type plus a distance expressed in price ticks.
type StopHint struct {
	Type  StopHintType
	Ticks int
}

// TakeProfitPlan expresses the exit target as a multiple of the initial risk
// distance plus a human-readable target label.
type TakeProfitPlan struct {
	RMultiple float64
	Label     string
}

// MicrostructureMetrics is a point-in-time snapshot of execution conditions
// taken from the live quote feed.
type MicrostructureMetrics struct {
	Symbol       string
	SpreadBps    float64
	SlippageBps  float64 // expected slippage for the configured order notional
	LatencyMs    float64
	QuoteAgeMs   float64
	BidDepth     float64 // base-asset quantity at best bid
	AskDepth     float64
	ObservedAt   time.Time
}

// DepthBias returns the order-book depth ratio in favour of the given side:
// bid/ask for longs, ask/bid for shorts. Zero depth on the denominator yields
// zero so a dead book never passes a gate.
func (m MicrostructureMetrics) DepthBias(sig CandidateSignal) float64 {
	switch sig {
	case SignalLong:
		if m.AskDepth <= 0 {
			return 0
		}
		return m.BidDepth / m.AskDepth
	case SignalShort:
		if m.BidDepth <= 0 {
			return 0
		}
		return m.AskDepth / m.BidDepth
	default:
		return 0
	}
}

// Candidate is one scored trade proposal produced by a strategy model.
// Quality is in [0,1]; the microstructure gate may force Signal to NONE
// without touching Quality.
type Candidate struct {
	Symbol     string
	Signal     CandidateSignal
	Model      StrategyModel
	Quality    float64
	EntryHint  float64
	Stop       StopHint
	TakeProfit TakeProfitPlan
	Session    TradingSession
	Risk       RiskGrade
	Micro      MicrostructureMetrics
	Reasons    []string
}

// NoCandidate returns the empty candidate used when no model fires or policy
// disallows.
func NoCandidate(symbol string, reason string) Candidate {
	return Candidate{
		Symbol:  symbol,
		Signal:  SignalNone,
		Model:   ModelNone,
		Reasons: []string{reason},
	}
}
