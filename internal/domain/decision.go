package domain

import "time"

// Action tells the executor what transition the decision requests.
type Action string

const (
	ActionEntry Action = "entry"
	ActionHold  Action = "hold"
	ActionFlip  Action = "flip"
	ActionExit  Action = "exit"
)

// Provenance records where a decision came from.
type Provenance string

const (
	ProvenanceOracle   Provenance = "oracle"
	ProvenanceFallback Provenance = "fallback"
	ProvenanceStrategy Provenance = "strategy"
)

// Decision is the final merged trading instruction for one symbol on one
// tick. LocalEdge/LocalConfidence/LocalBias echo the snapshot's LocalSignal
// and feed the executor's conviction gate.
type Decision struct {
	Symbol     string
	Bias       Bias
	Action     Action
	Confidence float64
	EntryPrice float64 // 0 when not set
	ExitPrice  float64 // 0 when not set
	Reasoning  string
	Source     Provenance

	LocalEdge       float64
	LocalConfidence float64
	LocalBias       Bias
}

// DecisionRecord is the persisted/published form of a Decision, one row per
// evaluated tick.
type DecisionRecord struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Bias       Bias       `json:"bias"`
	Action     Action     `json:"action"`
	Confidence float64    `json:"confidence"`
	EntryPrice float64    `json:"entry_price,omitempty"`
	ExitPrice  float64    `json:"exit_price,omitempty"`
	Reasoning  string     `json:"reasoning"`
	Source     Provenance `json:"source"`
	LocalEdge  float64    `json:"local_edge"`
	Price      float64    `json:"price"` // last price at decision time
	CreatedAt  time.Time  `json:"created_at"`
}
