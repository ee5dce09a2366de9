package domain

import "time"

// PositionSide is the direction of an open futures position.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Bias converts the position side to the equivalent directional bias.
func (s PositionSide) Bias() Bias {
	if s == PositionShort {
		return BiasShort
	}
	return BiasLong
}

// Position is a single open exchange position. At most one Position exists
// per symbol; it is created on a filled entry and destroyed when the live
// exchange quantity reaches ~0.
type Position struct {
	Symbol     string
	Side       PositionSide
	Quantity   float64 // always > 0
	EntryPrice float64
	Leverage   int

	// Strategy metadata, set when the engine itself opened the position.
	Model     StrategyModel
	EntryMove float64 // percent move that triggered the entry
	EntryTime time.Time
}

// OrderFill is the result of a successfully placed order.
type OrderFill struct {
	OrderID     string
	Status      string
	AvgPrice    float64
	ExecutedQty float64
}

// FillRecord is the persisted/published form of an execution result.
type FillRecord struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Side       string        `json:"side"`
	ReduceOnly bool          `json:"reduce_only"`
	Quantity   float64       `json:"quantity"`
	AvgPrice   float64       `json:"avg_price"`
	Status     string        `json:"status"`
	OrderID    string        `json:"order_id"`
	Model      StrategyModel `json:"model"`
	CreatedAt  time.Time     `json:"created_at"`
}
