package domain

// TradingFilters are the per-symbol exchange trading rules an order quantity
// must satisfy. A zero value for any field means the exchange does not
// enforce that bound.
type TradingFilters struct {
	Symbol            string
	StepSize          float64
	TickSize          float64
	MinQty            float64
	MaxQty            float64
	MinNotional       float64
	MaxNotional       float64
	QuantityPrecision int
	StepSizePrecision int
}

// NormalizedOrder is the output of quantity normalization: a quantity that
// satisfies every filter bound, its exact wire representation, and the
// filters it was validated against. Quantity == 0 is the "do not trade"
// sentinel.
type NormalizedOrder struct {
	Quantity float64
	Text     string
	Filters  TradingFilters
}

// Zero reports whether the order is the do-not-trade sentinel.
func (o NormalizedOrder) Zero() bool { return o.Quantity <= 0 }
