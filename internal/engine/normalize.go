// Package engine is the decision-and-execution core: quantity normalization,
// margin capping, the decision cache, the cooldown tracker, the position
// ledger, the order executor, and the scheduler loop that drives them.
package engine

import (
	"math"
	"strconv"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// FilterSource provides the current trading filters for a symbol. Reads must
// always see a consistent snapshot of the whole table.
type FilterSource interface {
	Filters(symbol string) (domain.TradingFilters, bool)
}

// quantEps is the truncation epsilon: decimal noise below it is treated as
// exact. stepEps absorbs float error in step-ratio divisions, where the
// noise is relative to the step count.
const (
	quantEps = 1e-12
	stepEps  = 1e-9
)

// Normalizer enforces exchange trading-rule compliance on order sizes.
type Normalizer struct {
	filters FilterSource
}

func NewNormalizer(filters FilterSource) *Normalizer {
	return &Normalizer{filters: filters}
}

// Normalize converts a desired quantity into an exchange-compliant order
// size, or the zero sentinel when the filters cannot be satisfied.
// referencePrice of 0 means "price unknown": notional bounds are skipped.
func (n *Normalizer) Normalize(symbol string, desiredQty, referencePrice float64) domain.NormalizedOrder {
	f, ok := n.filters.Filters(symbol)
	if !ok {
		return domain.NormalizedOrder{}
	}
	return NormalizeWith(f, desiredQty, referencePrice)
}

// NormalizeWith runs the normalization algorithm against explicit filters.
func NormalizeWith(f domain.TradingFilters, desiredQty, referencePrice float64) domain.NormalizedOrder {
	zero := domain.NormalizedOrder{Filters: f}
	if desiredQty <= 0 {
		return zero
	}

	qty := quantizeDown(desiredQty, f.StepSize)

	if f.MinQty > 0 && qty < f.MinQty {
		qty = stepCeil(f.MinQty, f.StepSize)
	}
	if f.MaxQty > 0 && qty > f.MaxQty {
		qty = capQuantity(f.MaxQty, f.StepSize)
	}

	if referencePrice > 0 && f.MinNotional > 0 && qty*referencePrice < f.MinNotional {
		qty = quantizeDown(f.MinNotional/referencePrice, f.StepSize)
		if f.MinQty > 0 && qty < f.MinQty {
			qty = stepCeil(f.MinQty, f.StepSize)
		}
		if f.MaxQty > 0 && qty > f.MaxQty {
			// Bounds are unsatisfiable: the notional floor needs more
			// quantity than the exchange allows.
			return zero
		}
	}
	if f.MaxQty > 0 && qty > f.MaxQty {
		qty = capQuantity(f.MaxQty, f.StepSize)
	}

	// Precision cap: truncate to the tighter of the two precisions, then
	// requantize so the truncation cannot break step alignment.
	if p := precisionCap(f); p >= 0 {
		qty = truncateDecimals(qty, p)
		qty = quantizeDown(qty, f.StepSize)
	}

	if qty <= 0 || (f.MinQty > 0 && qty < f.MinQty) {
		return zero
	}
	if f.MaxQty > 0 && qty > f.MaxQty {
		return zero
	}
	if referencePrice > 0 {
		notional := qty * referencePrice
		// One-step tolerance on the floor: the precision truncation can
		// legitimately land one step under the exact notional boundary.
		if f.MinNotional > 0 && notional < f.MinNotional-f.StepSize*referencePrice {
			return zero
		}
		if f.MaxNotional > 0 && notional > f.MaxNotional {
			return zero
		}
	}

	text := formatQuantity(qty, f)
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil || parsed <= 0 {
		return zero
	}
	return domain.NormalizedOrder{Quantity: parsed, Text: text, Filters: f}
}

// quantizeDown floors the quantity to a step multiple. A zero step rounds to
// 6 decimals instead.
func quantizeDown(qty, step float64) float64 {
	if step <= 0 {
		return math.Round(qty*1e6) / 1e6
	}
	n := math.Floor(qty/step + stepEps)
	return stripStepNoise(n*step, step)
}

// stepCeil raises the quantity to the smallest step multiple >= it.
func stepCeil(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	n := math.Ceil(qty/step - stepEps)
	return stripStepNoise(n*step, step)
}

// capQuantity clamps to maxQty from below. The rounding in quantizeDown can
// land a hair above the cap itself, so the result is re-checked and backed
// off when it does.
func capQuantity(maxQty, step float64) float64 {
	q := quantizeDown(maxQty, step)
	if q > maxQty {
		if step > 0 {
			q = stripStepNoise(q-step, step)
		} else {
			q = math.Floor(maxQty*1e6) / 1e6
		}
	}
	return q
}

// stripStepNoise rounds away the float error that n*step accumulates, at
// the decimal precision the step itself implies.
func stripStepNoise(v, step float64) float64 {
	d := decimalsImplied(step)
	scale := math.Pow10(d)
	return math.Round(v*scale) / scale
}

// precisionCap returns the decimal cap implied by the filters, or -1 when
// neither precision is set.
func precisionCap(f domain.TradingFilters) int {
	switch {
	case f.QuantityPrecision > 0 && f.StepSizePrecision > 0:
		if f.StepSizePrecision < f.QuantityPrecision {
			return f.StepSizePrecision
		}
		return f.QuantityPrecision
	case f.QuantityPrecision > 0:
		return f.QuantityPrecision
	case f.StepSizePrecision > 0:
		return f.StepSizePrecision
	default:
		return -1
	}
}

// truncateDecimals floors the value to n decimals with an epsilon so values
// like 0.0120000000000000004 survive intact.
func truncateDecimals(v float64, n int) float64 {
	scale := math.Pow10(n)
	scaled := v * scale
	// Multiplication noise sits well above quantEps once scaled; snap to
	// the integer when it is within rounding distance.
	if r := math.Round(scaled); math.Abs(scaled-r) < stepEps {
		scaled = r
	}
	return math.Floor(scaled+quantEps) / scale
}

// formatQuantity renders the wire representation: prefer the exchange's
// quantity precision, then the step precision, then the digits implied by
// the step size capped at 8, else 6.
func formatQuantity(qty float64, f domain.TradingFilters) string {
	digits := 6
	switch {
	case f.QuantityPrecision > 0:
		digits = f.QuantityPrecision
	case f.StepSizePrecision > 0:
		digits = f.StepSizePrecision
	case f.StepSize > 0:
		digits = decimalsImplied(f.StepSize)
		if digits > 8 {
			digits = 8
		}
	}
	return strconv.FormatFloat(qty, 'f', digits, 64)
}

// decimalsImplied counts the decimals needed to represent the step size.
func decimalsImplied(step float64) int {
	for d := 0; d <= 8; d++ {
		scaled := step * math.Pow10(d)
		if math.Abs(scaled-math.Round(scaled)) < quantEps*math.Pow10(d) {
			return d
		}
	}
	return 8
}
