package scalp

import (
	"sort"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// VolumeProfile is a fixed-bin histogram of traded volume by price level
// over the lookback window, reduced to the value-area bounds and point of
// control.
type VolumeProfile struct {
	ValueAreaHigh  float64 // VAH
	ValueAreaLow   float64 // VAL
	PointOfControl float64 // POC
	High           float64 // highest traded price in the window
	Low            float64 // lowest traded price in the window
}

const (
	profileBins      = 24
	valueAreaPortion = 0.70
)

// BuildVolumeProfile histograms each candle's volume at its typical price
// and derives POC plus the 70% value area around it. Returns a zero profile
// when the window is degenerate.
func BuildVolumeProfile(candles []domain.Candle, lookback int) VolumeProfile {
	if len(candles) == 0 {
		return VolumeProfile{}
	}
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	window := candles[start:]

	low, high := window[0].Low, window[0].High
	for _, c := range window {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	if high <= low {
		return VolumeProfile{High: high, Low: low, PointOfControl: high, ValueAreaHigh: high, ValueAreaLow: low}
	}

	binSize := (high - low) / profileBins
	bins := make([]float64, profileBins)
	var total float64
	for _, c := range window {
		typical := (c.High + c.Low + c.Close) / 3
		idx := int((typical - low) / binSize)
		if idx >= profileBins {
			idx = profileBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx] += c.Volume
		total += c.Volume
	}

	poc := 0
	for i, v := range bins {
		if v > bins[poc] {
			poc = i
		}
	}

	// Expand around the POC, greedily taking the heavier neighbour, until
	// the value-area share of volume is covered.
	covered := bins[poc]
	lo, hi := poc, poc
	for covered < valueAreaPortion*total && (lo > 0 || hi < profileBins-1) {
		var below, above float64 = -1, -1
		if lo > 0 {
			below = bins[lo-1]
		}
		if hi < profileBins-1 {
			above = bins[hi+1]
		}
		if above >= below {
			hi++
			covered += above
		} else {
			lo--
			covered += below
		}
	}

	binPrice := func(i int) float64 { return low + (float64(i)+0.5)*binSize }
	return VolumeProfile{
		ValueAreaHigh:  binPrice(hi),
		ValueAreaLow:   binPrice(lo),
		PointOfControl: binPrice(poc),
		High:           high,
		Low:            low,
	}
}

// Proximity scores how close price sits to the nearest profile anchor
// (POC, VAH, VAL): 1 at the level, decaying to 0 at half a value-area width
// away.
func (p VolumeProfile) Proximity(price float64) float64 {
	if price <= 0 || p.ValueAreaHigh <= p.ValueAreaLow {
		return 0
	}
	anchors := []float64{p.PointOfControl, p.ValueAreaHigh, p.ValueAreaLow}
	sort.Float64s(anchors)
	width := (p.ValueAreaHigh - p.ValueAreaLow) / 2
	if width <= 0 {
		return 0
	}
	best := 0.0
	for _, a := range anchors {
		d := price - a
		if d < 0 {
			d = -d
		}
		score := 1 - d/width
		if score > best {
			best = score
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// fairValueGap reports whether the last few candles contain a gap in the
// proposed direction: a price range skipped entirely between candle i-2's
// wick and candle i's wick.
func fairValueGap(candles []domain.Candle, sig domain.CandidateSignal, lookback int) bool {
	if len(candles) < 3 {
		return false
	}
	start := len(candles) - lookback
	if start < 2 {
		start = 2
	}
	for i := start; i < len(candles); i++ {
		a, c := candles[i-2], candles[i]
		switch sig {
		case domain.SignalLong:
			if c.Low > a.High {
				return true
			}
		case domain.SignalShort:
			if c.High < a.Low {
				return true
			}
		}
	}
	return false
}
