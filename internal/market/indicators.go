// Package market builds MarketSnapshots from exchange candle data and
// derives the technical metrics the signal generator consumes.
package market

import (
	"math"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// EMA returns the n-period exponential moving average of Close, aligned to
// the input. Indices before the first full window are seeded with an SMA.
func EMA(c []domain.Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) == 0 {
		return out
	}
	k := 2.0 / float64(n+1)
	var sum float64
	for i := range c {
		if i < n {
			sum += c[i].Close
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = c[i].Close*k + out[i-1]*(1-k)
	}
	return out
}

// RSI returns the n-period Relative Strength Index with Wilder smoothing.
// Indices before the first full window are zero.
func RSI(c []domain.Candle, n int) []float64 {
	out := make([]float64, len(c))
	if n <= 0 || len(c) < 2 {
		return out
	}
	var gain, loss float64
	for i := 1; i < len(c); i++ {
		d := c[i].Close - c[i-1].Close
		if i <= n {
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
			if i == n {
				gain /= float64(n)
				loss /= float64(n)
				out[i] = rsiValue(gain, loss)
			}
		} else {
			if d > 0 {
				gain = (gain*float64(n-1) + d) / float64(n)
				loss = (loss * float64(n-1)) / float64(n)
			} else {
				gain = (gain * float64(n-1)) / float64(n)
				loss = (loss*float64(n-1) - d) / float64(n)
			}
			out[i] = rsiValue(gain, loss)
		}
	}
	return out
}

// rsiValue converts smoothed gain/loss averages into an index reading. A
// zero loss average is a one-sided market: fully overbought when any gain
// exists, neutral when the window is flat.
func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		if gain > 0 {
			return 100
		}
		return 50
	}
	return 100.0 - (100.0 / (1.0 + gain/loss))
}

// ATRPercent returns the n-period average true range as a percentage of the
// last close, or 0 when there is not enough history.
func ATRPercent(c []domain.Candle, n int) float64 {
	if n <= 0 || len(c) < n+1 {
		return 0
	}
	var sum float64
	for i := len(c) - n; i < len(c); i++ {
		tr := c[i].High - c[i].Low
		if prev := c[i-1].Close; prev > 0 {
			tr = math.Max(tr, math.Abs(c[i].High-prev))
			tr = math.Max(tr, math.Abs(c[i].Low-prev))
		}
		sum += tr
	}
	last := c[len(c)-1].Close
	if last <= 0 {
		return 0
	}
	return (sum / float64(n)) / last * 100
}

// VolumeRatio returns the last candle's volume over the n-period average
// (excluding the last candle). A flat market returns 1.
func VolumeRatio(c []domain.Candle, n int) float64 {
	if n <= 0 || len(c) < n+1 {
		return 1
	}
	var sum float64
	for i := len(c) - 1 - n; i < len(c)-1; i++ {
		sum += c[i].Volume
	}
	avg := sum / float64(n)
	if avg <= 0 {
		return 1
	}
	return c[len(c)-1].Volume / avg
}

// VolumeAccel returns the ratio of the last m candles' average volume to the
// prior n candles' average, measuring short-term volume pickup.
func VolumeAccel(c []domain.Candle, m, n int) float64 {
	if m <= 0 || n <= 0 || len(c) < m+n {
		return 1
	}
	var recent, base float64
	for i := len(c) - m; i < len(c); i++ {
		recent += c[i].Volume
	}
	for i := len(c) - m - n; i < len(c)-m; i++ {
		base += c[i].Volume
	}
	baseAvg := base / float64(n)
	if baseAvg <= 0 {
		return 1
	}
	return (recent / float64(m)) / baseAvg
}

// MFI returns the n-period Money Flow Index of the series tail, or 50 when
// there is not enough history.
func MFI(c []domain.Candle, n int) float64 {
	if n <= 0 || len(c) < n+1 {
		return 50
	}
	var posFlow, negFlow float64
	for i := len(c) - n; i < len(c); i++ {
		tp := (c[i].High + c[i].Low + c[i].Close) / 3
		prevTP := (c[i-1].High + c[i-1].Low + c[i-1].Close) / 3
		flow := tp * c[i].Volume
		if tp > prevTP {
			posFlow += flow
		} else if tp < prevTP {
			negFlow += flow
		}
	}
	if negFlow == 0 {
		if posFlow == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+posFlow/negFlow)
}

// OBVSlope returns the per-candle slope of on-balance volume over the last n
// candles, normalized by the average volume so symbols of different
// liquidity are comparable. Zero when history is short.
func OBVSlope(c []domain.Candle, n int) float64 {
	if n <= 1 || len(c) < n+1 {
		return 0
	}
	var obv, avgVol float64
	start := len(c) - n
	for i := start; i < len(c); i++ {
		switch {
		case c[i].Close > c[i-1].Close:
			obv += c[i].Volume
		case c[i].Close < c[i-1].Close:
			obv -= c[i].Volume
		}
		avgVol += c[i].Volume
	}
	avgVol /= float64(n)
	if avgVol <= 0 {
		return 0
	}
	return obv / avgVol / float64(n)
}

// SupportResistance returns the lowest low and highest high over the last n
// candles, excluding the current (possibly unfinished) candle.
func SupportResistance(c []domain.Candle, n int) (support, resistance float64) {
	if len(c) < 2 {
		return 0, 0
	}
	end := len(c) - 1
	start := end - n
	if start < 0 {
		start = 0
	}
	support = math.MaxFloat64
	for i := start; i < end; i++ {
		if c[i].Low < support {
			support = c[i].Low
		}
		if c[i].High > resistance {
			resistance = c[i].High
		}
	}
	if support == math.MaxFloat64 {
		support = 0
	}
	return support, resistance
}

// PercentChange returns the percent change of Close over the last n candles,
// or 0 when history is short.
func PercentChange(c []domain.Candle, n int) float64 {
	if n <= 0 || len(c) < n+1 {
		return 0
	}
	prev := c[len(c)-1-n].Close
	if prev <= 0 {
		return 0
	}
	return (c[len(c)-1].Close - prev) / prev * 100
}
