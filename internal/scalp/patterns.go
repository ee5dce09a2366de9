package scalp

import (
	"math"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Pattern detection thresholds as fractions of the candle range.
const (
	dojiBodyMax     = 0.1
	marubozuBodyMin = 0.9
	wickDominance   = 2.0 // wick must be this multiple of the body
	tweezerTol      = 0.001
)

// confirmingPatterns counts the candle patterns on the last two closed
// candles that agree with the proposed direction. The count feeds the
// quality scorer's pattern bucket.
func confirmingPatterns(candles []domain.Candle, sig domain.CandidateSignal) int {
	if len(candles) < 3 {
		return 0
	}
	last := candles[len(candles)-2] // last closed candle
	prev := candles[len(candles)-3]
	bullish := sig == domain.SignalLong

	count := 0
	if isEngulfing(prev, last, bullish) {
		count++
	}
	if bullish && isHammer(last) {
		count++
	}
	if !bullish && isShootingStar(last) {
		count++
	}
	if isDoji(last) {
		count++
	}
	if isTweezer(prev, last, bullish) {
		count++
	}
	if isMarubozu(last, bullish) {
		count++
	}
	return count
}

func isEngulfing(prev, cur domain.Candle, bullish bool) bool {
	if bullish {
		return cur.Bullish() && !prev.Bullish() &&
			cur.Close > prev.Open && cur.Open < prev.Close
	}
	return !cur.Bullish() && prev.Bullish() &&
		cur.Close < prev.Open && cur.Open > prev.Close
}

func isHammer(c domain.Candle) bool {
	body := c.Body()
	if body <= 0 || c.Range() <= 0 {
		return false
	}
	lowerWick := math.Min(c.Open, c.Close) - c.Low
	upperWick := c.High - math.Max(c.Open, c.Close)
	return lowerWick >= wickDominance*body && upperWick <= body
}

func isShootingStar(c domain.Candle) bool {
	body := c.Body()
	if body <= 0 || c.Range() <= 0 {
		return false
	}
	lowerWick := math.Min(c.Open, c.Close) - c.Low
	upperWick := c.High - math.Max(c.Open, c.Close)
	return upperWick >= wickDominance*body && lowerWick <= body
}

func isDoji(c domain.Candle) bool {
	r := c.Range()
	return r > 0 && c.Body() <= dojiBodyMax*r
}

func isTweezer(prev, cur domain.Candle, bullish bool) bool {
	if bullish {
		// Tweezer bottom: matching lows, second candle closes up.
		if prev.Low <= 0 {
			return false
		}
		return math.Abs(cur.Low-prev.Low)/prev.Low <= tweezerTol && cur.Bullish()
	}
	if prev.High <= 0 {
		return false
	}
	return math.Abs(cur.High-prev.High)/prev.High <= tweezerTol && !cur.Bullish()
}

func isMarubozu(c domain.Candle, bullish bool) bool {
	r := c.Range()
	if r <= 0 {
		return false
	}
	if c.Body() < marubozuBodyMin*r {
		return false
	}
	return c.Bullish() == bullish
}
