package scalp

import (
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func candle(o, h, l, c float64) domain.Candle {
	return domain.Candle{Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestBullishEngulfing(t *testing.T) {
	prev := candle(101, 102, 99.5, 100) // red
	cur := candle(99.8, 102.5, 99.6, 101.5)
	if !isEngulfing(prev, cur, true) {
		t.Error("expected bullish engulfing")
	}
	if isEngulfing(prev, cur, false) {
		t.Error("should not count as bearish engulfing")
	}
}

func TestBearishEngulfing(t *testing.T) {
	prev := candle(100, 101.5, 99.8, 101) // green
	cur := candle(101.2, 101.4, 99, 99.5)
	if !isEngulfing(prev, cur, false) {
		t.Error("expected bearish engulfing")
	}
}

func TestHammerAndShootingStar(t *testing.T) {
	hammer := candle(100, 100.6, 98, 100.5) // long lower wick, small upper
	if !isHammer(hammer) {
		t.Error("expected hammer")
	}
	if isShootingStar(hammer) {
		t.Error("hammer should not be a shooting star")
	}

	star := candle(100.5, 103, 99.9, 100) // long upper wick
	if !isShootingStar(star) {
		t.Error("expected shooting star")
	}
	if isHammer(star) {
		t.Error("shooting star should not be a hammer")
	}
}

func TestDoji(t *testing.T) {
	if !isDoji(candle(100, 101, 99, 100.05)) {
		t.Error("expected doji for tiny body")
	}
	if isDoji(candle(100, 101, 99, 100.9)) {
		t.Error("large body should not be a doji")
	}
}

func TestTweezerBottom(t *testing.T) {
	prev := candle(101, 101.5, 99, 99.5)
	cur := candle(99.5, 101, 99.0005, 100.8)
	if !isTweezer(prev, cur, true) {
		t.Error("expected tweezer bottom")
	}
	far := candle(99.5, 101, 98.5, 100.8)
	if isTweezer(prev, far, true) {
		t.Error("mismatched lows should not form a tweezer")
	}
}

func TestMarubozu(t *testing.T) {
	if !isMarubozu(candle(100, 102.05, 99.95, 102), true) {
		t.Error("expected bullish marubozu")
	}
	if isMarubozu(candle(100, 102.05, 99.95, 102), false) {
		t.Error("bullish marubozu should not confirm a short")
	}
	if isMarubozu(candle(100, 102, 98, 101), true) {
		t.Error("wicky candle should not be a marubozu")
	}
}

func TestConfirmingPatternsUsesClosedCandles(t *testing.T) {
	// A strong bullish marubozu as the last closed candle, then a forming
	// candle that must be ignored.
	candles := []domain.Candle{
		candle(100, 101, 99, 100.2),
		candle(100, 100.5, 99.5, 100.1),
		candle(100, 102.05, 99.95, 102), // last closed: marubozu
		candle(102, 102.1, 101.9, 102),  // forming
	}
	if got := confirmingPatterns(candles, domain.SignalLong); got < 1 {
		t.Errorf("expected at least one confirming pattern, got %d", got)
	}
	if got := confirmingPatterns(candles[:2], domain.SignalLong); got != 0 {
		t.Errorf("short history should yield 0, got %d", got)
	}
}
