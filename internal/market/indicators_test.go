package market

import (
	"math"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func closes(vals ...float64) []domain.Candle {
	out := make([]domain.Candle, len(vals))
	for i, v := range vals {
		out[i] = domain.Candle{Open: v, High: v + 1, Low: v - 1, Close: v, Volume: 100}
	}
	return out
}

func TestEMAConvergesToConstant(t *testing.T) {
	c := closes(10, 10, 10, 10, 10, 10, 10, 10, 10, 10)
	ema := EMA(c, 5)
	last := ema[len(ema)-1]
	if math.Abs(last-10) > 1e-9 {
		t.Errorf("EMA of constant series = %f, want 10", last)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := closes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16)
	rsi := RSI(up, 14)
	if got := rsi[len(rsi)-1]; got < 99 {
		t.Errorf("RSI of monotone rise = %f, want ~100", got)
	}

	down := closes(16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1)
	rsi = RSI(down, 14)
	if got := rsi[len(rsi)-1]; got > 1 {
		t.Errorf("RSI of monotone fall = %f, want ~0", got)
	}

	flat := closes(5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5)
	rsi = RSI(flat, 14)
	if got := rsi[len(rsi)-1]; got != 50 {
		t.Errorf("RSI of flat series = %f, want neutral 50", got)
	}
}

func TestATRPercent(t *testing.T) {
	// Constant closes with a fixed 2-unit range: ATR = 2, price = 100.
	c := make([]domain.Candle, 20)
	for i := range c {
		c[i] = domain.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	}
	got := ATRPercent(c, 14)
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("ATRPercent = %f, want 2.0", got)
	}
}

func TestVolumeRatio(t *testing.T) {
	c := make([]domain.Candle, 22)
	for i := range c {
		c[i] = domain.Candle{Close: 100, Volume: 100}
	}
	c[len(c)-1].Volume = 300
	if got := VolumeRatio(c, 20); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("VolumeRatio = %f, want 3.0", got)
	}
}

func TestSupportResistanceExcludesCurrent(t *testing.T) {
	c := closes(10, 12, 8, 11)
	// Current candle spikes; it must not define the levels.
	c[len(c)-1].High = 100
	c[len(c)-1].Low = 1
	sup, res := SupportResistance(c, 10)
	if sup != 7 { // low of the 8-close candle
		t.Errorf("support = %f, want 7", sup)
	}
	if res != 13 { // high of the 12-close candle
		t.Errorf("resistance = %f, want 13", res)
	}
}

func TestPercentChange(t *testing.T) {
	c := closes(100, 101, 102, 110)
	if got := PercentChange(c, 1); math.Abs(got-(110.0-102)/102*100) > 1e-9 {
		t.Errorf("PercentChange(1) = %f", got)
	}
	if got := PercentChange(c, 3); math.Abs(got-10) > 1e-9 {
		t.Errorf("PercentChange(3) = %f, want 10", got)
	}
	if got := PercentChange(c, 10); got != 0 {
		t.Errorf("PercentChange beyond history = %f, want 0", got)
	}
}

func TestMFIBalancedIsFifty(t *testing.T) {
	c := make([]domain.Candle, 20)
	for i := range c {
		c[i] = domain.Candle{Open: 100, High: 100, Low: 100, Close: 100, Volume: 50}
	}
	if got := MFI(c, 14); got != 50 {
		t.Errorf("MFI of flat series = %f, want 50", got)
	}
}
