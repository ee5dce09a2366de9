package scalp

import (
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// flatCandles builds a window where most volume trades near center, so the
// POC lands there.
func profileCandles() []domain.Candle {
	var out []domain.Candle
	// Wide but thin extremes.
	out = append(out, domain.Candle{Open: 90, High: 110, Low: 90, Close: 95, Volume: 10})
	// Heavy trading near 100.
	for i := 0; i < 20; i++ {
		out = append(out, domain.Candle{Open: 99.5, High: 100.5, Low: 99.5, Close: 100, Volume: 100})
	}
	return out
}

func TestBuildVolumeProfilePOCNearHeavyZone(t *testing.T) {
	p := BuildVolumeProfile(profileCandles(), 60)
	if p.PointOfControl < 98 || p.PointOfControl > 102 {
		t.Errorf("POC = %v, want near 100", p.PointOfControl)
	}
	if p.ValueAreaLow > p.PointOfControl || p.ValueAreaHigh < p.PointOfControl {
		t.Errorf("value area [%v, %v] does not contain POC %v", p.ValueAreaLow, p.ValueAreaHigh, p.PointOfControl)
	}
	if p.High != 110 || p.Low != 90 {
		t.Errorf("window bounds = [%v, %v], want [90, 110]", p.Low, p.High)
	}
}

func TestBuildVolumeProfileDegenerate(t *testing.T) {
	if p := BuildVolumeProfile(nil, 10); p.PointOfControl != 0 {
		t.Errorf("empty window should yield a zero profile, got %+v", p)
	}
	flat := []domain.Candle{{Open: 100, High: 100, Low: 100, Close: 100, Volume: 5}}
	p := BuildVolumeProfile(flat, 10)
	if p.PointOfControl != 100 {
		t.Errorf("flat window POC = %v, want 100", p.PointOfControl)
	}
}

func TestProximityDecay(t *testing.T) {
	p := VolumeProfile{ValueAreaHigh: 102, ValueAreaLow: 98, PointOfControl: 100}
	if got := p.Proximity(100); got != 1 {
		t.Errorf("at POC: %v, want 1", got)
	}
	near := p.Proximity(100.5)
	far := p.Proximity(96)
	if near <= far {
		t.Errorf("proximity should decay with distance: near=%v far=%v", near, far)
	}
	if got := p.Proximity(0); got != 0 {
		t.Errorf("non-positive price: %v, want 0", got)
	}
}

func TestFairValueGap(t *testing.T) {
	gapUp := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100.5, High: 103, Low: 100.4, Close: 102.8},
		{Open: 102.9, High: 104, Low: 101.5, Close: 103.5}, // low above candle[0].High
	}
	if !fairValueGap(gapUp, domain.SignalLong, 5) {
		t.Error("expected long fair value gap")
	}
	if fairValueGap(gapUp, domain.SignalShort, 5) {
		t.Error("gap up should not confirm a short")
	}

	noGap := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100.5, High: 101.5, Low: 100, Close: 101},
		{Open: 101, High: 102, Low: 100.5, Close: 101.5},
	}
	if fairValueGap(noGap, domain.SignalLong, 5) {
		t.Error("overlapping candles should not form a gap")
	}
}
