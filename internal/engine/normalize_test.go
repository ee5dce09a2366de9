package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func btcFilters() domain.TradingFilters {
	return domain.TradingFilters{
		Symbol:      "BTCUSDT",
		StepSize:    0.001,
		MinQty:      0.01,
		MaxQty:      100,
		MinNotional: 5,
	}
}

func TestNormalizeMinNotionalBumpPath(t *testing.T) {
	// 0.0123 quantizes to 0.012, notional 4.8 < 5 triggers the bump to
	// 5/400 = 0.0125, which requantizes back down to 0.012.
	got := NormalizeWith(btcFilters(), 0.0123, 400)
	if got.Zero() {
		t.Fatal("expected a tradable quantity, got zero sentinel")
	}
	if got.Quantity != 0.012 {
		t.Errorf("quantity = %v, want 0.012", got.Quantity)
	}
	if got.Text != "0.012" {
		t.Errorf("text = %q, want \"0.012\"", got.Text)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	f := btcFilters()
	first := NormalizeWith(f, 0.0567, 400)
	if first.Zero() {
		t.Fatal("first pass returned zero")
	}
	second := NormalizeWith(f, first.Quantity, 400)
	if second.Quantity != first.Quantity {
		t.Errorf("renormalizing %v gave %v", first.Quantity, second.Quantity)
	}
	if second.Text != first.Text {
		t.Errorf("renormalizing text %q gave %q", first.Text, second.Text)
	}
}

func TestNormalizeRejectsNonPositive(t *testing.T) {
	f := btcFilters()
	if !NormalizeWith(f, 0, 400).Zero() {
		t.Error("zero input must yield the zero sentinel")
	}
	if !NormalizeWith(f, -1, 400).Zero() {
		t.Error("negative input must yield the zero sentinel")
	}
}

func TestNormalizeMaxQtyClamp(t *testing.T) {
	got := NormalizeWith(btcFilters(), 5000, 400)
	if got.Quantity != 100 {
		t.Errorf("quantity = %v, want clamped to maxQty 100", got.Quantity)
	}
}

func TestNormalizeMaxQtyNeverExceeded(t *testing.T) {
	// A cap whose seventh decimal rounds up must still clamp from below
	// when no step size is set.
	f := domain.TradingFilters{MaxQty: 22.45544781962944}
	got := NormalizeWith(f, 100, 1000)
	if got.Zero() {
		t.Fatal("expected a tradable quantity")
	}
	if got.Quantity > f.MaxQty {
		t.Errorf("quantity %v exceeds maxQty %v", got.Quantity, f.MaxQty)
	}
	if got.Quantity != 22.455447 {
		t.Errorf("quantity = %v, want 22.455447", got.Quantity)
	}
}

func TestNormalizeUnsatisfiableBounds(t *testing.T) {
	// minNotional requires more than maxQty allows.
	f := domain.TradingFilters{
		StepSize:    0.001,
		MinQty:      0.001,
		MaxQty:      0.01,
		MinNotional: 100,
	}
	if got := NormalizeWith(f, 0.005, 400); !got.Zero() {
		t.Errorf("unsatisfiable bounds must yield zero, got %v", got.Quantity)
	}
}

func TestNormalizeZeroStepRoundsSixDecimals(t *testing.T) {
	f := domain.TradingFilters{MinQty: 0.000001}
	got := NormalizeWith(f, 0.12345678, 0)
	if got.Quantity != 0.123457 {
		t.Errorf("quantity = %v, want rounded to 6 decimals", got.Quantity)
	}
}

func TestNormalizePrecisionTruncation(t *testing.T) {
	f := domain.TradingFilters{
		StepSize:          0.001,
		MinQty:            0.001,
		QuantityPrecision: 2,
		StepSizePrecision: 3,
	}
	got := NormalizeWith(f, 0.0567, 0)
	// Truncated to 2 decimals (the tighter cap), then step-aligned.
	if got.Quantity != 0.05 {
		t.Errorf("quantity = %v, want 0.05", got.Quantity)
	}
}

func TestNormalizeBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	steps := []float64{0, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1}

	for i := 0; i < 2000; i++ {
		step := steps[rng.Intn(len(steps))]
		f := domain.TradingFilters{
			StepSize:    step,
			MinQty:      rng.Float64() * 0.1,
			MaxQty:      1 + rng.Float64()*1000,
			MinNotional: rng.Float64() * 20,
			MaxNotional: 0,
		}
		price := 1 + rng.Float64()*50000
		desired := rng.Float64() * 100

		got := NormalizeWith(f, desired, price)
		if got.Zero() {
			continue
		}
		q := got.Quantity
		if f.MinQty > 0 && q < f.MinQty-quantEps {
			t.Fatalf("case %d: qty %v below minQty %v", i, q, f.MinQty)
		}
		if f.MaxQty > 0 && q > f.MaxQty+quantEps {
			t.Fatalf("case %d: qty %v above maxQty %v", i, q, f.MaxQty)
		}
		if step > 0 {
			steps := q / step
			if math.Abs(steps-math.Round(steps)) > 1e-6 {
				t.Fatalf("case %d: qty %v not a multiple of step %v", i, q, step)
			}
		}
		if f.MinNotional > 0 && q*price < f.MinNotional-step*price-1e-9 {
			t.Fatalf("case %d: notional %v below floor %v (step tolerance %v)",
				i, q*price, f.MinNotional, step*price)
		}
	}
}

func TestFormatQuantityDigits(t *testing.T) {
	cases := []struct {
		f    domain.TradingFilters
		qty  float64
		want string
	}{
		{domain.TradingFilters{QuantityPrecision: 3}, 0.012, "0.012"},
		{domain.TradingFilters{StepSizePrecision: 2}, 0.01, "0.01"},
		{domain.TradingFilters{StepSize: 0.0001}, 0.0123, "0.0123"},
		{domain.TradingFilters{}, 0.5, "0.500000"},
	}
	for _, tc := range cases {
		if got := formatQuantity(tc.qty, tc.f); got != tc.want {
			t.Errorf("formatQuantity(%v, %+v) = %q, want %q", tc.qty, tc.f, got, tc.want)
		}
	}
}
