package signal

import (
	"io"
	"log/slog"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEvaluateLongBias(t *testing.T) {
	g := NewGenerator(DefaultConfig(), testLogger())
	snap := &domain.MarketSnapshot{
		Symbol:      "BTCUSDT",
		LastPrice:   100,
		Change5m:    0.5,
		Change15m:   0.8,
		EMAFast:     100.5,
		EMASlow:     99.5,
		RSI14:       58,
		VolumeRatio: 2.0,
		OBVSlope:    0.1,
		MFI:         55,
		Support:     95,
		Resistance:  110,
	}
	sig := g.Evaluate(snap)
	if sig.Bias != domain.BiasLong {
		t.Fatalf("bias = %q, want long (long=%.2f short=%.2f)", sig.Bias, sig.LongScore, sig.ShortScore)
	}
	if sig.Confidence <= 0.5 {
		t.Errorf("confidence = %.2f, want > 0.5 for a one-sided setup", sig.Confidence)
	}
	if sig.EdgeScore <= 0 {
		t.Errorf("edge = %.2f, want > 0", sig.EdgeScore)
	}
	if sig.Reasoning == "" {
		t.Error("reasoning should not be empty")
	}
}

func TestEvaluateShortBias(t *testing.T) {
	g := NewGenerator(DefaultConfig(), testLogger())
	snap := &domain.MarketSnapshot{
		Symbol:      "ETHUSDT",
		LastPrice:   99,
		Change5m:    -0.6,
		Change15m:   -1.0,
		EMAFast:     99.0,
		EMASlow:     100.0,
		RSI14:       38,
		VolumeRatio: 1.8,
		OBVSlope:    -0.2,
		MFI:         45,
	}
	sig := g.Evaluate(snap)
	if sig.Bias != domain.BiasShort {
		t.Fatalf("bias = %q, want short (long=%.2f short=%.2f)", sig.Bias, sig.LongScore, sig.ShortScore)
	}
}

func TestEvaluateFlatOnBalancedScores(t *testing.T) {
	g := NewGenerator(DefaultConfig(), testLogger())
	snap := &domain.MarketSnapshot{
		Symbol:    "SOLUSDT",
		LastPrice: 100,
		RSI14:     50,
		MFI:       50,
	}
	sig := g.Evaluate(snap)
	if sig.Bias != domain.BiasFlat {
		t.Fatalf("bias = %q, want flat for a signal-free snapshot", sig.Bias)
	}
	if sig.LongScore < 0 || sig.ShortScore < 0 {
		t.Error("scores must be non-negative")
	}
}

func TestEvaluateScoresBounded(t *testing.T) {
	g := NewGenerator(DefaultConfig(), testLogger())
	snap := &domain.MarketSnapshot{
		Symbol:      "BTCUSDT",
		LastPrice:   100,
		Change5m:    5,
		Change15m:   9,
		EMAFast:     105,
		EMASlow:     95,
		RSI14:       75,
		VolumeRatio: 10,
		OBVSlope:    1,
		MFI:         90,
	}
	sig := g.Evaluate(snap)
	if sig.Confidence < 0 || sig.Confidence > 1 {
		t.Errorf("confidence %.2f out of [0,1]", sig.Confidence)
	}
	if sig.EdgeScore < 0 || sig.EdgeScore > 1 {
		t.Errorf("edge %.2f out of [0,1]", sig.EdgeScore)
	}
}
