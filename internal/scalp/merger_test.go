package scalp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

type stubOracle struct {
	verdict PolicyVerdict
	err     error
	lastReq PolicyRequest
}

func (s *stubOracle) Decide(_ context.Context, req PolicyRequest) (PolicyVerdict, error) {
	s.lastReq = req
	return s.verdict, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapFor(symbol string) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{Symbol: symbol, LastPrice: 100}
}

func scoredCandidate(model domain.StrategyModel, sig domain.CandidateSignal, q float64) domain.Candidate {
	return domain.Candidate{
		Symbol:     "BTCUSDT",
		Signal:     sig,
		Model:      model,
		Quality:    q,
		EntryHint:  99,
		TakeProfit: domain.TakeProfitPlan{RMultiple: 1.8},
	}
}

func TestMergeAdoptsOracleChoice(t *testing.T) {
	oracle := &stubOracle{verdict: PolicyVerdict{
		Allow:     true,
		Model:     "BREAKOUT",
		Side:      "LONG",
		TPRR:      2.5,
		EntryHint: 98.5,
		Notes:     []string{"a", "b", "c", "d"},
	}}
	m := NewMerger(oracle, discardLogger())

	got := m.Merge(context.Background(), snapFor("BTCUSDT"), domain.SessionLondon, domain.RiskNone, []domain.Candidate{
		scoredCandidate(domain.ModelBreakout, domain.SignalLong, 0.8),
		scoredCandidate(domain.ModelEMA50, domain.SignalLong, 0.6),
	})
	if got.Model != domain.ModelBreakout || got.Signal != domain.SignalLong {
		t.Fatalf("adopted %s/%s, want BREAKOUT/LONG", got.Model, got.Signal)
	}
	if got.TakeProfit.RMultiple != 2.5 {
		t.Errorf("take profit RR = %f, want oracle override 2.5", got.TakeProfit.RMultiple)
	}
	if got.EntryHint != 98.5 {
		t.Errorf("entry hint = %f, want oracle override 98.5", got.EntryHint)
	}
	notes := 0
	for _, r := range got.Reasons {
		if len(r) > 7 && r[:7] == "policy:" {
			notes++
		}
	}
	if notes != 3 {
		t.Errorf("appended %d oracle notes, want capped at 3", notes)
	}
}

func TestMergeDisallow(t *testing.T) {
	oracle := &stubOracle{verdict: PolicyVerdict{Allow: false}}
	m := NewMerger(oracle, discardLogger())
	got := m.Merge(context.Background(), snapFor("BTCUSDT"), domain.SessionLondon, domain.RiskNone, []domain.Candidate{
		scoredCandidate(domain.ModelBreakout, domain.SignalLong, 0.9),
	})
	if got.Signal != domain.SignalNone {
		t.Errorf("disallow must yield NONE, got %s", got.Signal)
	}
}

func TestMergeNoCandidates(t *testing.T) {
	oracle := &stubOracle{verdict: PolicyVerdict{Allow: true}}
	m := NewMerger(oracle, discardLogger())
	got := m.Merge(context.Background(), snapFor("BTCUSDT"), domain.SessionLondon, domain.RiskNone, []domain.Candidate{
		domain.NoCandidate("BTCUSDT", "nothing fired"),
	})
	if got.Signal != domain.SignalNone {
		t.Errorf("no live candidates must yield NONE, got %s", got.Signal)
	}
	if oracle.lastReq.Symbol != "" {
		t.Error("oracle must not be called with zero live candidates")
	}
}

func TestMergeOracleError(t *testing.T) {
	oracle := &stubOracle{err: errors.New("timeout")}
	m := NewMerger(oracle, discardLogger())
	got := m.Merge(context.Background(), snapFor("BTCUSDT"), domain.SessionLondon, domain.RiskNone, []domain.Candidate{
		scoredCandidate(domain.ModelBreakout, domain.SignalLong, 0.9),
	})
	if got.Signal != domain.SignalNone {
		t.Errorf("oracle failure must yield NONE, got %s", got.Signal)
	}
}

func TestMergeSubmitsTopFiveByQuality(t *testing.T) {
	oracle := &stubOracle{verdict: PolicyVerdict{Allow: true, Model: "MEAN", Side: "SHORT"}}
	m := NewMerger(oracle, discardLogger())

	cands := []domain.Candidate{
		scoredCandidate(domain.ModelBreakout, domain.SignalLong, 0.3),
		scoredCandidate(domain.ModelMean, domain.SignalShort, 0.9),
		scoredCandidate(domain.ModelEMA50, domain.SignalLong, 0.7),
	}
	got := m.Merge(context.Background(), snapFor("BTCUSDT"), domain.SessionNY, domain.RiskNone, cands)
	if got.Model != domain.ModelMean {
		t.Fatalf("adopted %s, want MEAN", got.Model)
	}
	if len(oracle.lastReq.Candidates) != 3 {
		t.Fatalf("submitted %d candidates, want 3", len(oracle.lastReq.Candidates))
	}
	if oracle.lastReq.Candidates[0].Quality != 0.9 {
		t.Error("candidates must be submitted in descending quality order")
	}
}
