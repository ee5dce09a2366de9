package scalp

import (
	"testing"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func timeAtHour(h int) time.Time {
	return time.Date(2026, 8, 28, h, 30, 0, 0, time.UTC)
}

func cleanMicro() domain.MicrostructureMetrics {
	return domain.MicrostructureMetrics{
		Symbol:      "BTCUSDT",
		SpreadBps:   1.0,
		SlippageBps: 2.0,
		LatencyMs:   50,
		QuoteAgeMs:  200,
		BidDepth:    10,
		AskDepth:    10,
		ObservedAt:  time.Now(),
	}
}

func liveCandidate(micro domain.MicrostructureMetrics) domain.Candidate {
	return domain.Candidate{
		Symbol:  "BTCUSDT",
		Signal:  domain.SignalLong,
		Model:   domain.ModelBreakout,
		Quality: 0.8,
		Session: domain.SessionLondon,
		Risk:    domain.RiskNone,
		Micro:   micro,
	}
}

func TestGateAdmitsCleanConditions(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	got := g.Admit(liveCandidate(cleanMicro()))
	if got.Signal != domain.SignalLong {
		t.Fatalf("clean conditions rejected: %v", got.Reasons)
	}
	if got.Quality != 0.8 {
		t.Errorf("gate must not touch quality, got %f", got.Quality)
	}
}

func TestGateRejectsEachBreach(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	cases := []struct {
		name   string
		mutate func(*domain.MicrostructureMetrics)
	}{
		{"spread", func(m *domain.MicrostructureMetrics) { m.SpreadBps = 10 }},
		{"slippage", func(m *domain.MicrostructureMetrics) { m.SlippageBps = 20 }},
		{"latency", func(m *domain.MicrostructureMetrics) { m.LatencyMs = 1000 }},
		{"quote age", func(m *domain.MicrostructureMetrics) { m.QuoteAgeMs = 5000 }},
		{"depth", func(m *domain.MicrostructureMetrics) { m.BidDepth = 1; m.AskDepth = 100 }},
	}
	for _, tc := range cases {
		m := cleanMicro()
		tc.mutate(&m)
		got := g.Admit(liveCandidate(m))
		if got.Signal != domain.SignalNone {
			t.Errorf("%s breach not rejected", tc.name)
		}
		if got.Quality != 0.8 {
			t.Errorf("%s breach changed quality to %f", tc.name, got.Quality)
		}
	}
}

func TestGateTightensOnHighRisk(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	m := cleanMicro()
	m.SpreadBps = 2.5 // under the 3.0 cap, over the tightened 2.25

	c := liveCandidate(m)
	if got := g.Admit(c); got.Signal != domain.SignalLong {
		t.Fatalf("2.5bp spread should pass at normal risk: %v", got.Reasons)
	}
	c.Risk = domain.RiskHigh
	if got := g.Admit(c); got.Signal != domain.SignalNone {
		t.Error("2.5bp spread should fail the tightened High-risk cap")
	}
}

func TestGateSessionRiskLockout(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	cases := []struct {
		session domain.TradingSession
		risk    domain.RiskGrade
		want    domain.CandidateSignal
	}{
		{domain.SessionNY, domain.RiskHigh, domain.SignalNone},
		{domain.SessionNY, domain.RiskCritical, domain.SignalNone},
		{domain.SessionBridge, domain.RiskHigh, domain.SignalNone},
		{domain.SessionBridge, domain.RiskCritical, domain.SignalNone},
		{domain.SessionLondon, domain.RiskCritical, domain.SignalLong},
		{domain.SessionNY, domain.RiskElevated, domain.SignalLong},
	}
	for _, tc := range cases {
		c := liveCandidate(cleanMicro())
		c.Session = tc.session
		c.Risk = tc.risk
		if got := g.Admit(c); got.Signal != tc.want {
			t.Errorf("%s/%s: signal = %s, want %s", tc.session, tc.risk, got.Signal, tc.want)
		}
	}
}

func TestGateDeadBookRejected(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	m := cleanMicro()
	m.BidDepth = 0
	m.AskDepth = 0
	if got := g.Admit(liveCandidate(m)); got.Signal != domain.SignalNone {
		t.Error("dead book must be rejected")
	}
}

func TestGatePassesThroughNone(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	c := domain.NoCandidate("BTCUSDT", "no model fired")
	got := g.Admit(c)
	if got.Signal != domain.SignalNone || len(got.Reasons) != 1 {
		t.Error("NONE candidates must pass through unchanged")
	}
}
