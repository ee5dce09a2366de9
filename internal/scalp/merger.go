package scalp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// PolicyRequest is the condensed feature/candidate payload sent to the
// policy oracle.
type PolicyRequest struct {
	Symbol     string            `json:"symbol"`
	Price      float64           `json:"price"`
	Session    string            `json:"session"`
	Risk       string            `json:"risk"`
	RSI        float64           `json:"rsi"`
	ATRPercent float64           `json:"atr_percent"`
	Change5m   float64           `json:"change_5m"`
	Candidates []PolicyCandidate `json:"candidates"`
}

// PolicyCandidate is one submitted candidate in condensed form.
type PolicyCandidate struct {
	Model   string  `json:"model"`
	Side    string  `json:"side"`
	Quality float64 `json:"quality"`
	Entry   float64 `json:"entry"`
	TPRR    float64 `json:"tp_rr"`
}

// PolicyVerdict is the oracle's ruling over the submitted candidates.
type PolicyVerdict struct {
	Allow     bool     `json:"allow"`
	Model     string   `json:"model"`
	Side      string   `json:"side"`
	TPRR      float64  `json:"tp_rr"`
	EntryHint float64  `json:"entry_hint"`
	Notes     []string `json:"notes"`
}

// PolicyOracle is the external policy service consulted before execution.
type PolicyOracle interface {
	Decide(ctx context.Context, req PolicyRequest) (PolicyVerdict, error)
}

const (
	mergerTopN     = 5
	mergerMaxNotes = 3
)

// Merger submits the best candidates to the policy oracle and adopts its
// choice.
type Merger struct {
	oracle PolicyOracle
	logger *slog.Logger
}

func NewMerger(oracle PolicyOracle, logger *slog.Logger) *Merger {
	return &Merger{
		oracle: oracle,
		logger: logger.With(slog.String("component", "policy_merger")),
	}
}

// Merge picks the final Candidate: the top candidates by quality go to the
// oracle; a disallow, an oracle error, or an empty set yields NONE. When the
// oracle's model/side matches a submitted candidate, that candidate is
// adopted with the oracle's take-profit and entry hint, quality capped at 1,
// and up to three oracle notes appended.
func (m *Merger) Merge(ctx context.Context, snap *domain.MarketSnapshot, session domain.TradingSession, risk domain.RiskGrade, candidates []domain.Candidate) domain.Candidate {
	live := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Signal != domain.SignalNone {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return domain.NoCandidate(snap.Symbol, "policy: no candidates")
	}

	sort.SliceStable(live, func(i, j int) bool { return live[i].Quality > live[j].Quality })
	if len(live) > mergerTopN {
		live = live[:mergerTopN]
	}

	req := PolicyRequest{
		Symbol:     snap.Symbol,
		Price:      snap.LastPrice,
		Session:    string(session),
		Risk:       string(risk),
		RSI:        snap.RSI14,
		ATRPercent: snap.ATRPercent,
		Change5m:   snap.Change5m,
	}
	for _, c := range live {
		req.Candidates = append(req.Candidates, PolicyCandidate{
			Model:   string(c.Model),
			Side:    string(c.Signal),
			Quality: c.Quality,
			Entry:   c.EntryHint,
			TPRR:    c.TakeProfit.RMultiple,
		})
	}

	verdict, err := m.oracle.Decide(ctx, req)
	if err != nil {
		m.logger.Warn("policy oracle failed", slog.String("symbol", snap.Symbol), slog.Any("error", err))
		return domain.NoCandidate(snap.Symbol, "policy: oracle unavailable")
	}
	if !verdict.Allow {
		return domain.NoCandidate(snap.Symbol, "policy: disallow")
	}

	for _, c := range live {
		if string(c.Model) != verdict.Model || string(c.Signal) != verdict.Side {
			continue
		}
		if c.Quality > 1 {
			c.Quality = 1
		}
		if verdict.TPRR > 0 {
			c.TakeProfit.RMultiple = verdict.TPRR
		}
		if verdict.EntryHint > 0 {
			c.EntryHint = verdict.EntryHint
		}
		notes := verdict.Notes
		if len(notes) > mergerMaxNotes {
			notes = notes[:mergerMaxNotes]
		}
		for _, n := range notes {
			c.Reasons = append(c.Reasons, "policy: "+n)
		}
		return c
	}

	m.logger.Debug("oracle choice not among submitted candidates",
		slog.String("symbol", snap.Symbol),
		slog.String("model", verdict.Model),
		slog.String("side", verdict.Side),
	)
	return domain.NoCandidate(snap.Symbol, fmt.Sprintf("policy: chose unsubmitted %s/%s", verdict.Model, verdict.Side))
}
