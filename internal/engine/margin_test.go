package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

type staticFilters struct{ f domain.TradingFilters }

func (s staticFilters) Filters(string) (domain.TradingFilters, bool) { return s.f, true }

type staticBrackets struct{ cap float64 }

func (s staticBrackets) MaxNotionalForLeverage(context.Context, string, int) (float64, error) {
	return s.cap, nil
}

func noLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newGuard(brackets BracketSource) *MarginGuard {
	n := NewNormalizer(staticFilters{f: btcFilters()})
	return NewMarginGuard(n, brackets, noLogger())
}

func TestMarginAllowsWithinCap(t *testing.T) {
	g := newGuard(nil)
	order := NormalizeWith(btcFilters(), 0.1, 400) // notional 40
	v := g.Check(context.Background(), "BTCUSDT", 5, 400, order, 100)
	if !v.Allowed {
		t.Fatalf("notional 40 within cap 450, rejected: %s", v.Reason)
	}
	if v.Order.Quantity != order.Quantity {
		t.Error("order within cap must pass unchanged")
	}
}

func TestMarginReducesOverCap(t *testing.T) {
	g := newGuard(nil)
	order := NormalizeWith(btcFilters(), 1.0, 400) // notional 400
	// cap = 100 * 1 * 0.9 = 90
	v := g.Check(context.Background(), "BTCUSDT", 1, 400, order, 100)
	if !v.Allowed {
		t.Fatalf("reducible order rejected: %s", v.Reason)
	}
	if v.Order.Quantity*400 > 90+1e-9 {
		t.Errorf("reduced notional %v exceeds cap 90", v.Order.Quantity*400)
	}
	if v.Order.Zero() {
		t.Error("reduced order must remain tradable")
	}
}

func TestMarginRejectsBelowMinNotional(t *testing.T) {
	g := newGuard(nil)
	order := NormalizeWith(btcFilters(), 1.0, 400)
	// cap = 1 * 1 * 0.9 = 0.9 < minNotional 5
	v := g.Check(context.Background(), "BTCUSDT", 1, 400, order, 1)
	if v.Allowed {
		t.Error("cap below exchange minimum notional must reject")
	}
}

func TestMarginBracketCapOverrides(t *testing.T) {
	g := newGuard(staticBrackets{cap: 50})
	order := NormalizeWith(btcFilters(), 1.0, 400) // notional 400
	// margin cap would be 900; the 50 bracket cap is tighter.
	v := g.Check(context.Background(), "BTCUSDT", 10, 400, order, 100)
	if !v.Allowed {
		t.Fatalf("rejected: %s", v.Reason)
	}
	if v.Order.Quantity*400 > 50+1e-9 {
		t.Errorf("notional %v exceeds bracket cap 50", v.Order.Quantity*400)
	}
}

func TestMarginCapMonotonicity(t *testing.T) {
	g := newGuard(nil)
	order := NormalizeWith(btcFilters(), 10.0, 400) // notional 4000, always over cap

	// Increasing leverage with fixed margin never decreases the allowed
	// notional.
	prev := -1.0
	for lev := 1; lev <= 20; lev++ {
		v := g.Check(context.Background(), "BTCUSDT", lev, 400, order, 100)
		if !v.Allowed {
			continue
		}
		notional := v.Order.Quantity * 400
		if notional < prev-1e-9 {
			t.Fatalf("leverage %d: notional %v < previous %v", lev, notional, prev)
		}
		prev = notional
	}

	// Reducing available margin never increases it.
	prev = 1e18
	for margin := 1000.0; margin >= 10; margin -= 100 {
		v := g.Check(context.Background(), "BTCUSDT", 5, 400, order, margin)
		if !v.Allowed {
			continue
		}
		notional := v.Order.Quantity * 400
		if notional > prev+1e-9 {
			t.Fatalf("margin %v: notional %v > previous %v", margin, notional, prev)
		}
		prev = notional
	}
}
