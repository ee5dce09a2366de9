package scalp

import (
	"math"
	"sync"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// ExitPlan is the evolving stop/target state for one open position.
type ExitPlan struct {
	Symbol    string
	Side      domain.PositionSide
	Entry     float64
	Stop      float64
	TakeProf  float64
	RiskDist  float64 // initial entry-to-stop distance
	Breakeven bool    // TP1 touched, stop moved to entry or better
}

const (
	minStopTicks = 2
	trailATRMult = 1.0
)

// PlanExit derives the initial stop and take-profit levels from the
// candidate's hints. The stop distance is tick-rounded with a two-tick
// floor; the target is the per-model R-multiple of that distance.
func PlanExit(c domain.Candidate, entry, tickSize float64) ExitPlan {
	ticks := c.Stop.Ticks
	if ticks < minStopTicks {
		ticks = minStopTicks
	}
	dist := float64(ticks) * tickSize
	if tickSize <= 0 {
		dist = entry * 0.001
	}

	rr := c.TakeProfit.RMultiple
	if rr <= 0 {
		rr = 1.5
	}

	plan := ExitPlan{
		Symbol:   c.Symbol,
		Entry:    entry,
		RiskDist: dist,
	}
	if c.Signal == domain.SignalShort {
		plan.Side = domain.PositionShort
		plan.Stop = entry + dist
		plan.TakeProf = entry - rr*dist
	} else {
		plan.Side = domain.PositionLong
		plan.Stop = entry - dist
		plan.TakeProf = entry + rr*dist
	}
	return plan
}

// Update advances the plan against the latest price and ATR. Once price
// touches the TP1 level the stop moves to breakeven, and from then on trails
// by an ATR multiple strictly in the favourable direction: a tightened stop
// never loosens. Returns true when the plan changed.
func (p *ExitPlan) Update(price, atrAbs float64) bool {
	changed := false
	trail := trailATRMult * atrAbs

	if p.Side == domain.PositionLong {
		if !p.Breakeven && price >= p.TakeProf {
			p.Breakeven = true
			if p.Entry > p.Stop {
				p.Stop = p.Entry
			}
			changed = true
		}
		if p.Breakeven && trail > 0 {
			if s := price - trail; s > p.Stop {
				p.Stop = s
				changed = true
			}
		}
		return changed
	}

	if !p.Breakeven && price <= p.TakeProf {
		p.Breakeven = true
		if p.Entry < p.Stop {
			p.Stop = p.Entry
		}
		changed = true
	}
	if p.Breakeven && trail > 0 {
		if s := price + trail; s < p.Stop {
			p.Stop = s
			changed = true
		}
	}
	return changed
}

// Stopped reports whether the current price has crossed the protective stop.
func (p *ExitPlan) Stopped(price float64) bool {
	if p.Side == domain.PositionLong {
		return price <= p.Stop
	}
	return price >= p.Stop
}

// StopTracker owns the exit plans for all open positions.
type StopTracker struct {
	mu    sync.RWMutex
	plans map[string]*ExitPlan
}

func NewStopTracker() *StopTracker {
	return &StopTracker{plans: make(map[string]*ExitPlan)}
}

// Track installs (or replaces) the plan for a symbol.
func (t *StopTracker) Track(plan ExitPlan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.plans[plan.Symbol] = &plan
}

// Advance updates the symbol's plan with the latest price/ATR and reports
// whether the stop is now breached. Unknown symbols report false.
func (t *StopTracker) Advance(symbol string, price, atrAbs float64) (stopped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	plan, ok := t.plans[symbol]
	if !ok {
		return false
	}
	plan.Update(price, atrAbs)
	return plan.Stopped(price)
}

// Plan returns a copy of the symbol's current plan.
func (t *StopTracker) Plan(symbol string) (ExitPlan, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	plan, ok := t.plans[symbol]
	if !ok {
		return ExitPlan{}, false
	}
	return *plan, true
}

// Drop removes the plan when the position is closed.
func (t *StopTracker) Drop(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.plans, symbol)
}

// SlippageBps measures realized slippage of a fill against its reference
// price in basis points, used to feed the cooldown tracker.
func SlippageBps(reference, fill float64) float64 {
	if reference <= 0 {
		return 0
	}
	return math.Abs(fill-reference) / reference * 10000
}
