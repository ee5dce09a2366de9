package scalp

import (
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func longCandidate() domain.Candidate {
	return domain.Candidate{
		Symbol:     "BTCUSDT",
		Signal:     domain.SignalLong,
		Model:      domain.ModelBreakout,
		Stop:       domain.StopHint{Type: domain.StopATR, Ticks: 10},
		TakeProfit: domain.TakeProfitPlan{RMultiple: 2.0},
	}
}

func TestPlanExitLong(t *testing.T) {
	plan := PlanExit(longCandidate(), 100, 0.1)
	if plan.Stop != 99 { // 10 ticks * 0.1
		t.Errorf("stop = %f, want 99", plan.Stop)
	}
	if plan.TakeProf != 102 { // 2R of a 1.0 risk distance
		t.Errorf("take profit = %f, want 102", plan.TakeProf)
	}
}

func TestPlanExitMinimumTwoTicks(t *testing.T) {
	c := longCandidate()
	c.Stop.Ticks = 0
	plan := PlanExit(c, 100, 0.5)
	if plan.RiskDist != 1.0 { // 2-tick floor * 0.5
		t.Errorf("risk distance = %f, want 1.0", plan.RiskDist)
	}
}

func TestBreakevenAfterTP1(t *testing.T) {
	plan := PlanExit(longCandidate(), 100, 0.1)
	if plan.Breakeven {
		t.Fatal("fresh plan must not be at breakeven")
	}
	plan.Update(102, 0) // touch TP1
	if !plan.Breakeven {
		t.Fatal("TP1 touch must flip to breakeven")
	}
	if plan.Stop < 100 {
		t.Errorf("stop = %f, want >= entry 100 after breakeven", plan.Stop)
	}
}

func TestTrailNeverLoosens(t *testing.T) {
	plan := PlanExit(longCandidate(), 100, 0.1)
	plan.Update(102, 0.5) // TP1 + trail to 101.5
	if plan.Stop != 101.5 {
		t.Fatalf("trailed stop = %f, want 101.5", plan.Stop)
	}

	// Price pulls back: the stop must hold.
	plan.Update(101.6, 0.5)
	if plan.Stop != 101.5 {
		t.Errorf("stop loosened to %f on pullback", plan.Stop)
	}

	// Price advances: the stop tightens again.
	plan.Update(103, 0.5)
	if plan.Stop != 102.5 {
		t.Errorf("stop = %f, want 102.5 after advance", plan.Stop)
	}
}

func TestShortPlanMirrors(t *testing.T) {
	c := longCandidate()
	c.Signal = domain.SignalShort
	plan := PlanExit(c, 100, 0.1)
	if plan.Stop != 101 || plan.TakeProf != 98 {
		t.Fatalf("short plan stop/tp = %f/%f, want 101/98", plan.Stop, plan.TakeProf)
	}
	plan.Update(98, 0.5)
	if !plan.Breakeven || plan.Stop != 98.5 {
		t.Errorf("short trail: breakeven=%v stop=%f, want true/98.5", plan.Breakeven, plan.Stop)
	}
	plan.Update(97.9, 0.5)
	if plan.Stop > 98.5 {
		t.Errorf("short stop loosened to %f", plan.Stop)
	}
}

func TestStopTrackerLifecycle(t *testing.T) {
	tr := NewStopTracker()
	tr.Track(PlanExit(longCandidate(), 100, 0.1))

	if tr.Advance("BTCUSDT", 101, 0.2) {
		t.Error("price above stop must not report stopped")
	}
	if !tr.Advance("BTCUSDT", 98.9, 0.2) {
		t.Error("price through stop must report stopped")
	}

	tr.Drop("BTCUSDT")
	if _, ok := tr.Plan("BTCUSDT"); ok {
		t.Error("dropped plan still present")
	}
	if tr.Advance("BTCUSDT", 1, 0.2) {
		t.Error("unknown symbol must report not stopped")
	}
}
