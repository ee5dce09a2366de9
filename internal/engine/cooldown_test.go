package engine

import (
	"testing"
	"time"
)

func TestCooldownBlocksAfterTwoStops(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	tr := NewCooldownTracker(120*time.Second, 60*time.Second)
	tr.now = func() time.Time { return now }

	tr.RecordStop("BTCUSDT")
	if tr.IsBlocked("BTCUSDT") {
		t.Fatal("one stop event must not block")
	}

	now = now.Add(30 * time.Second)
	tr.RecordStop("BTCUSDT")
	if !tr.IsBlocked("BTCUSDT") {
		t.Fatal("two stop events inside the window must block")
	}

	// Block expires after the cooldown.
	now = now.Add(61 * time.Second)
	if tr.IsBlocked("BTCUSDT") {
		t.Error("block must self-clear after the cooldown elapses")
	}
}

func TestCooldownWindowPrunes(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	tr := NewCooldownTracker(120*time.Second, 60*time.Second)
	tr.now = func() time.Time { return now }

	tr.RecordStop("ETHUSDT")
	// Second event lands after the first left the window.
	now = now.Add(121 * time.Second)
	tr.RecordStop("ETHUSDT")
	if tr.IsBlocked("ETHUSDT") {
		t.Error("events outside the rolling window must not count together")
	}
}

func TestCooldownEventTypesIndependent(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	tr := NewCooldownTracker(120*time.Second, 60*time.Second)
	tr.now = func() time.Time { return now }

	// One of each type does not block; the threshold is per type.
	tr.RecordStop("SOLUSDT")
	tr.RecordSlippage("SOLUSDT")
	if tr.IsBlocked("SOLUSDT") {
		t.Fatal("one stop + one slippage must not block")
	}

	tr.RecordSlippage("SOLUSDT")
	if !tr.IsBlocked("SOLUSDT") {
		t.Error("two slippage events must block")
	}
}

func TestCooldownClear(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	tr := NewCooldownTracker(120*time.Second, 60*time.Second)
	tr.now = func() time.Time { return now }

	tr.RecordStop("BTCUSDT")
	tr.RecordStop("BTCUSDT")
	if !tr.IsBlocked("BTCUSDT") {
		t.Fatal("setup: expected blocked")
	}
	tr.Clear("BTCUSDT")
	if tr.IsBlocked("BTCUSDT") {
		t.Error("Clear must wipe the block")
	}
	tr.RecordStop("BTCUSDT")
	if tr.IsBlocked("BTCUSDT") {
		t.Error("Clear must also wipe the event lists")
	}
}

func TestCooldownSymbolsIsolated(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	tr := NewCooldownTracker(120*time.Second, 60*time.Second)
	tr.now = func() time.Time { return now }

	tr.RecordStop("BTCUSDT")
	tr.RecordStop("BTCUSDT")
	if tr.IsBlocked("ETHUSDT") {
		t.Error("blocks must be per symbol")
	}
}
