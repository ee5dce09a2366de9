package engine

import (
	"sync"
	"time"
)

// Cooldown defaults: two adverse events of one type inside the rolling
// window block the symbol for the cooldown duration.
const (
	defaultCooldownWindow = 120 * time.Second
	defaultCooldownBlock  = 60 * time.Second
	cooldownEventLimit    = 2
)

// CooldownTracker blocks symbols that accumulate stop-loss or slippage
// events too quickly. Events outside the rolling window are pruned lazily
// on each access.
type CooldownTracker struct {
	mu     sync.Mutex
	window time.Duration
	block  time.Duration
	now    func() time.Time

	states map[string]*cooldownState
}

type cooldownState struct {
	stopEvents     []time.Time
	slippageEvents []time.Time
	blockedUntil   time.Time
}

func NewCooldownTracker(window, block time.Duration) *CooldownTracker {
	if window <= 0 {
		window = defaultCooldownWindow
	}
	if block <= 0 {
		block = defaultCooldownBlock
	}
	return &CooldownTracker{
		window: window,
		block:  block,
		now:    time.Now,
		states: make(map[string]*cooldownState),
	}
}

// RecordStop registers a stop-loss event for the symbol.
func (t *CooldownTracker) RecordStop(symbol string) {
	t.record(symbol, true)
}

// RecordSlippage registers an excessive-slippage event for the symbol.
func (t *CooldownTracker) RecordSlippage(symbol string) {
	t.record(symbol, false)
}

func (t *CooldownTracker) record(symbol string, stop bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	st, ok := t.states[symbol]
	if !ok {
		st = &cooldownState{}
		t.states[symbol] = st
	}
	t.prune(st, now)

	if stop {
		st.stopEvents = append(st.stopEvents, now)
	} else {
		st.slippageEvents = append(st.slippageEvents, now)
	}
	if len(st.stopEvents) >= cooldownEventLimit || len(st.slippageEvents) >= cooldownEventLimit {
		st.blockedUntil = now.Add(t.block)
	}
}

// IsBlocked reports whether new entries on the symbol are currently blocked.
// An expired block self-clears.
func (t *CooldownTracker) IsBlocked(symbol string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[symbol]
	if !ok {
		return false
	}
	now := t.now()
	t.prune(st, now)
	if st.blockedUntil.IsZero() {
		return false
	}
	if now.After(st.blockedUntil) {
		st.blockedUntil = time.Time{}
		return false
	}
	return true
}

// BlockedUntil returns the block expiry for operational visibility, zero
// when unblocked.
func (t *CooldownTracker) BlockedUntil(symbol string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[symbol]; ok {
		return st.blockedUntil
	}
	return time.Time{}
}

// Clear wipes both event lists and the block state for the symbol.
func (t *CooldownTracker) Clear(symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, symbol)
}

func (t *CooldownTracker) prune(st *cooldownState, now time.Time) {
	cutoff := now.Add(-t.window)
	st.stopEvents = pruneBefore(st.stopEvents, cutoff)
	st.slippageEvents = pruneBefore(st.slippageEvents, cutoff)
}

func pruneBefore(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}
