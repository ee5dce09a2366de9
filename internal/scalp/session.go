// Package scalp implements the multi-strategy candidate engine: three
// strategy models, a quality scorer, the microstructure admission gate, the
// policy merger, and the exit planner.
package scalp

import (
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Session boundaries in UTC hours. Bridge covers the London/NY overlap
// hand-off where liquidity rotates and spreads widen.
const (
	londonOpen = 7
	bridgeOpen = 12
	nyOpen     = 14
	nyClose    = 21
)

// SessionAt maps a wall-clock instant to the trading session.
func SessionAt(t time.Time) domain.TradingSession {
	h := t.UTC().Hour()
	switch {
	case h >= londonOpen && h < bridgeOpen:
		return domain.SessionLondon
	case h >= bridgeOpen && h < nyOpen:
		return domain.SessionBridge
	case h >= nyOpen && h < nyClose:
		return domain.SessionNY
	default:
		return domain.SessionAsia
	}
}

// sessionWeight scales candidate quality by expected session liquidity.
func sessionWeight(s domain.TradingSession) float64 {
	switch s {
	case domain.SessionLondon, domain.SessionNY:
		return 1.0
	case domain.SessionBridge:
		return 0.9
	case domain.SessionAsia:
		return 0.85
	default:
		return 0.85
	}
}
