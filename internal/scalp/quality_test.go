package scalp

import (
	"math"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

func TestHardSessionGate(t *testing.T) {
	// Perfect component scores must still yield zero under NY/Bridge with
	// High or Critical risk.
	perfect := qualityInputs{
		regimeAligned: 1, orderFlow: 1, pattern: 1,
		rsiAligned: 1, fvgPresent: 1, vpProximity: 1,
	}
	for _, session := range []domain.TradingSession{domain.SessionNY, domain.SessionBridge} {
		for _, risk := range []domain.RiskGrade{domain.RiskHigh, domain.RiskCritical} {
			if q := scoreQuality(perfect, session, risk); q != 0 {
				t.Errorf("quality(%s/%s) = %f, want 0", session, risk, q)
			}
		}
	}
	// The same risk outside NY/Bridge only haircuts.
	if q := scoreQuality(perfect, domain.SessionLondon, domain.RiskHigh); q <= 0 {
		t.Errorf("London/High should be haircut, not zeroed, got %f", q)
	}
}

func TestQualityWeights(t *testing.T) {
	// Full scores under London/None: weights sum to 1, session weight 1.
	perfect := qualityInputs{
		regimeAligned: 1, orderFlow: 1, pattern: 1,
		rsiAligned: 1, fvgPresent: 1, vpProximity: 1,
	}
	if q := scoreQuality(perfect, domain.SessionLondon, domain.RiskNone); math.Abs(q-1) > 1e-9 {
		t.Errorf("perfect quality = %f, want 1", q)
	}

	// Single component isolates its weight.
	only := qualityInputs{orderFlow: 1}
	if q := scoreQuality(only, domain.SessionLondon, domain.RiskNone); math.Abs(q-0.25) > 1e-9 {
		t.Errorf("orderflow-only quality = %f, want 0.25", q)
	}
}

func TestRiskHaircuts(t *testing.T) {
	perfect := qualityInputs{
		regimeAligned: 1, orderFlow: 1, pattern: 1,
		rsiAligned: 1, fvgPresent: 1, vpProximity: 1,
	}
	high := scoreQuality(perfect, domain.SessionAsia, domain.RiskHigh)
	crit := scoreQuality(perfect, domain.SessionAsia, domain.RiskCritical)
	none := scoreQuality(perfect, domain.SessionAsia, domain.RiskNone)
	if math.Abs(high-none*0.8) > 1e-9 {
		t.Errorf("High haircut: got %f, want %f", high, none*0.8)
	}
	if math.Abs(crit-none*0.7) > 1e-9 {
		t.Errorf("Critical haircut: got %f, want %f", crit, none*0.7)
	}
}

func TestOrderFlowBuckets(t *testing.T) {
	cases := []struct {
		ratio float64
		want  float64
	}{
		{3.5, 1}, {3, 1}, {2.2, 0.8}, {2, 0.8}, {1.7, 0.5}, {1.5, 0.5}, {1.2, 0}, {0, 0},
	}
	for _, tc := range cases {
		if got := orderFlowScore(tc.ratio); got != tc.want {
			t.Errorf("orderFlowScore(%.1f) = %f, want %f", tc.ratio, got, tc.want)
		}
	}
}

func TestPatternBuckets(t *testing.T) {
	cases := []struct {
		count int
		want  float64
	}{
		{4, 1}, {3, 1}, {2, 0.66}, {1, 0.33}, {0, 0},
	}
	for _, tc := range cases {
		if got := patternScore(tc.count); got != tc.want {
			t.Errorf("patternScore(%d) = %f, want %f", tc.count, got, tc.want)
		}
	}
}

func TestSessionAt(t *testing.T) {
	cases := []struct {
		hour int
		want domain.TradingSession
	}{
		{3, domain.SessionAsia},
		{7, domain.SessionLondon},
		{11, domain.SessionLondon},
		{12, domain.SessionBridge},
		{13, domain.SessionBridge},
		{14, domain.SessionNY},
		{20, domain.SessionNY},
		{21, domain.SessionAsia},
		{23, domain.SessionAsia},
	}
	for _, tc := range cases {
		at := timeAtHour(tc.hour)
		if got := SessionAt(at); got != tc.want {
			t.Errorf("SessionAt(%02d:00Z) = %s, want %s", tc.hour, got, tc.want)
		}
	}
}
