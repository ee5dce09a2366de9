package scalp

import "context"

// LocalPolicy is a PolicyOracle for deployments without an external policy
// service: it approves the highest-quality submitted candidate above a
// quality floor.
type LocalPolicy struct {
	// MinQuality rejects candidates below this score. Zero means the 0.45
	// default.
	MinQuality float64
}

const localPolicyMinQuality = 0.45

func (p LocalPolicy) Decide(_ context.Context, req PolicyRequest) (PolicyVerdict, error) {
	floor := p.MinQuality
	if floor <= 0 {
		floor = localPolicyMinQuality
	}

	var best PolicyCandidate
	for _, c := range req.Candidates {
		if c.Quality > best.Quality {
			best = c
		}
	}
	if best.Model == "" || best.Quality < floor {
		return PolicyVerdict{Allow: false}, nil
	}
	return PolicyVerdict{
		Allow:     true,
		Model:     best.Model,
		Side:      best.Side,
		TPRR:      best.TPRR,
		EntryHint: best.Entry,
	}, nil
}

var _ PolicyOracle = LocalPolicy{}
