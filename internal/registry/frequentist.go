package registry

import (
	"fmt"
	"math"

	"github.com/meridianbio/riskcore/internal/numerics"
)

// z95 is the standard normal 97.5th percentile used by the Wilson interval.
const z95 = 1.959963984540054

// ClopperPearson is the exact binomial confidence interval, expressed through
// Beta quantiles. Defined at the boundaries: the lower bound is 0 when no
// events were observed and the upper bound is 1 when every subject had one.
type ClopperPearson struct{}

func (*ClopperPearson) ID() string { return "clopper-pearson" }

func (*ClopperPearson) Applicable(in Input) (bool, string) {
	if in.Observation == nil {
		return false, "requires a single observation (events, n)"
	}
	if in.Observation.N == 0 {
		return false, "requires at least one subject"
	}
	return true, ""
}

func (m *ClopperPearson) Estimate(in Input) (Estimate, error) {
	if ok, reason := m.Applicable(in); !ok {
		return Estimate{}, fmt.Errorf("%w: %s", ErrNotApplicable, reason)
	}
	obs := *in.Observation
	if err := obs.Validate(); err != nil {
		return Estimate{}, err
	}

	x, n := float64(obs.Events), float64(obs.N)

	low := 0.0
	if obs.Events > 0 {
		q, err := numerics.BetaQuantile(x, n-x+1, 0.025)
		if err != nil {
			return Estimate{}, err
		}
		low = q
	}
	high := 1.0
	if obs.Events < obs.N {
		q, err := numerics.BetaQuantile(x+1, n-x, 0.975)
		if err != nil {
			return Estimate{}, err
		}
		high = q
	}

	return Estimate{
		ModelID:   m.ID(),
		Point:     x / n,
		CILow:     low,
		CIHigh:    high,
		Rationale: "exact binomial interval (no approximation), conservative for small n",
	}, nil
}

// Wilson is the score interval: the point estimate is recentered toward 1/2,
// which keeps the interval honest at extreme rates.
type Wilson struct{}

func (*Wilson) ID() string { return "wilson-score" }

func (*Wilson) Applicable(in Input) (bool, string) {
	if in.Observation == nil {
		return false, "requires a single observation (events, n)"
	}
	if in.Observation.N == 0 {
		return false, "requires at least one subject"
	}
	return true, ""
}

func (m *Wilson) Estimate(in Input) (Estimate, error) {
	if ok, reason := m.Applicable(in); !ok {
		return Estimate{}, fmt.Errorf("%w: %s", ErrNotApplicable, reason)
	}
	obs := *in.Observation
	if err := obs.Validate(); err != nil {
		return Estimate{}, err
	}

	p := float64(obs.Events) / float64(obs.N)
	n := float64(obs.N)
	z2 := z95 * z95

	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	margin := z95 * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom

	return Estimate{
		ModelID:   m.ID(),
		Point:     p,
		CILow:     math.Max(0, center-margin),
		CIHigh:    math.Min(1, center+margin),
		Rationale: "score interval, center-adjusted; behaves well at boundary-proximate rates",
	}, nil
}
