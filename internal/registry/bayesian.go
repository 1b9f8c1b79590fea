package registry

import (
	"fmt"

	"github.com/meridianbio/riskcore/internal/bayes"
)

// BetaBinomial is the conjugate Bayesian estimator: Beta prior, binomial
// likelihood, exact posterior quantiles. Without an explicit prior it falls
// back to Jeffreys Beta(0.5, 0.5).
type BetaBinomial struct{}

func (*BetaBinomial) ID() string { return "bayesian-beta-binomial" }

func (*BetaBinomial) Applicable(in Input) (bool, string) {
	if in.Observation == nil {
		return false, "requires a single observation (events, n)"
	}
	return true, ""
}

func (m *BetaBinomial) Estimate(in Input) (Estimate, error) {
	if ok, reason := m.Applicable(in); !ok {
		return Estimate{}, fmt.Errorf("%w: %s", ErrNotApplicable, reason)
	}

	prior := bayes.JeffreysPrior()
	if in.Prior != nil {
		prior = *in.Prior
	}

	post, err := bayes.ComputePosterior(prior, *in.Observation)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		ModelID:   m.ID(),
		Point:     post.Mean,
		CILow:     post.CILow,
		CIHigh:    post.CIHigh,
		Rationale: fmt.Sprintf("posterior Beta(%g, %g) with exact 95%% quantiles", post.Alpha, post.Beta),
	}, nil
}
