package bayes

import (
	"fmt"

	"github.com/meridianbio/riskcore/internal/numerics"
)

// CredibleLevel is the equal-tailed interval level reported on every posterior.
const CredibleLevel = 0.95

// ComputePosterior applies the conjugate Beta-Binomial update:
// alpha' = alpha + events, beta' = beta + (n - events). Interval bounds are
// exact Beta quantiles, so results are reproducible bit-for-bit for the same
// inputs.
func ComputePosterior(prior PriorSpec, obs Observation) (Posterior, error) {
	if err := prior.Validate(); err != nil {
		return Posterior{}, err
	}
	if err := obs.Validate(); err != nil {
		return Posterior{}, err
	}

	alpha := prior.Alpha + float64(obs.Events)
	beta := prior.Beta + float64(obs.N-obs.Events)

	low, high, err := numerics.BetaInterval(alpha, beta, CredibleLevel)
	if err != nil {
		return Posterior{}, fmt.Errorf("posterior interval: %w", err)
	}
	median, err := numerics.BetaMedian(alpha, beta)
	if err != nil {
		return Posterior{}, fmt.Errorf("posterior median: %w", err)
	}

	return Posterior{
		Alpha:  alpha,
		Beta:   beta,
		Mean:   alpha / (alpha + beta),
		Median: median,
		CILow:  low,
		CIHigh: high,
	}, nil
}

// ComputeEvidenceAccrual updates the prior independently at each cumulative
// snapshot of a timeline. Each snapshot must carry totals observed so far;
// a snapshot whose events or sample size regresses relative to the previous
// one fails with ErrNonMonotonicTimeline. This guards against double-counting
// events between steps.
func ComputeEvidenceAccrual(prior PriorSpec, timeline []Snapshot) ([]AccrualPoint, error) {
	if err := prior.Validate(); err != nil {
		return nil, err
	}

	points := make([]AccrualPoint, 0, len(timeline))
	prev := Observation{}
	for i, snap := range timeline {
		obs := snap.Observation
		if err := obs.Validate(); err != nil {
			return nil, fmt.Errorf("snapshot %q: %w", snap.Label, err)
		}
		if i > 0 && (obs.N < prev.N || obs.Events < prev.Events) {
			return nil, fmt.Errorf("%w: snapshot %q has (events=%d, n=%d) after (events=%d, n=%d)",
				ErrNonMonotonicTimeline, snap.Label, obs.Events, obs.N, prev.Events, prev.N)
		}

		post, err := ComputePosterior(prior, obs)
		if err != nil {
			return nil, fmt.Errorf("snapshot %q: %w", snap.Label, err)
		}
		points = append(points, AccrualPoint{
			Label:       snap.Label,
			Observation: obs,
			Posterior:   post,
		})
		prev = obs
	}

	return points, nil
}
