package bayes

import (
	"fmt"

	"github.com/meridianbio/riskcore/internal/numerics"
)

// BoundaryConfig parameterizes a stopping-boundary table. TargetRate is the
// clinically meaningful rate the posterior is thresholded against; the two
// thresholds are posterior-probability cutoffs, not p-values.
type BoundaryConfig struct {
	NMax              int     `json:"n_max"`
	Step              int     `json:"step"`
	TargetRate        float64 `json:"target_rate"`
	EfficacyThreshold float64 `json:"efficacy_threshold"`
	FutilityThreshold float64 `json:"futility_threshold"`
}

// DefaultBoundaryConfig returns a conventional monitoring setup: every 10
// subjects, 97.5% posterior certainty to stop for excess risk, 90% to stop
// for futility.
func DefaultBoundaryConfig(nMax int, targetRate float64) BoundaryConfig {
	return BoundaryConfig{
		NMax:              nMax,
		Step:              10,
		TargetRate:        targetRate,
		EfficacyThreshold: 0.975,
		FutilityThreshold: 0.90,
	}
}

func (c BoundaryConfig) validate() error {
	if c.NMax <= 0 {
		return fmt.Errorf("%w: n_max=%d", ErrInvalidObservation, c.NMax)
	}
	if c.TargetRate <= 0 || c.TargetRate >= 1 {
		return fmt.Errorf("%w: target rate %g outside (0, 1)", ErrInvalidPrior, c.TargetRate)
	}
	if c.EfficacyThreshold <= 0.5 || c.EfficacyThreshold >= 1 ||
		c.FutilityThreshold <= 0.5 || c.FutilityThreshold >= 1 {
		return fmt.Errorf("%w: thresholds must lie in (0.5, 1)", ErrInvalidPrior)
	}
	return nil
}

// BoundaryRow is one interim look. EfficacyEvents is the smallest event count
// at which P(rate > target) reaches the efficacy threshold (-1 if unreachable
// at this n); FutilityEvents is the largest event count at which
// P(rate < target) reaches the futility threshold (-1 if unreachable).
type BoundaryRow struct {
	N              int     `json:"n"`
	EfficacyEvents int     `json:"efficacy_events"`
	FutilityEvents int     `json:"futility_events"`
	ProbAtEfficacy float64 `json:"prob_at_efficacy"`
	ProbAtFutility float64 `json:"prob_at_futility"`
}

// StoppingDecision is the evaluation of an actual interim observation against
// the configured thresholds.
type StoppingDecision struct {
	Observation  Observation `json:"observation"`
	ProbAbove    float64     `json:"prob_above_target"`
	ProbBelow    float64     `json:"prob_below_target"`
	StopEfficacy bool        `json:"stop_efficacy"`
	StopFutility bool        `json:"stop_futility"`
}

// ComputeStoppingBoundaries builds the boundary table for interim sample sizes
// step, 2*step, ... up to NMax. Direct posterior-probability thresholding only;
// no hypothesis-testing machinery.
func ComputeStoppingBoundaries(prior PriorSpec, cfg BoundaryConfig) ([]BoundaryRow, error) {
	if err := prior.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	step := cfg.Step
	if step <= 0 {
		step = 1
	}

	var rows []BoundaryRow
	for n := step; n <= cfg.NMax; n += step {
		row := BoundaryRow{N: n, EfficacyEvents: -1, FutilityEvents: -1}

		// P(rate > target | e, n) is monotone increasing in e, so the first
		// crossing is the boundary.
		for e := 0; e <= n; e++ {
			above, err := tailAbove(prior, e, n, cfg.TargetRate)
			if err != nil {
				return nil, err
			}
			if above >= cfg.EfficacyThreshold {
				row.EfficacyEvents = e
				row.ProbAtEfficacy = above
				break
			}
		}

		// P(rate < target | e, n) is monotone decreasing in e; scan for the
		// last event count still past the futility threshold.
		for e := 0; e <= n; e++ {
			above, err := tailAbove(prior, e, n, cfg.TargetRate)
			if err != nil {
				return nil, err
			}
			if 1-above >= cfg.FutilityThreshold {
				row.FutilityEvents = e
				row.ProbAtFutility = 1 - above
			} else {
				break
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// EvaluateStopping thresholds the posterior of one interim observation.
func EvaluateStopping(prior PriorSpec, obs Observation, cfg BoundaryConfig) (StoppingDecision, error) {
	if err := prior.Validate(); err != nil {
		return StoppingDecision{}, err
	}
	if err := obs.Validate(); err != nil {
		return StoppingDecision{}, err
	}
	if err := cfg.validate(); err != nil {
		return StoppingDecision{}, err
	}

	above, err := tailAbove(prior, obs.Events, obs.N, cfg.TargetRate)
	if err != nil {
		return StoppingDecision{}, err
	}

	return StoppingDecision{
		Observation:  obs,
		ProbAbove:    above,
		ProbBelow:    1 - above,
		StopEfficacy: above >= cfg.EfficacyThreshold,
		StopFutility: 1-above >= cfg.FutilityThreshold,
	}, nil
}

func tailAbove(prior PriorSpec, events, n int, target float64) (float64, error) {
	alpha := prior.Alpha + float64(events)
	beta := prior.Beta + float64(n-events)
	return numerics.BetaTailAbove(alpha, beta, target)
}
