package registry

import (
	"fmt"
	"math"
)

// EmpiricalBayes shrinks the target endpoint's observed rate toward the grand
// mean across related adverse-event types, with the shrinkage weight set by
// method of moments: the more between-endpoint variance the data shows beyond
// sampling noise, the less shrinkage is applied.
type EmpiricalBayes struct{}

func (*EmpiricalBayes) ID() string { return "empirical-bayes-shrinkage" }

func (*EmpiricalBayes) Applicable(in Input) (bool, string) {
	if len(in.Endpoints) < 2 {
		return false, "shrinkage requires at least 2 related endpoints"
	}
	for _, e := range in.Endpoints {
		if e.N <= 0 {
			return false, fmt.Sprintf("endpoint %q has no subjects", e.ID)
		}
	}
	return true, ""
}

func (m *EmpiricalBayes) Estimate(in Input) (Estimate, error) {
	if ok, reason := m.Applicable(in); !ok {
		return Estimate{}, fmt.Errorf("%w: %s", ErrInsufficientData, reason)
	}

	k := len(in.Endpoints)
	rates := make([]float64, k)
	var totalEvents, totalN int
	for i, e := range in.Endpoints {
		if e.Events < 0 || e.Events > e.N {
			return Estimate{}, fmt.Errorf("%w: endpoint %q has events=%d, n=%d", ErrInsufficientData, e.ID, e.Events, e.N)
		}
		rates[i] = float64(e.Events) / float64(e.N)
		totalEvents += e.Events
		totalN += e.N
	}
	grand := float64(totalEvents) / float64(totalN)

	// Between-endpoint variance by method of moments: observed variance of
	// the rates minus the average binomial sampling variance, floored at 0.
	var obsVar, sampVar float64
	for i, e := range in.Endpoints {
		diff := rates[i] - grand
		obsVar += diff * diff
		sampVar += grand * (1 - grand) / float64(e.N)
	}
	obsVar /= float64(k - 1)
	sampVar /= float64(k)
	tau2 := math.Max(0, obsVar-sampVar)

	target := in.Endpoints[0]
	targetRate := rates[0]
	targetSampVar := grand * (1 - grand) / float64(target.N)

	// Shrinkage weight toward the grand mean; full shrinkage when no real
	// between-endpoint variance survives.
	shrink := 1.0
	if targetSampVar+tau2 > 0 {
		shrink = targetSampVar / (targetSampVar + tau2)
	}
	point := shrink*grand + (1-shrink)*targetRate

	postVar := (1 - shrink) * targetSampVar
	margin := z95 * math.Sqrt(postVar)
	if tau2 == 0 {
		// Degenerate posterior: fall back to the sampling spread of the
		// grand mean over the pooled sample.
		margin = z95 * math.Sqrt(grand*(1-grand)/float64(totalN))
	}

	return Estimate{
		ModelID: m.ID(),
		Point:   point,
		CILow:   math.Max(0, point-margin),
		CIHigh:  math.Min(1, point+margin),
		Rationale: fmt.Sprintf("method-of-moments shrinkage of %q toward grand mean %.4f (weight %.2f, tau2=%.6f) across %d endpoints",
			target.ID, grand, shrink, tau2, k),
	}, nil
}
