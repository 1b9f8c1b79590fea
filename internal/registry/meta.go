package registry

import (
	"fmt"
	"math"
)

// DerSimonianLaird is random-effects meta-analysis on the Freeman-Tukey
// double-arcsine scale, which stabilizes the variance of sparse proportions.
type DerSimonianLaird struct{}

func (*DerSimonianLaird) ID() string { return "dersimonian-laird" }

func (*DerSimonianLaird) Applicable(in Input) (bool, string) {
	if len(in.Studies) < 2 {
		return false, "random-effects meta-analysis requires at least 2 independent studies"
	}
	for _, s := range in.Studies {
		if s.N <= 0 {
			return false, fmt.Sprintf("study %q has no subjects", s.ID)
		}
	}
	return true, ""
}

func (m *DerSimonianLaird) Estimate(in Input) (Estimate, error) {
	if ok, reason := m.Applicable(in); !ok {
		return Estimate{}, fmt.Errorf("%w: %s", ErrInsufficientData, reason)
	}

	k := len(in.Studies)
	ts := make([]float64, k)   // transformed rates
	vars := make([]float64, k) // within-study variances
	for i, s := range in.Studies {
		if s.Events < 0 || s.Events > s.N {
			return Estimate{}, fmt.Errorf("%w: study %q has events=%d, n=%d", ErrInsufficientData, s.ID, s.Events, s.N)
		}
		ts[i] = freemanTukey(s.Events, s.N)
		vars[i] = 1 / (4*float64(s.N) + 2)
	}

	// Fixed-effect weights for the heterogeneity statistic.
	var sumW, sumWT, sumW2 float64
	for i := range ts {
		w := 1 / vars[i]
		sumW += w
		sumWT += w * ts[i]
		sumW2 += w * w
	}
	fixed := sumWT / sumW

	var q float64
	for i := range ts {
		diff := ts[i] - fixed
		q += diff * diff / vars[i]
	}

	// DerSimonian-Laird between-study variance, floored at 0.
	tau2 := 0.0
	if denom := sumW - sumW2/sumW; denom > 0 {
		tau2 = math.Max(0, (q-float64(k-1))/denom)
	}

	var sumWStar, sumWStarT float64
	for i := range ts {
		w := 1 / (vars[i] + tau2)
		sumWStar += w
		sumWStarT += w * ts[i]
	}
	pooled := sumWStarT / sumWStar
	se := math.Sqrt(1 / sumWStar)

	return Estimate{
		ModelID: m.ID(),
		Point:   invFreemanTukey(pooled),
		CILow:   invFreemanTukey(pooled - z95*se),
		CIHigh:  invFreemanTukey(pooled + z95*se),
		Rationale: fmt.Sprintf("random-effects pooling of %d studies (Q=%.3f, tau2=%.5f) on the Freeman-Tukey scale",
			k, q, tau2),
	}, nil
}

// freemanTukey is the double-arcsine transform of events/n.
func freemanTukey(events, n int) float64 {
	e, nn := float64(events), float64(n)
	return 0.5 * (math.Asin(math.Sqrt(e/(nn+1))) + math.Asin(math.Sqrt((e+1)/(nn+1))))
}

// invFreemanTukey maps a transformed value back to a proportion, clamped to
// the transform's valid range.
func invFreemanTukey(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= math.Pi/2 {
		return 1
	}
	s := math.Sin(t)
	return s * s
}
