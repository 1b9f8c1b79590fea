package signal

import (
	"fmt"
	"math"

	"github.com/meridianbio/riskcore/internal/numerics"
)

// Evans 2001 screening criteria for a PRR signal.
const (
	prrThreshold    = 2.0
	pValueThreshold = 0.05
	minCaseCount    = 3
)

// PRRResult is the proportional reporting ratio with its chi-squared test.
// Status is insufficient_data when a denominator of the ratio is zero.
type PRRResult struct {
	PRR    float64      `json:"prr"`
	Chi2   float64      `json:"chi2"`
	PValue float64      `json:"p_value"`
	Signal bool         `json:"signal"`
	Status ResultStatus `json:"status"`
}

// ComputePRR computes PRR = (a/(a+b)) / (c/(c+d)) with a Yates-corrected
// chi-squared statistic. Signal requires PRR >= 2, p < 0.05 and a >= 3.
func ComputePRR(t ContingencyTable) (PRRResult, error) {
	if err := t.Validate(); err != nil {
		return PRRResult{}, err
	}

	// The ratio is undefined when either exposure row is empty or the
	// reference group has no target events.
	if t.A+t.B == 0 || t.C+t.D == 0 || t.C == 0 {
		return PRRResult{Status: StatusInsufficientData}, nil
	}

	prr := (float64(t.A) / float64(t.A+t.B)) / (float64(t.C) / float64(t.C+t.D))

	chi2, p, err := yatesChiSquare(t)
	if err != nil {
		return PRRResult{}, err
	}

	return PRRResult{
		PRR:    prr,
		Chi2:   chi2,
		PValue: p,
		Signal: prr >= prrThreshold && p < pValueThreshold && t.A >= minCaseCount,
		Status: StatusComputed,
	}, nil
}

// yatesChiSquare is the continuity-corrected chi-squared statistic for a 2x2
// table, with its upper-tail p-value at 1 degree of freedom.
func yatesChiSquare(t ContingencyTable) (float64, float64, error) {
	a, b, c, d := float64(t.A), float64(t.B), float64(t.C), float64(t.D)
	n := a + b + c + d

	r1, r2 := a+b, c+d
	c1, c2 := a+c, b+d
	if r1 == 0 || r2 == 0 || c1 == 0 || c2 == 0 {
		return 0, 1, nil
	}

	diff := math.Abs(a*d-b*c) - n/2
	if diff < 0 {
		diff = 0
	}
	chi2 := n * diff * diff / (r1 * r2 * c1 * c2)

	p, err := numerics.ChiSquareP(chi2, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("chi-squared p-value: %w", err)
	}
	return chi2, p, nil
}
