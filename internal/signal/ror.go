package signal

import "math"

// rorCIz is the normal 97.5th percentile used on the log-odds scale. The
// normal approximation here is standard practice for the ROR interval and is
// distinct from the exact Beta quantiles used for posterior intervals.
const rorCIz = 1.959963984540054

// RORResult is the reporting odds ratio with its 95% interval.
type RORResult struct {
	ROR    float64      `json:"ror"`
	CILow  float64      `json:"ci_low"`
	CIHigh float64      `json:"ci_high"`
	Signal bool         `json:"signal"`
	Status ResultStatus `json:"status"`
}

// ComputeROR computes ROR = (a*d)/(b*c) with the interval derived from the
// log-odds standard error sqrt(1/a + 1/b + 1/c + 1/d). Signal requires the
// interval's lower bound to exceed 1. Any zero cell makes both the ratio and
// its standard error undefined, reported as insufficient_data.
func ComputeROR(t ContingencyTable) (RORResult, error) {
	if err := t.Validate(); err != nil {
		return RORResult{}, err
	}

	if t.A == 0 || t.B == 0 || t.C == 0 || t.D == 0 {
		return RORResult{Status: StatusInsufficientData}, nil
	}

	a, b, c, d := float64(t.A), float64(t.B), float64(t.C), float64(t.D)
	ror := (a * d) / (b * c)
	se := math.Sqrt(1/a + 1/b + 1/c + 1/d)

	logROR := math.Log(ror)
	low := math.Exp(logROR - rorCIz*se)
	high := math.Exp(logROR + rorCIz*se)

	return RORResult{
		ROR:    ror,
		CILow:  low,
		CIHigh: high,
		Signal: low > 1.0,
		Status: StatusComputed,
	}, nil
}
