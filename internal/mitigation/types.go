package mitigation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStrategy        = errors.New("invalid mitigation strategy")
	ErrInvalidCorrelation     = errors.New("correlation must lie in [0, 1]")
	ErrInsufficientStrategies = errors.New("combination requires at least two strategies")
)

// Strategy is one risk-reducing intervention with its reported relative risk
// and 95% interval.
type Strategy struct {
	ID            string  `json:"id"`
	RelativeRisk  float64 `json:"relative_risk"`
	CILow         float64 `json:"ci_low"`
	CIHigh        float64 `json:"ci_high"`
	EvidenceGrade string  `json:"evidence_grade,omitempty"`
}

// Validate enforces 0 < ci_low <= rr <= ci_high and a non-empty id.
func (s Strategy) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidStrategy)
	}
	if s.RelativeRisk <= 0 {
		return fmt.Errorf("%w: %s has relative risk %g", ErrInvalidStrategy, s.ID, s.RelativeRisk)
	}
	if s.CILow <= 0 || s.CILow > s.RelativeRisk || s.CIHigh < s.RelativeRisk {
		return fmt.Errorf("%w: %s interval [%g, %g] does not bracket %g",
			ErrInvalidStrategy, s.ID, s.CILow, s.CIHigh, s.RelativeRisk)
	}
	return nil
}

// CorrelationMatrix holds pairwise mechanistic overlap between strategies.
// Unlisted pairs default to 0 (independence); rho=1 means full redundancy.
type CorrelationMatrix struct {
	rho map[[2]string]float64
}

// NewCorrelationMatrix creates an empty matrix (all pairs independent).
func NewCorrelationMatrix() *CorrelationMatrix {
	return &CorrelationMatrix{rho: make(map[[2]string]float64)}
}

// Set records the correlation between two strategies. The matrix is
// symmetric, so the pair order does not matter.
func (m *CorrelationMatrix) Set(a, b string, rho float64) error {
	if rho < 0 || rho > 1 {
		return fmt.Errorf("%w: rho(%s, %s) = %g", ErrInvalidCorrelation, a, b, rho)
	}
	m.rho[pairKey(a, b)] = rho
	return nil
}

// Rho returns the correlation between two strategies, 0 when unlisted and 1
// on the diagonal.
func (m *CorrelationMatrix) Rho(a, b string) float64 {
	if a == b {
		return 1
	}
	if m == nil || m.rho == nil {
		return 0
	}
	return m.rho[pairKey(a, b)]
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// MergeStep is one recorded pairwise merge: which two strategies were
// combined, under what correlation, and the resulting relative risk.
type MergeStep struct {
	Left       string  `json:"left"`
	Right      string  `json:"right"`
	Rho        float64 `json:"rho"`
	CombinedRR float64 `json:"combined_rr"`
	ResultID   string  `json:"result_id"`
}

// CombinationResult is the combined effect of two or more strategies. The
// merge trace is part of the contract: combination is not associative in
// general, so the order used must be auditable.
type CombinationResult struct {
	CombinedRR float64     `json:"combined_rr"`
	MergeTrace []MergeStep `json:"merge_trace"`
}
