package numerics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidParameters    = errors.New("invalid distribution parameters")
	ErrNumericalInstability = errors.New("numerical routine failed to converge")
)

// z975 is the standard normal 97.5th percentile, used to recover a
// LogNormal sigma from a reported 95% interval.
const z975 = 1.959963984540054

// BetaInterval returns the equal-tailed credible interval of a Beta(alpha, beta)
// distribution at the given level (e.g. 0.95). Bounds come from the inverse
// regularized incomplete Beta function, never a normal approximation.
func BetaInterval(alpha, beta, level float64) (float64, float64, error) {
	if alpha <= 0 || beta <= 0 {
		return 0, 0, fmt.Errorf("%w: beta(%g, %g)", ErrInvalidParameters, alpha, beta)
	}
	if level <= 0 || level >= 1 {
		return 0, 0, fmt.Errorf("%w: interval level %g", ErrInvalidParameters, level)
	}

	d := distuv.Beta{Alpha: alpha, Beta: beta}
	tail := (1 - level) / 2
	low := d.Quantile(tail)
	high := d.Quantile(1 - tail)

	if math.IsNaN(low) || math.IsNaN(high) {
		return 0, 0, fmt.Errorf("%w: beta(%g, %g) quantile", ErrNumericalInstability, alpha, beta)
	}
	return low, high, nil
}

// BetaQuantile returns the p-th quantile of a Beta(alpha, beta) distribution.
func BetaQuantile(alpha, beta, p float64) (float64, error) {
	if alpha <= 0 || beta <= 0 {
		return 0, fmt.Errorf("%w: beta(%g, %g)", ErrInvalidParameters, alpha, beta)
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %g", ErrInvalidParameters, p)
	}

	q := distuv.Beta{Alpha: alpha, Beta: beta}.Quantile(p)
	if math.IsNaN(q) {
		return 0, fmt.Errorf("%w: beta(%g, %g) quantile at %g", ErrNumericalInstability, alpha, beta, p)
	}
	return q, nil
}

// BetaMedian returns the exact 50th percentile of a Beta(alpha, beta) distribution.
func BetaMedian(alpha, beta float64) (float64, error) {
	return BetaQuantile(alpha, beta, 0.5)
}

// BetaTailAbove returns P(X > threshold) for X ~ Beta(alpha, beta).
func BetaTailAbove(alpha, beta, threshold float64) (float64, error) {
	if alpha <= 0 || beta <= 0 {
		return 0, fmt.Errorf("%w: beta(%g, %g)", ErrInvalidParameters, alpha, beta)
	}
	if threshold <= 0 {
		return 1, nil
	}
	if threshold >= 1 {
		return 0, nil
	}
	return 1 - distuv.Beta{Alpha: alpha, Beta: beta}.CDF(threshold), nil
}

// ChiSquareP returns the upper-tail p-value of a chi-squared statistic with
// df degrees of freedom.
func ChiSquareP(chi2 float64, df int) (float64, error) {
	if df <= 0 {
		return 0, fmt.Errorf("%w: %d degrees of freedom", ErrInvalidParameters, df)
	}
	if chi2 < 0 {
		return 0, fmt.Errorf("%w: negative chi-squared statistic %g", ErrInvalidParameters, chi2)
	}
	return distuv.ChiSquared{K: float64(df)}.Survival(chi2), nil
}

// LogNormalFromCI recovers the (mu, sigma) of a LogNormal distribution whose
// median matches the reported point estimate and whose 95% interval matches
// the reported bounds. A degenerate interval (low == high) yields sigma 0.
func LogNormalFromCI(point, low, high float64) (mu, sigma float64, err error) {
	if point <= 0 || low <= 0 || high < low {
		return 0, 0, fmt.Errorf("%w: point %g, interval [%g, %g]", ErrInvalidParameters, point, low, high)
	}
	mu = math.Log(point)
	sigma = math.Log(high/low) / (2 * z975)
	return mu, sigma, nil
}
