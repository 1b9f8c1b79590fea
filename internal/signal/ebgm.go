package signal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meridianbio/riskcore/internal/numerics"
)

// ebgm05Threshold is the conventional signal cutoff on the 5th posterior
// percentile (DuMouchel 1999).
const ebgm05Threshold = 2.0

// ObservedExpected is one reference point for the mixture fit: an observed
// report count and its expected count under independence.
type ObservedExpected struct {
	Observed int     `json:"observed"`
	Expected float64 `json:"expected"`
}

// GammaMixture is the fitted two-component Gamma prior over the
// observed/expected ratio. Beta parameters are rates, not scales.
type GammaMixture struct {
	Alpha1 float64 `json:"alpha1"`
	Beta1  float64 `json:"beta1"`
	Alpha2 float64 `json:"alpha2"`
	Beta2  float64 `json:"beta2"`
	Weight float64 `json:"weight"`
}

// EBGMConfig controls the Gamma-Poisson Shrinker. When BackgroundRate is
// positive the target cell's expected count is (a+b)*rate; otherwise it comes
// from the table margins. Reference optionally widens the fit beyond the four
// table cells, e.g. to a whole reporting database.
type EBGMConfig struct {
	BackgroundRate float64            `json:"background_rate"`
	Reference      []ObservedExpected `json:"reference,omitempty"`
	MaxIter        int                `json:"max_iter"`
	Tol            float64            `json:"tol"`
}

// DefaultEBGMConfig returns the standard fit settings.
func DefaultEBGMConfig() EBGMConfig {
	return EBGMConfig{MaxIter: 500, Tol: 1e-6}
}

// EBGMResult is the shrinkage-adjusted disproportionality estimate.
type EBGMResult struct {
	EBGM    float64      `json:"ebgm"`
	EBGM05  float64      `json:"ebgm05"`
	Signal  bool         `json:"signal"`
	Status  ResultStatus `json:"status"`
	Mixture GammaMixture `json:"mixture"`
}

// ComputeEBGM runs the DuMouchel Gamma-Poisson Shrinker for the target cell
// of the table: fit the two-component Gamma mixture over the reference set by
// maximizing the negative-binomial marginal likelihood, then report the
// posterior geometric mean (EBGM) and its 5th percentile (EBGM05). Signal
// requires EBGM05 >= 2. A fit that fails to converge surfaces
// numerics.ErrNumericalInstability rather than a silently wrong number.
func ComputeEBGM(t ContingencyTable, cfg EBGMConfig) (EBGMResult, error) {
	if err := t.Validate(); err != nil {
		return EBGMResult{}, err
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultEBGMConfig().MaxIter
	}
	if cfg.Tol <= 0 {
		cfg.Tol = DefaultEBGMConfig().Tol
	}

	expected := t.ExpectedA()
	if cfg.BackgroundRate > 0 {
		expected = float64(t.A+t.B) * cfg.BackgroundRate
	}
	if expected <= 0 {
		return EBGMResult{Status: StatusInsufficientData}, nil
	}

	ref := cfg.Reference
	if len(ref) == 0 {
		ref = tableReference(t)
	}
	usable := ref[:0:0]
	for _, p := range ref {
		if p.Expected > 0 && p.Observed >= 0 {
			usable = append(usable, p)
		}
	}
	if len(usable) < 2 {
		return EBGMResult{Status: StatusInsufficientData}, nil
	}

	mix, err := FitGammaMixture(usable, cfg.MaxIter, cfg.Tol)
	if err != nil {
		return EBGMResult{}, fmt.Errorf("gamma mixture fit: %w", err)
	}

	ebgm, ebgm05, err := posteriorSummary(mix, t.A, expected)
	if err != nil {
		return EBGMResult{}, err
	}

	return EBGMResult{
		EBGM:    ebgm,
		EBGM05:  ebgm05,
		Signal:  ebgm05 >= ebgm05Threshold,
		Status:  StatusComputed,
		Mixture: mix,
	}, nil
}

// tableReference treats the four table cells as the observed/expected
// reference set under row-column independence.
func tableReference(t ContingencyTable) []ObservedExpected {
	n := float64(t.Total())
	r1, r2 := float64(t.A+t.B), float64(t.C+t.D)
	c1, c2 := float64(t.A+t.C), float64(t.B+t.D)
	return []ObservedExpected{
		{Observed: t.A, Expected: r1 * c1 / n},
		{Observed: t.B, Expected: r1 * c2 / n},
		{Observed: t.C, Expected: r2 * c1 / n},
		{Observed: t.D, Expected: r2 * c2 / n},
	}
}

// FitGammaMixture maximizes the marginal likelihood of the two-component
// negative-binomial mixture over the reference points. Parameters are
// optimized on the log (and logit, for the weight) scale with Nelder-Mead,
// starting from DuMouchel's canonical values.
func FitGammaMixture(ref []ObservedExpected, maxIter int, tol float64) (GammaMixture, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			mix := decodeMixture(x)
			ll := 0.0
			for _, p := range ref {
				ll += mixtureLogLikelihood(mix, p.Observed, p.Expected)
			}
			if math.IsNaN(ll) {
				return math.Inf(1)
			}
			return -ll
		},
	}

	// DuMouchel's starting point: alpha1=0.2, beta1=0.1, alpha2=2, beta2=4, w=1/3.
	x0 := []float64{
		math.Log(0.2), math.Log(0.1),
		math.Log(2.0), math.Log(4.0),
		math.Log(1.0 / 2.0), // logit(1/3)
	}

	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return GammaMixture{}, fmt.Errorf("%w: %v", numerics.ErrNumericalInstability, err)
	}
	if result.Status == optimize.IterationLimit {
		return GammaMixture{}, fmt.Errorf("%w: mixture fit hit iteration limit %d", numerics.ErrNumericalInstability, maxIter)
	}
	if math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return GammaMixture{}, fmt.Errorf("%w: degenerate mixture likelihood", numerics.ErrNumericalInstability)
	}

	return decodeMixture(result.X), nil
}

func decodeMixture(x []float64) GammaMixture {
	return GammaMixture{
		Alpha1: math.Exp(x[0]),
		Beta1:  math.Exp(x[1]),
		Alpha2: math.Exp(x[2]),
		Beta2:  math.Exp(x[3]),
		Weight: 1 / (1 + math.Exp(-x[4])),
	}
}

// mixtureLogLikelihood is the log marginal probability of observing n reports
// with expected count e under the mixture prior: a weighted pair of
// negative-binomial components.
func mixtureLogLikelihood(m GammaMixture, n int, e float64) float64 {
	l1 := negBinomLogProb(n, e, m.Alpha1, m.Beta1)
	l2 := negBinomLogProb(n, e, m.Alpha2, m.Beta2)
	return logSumExp(math.Log(m.Weight)+l1, math.Log(1-m.Weight)+l2)
}

// negBinomLogProb is log P(N=n) when N|lambda ~ Poisson(lambda*e) and
// lambda ~ Gamma(alpha, rate beta).
func negBinomLogProb(n int, e, alpha, beta float64) float64 {
	nf := float64(n)
	lgAN, _ := math.Lgamma(alpha + nf)
	lgA, _ := math.Lgamma(alpha)
	lgN, _ := math.Lgamma(nf + 1)
	return lgAN - lgA - lgN +
		alpha*math.Log(beta/(beta+e)) +
		nf*math.Log(e/(beta+e))
}

func logSumExp(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}

// posteriorSummary computes EBGM and EBGM05 for one cell. The posterior over
// the ratio is the updated mixture: Gamma(alpha_i+n, beta_i+e) components with
// the weight updated by each component's marginal likelihood.
func posteriorSummary(m GammaMixture, n int, e float64) (ebgm, ebgm05 float64, err error) {
	l1 := math.Log(m.Weight) + negBinomLogProb(n, e, m.Alpha1, m.Beta1)
	l2 := math.Log(1-m.Weight) + negBinomLogProb(n, e, m.Alpha2, m.Beta2)
	q := math.Exp(l1 - logSumExp(l1, l2))

	nf := float64(n)
	a1, b1 := m.Alpha1+nf, m.Beta1+e
	a2, b2 := m.Alpha2+nf, m.Beta2+e

	// Posterior geometric mean: exp E[log lambda].
	ebgm = math.Exp(q*(mathext.Digamma(a1)-math.Log(b1)) + (1-q)*(mathext.Digamma(a2)-math.Log(b2)))

	ebgm05, err = mixtureQuantile(q, a1, b1, a2, b2, 0.05)
	if err != nil {
		return 0, 0, err
	}
	return ebgm, ebgm05, nil
}

// mixtureQuantile inverts the posterior mixture CDF by bisection.
func mixtureQuantile(q, a1, b1, a2, b2, p float64) (float64, error) {
	g1 := distuv.Gamma{Alpha: a1, Beta: b1}
	g2 := distuv.Gamma{Alpha: a2, Beta: b2}
	cdf := func(x float64) float64 {
		return q*g1.CDF(x) + (1-q)*g2.CDF(x)
	}

	hi := math.Max(a1/b1, a2/b2) * 2
	for i := 0; cdf(hi) < p; i++ {
		if i > 200 {
			return 0, fmt.Errorf("%w: mixture quantile bracket", numerics.ErrNumericalInstability)
		}
		hi *= 2
	}

	lo := 0.0
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if cdf(mid) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}
