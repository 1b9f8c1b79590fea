package registry

import (
	"fmt"
	"math"

	"github.com/meridianbio/riskcore/internal/bayes"
)

// PredictivePosterior answers "what event rate should the next study of size
// m expect?" through the Beta-Binomial predictive distribution of the fitted
// posterior. Its interval is wider than the posterior's because it carries
// sampling variation of the future study on top of rate uncertainty.
type PredictivePosterior struct{}

func (*PredictivePosterior) ID() string { return "predictive-posterior" }

func (*PredictivePosterior) Applicable(in Input) (bool, string) {
	if in.Observation == nil {
		return false, "requires a fitted posterior (prior + observation)"
	}
	if in.FutureN <= 0 {
		return false, "requires a target future study size"
	}
	return true, ""
}

func (m *PredictivePosterior) Estimate(in Input) (Estimate, error) {
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

	future := in.FutureN
	lowK, highK := betaBinomialQuantiles(post.Alpha, post.Beta, future, 0.025, 0.975)

	return Estimate{
		ModelID:   m.ID(),
		Point:     post.Alpha / (post.Alpha + post.Beta),
		CILow:     float64(lowK) / float64(future),
		CIHigh:    float64(highK) / float64(future),
		Rationale: fmt.Sprintf("Beta-Binomial predictive event rate for a future study of n=%d", future),
	}, nil
}

// betaBinomialQuantiles walks the predictive pmf once, returning the smallest
// event counts whose cumulative mass reaches each tail probability.
func betaBinomialQuantiles(alpha, beta float64, n int, pLow, pHigh float64) (int, int) {
	lowK, highK := -1, -1
	cum := 0.0
	for k := 0; k <= n; k++ {
		cum += math.Exp(betaBinomialLogPMF(alpha, beta, n, k))
		if lowK < 0 && cum >= pLow {
			lowK = k
		}
		if highK < 0 && cum >= pHigh {
			highK = k
			break
		}
	}
	if lowK < 0 {
		lowK = n
	}
	if highK < 0 {
		highK = n
	}
	return lowK, highK
}

// betaBinomialLogPMF is log P(K=k) for K ~ BetaBinomial(alpha, beta, n).
func betaBinomialLogPMF(alpha, beta float64, n, k int) float64 {
	return logChoose(n, k) +
		logBeta(alpha+float64(k), beta+float64(n-k)) -
		logBeta(alpha, beta)
}

func logChoose(n, k int) float64 {
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

func logBeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}
