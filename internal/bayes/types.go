package bayes

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrior         = errors.New("prior parameters must be strictly positive")
	ErrInvalidObservation   = errors.New("invalid observation")
	ErrNonMonotonicTimeline = errors.New("cumulative timeline regressed between snapshots")
)

// PriorSpec is a Beta prior over an adverse-event rate.
type PriorSpec struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// JeffreysPrior returns the Beta(0.5, 0.5) reference prior.
func JeffreysPrior() PriorSpec {
	return PriorSpec{Alpha: 0.5, Beta: 0.5}
}

// Validate checks that both prior parameters are strictly positive.
func (p PriorSpec) Validate() error {
	if p.Alpha <= 0 || p.Beta <= 0 {
		return fmt.Errorf("%w: beta(%g, %g)", ErrInvalidPrior, p.Alpha, p.Beta)
	}
	return nil
}

// Observation is a binomial trial outcome: Events adverse events in N subjects.
type Observation struct {
	Events int `json:"events"`
	N      int `json:"n"`
}

// Validate rejects negative counts and events exceeding the sample size.
// Invalid observations are refused eagerly, never clamped.
func (o Observation) Validate() error {
	if o.Events < 0 || o.N < 0 {
		return fmt.Errorf("%w: negative counts (events=%d, n=%d)", ErrInvalidObservation, o.Events, o.N)
	}
	if o.Events > o.N {
		return fmt.Errorf("%w: events=%d exceeds n=%d", ErrInvalidObservation, o.Events, o.N)
	}
	return nil
}

// Posterior is the updated Beta belief over the rate, with its exact
// equal-tailed 95% credible interval.
type Posterior struct {
	Alpha  float64 `json:"alpha"`
	Beta   float64 `json:"beta"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	CILow  float64 `json:"ci_low"`
	CIHigh float64 `json:"ci_high"`
}

// Snapshot is one cumulative point on an evidence timeline. Events and N are
// totals observed so far, not increments.
type Snapshot struct {
	Label       string      `json:"label"`
	Observation Observation `json:"observation"`
}

// AccrualPoint is the posterior at one cumulative snapshot.
type AccrualPoint struct {
	Label       string      `json:"label"`
	Observation Observation `json:"observation"`
	Posterior   Posterior   `json:"posterior"`
}
