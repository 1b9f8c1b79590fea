package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/meridianbio/riskcore/internal/bayes"
)

var (
	ErrNotApplicable    = errors.New("estimator not applicable to the supplied data shape")
	ErrInsufficientData = errors.New("insufficient data for estimator")
)

// Study is one independent study contributing events out of n subjects.
type Study struct {
	ID     string `json:"id"`
	Events int    `json:"events"`
	N      int    `json:"n"`
}

// Rate returns the observed event rate of the study.
func (s Study) Rate() float64 {
	if s.N == 0 {
		return 0
	}
	return float64(s.Events) / float64(s.N)
}

// Endpoint is one adverse-event type related to the endpoint of interest;
// the first endpoint in Input.Endpoints is the target, the rest are siblings
// that inform shrinkage.
type Endpoint struct {
	ID     string `json:"id"`
	Events int    `json:"events"`
	N      int    `json:"n"`
}

// Subject is one time-to-event record: follow-up time and whether the
// adverse event occurred at that time (false means censored).
type Subject struct {
	Time  float64 `json:"time"`
	Event bool    `json:"event"`
}

// SurvivalData is a time-to-event dataset with an evaluation horizon; a zero
// horizon means the latest observed time.
type SurvivalData struct {
	Subjects []Subject `json:"subjects"`
	Horizon  float64   `json:"horizon"`
}

// Input is the data a caller supplies to the registry. Estimators declare
// which fields they need through their applicability predicates.
type Input struct {
	Prior       *bayes.PriorSpec   `json:"prior,omitempty"`
	Observation *bayes.Observation `json:"observation,omitempty"`
	Studies     []Study            `json:"studies,omitempty"`
	Endpoints   []Endpoint         `json:"endpoints,omitempty"`
	Survival    *SurvivalData      `json:"survival,omitempty"`
	FutureN     int                `json:"future_n,omitempty"`
}

// Estimate is one model's output. Applicability problems never reach here;
// they surface through Applicable or as errors.
type Estimate struct {
	ModelID   string  `json:"model_id"`
	Point     float64 `json:"point"`
	CILow     float64 `json:"ci_low"`
	CIHigh    float64 `json:"ci_high"`
	Rationale string  `json:"rationale"`
}

// Estimator is one interchangeable point/interval estimation model.
type Estimator interface {
	ID() string
	// Applicable reports whether the input has the shape this model needs,
	// with a human-readable reason when it does not.
	Applicable(in Input) (bool, string)
	Estimate(in Input) (Estimate, error)
}

// Registry is an explicit, immutable set of estimators. There is no global
// catalog; callers construct a registry and pass it where needed.
type Registry struct {
	estimators []Estimator
}

// NewRegistry builds a registry from the given estimators, ordered by ID so
// comparison output is deterministic.
func NewRegistry(estimators ...Estimator) *Registry {
	sorted := make([]Estimator, len(estimators))
	copy(sorted, estimators)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })
	return &Registry{estimators: sorted}
}

// DefaultRegistry returns the seven standard estimators.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&BetaBinomial{},
		&ClopperPearson{},
		&Wilson{},
		&DerSimonianLaird{},
		&EmpiricalBayes{},
		&KaplanMeier{},
		&PredictivePosterior{},
	)
}

// Estimators returns the registry contents in ID order.
func (r *Registry) Estimators() []Estimator {
	out := make([]Estimator, len(r.estimators))
	copy(out, r.estimators)
	return out
}

// ComparisonRow is one model's line in a comparison table: either an estimate
// or the reason the model was skipped.
type ComparisonRow struct {
	ModelID    string    `json:"model_id"`
	Applicable bool      `json:"applicable"`
	Reason     string    `json:"reason,omitempty"`
	Estimate   *Estimate `json:"estimate,omitempty"`
}

// Comparison is the full table. Disagreement between rows is a finding, not
// something to reconcile.
type Comparison struct {
	Rows []ComparisonRow `json:"rows"`
}

// CompareModels runs every applicable estimator on the input. The registry
// itself is free of randomness, so identical input produces an identical
// table.
func (r *Registry) CompareModels(in Input) (Comparison, error) {
	rows := make([]ComparisonRow, 0, len(r.estimators))
	for _, est := range r.estimators {
		ok, reason := est.Applicable(in)
		if !ok {
			rows = append(rows, ComparisonRow{ModelID: est.ID(), Applicable: false, Reason: reason})
			continue
		}
		e, err := est.Estimate(in)
		if err != nil {
			return Comparison{}, fmt.Errorf("model %s: %w", est.ID(), err)
		}
		rows = append(rows, ComparisonRow{ModelID: est.ID(), Applicable: true, Estimate: &e})
	}
	return Comparison{Rows: rows}, nil
}
