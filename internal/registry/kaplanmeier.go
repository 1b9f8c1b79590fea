package registry

import (
	"fmt"
	"math"
	"sort"
)

// KaplanMeier estimates the cumulative event risk by the horizon from
// time-to-event data with censoring, using the product-limit estimator and
// Greenwood's variance.
type KaplanMeier struct{}

func (*KaplanMeier) ID() string { return "kaplan-meier" }

func (*KaplanMeier) Applicable(in Input) (bool, string) {
	if in.Survival == nil || len(in.Survival.Subjects) == 0 {
		return false, "requires time-to-event data (event indicators + times)"
	}
	if len(in.Survival.Subjects) < 2 {
		return false, "requires at least 2 subjects"
	}
	for _, s := range in.Survival.Subjects {
		if s.Time < 0 {
			return false, "negative follow-up time"
		}
	}
	return true, ""
}

func (m *KaplanMeier) Estimate(in Input) (Estimate, error) {
	if ok, reason := m.Applicable(in); !ok {
		return Estimate{}, fmt.Errorf("%w: %s", ErrInsufficientData, reason)
	}

	subjects := make([]Subject, len(in.Survival.Subjects))
	copy(subjects, in.Survival.Subjects)
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Time < subjects[j].Time })

	horizon := in.Survival.Horizon
	if horizon <= 0 {
		horizon = subjects[len(subjects)-1].Time
	}

	// Walk distinct event times up to the horizon, multiplying survival and
	// accumulating the Greenwood sum.
	survival := 1.0
	greenwood := 0.0
	atRisk := len(subjects)
	i := 0
	for i < len(subjects) {
		t := subjects[i].Time
		if t > horizon {
			break
		}
		deaths, removed := 0, 0
		for i < len(subjects) && subjects[i].Time == t {
			if subjects[i].Event {
				deaths++
			}
			removed++
			i++
		}
		if deaths > 0 {
			d, n := float64(deaths), float64(atRisk)
			survival *= 1 - d/n
			if n > d {
				greenwood += d / (n * (n - d))
			}
		}
		atRisk -= removed
	}

	risk := 1 - survival
	se := survival * math.Sqrt(greenwood)

	return Estimate{
		ModelID: m.ID(),
		Point:   risk,
		CILow:   math.Max(0, risk-z95*se),
		CIHigh:  math.Min(1, risk+z95*se),
		Rationale: fmt.Sprintf("product-limit risk by t=%g over %d subjects, Greenwood SE %.4f",
			horizon, len(subjects), se),
	}, nil
}
