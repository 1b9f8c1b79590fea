package validation

import (
	"fmt"
	"math"

	"github.com/meridianbio/riskcore/internal/registry"
)

// CVFold is one leave-one-out step: the held-out study, the estimate refit on
// the rest, and whether the refit interval covered the held-out rate.
type CVFold struct {
	HeldOut   string  `json:"held_out"`
	Predicted float64 `json:"predicted"`
	Observed  float64 `json:"observed"`
	Covered   bool    `json:"covered"`
}

// CVReport aggregates leave-one-out error and coverage for one estimator.
type CVReport struct {
	ModelID  string   `json:"model_id"`
	RMSE     float64  `json:"rmse"`
	MAE      float64  `json:"mae"`
	Coverage float64  `json:"coverage"`
	Folds    []CVFold `json:"folds"`
}

// LeaveOneOutCV refits the estimator on all-but-one study, predicts the
// held-out study's rate, and aggregates error and interval coverage. Fewer
// than 2 studies is a hard failure: a single-study "cross-validation" would
// silently report a degenerate metric.
func LeaveOneOutCV(studies []registry.Study, est registry.Estimator) (CVReport, error) {
	if len(studies) < 2 {
		return CVReport{}, fmt.Errorf("%w: leave-one-out needs at least 2 studies, got %d",
			ErrInsufficientData, len(studies))
	}

	folds := make([]CVFold, 0, len(studies))
	var sqSum, absSum float64
	covered := 0
	for i, held := range studies {
		rest := make([]registry.Study, 0, len(studies)-1)
		rest = append(rest, studies[:i]...)
		rest = append(rest, studies[i+1:]...)

		in := registry.Input{Studies: rest}
		if ok, reason := est.Applicable(in); !ok {
			return CVReport{}, fmt.Errorf("%w: fold %q leaves the estimator inapplicable: %s",
				ErrInsufficientData, held.ID, reason)
		}
		e, err := est.Estimate(in)
		if err != nil {
			return CVReport{}, fmt.Errorf("fold %q: %w", held.ID, err)
		}

		observed := held.Rate()
		diff := e.Point - observed
		sqSum += diff * diff
		absSum += math.Abs(diff)
		inInterval := observed >= e.CILow && observed <= e.CIHigh
		if inInterval {
			covered++
		}
		folds = append(folds, CVFold{
			HeldOut:   held.ID,
			Predicted: e.Point,
			Observed:  observed,
			Covered:   inInterval,
		})
	}

	k := float64(len(studies))
	return CVReport{
		ModelID:  est.ID(),
		RMSE:     math.Sqrt(sqSum / k),
		MAE:      absSum / k,
		Coverage: float64(covered) / k,
		Folds:    folds,
	}, nil
}
