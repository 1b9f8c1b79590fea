package validation

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidInput     = errors.New("invalid validation input")
	ErrInsufficientData = errors.New("insufficient data for validation")
)

// CalibrationBin is one probability bin: how often outcomes occurred among
// predictions falling in [Low, High).
type CalibrationBin struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	ObservedRate  float64 `json:"observed_rate"`
}

// CalibrationReport is the calibration curve plus its mean absolute
// deviation over non-empty bins.
type CalibrationReport struct {
	Bins          []CalibrationBin `json:"bins"`
	MeanDeviation float64          `json:"mean_deviation"`
}

// CalibrationCheck bins predicted probabilities and compares each bin's mean
// prediction to the observed outcome rate.
func CalibrationCheck(predicted []float64, observed []bool, nBins int) (CalibrationReport, error) {
	if len(predicted) != len(observed) {
		return CalibrationReport{}, fmt.Errorf("%w: %d predictions vs %d outcomes",
			ErrInvalidInput, len(predicted), len(observed))
	}
	if len(predicted) == 0 {
		return CalibrationReport{}, fmt.Errorf("%w: no predictions", ErrInsufficientData)
	}
	if nBins < 2 {
		return CalibrationReport{}, fmt.Errorf("%w: need at least 2 bins, got %d", ErrInvalidInput, nBins)
	}
	for i, p := range predicted {
		if p < 0 || p > 1 {
			return CalibrationReport{}, fmt.Errorf("%w: prediction %d = %g outside [0, 1]", ErrInvalidInput, i, p)
		}
	}

	sums := make([]float64, nBins)
	hits := make([]int, nBins)
	counts := make([]int, nBins)
	for i, p := range predicted {
		b := int(p * float64(nBins))
		if b == nBins { // p == 1 lands in the top bin
			b = nBins - 1
		}
		sums[b] += p
		counts[b]++
		if observed[i] {
			hits[b]++
		}
	}

	bins := make([]CalibrationBin, nBins)
	var deviation float64
	nonEmpty := 0
	for b := 0; b < nBins; b++ {
		width := 1.0 / float64(nBins)
		bins[b] = CalibrationBin{Low: float64(b) * width, High: float64(b+1) * width, Count: counts[b]}
		if counts[b] == 0 {
			continue
		}
		bins[b].MeanPredicted = sums[b] / float64(counts[b])
		bins[b].ObservedRate = float64(hits[b]) / float64(counts[b])
		deviation += math.Abs(bins[b].MeanPredicted - bins[b].ObservedRate)
		nonEmpty++
	}

	return CalibrationReport{
		Bins:          bins,
		MeanDeviation: deviation / float64(nonEmpty),
	}, nil
}

// BrierScore is the mean squared error between predicted probabilities and
// 0/1 outcomes. 0 is perfect; 0.25 is what a constant 0.5 forecast scores.
func BrierScore(predicted []float64, observed []bool) (float64, error) {
	if len(predicted) != len(observed) {
		return 0, fmt.Errorf("%w: %d predictions vs %d outcomes", ErrInvalidInput, len(predicted), len(observed))
	}
	if len(predicted) == 0 {
		return 0, fmt.Errorf("%w: no predictions", ErrInsufficientData)
	}

	var sum float64
	for i, p := range predicted {
		if p < 0 || p > 1 {
			return 0, fmt.Errorf("%w: prediction %d = %g outside [0, 1]", ErrInvalidInput, i, p)
		}
		y := 0.0
		if observed[i] {
			y = 1.0
		}
		sum += (p - y) * (p - y)
	}
	return sum / float64(len(predicted)), nil
}

// Interval is a claimed credible/confidence interval for one case.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// CoverageReport states how often claimed intervals contained the truth.
// Cases whose truth is unknown (NaN) are excluded from the denominator.
type CoverageReport struct {
	Nominal   float64 `json:"nominal"`
	Observed  float64 `json:"observed"`
	Evaluated int     `json:"evaluated"`
}

// CoverageProbability checks that intervals claiming the nominal level
// contain the true value about that often.
func CoverageProbability(intervals []Interval, truths []float64, nominal float64) (CoverageReport, error) {
	if len(intervals) != len(truths) {
		return CoverageReport{}, fmt.Errorf("%w: %d intervals vs %d truths", ErrInvalidInput, len(intervals), len(truths))
	}
	if nominal <= 0 || nominal >= 1 {
		return CoverageReport{}, fmt.Errorf("%w: nominal level %g", ErrInvalidInput, nominal)
	}

	covered, evaluated := 0, 0
	for i, iv := range intervals {
		truth := truths[i]
		if math.IsNaN(truth) {
			continue
		}
		if iv.Low > iv.High {
			return CoverageReport{}, fmt.Errorf("%w: interval %d has low %g > high %g", ErrInvalidInput, i, iv.Low, iv.High)
		}
		evaluated++
		if truth >= iv.Low && truth <= iv.High {
			covered++
		}
	}
	if evaluated == 0 {
		return CoverageReport{}, fmt.Errorf("%w: no cases with known truth", ErrInsufficientData)
	}

	return CoverageReport{
		Nominal:   nominal,
		Observed:  float64(covered) / float64(evaluated),
		Evaluated: evaluated,
	}, nil
}
