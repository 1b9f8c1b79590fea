package validation

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meridianbio/riskcore/internal/numerics"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestBrierScore(t *testing.T) {
	perfect, err := BrierScore([]float64{1, 0, 1}, []bool{true, false, true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if perfect != 0 {
		t.Errorf("perfect forecast score = %g, want 0", perfect)
	}

	coin, err := BrierScore([]float64{0.5, 0.5}, []bool{true, false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !almostEqual(coin, 0.25, 1e-12) {
		t.Errorf("constant 0.5 forecast score = %g, want 0.25", coin)
	}

	worst, err := BrierScore([]float64{0, 1}, []bool{true, false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if worst != 1 {
		t.Errorf("inverted forecast score = %g, want 1", worst)
	}
}

func TestBrierScore_Errors(t *testing.T) {
	if _, err := BrierScore([]float64{0.5}, []bool{true, false}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for length mismatch, got %v", err)
	}
	if _, err := BrierScore(nil, nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for empty input, got %v", err)
	}
	if _, err := BrierScore([]float64{1.5}, []bool{true}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for probability > 1, got %v", err)
	}
}

func TestCalibrationCheck_WellCalibrated(t *testing.T) {
	// Outcomes drawn from the stated probabilities: deviation should be small.
	rng := rand.New(rand.NewPCG(1, 1))
	n := 5000
	predicted := make([]float64, n)
	observed := make([]bool, n)
	for i := 0; i < n; i++ {
		p := rng.Float64()
		predicted[i] = p
		observed[i] = rng.Float64() < p
	}

	report, err := CalibrationCheck(predicted, observed, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Bins) != 10 {
		t.Fatalf("expected 10 bins, got %d", len(report.Bins))
	}
	if report.MeanDeviation > 0.05 {
		t.Errorf("well-calibrated forecasts show deviation %g, want <= 0.05", report.MeanDeviation)
	}

	total := 0
	for _, b := range report.Bins {
		total += b.Count
	}
	if total != n {
		t.Errorf("bins hold %d cases, want %d", total, n)
	}
}

func TestCalibrationCheck_Miscalibrated(t *testing.T) {
	// Overconfident forecasts: always predict 0.9, outcomes occur half the time.
	n := 200
	predicted := make([]float64, n)
	observed := make([]bool, n)
	for i := 0; i < n; i++ {
		predicted[i] = 0.9
		observed[i] = i%2 == 0
	}

	report, err := CalibrationCheck(predicted, observed, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.MeanDeviation < 0.3 {
		t.Errorf("overconfident forecasts should show large deviation, got %g", report.MeanDeviation)
	}
}

func TestCalibrationCheck_TopBinIncludesOne(t *testing.T) {
	report, err := CalibrationCheck([]float64{1, 1}, []bool{true, true}, 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	top := report.Bins[4]
	if top.Count != 2 {
		t.Errorf("p=1 should land in the top bin, count = %d", top.Count)
	}
}

func TestCoverageProbability_ExactIntervals(t *testing.T) {
	// Draw truths from Beta posteriors and check the claimed 95% intervals
	// cover roughly 95% of them. Statistical bound, not exact.
	rng := rand.New(rand.NewPCG(7, 7))
	n := 1000
	intervals := make([]Interval, n)
	truths := make([]float64, n)
	for i := 0; i < n; i++ {
		alpha := 1 + rng.Float64()*5
		beta := 10 + rng.Float64()*50
		low, high, err := numerics.BetaInterval(alpha, beta, 0.95)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		intervals[i] = Interval{Low: low, High: high}
		truths[i] = distuv.Beta{Alpha: alpha, Beta: beta, Src: rng}.Rand()
	}

	report, err := CoverageProbability(intervals, truths, 0.95)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Evaluated != n {
		t.Errorf("evaluated %d cases, want %d", report.Evaluated, n)
	}
	if report.Observed < 0.93 || report.Observed > 0.97 {
		t.Errorf("empirical coverage %g outside [0.93, 0.97]", report.Observed)
	}
}

func TestCoverageProbability_SkipsUnknownTruth(t *testing.T) {
	intervals := []Interval{{0, 1}, {0.2, 0.4}, {0.5, 0.6}}
	truths := []float64{0.5, math.NaN(), 0.55}

	report, err := CoverageProbability(intervals, truths, 0.95)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Evaluated != 2 {
		t.Errorf("evaluated %d, want 2 (NaN truth skipped)", report.Evaluated)
	}
	if report.Observed != 1 {
		t.Errorf("observed coverage %g, want 1", report.Observed)
	}
}

func TestCoverageProbability_AllUnknown(t *testing.T) {
	_, err := CoverageProbability([]Interval{{0, 1}}, []float64{math.NaN()}, 0.95)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
