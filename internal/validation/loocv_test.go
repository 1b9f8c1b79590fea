package validation

import (
	"errors"
	"testing"

	"github.com/meridianbio/riskcore/internal/registry"
)

func fiveStudies() []registry.Study {
	return []registry.Study{
		{ID: "trial-a", Events: 3, N: 150},
		{ID: "trial-b", Events: 5, N: 220},
		{ID: "trial-c", Events: 2, N: 90},
		{ID: "trial-d", Events: 7, N: 310},
		{ID: "trial-e", Events: 4, N: 180},
	}
}

func TestLeaveOneOutCV(t *testing.T) {
	report, err := LeaveOneOutCV(fiveStudies(), &registry.DerSimonianLaird{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.ModelID != "dersimonian-laird" {
		t.Errorf("model id = %s, want dersimonian-laird", report.ModelID)
	}
	if len(report.Folds) != 5 {
		t.Fatalf("expected 5 folds, got %d", len(report.Folds))
	}
	if report.RMSE < report.MAE {
		t.Errorf("RMSE %g must be >= MAE %g", report.RMSE, report.MAE)
	}
	if report.RMSE <= 0 || report.RMSE > 0.1 {
		t.Errorf("RMSE %g implausible for homogeneous low-rate studies", report.RMSE)
	}
	if report.Coverage < 0 || report.Coverage > 1 {
		t.Errorf("coverage %g outside [0, 1]", report.Coverage)
	}

	seen := make(map[string]bool)
	for _, f := range report.Folds {
		seen[f.HeldOut] = true
	}
	if len(seen) != 5 {
		t.Errorf("each study should be held out exactly once, got %d distinct", len(seen))
	}
}

func TestLeaveOneOutCV_Deterministic(t *testing.T) {
	a, err := LeaveOneOutCV(fiveStudies(), &registry.DerSimonianLaird{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := LeaveOneOutCV(fiveStudies(), &registry.DerSimonianLaird{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.RMSE != b.RMSE || a.MAE != b.MAE || a.Coverage != b.Coverage {
		t.Errorf("identical input produced different reports: %+v vs %+v", a, b)
	}
}

func TestLeaveOneOutCV_SingleStudy(t *testing.T) {
	_, err := LeaveOneOutCV(fiveStudies()[:1], &registry.DerSimonianLaird{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestLeaveOneOutCV_FoldLeavesEstimatorInapplicable(t *testing.T) {
	// Two studies leave single-study folds, which DerSimonian-Laird cannot fit.
	_, err := LeaveOneOutCV(fiveStudies()[:2], &registry.DerSimonianLaird{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
