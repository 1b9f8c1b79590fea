package signal

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestComputePRR_KnownTable(t *testing.T) {
	table := ContingencyTable{A: 10, B: 90, C: 2, D: 198}

	res, err := ComputePRR(table)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// PRR = (10/100) / (2/200) = 10.
	if !almostEqual(res.PRR, 10.0, 1e-12) {
		t.Errorf("PRR = %g, want 10", res.PRR)
	}
	if res.Status != StatusComputed {
		t.Errorf("status = %s, want computed", res.Status)
	}
	if res.PValue >= 0.05 {
		t.Errorf("p-value = %g, want < 0.05", res.PValue)
	}
	if !res.Signal {
		t.Error("expected signal: PRR >= 2, p < 0.05, a >= 3")
	}
}

func TestComputePRR_MinimumCountGuard(t *testing.T) {
	// Large PRR but only 2 target cases.
	table := ContingencyTable{A: 2, B: 8, C: 5, D: 985}

	res, err := ComputePRR(table)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != StatusComputed {
		t.Fatalf("status = %s, want computed", res.Status)
	}
	if res.Signal {
		t.Errorf("a=2 must not signal regardless of PRR=%g", res.PRR)
	}
}

func TestComputePRR_Degenerate(t *testing.T) {
	cases := []struct {
		name  string
		table ContingencyTable
	}{
		{"empty exposed row", ContingencyTable{A: 0, B: 0, C: 5, D: 95}},
		{"empty reference row", ContingencyTable{A: 5, B: 95, C: 0, D: 0}},
		{"no reference events", ContingencyTable{A: 5, B: 95, C: 0, D: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := ComputePRR(tc.table)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Status != StatusInsufficientData {
				t.Errorf("status = %s, want insufficient_data", res.Status)
			}
			if res.Signal {
				t.Error("degenerate table must not signal")
			}
		})
	}
}

func TestComputePRR_InvalidTable(t *testing.T) {
	if _, err := ComputePRR(ContingencyTable{A: -1, B: 1, C: 1, D: 1}); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable for negative cell, got %v", err)
	}
	if _, err := ComputePRR(ContingencyTable{}); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable for all-zero table, got %v", err)
	}
}

func TestComputeROR_KnownTable(t *testing.T) {
	table := ContingencyTable{A: 10, B: 90, C: 2, D: 198}

	res, err := ComputeROR(table)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// ROR = (10*198)/(90*2) = 11.
	if !almostEqual(res.ROR, 11.0, 1e-12) {
		t.Errorf("ROR = %g, want 11", res.ROR)
	}
	if res.CILow >= res.ROR || res.CIHigh <= res.ROR {
		t.Errorf("interval [%g, %g] should bracket the point %g", res.CILow, res.CIHigh, res.ROR)
	}
	if !res.Signal {
		t.Errorf("expected signal with ci_low = %g > 1", res.CILow)
	}
}

func TestComputeROR_ZeroCell(t *testing.T) {
	res, err := ComputeROR(ContingencyTable{A: 10, B: 0, C: 2, D: 198})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != StatusInsufficientData {
		t.Errorf("status = %s, want insufficient_data", res.Status)
	}
}

func TestComputeEBGM_StrongSignal(t *testing.T) {
	table := ContingencyTable{A: 50, B: 150, C: 20, D: 1780}

	res, err := ComputeEBGM(table, DefaultEBGMConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != StatusComputed {
		t.Fatalf("status = %s, want computed", res.Status)
	}

	// Observed 50 vs expected (200*70)/2000 = 7: heavily disproportionate.
	if res.EBGM <= 1 {
		t.Errorf("EBGM = %g, want > 1", res.EBGM)
	}
	if res.EBGM05 >= res.EBGM {
		t.Errorf("EBGM05 = %g should lie below EBGM = %g", res.EBGM05, res.EBGM)
	}
	if !res.Signal {
		t.Errorf("expected signal with EBGM05 = %g", res.EBGM05)
	}
}

func TestComputeEBGM_ShrinksTowardNull(t *testing.T) {
	// A sparse cell: raw O/E is high but one observed case should shrink hard.
	sparse := ContingencyTable{A: 1, B: 9, C: 10, D: 980}
	res, err := ComputeEBGM(sparse, DefaultEBGMConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != StatusComputed {
		t.Fatalf("status = %s, want computed", res.Status)
	}

	rawRatio := float64(sparse.A) / sparse.ExpectedA()
	if res.EBGM >= rawRatio {
		t.Errorf("EBGM = %g should shrink below the raw ratio %g", res.EBGM, rawRatio)
	}
	if res.Signal {
		t.Error("a single observed case should not signal")
	}
}

func TestComputeEBGM_Deterministic(t *testing.T) {
	table := ContingencyTable{A: 25, B: 75, C: 10, D: 890}

	a, err := ComputeEBGM(table, DefaultEBGMConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := ComputeEBGM(table, DefaultEBGMConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a != b {
		t.Errorf("identical inputs produced different results: %+v vs %+v", a, b)
	}
}

func TestComputeEBGM_EmptyRow(t *testing.T) {
	res, err := ComputeEBGM(ContingencyTable{A: 0, B: 0, C: 5, D: 95}, DefaultEBGMConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != StatusInsufficientData {
		t.Errorf("status = %s, want insufficient_data", res.Status)
	}
}

func TestComputeEBGM_BackgroundRate(t *testing.T) {
	table := ContingencyTable{A: 10, B: 90, C: 2, D: 198}

	low, err := ComputeEBGM(table, EBGMConfig{BackgroundRate: 0.01, MaxIter: 500, Tol: 1e-6})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	high, err := ComputeEBGM(table, EBGMConfig{BackgroundRate: 0.10, MaxIter: 500, Tol: 1e-6})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// A higher background rate raises the expected count, lowering the estimate.
	if high.EBGM >= low.EBGM {
		t.Errorf("EBGM at 10%% background (%g) should fall below 1%% background (%g)", high.EBGM, low.EBGM)
	}
}

func TestClassifySignal(t *testing.T) {
	cases := []struct {
		prr, ror, ebgm bool
		want           SignalStrength
	}{
		{true, true, true, StrengthStrong},
		{true, true, false, StrengthModerate},
		{true, false, false, StrengthWeak},
		{false, false, false, StrengthNone},
		{false, true, true, StrengthModerate},
		{false, false, true, StrengthWeak},
	}

	for _, tc := range cases {
		if got := ClassifySignal(tc.prr, tc.ror, tc.ebgm); got != tc.want {
			t.Errorf("ClassifySignal(%v, %v, %v) = %s, want %s", tc.prr, tc.ror, tc.ebgm, got, tc.want)
		}
	}
}

func TestServiceEvaluate(t *testing.T) {
	svc := NewService(DefaultConfig())

	assessment, err := svc.Evaluate(ContingencyTable{A: 10, B: 90, C: 2, D: 198})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if assessment.PRR.Status != StatusComputed || assessment.ROR.Status != StatusComputed {
		t.Fatal("expected PRR and ROR to compute")
	}
	if assessment.Consensus == StrengthNone {
		t.Errorf("expected a consensus signal, got %s", assessment.Consensus)
	}
}

func TestServiceEvaluate_DistinguishesNoSignalFromUncomputable(t *testing.T) {
	svc := NewService(DefaultConfig())

	// No events anywhere for the target drug: nothing to compute.
	assessment, err := svc.Evaluate(ContingencyTable{A: 0, B: 0, C: 3, D: 997})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if assessment.PRR.Status != StatusInsufficientData {
		t.Errorf("PRR status = %s, want insufficient_data", assessment.PRR.Status)
	}
	if assessment.Consensus != StrengthNone {
		t.Errorf("consensus = %s, want none", assessment.Consensus)
	}
}
