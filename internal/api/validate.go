package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridianbio/riskcore/internal/registry"
	"github.com/meridianbio/riskcore/internal/validation"
)

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Predicted []float64 `json:"predicted"`
		Observed  []bool    `json:"observed"`
		Bins      int       `json:"bins"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Bins == 0 {
		req.Bins = 10
	}

	report, err := validation.CalibrationCheck(req.Predicted, req.Observed, req.Bins)
	if err != nil {
		respondComputeError(w, err)
		return
	}
	brier, err := validation.BrierScore(req.Predicted, req.Observed)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"calibration": report,
		"brier_score": brier,
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Intervals []validation.Interval `json:"intervals"`
		Truths    []float64             `json:"truths"`
		Nominal   float64               `json:"nominal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Nominal == 0 {
		req.Nominal = 0.95
	}

	report, err := validation.CoverageProbability(req.Intervals, req.Truths, req.Nominal)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"coverage":    report,
	})
}

func (s *Server) handleLOOCV(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModelID string           `json:"model_id"`
		Studies []registry.Study `json:"studies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	est, err := s.findEstimator(req.ModelID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := validation.LeaveOneOutCV(req.Studies, est)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"report":      report,
	})
}

func (s *Server) findEstimator(modelID string) (registry.Estimator, error) {
	for _, est := range s.models.Estimators() {
		if est.ID() == modelID {
			return est, nil
		}
	}
	return nil, fmt.Errorf("unknown model %q", modelID)
}
