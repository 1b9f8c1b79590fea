package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridianbio/riskcore/internal/signal"
)

func (s *Server) handleEvaluateSignals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Table signal.ContingencyTable `json:"table"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, err := s.signals.Evaluate(req.Table)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"assessment":  assessment,
	})
}
