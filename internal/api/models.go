package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridianbio/riskcore/internal/registry"
)

func (s *Server) handleCompareModels(w http.ResponseWriter, r *http.Request) {
	var in registry.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmp, err := s.models.CompareModels(in)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"comparison":  cmp,
	})
}
