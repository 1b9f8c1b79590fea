package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridianbio/riskcore/internal/bayes"
)

// priorOrJeffreys falls back to the Beta(0.5, 0.5) reference prior when the
// request leaves the prior out.
func priorOrJeffreys(p *bayes.PriorSpec) bayes.PriorSpec {
	if p == nil {
		return bayes.JeffreysPrior()
	}
	return *p
}

func (s *Server) handlePosterior(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior       *bayes.PriorSpec  `json:"prior"`
		Observation bayes.Observation `json:"observation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prior := priorOrJeffreys(req.Prior)
	post, err := bayes.ComputePosterior(prior, req.Observation)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"prior":       prior,
		"observation": req.Observation,
		"posterior":   post,
	})
}

func (s *Server) handleAccrual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior    *bayes.PriorSpec `json:"prior"`
		Timeline []bayes.Snapshot `json:"timeline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prior := priorOrJeffreys(req.Prior)
	points, err := bayes.ComputeEvidenceAccrual(prior, req.Timeline)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"prior":       prior,
		"points":      points,
	})
}

func (s *Server) handleBoundaries(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior       *bayes.PriorSpec     `json:"prior"`
		Config      bayes.BoundaryConfig `json:"config"`
		Observation *bayes.Observation   `json:"observation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prior := priorOrJeffreys(req.Prior)
	cfg := req.Config
	defaults := bayes.DefaultBoundaryConfig(cfg.NMax, cfg.TargetRate)
	if cfg.Step == 0 {
		cfg.Step = defaults.Step
	}
	if cfg.EfficacyThreshold == 0 {
		cfg.EfficacyThreshold = defaults.EfficacyThreshold
	}
	if cfg.FutilityThreshold == 0 {
		cfg.FutilityThreshold = defaults.FutilityThreshold
	}

	rows, err := bayes.ComputeStoppingBoundaries(prior, cfg)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"prior":       prior,
		"config":      cfg,
		"rows":        rows,
	}

	// An interim observation, when supplied, is evaluated against the same
	// thresholds the table was built from.
	if req.Observation != nil {
		decision, err := bayes.EvaluateStopping(prior, *req.Observation, cfg)
		if err != nil {
			respondComputeError(w, err)
			return
		}
		resp["decision"] = decision
	}

	respondJSON(w, http.StatusOK, resp)
}
