package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridianbio/riskcore/internal/bayes"
	"github.com/meridianbio/riskcore/internal/mitigation"
)

// CorrelationPair is one entry of the request's strategy correlation matrix.
type CorrelationPair struct {
	A   string  `json:"a"`
	B   string  `json:"b"`
	Rho float64 `json:"rho"`
}

func buildCorrelations(pairs []CorrelationPair) (*mitigation.CorrelationMatrix, error) {
	corr := mitigation.NewCorrelationMatrix()
	for _, p := range pairs {
		if err := corr.Set(p.A, p.B, p.Rho); err != nil {
			return nil, err
		}
	}
	return corr, nil
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategies   []mitigation.Strategy `json:"strategies"`
		Correlations []CorrelationPair     `json:"correlations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	corr, err := buildCorrelations(req.Correlations)
	if err != nil {
		respondComputeError(w, err)
		return
	}
	result, err := mitigation.CombineStrategies(req.Strategies, corr)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"result":      result,
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior        *bayes.PriorSpec           `json:"prior"`
		Observation  bayes.Observation          `json:"observation"`
		Strategies   []mitigation.Strategy      `json:"strategies"`
		Correlations []CorrelationPair          `json:"correlations"`
		Config       mitigation.SimulationConfig `json:"config"`
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

	corr, err := buildCorrelations(req.Correlations)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	cfg := req.Config
	defaults := mitigation.DefaultSimulationConfig(cfg.Seed)
	if cfg.Samples == 0 {
		cfg.Samples = defaults.Samples
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.Batches == 0 {
		cfg.Batches = defaults.Batches
	}

	result, err := mitigation.SimulateMitigatedRisk(post, req.Strategies, corr, cfg)
	if err != nil {
		respondComputeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analysis_id": uuid.NewString(),
		"posterior":   post,
		"result":      result,
	})
}
