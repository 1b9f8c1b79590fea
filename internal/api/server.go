package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/meridianbio/riskcore/internal/auth"
	"github.com/meridianbio/riskcore/internal/bayes"
	"github.com/meridianbio/riskcore/internal/mitigation"
	"github.com/meridianbio/riskcore/internal/numerics"
	"github.com/meridianbio/riskcore/internal/registry"
	"github.com/meridianbio/riskcore/internal/signal"
	"github.com/meridianbio/riskcore/internal/validation"
)

// Config holds HTTP server configuration
type Config struct {
	CORSOrigins []string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		CORSOrigins: []string{"http://localhost:*"},
	}
}

type Server struct {
	router  *chi.Mux
	auth    auth.Service
	signals *signal.Service
	models  *registry.Registry
}

func NewServer(cfg Config, authService auth.Service) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		auth:    authService,
		signals: signal.NewService(signal.DefaultConfig()),
		models:  registry.DefaultRegistry(),
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.auth))

			r.Get("/auth/me", s.handleMe)

			r.Route("/risk", func(r chi.Router) {
				r.Post("/posterior", s.handlePosterior)
				r.Post("/accrual", s.handleAccrual)
				r.Post("/boundaries", s.handleBoundaries)
			})

			r.Post("/signals/evaluate", s.handleEvaluateSignals)

			r.Route("/mitigation", func(r chi.Router) {
				r.Post("/combine", s.handleCombine)
				r.Post("/simulate", s.handleSimulate)
			})

			r.Post("/models/compare", s.handleCompareModels)

			r.Route("/validation", func(r chi.Router) {
				r.Post("/calibration", s.handleCalibration)
				r.Post("/coverage", s.handleCoverage)
				r.Post("/loocv", s.handleLOOCV)
			})
		})
	})
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondComputeError maps the engine's error taxonomy onto HTTP statuses:
// bad input is the caller's fault, insufficient data is a well-formed request
// the statistics cannot answer, and numerical failure is ours.
func respondComputeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bayes.ErrInvalidPrior),
		errors.Is(err, bayes.ErrInvalidObservation),
		errors.Is(err, bayes.ErrNonMonotonicTimeline),
		errors.Is(err, signal.ErrInvalidTable),
		errors.Is(err, mitigation.ErrInvalidStrategy),
		errors.Is(err, mitigation.ErrInvalidCorrelation),
		errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, numerics.ErrInvalidParameters):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mitigation.ErrInsufficientStrategies),
		errors.Is(err, registry.ErrInsufficientData),
		errors.Is(err, validation.ErrInsufficientData):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, numerics.ErrNumericalInstability):
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
