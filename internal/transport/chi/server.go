package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/thebeast/llamarouter/internal/domain"
	logpkg "github.com/thebeast/llamarouter/internal/logger"
	healthuc "github.com/thebeast/llamarouter/internal/usecase/health"
	queryuc "github.com/thebeast/llamarouter/internal/usecase/query"
)

// maxBodyBytes caps the request body size.
const maxBodyBytes = 1 << 20

// Server exposes the query orchestrator over HTTP.
type Server struct {
	query         *queryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query *queryuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		query:  query,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrRouting, http.StatusBadGateway),
		sentinelHandler(domain.ErrDependency, http.StatusBadGateway),
	}
	return s
}

// Mount registers all routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Post("/llamaquery", s.Query)
	r.Post("/query", s.Query)
	r.Get("/targets", s.ListTargets)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Query handles POST /llamaquery.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.query.Query(r.Context(), req.toDomain())
	if err != nil {
		if r.Context().Err() != nil {
			logpkg.FromContext(r.Context(), s.logger).Info("request cancelled", zap.Error(err))
			return
		}
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponseFromDomain(res))
}

// ListTargets handles GET /targets.
func (s *Server) ListTargets(w http.ResponseWriter, _ *http.Request) {
	targets := s.query.Targets().All()
	items := make([]targetItem, len(targets))
	for i, t := range targets {
		items[i] = targetItem{Name: t.Name, Description: t.Description}
	}
	writeJSON(w, http.StatusOK, targetsResponse{Targets: items, Routed: s.query.Routed()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
