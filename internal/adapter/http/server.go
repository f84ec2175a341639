package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Runner performs one pipeline run on demand.
type Runner interface {
	RunOnce(ctx context.Context) (domain.WeatherReading, error)
}

// Server exposes health, readiness, metrics and manual-trigger endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /run routes. A nil runner leaves /run unregistered. Each manual run is
// bounded by runTimeout.
func NewServer(addr string, ready ReadinessChecker, runner Runner, runTimeout time.Duration, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if runner != nil {
		mux.HandleFunc("POST /run", s.handleRun(runner, runTimeout))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type runResponse struct {
	Status  string                 `json:"status"`
	Reading *domain.WeatherReading `json:"reading,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

func (s *Server) handleRun(runner Runner, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		reading, err := runner.RunOnce(ctx)
		if err != nil {
			s.logger.Warn("manual run failed", "error", err)
			writeJSON(w, runErrorStatus(err), runResponse{Status: "failed", Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, runResponse{Status: "ok", Reading: &reading})
	}
}

// runErrorStatus maps a failed stage to the response code: upstream API
// problems are 502, everything else is 500.
func runErrorStatus(err error) int {
	var typeErr *domain.FieldTypeError
	switch {
	case errors.Is(err, domain.ErrFetch), errors.Is(err, domain.ErrFieldMissing), errors.As(err, &typeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
