// Package http exposes the prediction endpoint plus health, readiness, and
// metrics routes.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/couchcryptid/invasive-risk-service/internal/pipeline"
)

// Predictor serves one scoring batch per call.
type Predictor interface {
	Predict(ctx context.Context) (pipeline.PredictionsResponse, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the prediction API and operational endpoints.
type Server struct {
	httpServer *http.Server
	predictor  Predictor
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /predict, /healthz, /readyz, and
// /metrics routes. corsOrigins is applied to the dashboard-facing routes.
func NewServer(addr string, predictor Predictor, ready ReadinessChecker, corsOrigins []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		predictor: predictor,
		logger:    logger,
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: false,
	})

	mux.Handle("GET /", corsMiddleware.Handler(http.HandlerFunc(s.handleRoot)))
	mux.Handle("GET /predict", corsMiddleware.Handler(http.HandlerFunc(s.handlePredict)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
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

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Invasive Species Intelligence API Active"})
}

// handlePredict runs a scoring batch. Upstream faults degrade inside the
// pipeline; a non-2xx here means an internal fault in the pipeline itself.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	resp, err := s.predictor.Predict(r.Context())
	if err != nil {
		s.logger.Error("prediction batch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
