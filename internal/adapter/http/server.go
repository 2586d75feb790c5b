// Package http exposes the analytics API plus health, readiness, and
// metrics endpoints.
//
// Error mapping is uniform across the query routes: a malformed parameter
// is 400, a unit or window with insufficient data is 404, and a store
// failure is 502. Handlers never leak a store error as a missing-data
// response or vice versa.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/engine"
)

// Parameter bounds enforced at the API edge.
const (
	maxWindowWeeks   = 12
	maxBaselineWeeks = 26
	maxHorizonDays   = 30
	maxLookbackDays  = 365
)

// Defaults applied when a query parameter is absent.
const (
	defaultWindowWeeks   = 4
	defaultRecentWeeks   = 4
	defaultBaselineWeeks = 12
	defaultLookbackDays  = 30
	defaultHorizonDays   = 7
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the unit analytics routes over HTTP.
type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	logger     *slog.Logger
}

// errorBody is the JSON error envelope for all non-2xx responses.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, e *engine.Engine, ready ReadinessChecker, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: e,
		logger: logger,
	}

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handleReady(ready)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/units/{id}/index", s.handleIndex).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}/anomaly", s.handleAnomaly).Methods(http.MethodGet)
	api.HandleFunc("/units/{id}/trend", s.handleTrend).Methods(http.MethodGet)

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

// handleIndex serves GET /v1/units/{id}/index.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["id"]
	q := r.URL.Query()

	date, ok := dateParam(w, q.Get("date"))
	if !ok {
		return
	}
	windowWeeks, ok := intParam(w, q.Get("window_weeks"), "window_weeks", defaultWindowWeeks, 1, maxWindowWeeks)
	if !ok {
		return
	}
	includeExtra := q.Get("include_extra") == "true"

	idx, err := s.engine.ComputeIndex(r.Context(), unitID, date, windowWeeks, includeExtra)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if idx == nil {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: "no signal data for unit " + unitID + " in the requested window",
			Code:  "insufficient_data",
		})
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

// handleAnomaly serves GET /v1/units/{id}/anomaly.
func (s *Server) handleAnomaly(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["id"]
	q := r.URL.Query()

	date, ok := dateParam(w, q.Get("date"))
	if !ok {
		return
	}
	recentWeeks, ok := intParam(w, q.Get("recent_weeks"), "recent_weeks", defaultRecentWeeks, 1, maxWindowWeeks)
	if !ok {
		return
	}
	baselineWeeks, ok := intParam(w, q.Get("baseline_weeks"), "baseline_weeks", defaultBaselineWeeks, 1, maxBaselineWeeks)
	if !ok {
		return
	}

	res, err := s.engine.DetectAnomaly(r.Context(), unitID, date, recentWeeks, baselineWeeks)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTrend serves GET /v1/units/{id}/trend.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["id"]
	q := r.URL.Query()

	date, ok := dateParam(w, q.Get("date"))
	if !ok {
		return
	}
	days, ok := intParam(w, q.Get("days"), "days", defaultLookbackDays, 1, maxLookbackDays)
	if !ok {
		return
	}
	horizonDays, ok := intParam(w, q.Get("forecast_days"), "forecast_days", defaultHorizonDays, 1, maxHorizonDays)
	if !ok {
		return
	}

	res, err := s.engine.ComplaintTrend(r.Context(), unitID, date, days, horizonDays)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if res.Direction == domain.TrendUnknown {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error: "not enough complaint history for unit " + unitID,
			Code:  "insufficient_data",
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadGateway, errorBody{
		Error: "upstream store failure",
		Code:  "store_unavailable",
	})
}

// dateParam validates a required YYYY-MM-DD date parameter, writing the
// 400 response itself on failure.
func dateParam(w http.ResponseWriter, raw string) (string, bool) {
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "date is required (YYYY-MM-DD)",
			Code:  "invalid_parameter",
		})
		return "", false
	}
	if _, err := domain.ParseDay(raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "date must be YYYY-MM-DD, got " + strconv.Quote(raw),
			Code:  "invalid_parameter",
		})
		return "", false
	}
	return raw, true
}

// intParam validates an optional bounded integer parameter, writing the
// 400 response itself on failure.
func intParam(w http.ResponseWriter, raw, name string, def, min, max int) (int, bool) {
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: name + " must be an integer in [" + strconv.Itoa(min) + "," + strconv.Itoa(max) + "]",
			Code:  "invalid_parameter",
		})
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
