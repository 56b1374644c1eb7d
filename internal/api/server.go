// Package api serves the watcher's HTTP surface: health, status, metrics,
// outcome history and the live WebSocket stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/observability"
	"garden-volume-watch/internal/storage"
	"garden-volume-watch/internal/watcher"
)

const maxRecentLimit = 500

// StatusSource reports watcher state.
type StatusSource interface {
	Status(ctx context.Context) watcher.Status
	Healthy() bool
}

// Config wires the handlers. Nil stores disable their routes.
type Config struct {
	Status      StatusSource
	Outcomes    storage.OutcomeStore
	Analytics   storage.OutcomeAnalyticsStore
	Stream      http.Handler
	RecentLimit int
	Logger      *zap.Logger
}

type server struct {
	cfg   Config
	log   *zap.Logger
	start time.Time
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 100
	}
	s := &server{cfg: cfg, log: logging.OrNop(cfg.Logger).Named("api"), start: time.Now()}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", observability.Handler())

	if cfg.Outcomes != nil {
		r.Route("/outcomes", func(sr chi.Router) {
			sr.Get("/recent", s.handleRecent)
			sr.Get("/{orderID}", s.handleOutcome)
		})
	}
	if cfg.Analytics != nil {
		r.Get("/routes", s.handleRoutes)
	}
	if cfg.Stream != nil {
		r.Handle("/ws", cfg.Stream)
	}
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Status != nil && !s.cfg.Status.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("stale"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status  string          `json:"status"`
	Uptime  string          `json:"uptime"`
	Watcher *watcher.Status `json:"watcher,omitempty"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: "running", Uptime: time.Since(s.start).Round(time.Second).String()}
	if s.cfg.Status != nil {
		st := s.cfg.Status.Status(r.Context())
		resp.Watcher = &st
		if !s.cfg.Status.Healthy() {
			resp.Status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.RecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecentLimit)
	}

	outcomes, err := s.cfg.Outcomes.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("recent outcomes", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

func (s *server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	o, err := s.cfg.Outcomes.GetByID(r.Context(), chi.URLParam(r, "orderID"))
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "outcome not found")
		return
	}
	if err != nil {
		s.log.Error("get outcome", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

// handleRoutes aggregates volume by chain pair over [from, to] (RFC3339).
// Defaults to the last 24 hours.
func (s *server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		start = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		end = t
	}
	if end.Before(start) {
		s.writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	routes, err := s.cfg.Analytics.VolumeByRoute(r.Context(), start, end)
	if err != nil {
		s.log.Error("volume by route", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"from":   start,
		"to":     end,
		"routes": routes,
	})
}

func (s *server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("write response", zap.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
