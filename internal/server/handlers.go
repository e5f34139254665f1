package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/wildwest-rp/stagecoach/internal/status"
	"github.com/wildwest-rp/stagecoach/internal/vars"
)

// handleServerStatus serves the live/cached/fallback server status body.
// Upstream problems never reach this layer as errors; the only failures are a
// missing record (404) and a broken durable store (500).
func (s *Server) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.status.Current(r.Context())
	if err != nil {
		if errors.Is(err, status.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, "Server configuration not found")
			return
		}

		log.Error().Err(err).Msg("Server status request failed")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode status response")
		writeError(w, http.StatusInternalServerError, "Encoding error")
		return
	}

	// Weak validator over the body lets pollers skip identical payloads
	// within the freshness window.
	etag := fmt.Sprintf(`W/"%x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "OK",
		"message": "Stagecoach API is running",
	})
}

// handleVersion returns build metadata.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(vars.Info())
}

// handleInvalidateCache drops the freshness cache so the next status request
// hits the upstream. Protected by AdminAuthMiddleware.
func (s *Server) handleInvalidateCache(w http.ResponseWriter, _ *http.Request) {
	s.status.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": "Status cache invalidated",
	})
}

// handleStatusRecord returns the raw persisted server record.
// Protected by AdminAuthMiddleware.
func (s *Server) handleStatusRecord(w http.ResponseWriter, _ *http.Request) {
	record, err := s.status.Record()
	if err != nil {
		if errors.Is(err, status.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, "Server configuration not found")
			return
		}

		log.Error().Err(err).Msg("Failed to load server record")
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
