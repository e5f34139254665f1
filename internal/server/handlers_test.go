package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildwest-rp/stagecoach/internal/models"
	"github.com/wildwest-rp/stagecoach/internal/status"
)

type stubSource struct {
	resp        models.StatusResponse
	err         error
	record      *models.ServerStatus
	recordErr   error
	invalidated int
}

func (s *stubSource) Current(_ context.Context) (models.StatusResponse, error) {
	return s.resp, s.err
}

func (s *stubSource) Invalidate() { s.invalidated++ }

func (s *stubSource) Record() (*models.ServerStatus, error) {
	return s.record, s.recordErr
}

func newTestServer(src *stubSource) *Server {
	return &Server{
		status:      src,
		authToken:   "hunter2",
		limitCount:  100,
		limitWindow: time.Minute,
	}
}

func liveResponse() models.StatusResponse {
	return models.StatusResponse{
		ServerName:        "Wild West RP Server",
		ServerDescription: "Frontier roleplay",
		ConnectURL:        "cfx.re/join/g3jo4z",
		ConnectCode:       "connect g3jo4z",
		ServerCode:        "g3jo4z",
		MaxPlayers:        32,
		CurrentPlayers:    12,
		IsOnline:          true,
		GameType:          "RedM",
		MapName:           "New Austin",
		LastUpdated:       "2025-06-01T12:00:00Z",
	}
}

func TestHandleServerStatus(t *testing.T) {
	src := &stubSource{resp: liveResponse()}
	handler := newTestServer(src).Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var body models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, src.resp, body)

	// Flags must be omitted on a live body
	assert.NotContains(t, rec.Body.String(), `"cached"`)
	assert.NotContains(t, rec.Body.String(), `"fallback"`)
}

func TestHandleServerStatusETag(t *testing.T) {
	src := &stubSource{resp: liveResponse()}
	handler := newTestServer(src).Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/status", nil))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/server/status", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleServerStatusFlags(t *testing.T) {
	resp := liveResponse()
	resp.Cached = true
	src := &stubSource{resp: resp}
	handler := newTestServer(src).Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":true`)
}

func TestHandleServerStatusNotConfigured(t *testing.T) {
	src := &stubSource{err: status.ErrNotConfigured}
	handler := newTestServer(src).Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/status", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server configuration not found")
}

func TestHandleServerStatusStoreBroken(t *testing.T) {
	src := &stubSource{err: errors.New("save server record: disk full")}
	handler := newTestServer(src).Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	src := &stubSource{resp: liveResponse()}
	srv := newTestServer(src)
	srv.hsts = true
	handler := srv.Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestAdminAuth(t *testing.T) {
	src := &stubSource{record: &models.ServerStatus{ServerName: "Wild West RP Server"}}
	handler := newTestServer(src).Run()

	// No token
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/status/invalidate", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, src.invalidated)

	// Wrong token
	req := httptest.NewRequest(http.MethodPost, "/api/admin/status/invalidate", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token
	req = httptest.NewRequest(http.MethodPost, "/api/admin/status/invalidate", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, src.invalidated)
}

func TestHandleStatusRecord(t *testing.T) {
	src := &stubSource{record: &models.ServerStatus{ServerName: "Wild West RP Server", MaxPlayers: 32}}
	handler := newTestServer(src).Run()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/status/record", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var record models.ServerStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "Wild West RP Server", record.ServerName)
	assert.Equal(t, 32, record.MaxPlayers)
}

func TestHandleHealth(t *testing.T) {
	handler := newTestServer(&stubSource{}).Run()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)
}

func TestRateLimit(t *testing.T) {
	src := &stubSource{resp: liveResponse()}
	srv := &Server{
		status:      src,
		authToken:   "hunter2",
		limitCount:  2,
		limitWindow: time.Minute,
	}
	handler := srv.Run()

	var last int
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/server/status", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRateLimitStateSharedAcrossRuns(t *testing.T) {
	srv := &Server{
		status:      &stubSource{resp: liveResponse()},
		authToken:   "hunter2",
		limitCount:  2,
		limitWindow: time.Minute,
	}
	first := srv.Run()
	second := srv.Run()

	send := func(h http.Handler) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/server/status", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(first))
	assert.Equal(t, http.StatusOK, send(first))
	assert.Equal(t, http.StatusTooManyRequests, send(first))

	// A handler chain from a second Run shares the exhausted limiter
	assert.Equal(t, http.StatusTooManyRequests, send(second))
}
