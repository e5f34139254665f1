package server

import (
	"context"
	"sync"
	"time"

	"github.com/wildwest-rp/stagecoach/internal/geoip"
	"github.com/wildwest-rp/stagecoach/internal/models"
)

// StatusSource is the orchestrator surface the HTTP layer consumes.
type StatusSource interface {
	// Current returns the best-effort status body; it only errors when the
	// record is missing or the durable store is broken.
	Current(ctx context.Context) (models.StatusResponse, error)

	// Invalidate drops the freshness cache.
	Invalidate()

	// Record returns the raw persisted server record.
	Record() (*models.ServerStatus, error)
}

// Server holds the dependencies and configuration required to handle HTTP
// requests for the community site API.
type Server struct {
	// status is the orchestrator serving the live/cached/fallback status view.
	status StatusSource

	// geoip resolves client IPs to country codes for the request log.
	// Nil when the GeoIP database is unavailable.
	geoip *geoip.Provider

	// authToken is the secret required by administrative endpoints.
	authToken string

	// limiters tracks per-IP rate limiter state, shared by every handler
	// chain returned from Run.
	limiters map[string]*ipLimiter

	// limiterMu guards limiters.
	limiterMu sync.Mutex

	// limiterGC starts the limiter cleanup goroutine at most once per Server.
	limiterGC sync.Once

	// limitCount is the number of requests allowed per IP within limitWindow.
	limitCount int

	// limitWindow is the time window for the per-IP rate limiter.
	limitWindow time.Duration

	// trustProxy enables X-Forwarded-For / CF-Connecting-IP resolution.
	trustProxy bool

	// hsts enables the Strict-Transport-Security header; only meaningful
	// behind TLS.
	hsts bool
}
