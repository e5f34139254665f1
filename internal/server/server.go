// Package server implements the HTTP server, middleware, and request handlers
// for the community site API.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wildwest-rp/stagecoach/internal/config"
	"github.com/wildwest-rp/stagecoach/internal/geoip"
)

// New creates a Server with the provided status source, GeoIP provider, and
// configuration.
func New(src StatusSource, geo *geoip.Provider, cfg *config.Config) *Server {
	return &Server{
		status:      src,
		geoip:       geo,
		authToken:   cfg.Server.AuthToken,
		trustProxy:  cfg.Server.TrustProxy,
		hsts:        cfg.Server.HSTS,
		limitCount:  cfg.RateLimit.Count,
		limitWindow: cfg.RateLimit.Window,
	}
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/server/status", s.RateLimitMiddleware(http.HandlerFunc(s.handleServerStatus)))
	mux.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	mux.Handle("POST /api/admin/status/invalidate", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleInvalidateCache)))
	mux.Handle("GET /api/admin/status/record", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleStatusRecord)))

	mux.Handle("GET /metrics", AdminAuthMiddleware(s.authToken, promhttp.Handler()))

	return s.SecurityHeadersMiddleware(s.LoggingMiddleware(mux))
}
