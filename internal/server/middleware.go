package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// GetRealIP attempts to determine the client's real IP address, trusting
// headers like CF-Connecting-IP or X-Forwarded-For if configured to do so.
func GetRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
			return cf
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// ipLimiter pairs a client's rate limiter with its last activity time.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a hard rate limit based on the client's IP
// address, rejecting excess requests with "429 Too Many Requests". Limiter
// state lives on the Server, so handlers from repeated Run calls share one
// map and a single cleanup goroutine.
func (s *Server) RateLimitMiddleware(next http.Handler) http.Handler {
	s.limiterGC.Do(func() {
		go s.gcLimiters()
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetRealIP(r, s.trustProxy)

		s.limiterMu.Lock()
		if s.limiters == nil {
			s.limiters = make(map[string]*ipLimiter)
		}
		cli, found := s.limiters[ip]
		if !found {
			limit := rate.Limit(float64(s.limitCount) / s.limitWindow.Seconds())
			cli = &ipLimiter{limiter: rate.NewLimiter(limit, s.limitCount)}
			s.limiters[ip] = cli
		}
		cli.lastSeen = time.Now()
		limiter := cli.limiter
		s.limiterMu.Unlock()

		if !limiter.Allow() {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// gcLimiters drops per-IP limiters idle for more than 10 minutes.
func (s *Server) gcLimiters() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		s.limiterMu.Lock()
		for ip, cli := range s.limiters {
			if now.Sub(cli.lastSeen) > 10*time.Minute {
				delete(s.limiters, ip)
			}
		}
		s.limiterMu.Unlock()
	}
}

// SecurityHeadersMiddleware sets the baseline security headers on every
// response.
func (s *Server) SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs each request with method, path, client IP, country
// (when GeoIP is available) and duration.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		realIP := GetRealIP(r, s.trustProxy)
		event := log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", realIP).
			Dur("duration", time.Since(start))

		if s.geoip != nil {
			if country := s.geoip.CountryCode(realIP); country != "" {
				event = event.Str("country", country)
			}
		}

		event.Msg("Request handled")
	})
}

// AdminAuthMiddleware protects endpoints by requiring a valid Bearer token in
// the Authorization header.
func AdminAuthMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
