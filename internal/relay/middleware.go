// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ============================================================================
// Middleware Chain
// ============================================================================

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in order: the first listed runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ============================================================================
// Recovery
// ============================================================================

// RecoveryMiddleware recovers from handler panics and returns a 500
// instead of killing the connection.
func RecoveryMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Printf("PANIC_RECOVERED | path=%s error=%v\n%s", r.URL.Path, err, debug.Stack())
					writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Security Headers
// ============================================================================

// SecurityHeadersMiddleware sets baseline security headers on every
// response.
func SecurityHeadersMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Logging
// ============================================================================

// responseWriter captures the status code for request logging. It
// forwards Flush so SSE streaming works through the logging layer.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingMiddleware logs method, path, status, and duration for each
// request.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Printf("REQUEST | method=%s path=%s status=%d duration=%s ip=%s",
				r.Method, r.URL.Path, rw.status, time.Since(start).Round(time.Millisecond), GetClientIP(r))
		})
	}
}

// ============================================================================
// CORS
// ============================================================================

// CORSConfig holds the allowed origins. Origins can be swapped at
// runtime by the config watcher.
type CORSConfig struct {
	mu      sync.RWMutex
	origins map[string]bool
	any     bool
}

// NewCORSConfig creates a CORS config from an origin list. An empty
// list or a "*" entry allows all origins.
func NewCORSConfig(origins []string) *CORSConfig {
	c := &CORSConfig{}
	c.SetOrigins(origins)
	return c
}

// SetOrigins replaces the allowed origin set.
func (c *CORSConfig) SetOrigins(origins []string) {
	set := make(map[string]bool, len(origins))
	any := len(origins) == 0
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			any = true
			continue
		}
		if o != "" {
			set[o] = true
		}
	}
	c.mu.Lock()
	c.origins = set
	c.any = any
	c.mu.Unlock()
}

// Allowed reports whether the given Origin header value is permitted.
func (c *CORSConfig) Allowed(origin string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.any || c.origins[origin]
}

// CORSMiddleware handles cross-origin headers and OPTIONS preflight
// requests.
func CORSMiddleware(cfg *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && cfg.Allowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				// Preflight gets an empty 200, matching what browsers
				// saw from the hosted relay.
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Rate Limiting
// ============================================================================

// IPRateLimiter applies a token-bucket rate limit per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter creates a limiter allowing perMinute requests per
// minute with the given burst, per client IP.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
	go l.cleanupLoop()
	return l
}

// SetLimit replaces the rate parameters. Existing per-IP buckets are
// dropped so the new limits take effect immediately.
func (l *IPRateLimiter) SetLimit(perMinute, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = rate.Limit(float64(perMinute) / 60.0)
	l.burst = burst
	l.limiters = make(map[string]*rate.Limiter)
	l.lastSeen = make(map[string]time.Time)
}

// Allow reports whether a request from ip may proceed.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	l.lastSeen[ip] = time.Now()
	return lim.Allow()
}

// cleanupLoop drops buckets for IPs idle longer than ten minutes.
func (l *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		l.mu.Lock()
		for ip, seen := range l.lastSeen {
			if seen.Before(cutoff) {
				delete(l.limiters, ip)
				delete(l.lastSeen, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimitMiddleware rejects requests over the per-IP limit with 429.
// Health checks are exempt.
func RateLimitMiddleware(limiter *IPRateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			ip := GetClientIP(r)
			if !limiter.Allow(ip) {
				log.Printf("RATE_LIMIT_EXCEEDED | ip=%s path=%s", ip, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again shortly.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Client IP
// ============================================================================

// GetClientIP extracts the client IP from the request. X-Forwarded-For
// is honored only for loopback peers, which is where a reverse proxy
// would sit in this deployment.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer != nil && peer.IsLoopback() {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			candidate := strings.TrimSpace(parts[0])
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}
	return host
}
