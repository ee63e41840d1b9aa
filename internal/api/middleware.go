// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/henworth/seraphsix/internal/logging"
	"github.com/henworth/seraphsix/internal/metrics"
)

// MiddlewareConfig holds rate-limit and CORS settings for the router.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string

	// RateLimitDisabled turns off all rate limiters; used in tests.
	RateLimitDisabled bool
}

// Per-endpoint-class rate limits. Health is permissive so monitoring can
// poll freely; writes are tight since every write fans out into jobs.
var (
	rateLimitAPI    = rateLimit{requests: 100, window: time.Minute}
	rateLimitWrite  = rateLimit{requests: 30, window: time.Minute}
	rateLimitHealth = rateLimit{requests: 1000, window: time.Minute}
)

type rateLimit struct {
	requests int
	window   time.Duration
}

// Middleware builds the chi middleware stack pieces from configuration.
type Middleware struct {
	config *MiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewMiddleware creates the middleware factory.
func NewMiddleware(config *MiddlewareConfig) *Middleware {
	if config == nil {
		config = &MiddlewareConfig{}
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	})

	return &Middleware{config: config, cors: corsHandler}
}

// CORS returns the CORS middleware. Origins default to empty, which denies
// cross-origin browser access until explicitly configured.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP API rate limiter.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return m.limiter(rateLimitAPI)
}

// RateLimitWrite returns the tighter limiter for mutating endpoints.
func (m *Middleware) RateLimitWrite() func(http.Handler) http.Handler {
	return m.limiter(rateLimitWrite)
}

// RateLimitHealth returns the permissive limiter for health probes.
func (m *Middleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limiter(rateLimitHealth)
}

func (m *Middleware) limiter(rl rateLimit) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(rl.requests, rl.window)
}

// RequestIDWithLogging adds an X-Request-ID header to every request and
// stores the id in the request context so handler log lines correlate.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusResponseWriter captures the status code written by a handler so
// metrics can label requests by outcome.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// PrometheusMetrics records request counts and durations. The route label
// uses the chi route pattern rather than the raw path to keep cardinality
// bounded.
func PrometheusMetrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}

			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// SecurityHeaders adds standard security headers to API responses.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
