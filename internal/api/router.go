// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP handler tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router over the given handler.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	if mw == nil {
		mw = NewMiddleware(nil)
	}
	return &Router{handler: handler, middleware: mw}
}

// Setup builds the chi handler with the full middleware stack and routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(PrometheusMetrics())
		r.Use(router.middleware.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrometheusMetrics())
		r.Use(router.middleware.RateLimit())
		r.Use(SecurityHeaders())

		r.Get("/clans", router.handler.ListClans)
		r.With(router.middleware.RateLimitWrite()).Post("/clans", router.handler.RegisterClan)
		r.Get("/clans/{groupID}/members", router.handler.ClanMembers)
		r.With(router.middleware.RateLimitWrite()).Post("/clans/{groupID}/reconcile", router.handler.TriggerReconcile)

		r.Get("/members/{platform}/{membershipID}/games", router.handler.MemberGames)
	})

	// Prometheus scrape endpoint, outside the API middleware stack.
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
