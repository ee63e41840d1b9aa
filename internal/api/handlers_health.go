// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	BreakerState      string  `json:"breaker_state,omitempty"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Health reports overall service health. Degraded means the process is up
// but the database is unreachable or the Bungie breaker is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.store != nil && h.store.Ping(r.Context()) == nil

	breakerState := ""
	if h.breaker != nil {
		breakerState = h.breaker.State()
	}

	status := "healthy"
	if !dbConnected || breakerState == "open" {
		status = "degraded"
	}

	rw.Success(HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		BreakerState:      breakerState,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe: 200 whenever the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady is the readiness probe: 200 only when the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.store == nil || h.store.Ping(r.Context()) != nil {
		rw.ServiceUnavailable("Database is not reachable")
		return
	}

	rw.Success(map[string]interface{}{"ready": true})
}
