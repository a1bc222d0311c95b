package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db       HealthChecker
	cache    HealthChecker
	eventLog HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for any dependency that is not configured.
func NewHealthHandler(db, cache, eventLog HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:       db,
		cache:    cache,
		eventLog: eventLog,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
//
// The store is load-bearing: if PostgreSQL is down the service cannot
// serve and reports unhealthy with a 503. Redis is not: the service
// degrades to store-only reads, so a cache failure reports "degraded"
// with a 200 and the pod stays in rotation.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "ok"
	statusCode := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["postgres"] = "error: " + err.Error()
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "ok"
		}
	} else {
		checks["postgres"] = "not configured"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			if status == "ok" {
				status = "degraded"
			}
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	writeJSON(w, statusCode, HealthResponse{Status: status, Checks: checks})
}

// CacheHealth reports cache connectivity on its own.
//
// GET /health/cache
func (h *HealthHandler) CacheHealth(w http.ResponseWriter, r *http.Request) {
	h.componentHealth(w, r, h.cache)
}

// EventLogHealth reports event log connectivity on its own.
//
// GET /health/eventlog
func (h *HealthHandler) EventLogHealth(w http.ResponseWriter, r *http.Request) {
	h.componentHealth(w, r, h.eventLog)
}

// componentHealth reports one optional dependency. A failing probe is
// "degraded" with a 200 because no single optional component takes the
// service down.
func (h *HealthHandler) componentHealth(w http.ResponseWriter, r *http.Request, checker HealthChecker) {
	if checker == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := checker.Ping(ctx); err != nil {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "degraded",
			Checks: map[string]string{"error": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}
