package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker defines the interface for health checking components
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type dependencyCheck struct {
	name     string
	checker  HealthChecker
	critical bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checks []dependencyCheck
}

// NewHealthHandler creates a health handler for a critical database and an optional cache.
// Nil checkers are skipped.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	h := &HealthHandler{}
	if db != nil {
		h.WithCheck("database", db, true)
	}
	if cache != nil {
		h.WithCheck("cache", cache, false)
	}
	return h
}

// WithCheck adds a dependency. A failing critical dependency makes the service unhealthy,
// any other failure only degrades it.
func (h *HealthHandler) WithCheck(name string, checker HealthChecker, critical bool) *HealthHandler {
	h.checks = append(h.checks, dependencyCheck{name: name, checker: checker, critical: critical})
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	for _, c := range h.checks {
		if err := c.checker.HealthCheck(ctx); err != nil {
			response.Services[c.name] = "unhealthy: " + err.Error()
			if c.critical {
				response.Status = "unhealthy"
			} else if response.Status == "healthy" {
				response.Status = "degraded"
			}
			continue
		}
		response.Services[c.name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// Ready handles GET /ready (Kubernetes readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if !c.critical {
			continue
		}
		if err := c.checker.HealthCheck(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Live handles GET /live (Kubernetes liveness probe)
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
