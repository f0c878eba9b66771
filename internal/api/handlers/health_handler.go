package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes. The queue itself
// is in-process, so liveness implies the core service; readiness also
// checks optional external collaborators.
type HealthHandler struct {
	dependencies map[string]Pinger
}

// NewHealthHandler creates a health handler. Nil pingers are skipped.
func NewHealthHandler(dependencies map[string]Pinger) *HealthHandler {
	filtered := make(map[string]Pinger)
	for name, dep := range dependencies {
		if dep != nil {
			filtered[name] = dep
		}
	}
	return &HealthHandler{dependencies: filtered}
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.dependencies))
	ready := true
	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	respondWithJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
