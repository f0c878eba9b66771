package handlers

import (
	"net/http"
	"strings"

	"github.com/medhaus/clinicflow/internal/application/services"
)

// TriageHandler exposes on-demand triage recomputation.
type TriageHandler struct {
	queue *services.QueueService
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(queue *services.QueueService) *TriageHandler {
	return &TriageHandler{queue: queue}
}

// Triage handles GET /api/triage?token=
func (h *TriageHandler) Triage(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.queue.TriageByCode(r.Context(), token)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
