package handlers

import (
	"net/http"

	"github.com/medhaus/clinicflow/internal/application/services"
)

// QueueHandler serves the public queue surfaces.
type QueueHandler struct {
	queue *services.QueueService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queue *services.QueueService) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// GetQueue handles GET /api/queue
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.queue.PublicQueue(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// GetLobbyLoad handles GET /api/lobby-load
func (h *QueueHandler) GetLobbyLoad(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.queue.LobbyLoad(r.Context()))
}
