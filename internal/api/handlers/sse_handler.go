package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
	"github.com/medhaus/clinicflow/internal/realtime"
)

// SSEHandler handles Server-Sent Events for real-time queue updates
type SSEHandler struct {
	broadcaster *realtime.Broadcaster
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(broadcaster *realtime.Broadcaster) *SSEHandler {
	return &SSEHandler{broadcaster: broadcaster}
}

// StreamQueue handles SSE connections for queue updates
// GET /api/stream/queue
func (h *SSEHandler) StreamQueue(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	// Send initial connection event; the latest snapshot follows
	// immediately from the subscription.
	h.sendEvent(w, "connected", map[string]interface{}{
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			observability.GetLogger().Debug().Msg("sse: client disconnected from queue stream")
			return
		case <-ticker.C:
			// Send heartbeat
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case snapshot, ok := <-sub.C():
			if !ok {
				// Dropped for falling behind; the client reconnects for
				// a fresh snapshot.
				return
			}
			h.sendEvent(w, "queue_update", snapshot)
			flusher.Flush()
		}
	}
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Msg("sse: failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
