package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/medhaus/clinicflow/internal/application/services"
)

// CheckinHandler handles kiosk and scan check-ins.
type CheckinHandler struct {
	queue *services.QueueService
}

// NewCheckinHandler creates a new check-in handler
func NewCheckinHandler(queue *services.QueueService) *CheckinHandler {
	return &CheckinHandler{queue: queue}
}

type checkinRequest struct {
	Code string `json:"code"`
}

// CheckIn handles POST /api/checkin
func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "code is required")
		return
	}

	result, err := h.queue.CheckIn(r.Context(), code)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
