package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/medhaus/clinicflow/internal/application/services"
	"github.com/medhaus/clinicflow/internal/domain/entities"
)

// VitalsHandler handles vitals station submissions and reads.
type VitalsHandler struct {
	queue *services.QueueService
}

// NewVitalsHandler creates a new vitals handler
func NewVitalsHandler(queue *services.QueueService) *VitalsHandler {
	return &VitalsHandler{queue: queue}
}

type vitalsRequest struct {
	Token      string   `json:"token"`
	SpO2       *float64 `json:"spo2,omitempty"`
	HR         *float64 `json:"hr,omitempty"`
	TempC      *float64 `json:"temp_c,omitempty"`
	BPSys      *float64 `json:"bp_sys,omitempty"`
	BPDia      *float64 `json:"bp_dia,omitempty"`
	DeviceID   string   `json:"device_id,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Simulated  bool     `json:"simulated,omitempty"`
}

// Submit handles POST /api/vitals
func (h *VitalsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req vitalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = 0.9
	}
	snapshot := entities.VitalsSnapshot{
		SpO2:       req.SpO2,
		HR:         req.HR,
		TempC:      req.TempC,
		BPSys:      req.BPSys,
		BPDia:      req.BPDia,
		DeviceID:   req.DeviceID,
		Confidence: confidence,
		Simulated:  req.Simulated,
		RecordedAt: time.Now().UTC(),
	}

	enc, err := h.queue.SubmitVitals(r.Context(), token, snapshot)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"token":       enc.Token,
		"priority":    enc.Priority,
		"recorded_at": snapshot.RecordedAt,
	})
}

// GetByToken handles GET /api/vitals/by-token?token=
func (h *VitalsHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	vitals, err := h.queue.LatestVitals(r.Context(), token)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"token":  token,
		"vitals": vitals,
	})
}
