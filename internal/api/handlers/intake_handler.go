package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/medhaus/clinicflow/internal/application/services"
	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
)

// IntakeHandler handles pre-arrival registration and QR issuance.
type IntakeHandler struct {
	intake *services.IntakeService
	repo   repositories.EncounterRepository
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(intake *services.IntakeService, repo repositories.EncounterRepository) *IntakeHandler {
	return &IntakeHandler{intake: intake, repo: repo}
}

type intakeRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	DOB           string `json:"dob"`
	Symptoms      string `json:"symptoms"`
	Duration      string `json:"duration"`
	ArrivalWindow string `json:"arrival_window"`
}

// Register handles POST /api/intake
func (h *IntakeHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	reg, err := h.intake.Register(
		r.Context(),
		req.FirstName,
		req.LastName,
		req.Phone,
		req.DOB,
		req.Symptoms,
		req.Duration,
		entities.ArrivalWindow(req.ArrivalWindow),
	)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"pid":             reg.PID,
		"token":           reg.Token,
		"chief_complaint": reg.Intake.ChiefComplaint,
		"summary":         reg.Intake.Summary,
	})
}

// GetQRPayload handles GET /api/qr/{pid}
func (h *IntakeHandler) GetQRPayload(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("pid")
	if pid == "" {
		respondWithError(w, http.StatusBadRequest, "pid is required")
		return
	}

	reg, err := h.repo.GetRegistration(r.Context(), pid)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"pid":     reg.PID,
		"token":   reg.Token,
		"payload": scanPayload(reg),
	})
}

// GetQRImage handles GET /qr-img/{pid}
func (h *IntakeHandler) GetQRImage(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("pid")
	if pid == "" {
		respondWithError(w, http.StatusBadRequest, "pid is required")
		return
	}

	reg, err := h.repo.GetRegistration(r.Context(), pid)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	png, err := qrcode.Encode(scanPayload(reg), qrcode.Medium, 256)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func scanPayload(reg *entities.Registration) string {
	return fmt.Sprintf("%s|%s", reg.PID, reg.Token)
}
