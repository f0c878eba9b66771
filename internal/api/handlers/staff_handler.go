package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medhaus/clinicflow/internal/api/middleware"
	"github.com/medhaus/clinicflow/internal/application/services"
	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/pkg/config"
)

// StaffHandler serves the staff console: clinical queue, status changes,
// provider capacity, sessions, and the audit trail.
type StaffHandler struct {
	queue    *services.QueueService
	audit    *services.AuditLog
	sessions *middleware.StaffSessions
	cfg      *config.StaffConfig
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(queue *services.QueueService, audit *services.AuditLog, sessions *middleware.StaffSessions, cfg *config.StaffConfig) *StaffHandler {
	return &StaffHandler{queue: queue, audit: audit, sessions: sessions, cfg: cfg}
}

// GetQueue handles GET /api/staff/queue
func (h *StaffHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	view, err := h.queue.StaffQueue(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles POST /api/staff/status/{id}
func (h *StaffHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "encounter id is required")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	enc, err := h.queue.SetStatus(r.Context(), id, entities.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":           enc.ID,
		"token":        enc.Token,
		"status":       enc.Status,
		"status_label": enc.Status.Label(),
	})
}

// GetProviders handles GET /api/staff/providers
func (h *StaffHandler) GetProviders(w http.ResponseWriter, r *http.Request) {
	count, err := h.queue.ProviderCount(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"provider_count": count})
}

type providersRequest struct {
	ProviderCount *int `json:"provider_count"`
}

// SetProviders handles POST /api/staff/providers
func (h *StaffHandler) SetProviders(w http.ResponseWriter, r *http.Request) {
	var req providersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProviderCount == nil {
		respondWithError(w, http.StatusBadRequest, "provider_count is required")
		return
	}

	applied, err := h.queue.SetProviderCount(r.Context(), *req.ProviderCount)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"provider_count": applied})
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/staff/login
func (h *StaffHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Password)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    h.sessions.Issue(time.Now()),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL().Seconds()),
	})
	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Logout handles POST /api/staff/logout
func (h *StaffHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetAudit handles GET /api/staff/audit
func (h *StaffHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries := h.audit.Recent(limit)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
