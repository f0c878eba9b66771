package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
)

// InsuranceHandler handles staff-initiated eligibility checks.
type InsuranceHandler struct {
	provider providers.InsuranceProvider
	repo     repositories.EncounterRepository
}

// NewInsuranceHandler creates a new insurance handler
func NewInsuranceHandler(provider providers.InsuranceProvider, repo repositories.EncounterRepository) *InsuranceHandler {
	return &InsuranceHandler{provider: provider, repo: repo}
}

type eligibilityRequest struct {
	Token        string `json:"token"`
	NationalID   string `json:"national_id,omitempty"`
	InsurerName  string `json:"insurer_name,omitempty"`
	PolicyNumber string `json:"policy_number,omitempty"`
	MemberID     string `json:"member_id,omitempty"`
	Consent      bool   `json:"consent"`
}

// CheckEligibility handles POST /api/insurance/eligibility
func (h *InsuranceHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if !req.Consent {
		respondWithError(w, http.StatusBadRequest, "patient consent is required")
		return
	}

	enc, err := h.repo.Get(r.Context(), req.Token)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	result, err := h.provider.CheckEligibility(r.Context(), providers.EligibilityRequest{
		EncounterID:  enc.ID,
		Token:        enc.Token,
		NationalID:   req.NationalID,
		InsurerName:  req.InsurerName,
		PolicyNumber: req.PolicyNumber,
		MemberID:     req.MemberID,
		Consent:      req.Consent,
	})
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("insurance: eligibility check failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
