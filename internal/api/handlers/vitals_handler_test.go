package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVitalsSubmit(t *testing.T) {
	fx := newAPIFixture(t)
	reg := fx.register(t, "Amina", "sore throat")
	fx.checkIn(t, reg.Token)

	rec := fx.do(t, http.MethodPost, "/api/vitals", map[string]any{
		"token":     reg.Token,
		"spo2":      88.0,
		"hr":        96.0,
		"device_id": "station-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	// Critically low oxygen lands in the top lane.
	assert.Equal(t, "high", body["priority"])

	rec = fx.do(t, http.MethodGet, "/api/vitals/by-token?token="+reg.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	vitals, ok := got["vitals"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 88.0, vitals["spo2"])
	assert.Equal(t, "station-1", vitals["device_id"])
}

func TestVitalsSubmit_Validation(t *testing.T) {
	fx := newAPIFixture(t)
	reg := fx.register(t, "Amina", "sore throat")
	fx.checkIn(t, reg.Token)

	rec := fx.do(t, http.MethodPost, "/api/vitals", map[string]any{"spo2": 97.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Physically implausible readings are rejected at the boundary.
	rec = fx.do(t, http.MethodPost, "/api/vitals", map[string]any{"token": reg.Token, "spo2": 140.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/vitals", map[string]any{"token": reg.Token, "temp_c": 80.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/vitals", map[string]any{"token": "UC-0000", "hr": 80.0})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriageByToken(t *testing.T) {
	fx := newAPIFixture(t)
	reg := fx.register(t, "Amina", "chest pain since this morning")
	fx.checkIn(t, reg.Token)

	rec := fx.do(t, http.MethodGet, "/api/triage?token="+reg.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "high", body["priority"])
	assert.Contains(t, body["ai_script"], "rushed immediately")

	rec = fx.do(t, http.MethodGet, "/api/triage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
