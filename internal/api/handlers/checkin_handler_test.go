package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIn(t *testing.T) {
	fx := newAPIFixture(t)
	reg := fx.register(t, "Amina", "sore throat")

	rec := fx.do(t, http.MethodPost, "/api/checkin", map[string]string{"code": reg.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, reg.Token, body["token"])
	assert.Equal(t, "Amina T.", body["display_name"])
}

func TestCheckIn_QRPayload(t *testing.T) {
	fx := newAPIFixture(t)
	reg := fx.register(t, "Amina", "sore throat")

	rec := fx.do(t, http.MethodPost, "/api/checkin", map[string]string{"code": reg.PID + "|" + reg.Token})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCheckIn_Errors(t *testing.T) {
	fx := newAPIFixture(t)
	reg := fx.register(t, "Amina", "sore throat")
	fx.checkIn(t, reg.Token)

	// A duplicate attempt conflicts rather than double-queueing.
	rec := fx.do(t, http.MethodPost, "/api/checkin", map[string]string{"code": reg.Token})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/checkin", map[string]string{"code": "UC-0000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = fx.do(t, http.MethodPost, "/api/checkin", map[string]string{"code": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
