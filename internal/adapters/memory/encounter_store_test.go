package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhaus/clinicflow/internal/adapters/memory"
	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

func newRegistration(t *testing.T, store *memory.EncounterStore) *entities.Registration {
	t.Helper()
	reg, err := store.CreateRegistration(context.Background(), repositories.RegistrationInput{
		FirstName:   "Amina",
		LastName:    "Hassan",
		SymptomText: "sore throat",
		Intake:      entities.IntakeAnalysis{Complexity: "Low", VisitDurationMin: 15},
	})
	require.NoError(t, err)
	return reg
}

func checkIn(t *testing.T, store *memory.EncounterStore, code string) *entities.Encounter {
	t.Helper()
	enc, err := store.CheckIn(context.Background(), code, time.Now().UTC())
	require.NoError(t, err)
	return enc
}

func TestCreateRegistration_Validation(t *testing.T) {
	store := memory.NewEncounterStore()
	ctx := context.Background()

	_, err := store.CreateRegistration(ctx, repositories.RegistrationInput{SymptomText: "cough"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = store.CreateRegistration(ctx, repositories.RegistrationInput{FirstName: "Amina", SymptomText: "  "})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCheckIn_ConvertsRegistration(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)

	enc := checkIn(t, store, reg.Token)
	assert.Equal(t, reg.PID, enc.ID)
	assert.Equal(t, reg.Token, enc.Token)
	assert.Equal(t, entities.StatusWaiting, enc.Status)
	assert.Equal(t, entities.PriorityLow, enc.Priority)
	assert.Equal(t, entities.LaneFast, enc.Lane)

	// The registration is consumed by the conversion.
	_, err := store.GetRegistration(context.Background(), reg.PID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCheckIn_AcceptsQRPayloadAndEitherHalf(t *testing.T) {
	codes := []func(reg *entities.Registration) string{
		func(reg *entities.Registration) string { return reg.PID + "|" + reg.Token },
		func(reg *entities.Registration) string { return reg.PID },
		func(reg *entities.Registration) string { return "  " + reg.Token + "  " },
	}
	for _, code := range codes {
		store := memory.NewEncounterStore()
		reg := newRegistration(t, store)
		enc := checkIn(t, store, code(reg))
		assert.Equal(t, reg.PID, enc.ID)
	}
}

func TestCheckIn_DuplicateIsConflict(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	checkIn(t, store, reg.Token)

	_, err := store.CheckIn(context.Background(), reg.Token, time.Now().UTC())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	active, err := store.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCheckIn_UnknownCode(t *testing.T) {
	store := memory.NewEncounterStore()
	_, err := store.CheckIn(context.Background(), "UC-9999", time.Now().UTC())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestTransition_ForwardSingleStepOnly(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	checkIn(t, store, reg.Token)
	ctx := context.Background()
	now := time.Now().UTC()

	// Skips fail closed and leave the status unchanged.
	_, err := store.Transition(ctx, reg.Token, entities.StatusInRoom, now)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))
	enc, err := store.Get(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusWaiting, enc.Status)

	for _, next := range []entities.Status{entities.StatusCalled, entities.StatusInRoom, entities.StatusDone} {
		enc, err = store.Transition(ctx, reg.Token, next, now)
		require.NoError(t, err)
		assert.Equal(t, next, enc.Status)
	}

	// Done is terminal.
	_, err = store.Transition(ctx, reg.Token, entities.StatusWaiting, now)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))

	_, err = store.Transition(ctx, reg.Token, entities.Status("paused"), now)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCheckIn_DoneEncounterBeforePurge(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	checkIn(t, store, reg.Token)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, next := range []entities.Status{entities.StatusCalled, entities.StatusInRoom, entities.StatusDone} {
		_, err := store.Transition(ctx, reg.Token, next, now)
		require.NoError(t, err)
	}

	// Done but not yet purged: the token is still held, not reusable.
	_, err := store.CheckIn(ctx, reg.Token, now)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestPurgeDone_FreesTokensAndReturnsForArchive(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	checkIn(t, store, reg.Token)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, next := range []entities.Status{entities.StatusCalled, entities.StatusInRoom, entities.StatusDone} {
		_, err := store.Transition(ctx, reg.Token, next, now)
		require.NoError(t, err)
	}

	// A cutoff in the past keeps recent encounters.
	purged, err := store.PurgeDone(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, purged)

	purged, err = store.PurgeDone(ctx, time.Now().UTC().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, purged, 1)
	assert.Equal(t, reg.PID, purged[0].ID)

	_, err = store.Get(ctx, reg.Token)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestUpdateVitals_ReplacesSnapshotWhole(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	checkIn(t, store, reg.Token)
	ctx := context.Background()

	spo2 := 97.0
	_, err := store.UpdateVitals(ctx, reg.Token, entities.VitalsSnapshot{SpO2: &spo2, DeviceID: "station-1"})
	require.NoError(t, err)

	hr := 88.0
	enc, err := store.UpdateVitals(ctx, reg.Token, entities.VitalsSnapshot{HR: &hr, DeviceID: "station-2"})
	require.NoError(t, err)

	// Replace, never merge: the earlier SpO2 reading is gone.
	require.NotNil(t, enc.VitalsLatest)
	assert.Nil(t, enc.VitalsLatest.SpO2)
	require.NotNil(t, enc.VitalsLatest.HR)
	assert.Equal(t, 88.0, *enc.VitalsLatest.HR)
	assert.Equal(t, "station-2", enc.VitalsLatest.DeviceID)
}

func TestSetTriage_WritesDerivedFields(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	enc := checkIn(t, store, reg.Token)

	updated, err := store.SetTriage(context.Background(), enc.ID, entities.TriageResult{
		Priority:      entities.PriorityHigh,
		RedFlags:      []string{"chest pain"},
		EmergencyKind: "chest_pain",
	}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, entities.PriorityHigh, updated.Priority)
	assert.Equal(t, []string{"chest pain"}, updated.RedFlags)
}

func TestApplySchedule_WritesPositionsBack(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	enc := checkIn(t, store, reg.Token)
	ctx := context.Background()

	err := store.ApplySchedule(ctx, map[string]repositories.ScheduledSlot{
		enc.ID:    {PositionInLine: 4, EstimatedWaitMin: 60},
		"missing": {PositionInLine: 0, EstimatedWaitMin: 0},
	}, time.Now().UTC())
	require.NoError(t, err)

	got, err := store.Get(ctx, enc.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.PositionInLine)
	assert.Equal(t, 60, got.EstimatedWaitMin)
}

func TestProviderCount(t *testing.T) {
	store := memory.NewEncounterStore()
	ctx := context.Background()

	count, err := store.ProviderCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.SetProviderCount(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = store.SetProviderCount(ctx, -2)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestGet_ReturnsCopies(t *testing.T) {
	store := memory.NewEncounterStore()
	reg := newRegistration(t, store)
	checkIn(t, store, reg.Token)
	ctx := context.Background()

	first, err := store.Get(ctx, reg.Token)
	require.NoError(t, err)
	first.FirstName = "Mutated"
	first.RedFlags = append(first.RedFlags, "injected")

	second, err := store.Get(ctx, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, "Amina", second.FirstName)
	assert.NotContains(t, second.RedFlags, "injected")
}

func TestTokensAreUniqueAmongLiveRecords(t *testing.T) {
	store := memory.NewEncounterStore()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		reg := newRegistration(t, store)
		assert.False(t, seen[reg.Token], "token %s issued twice", reg.Token)
		seen[reg.Token] = true
	}
}
