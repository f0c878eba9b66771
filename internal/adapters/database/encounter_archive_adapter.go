package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	"github.com/medhaus/clinicflow/internal/infrastructure/clients/postgres"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

const archiveTable = "encounter_archive"

// EncounterArchiveAdapter persists completed encounters in Postgres for
// reporting. The live queue never reads from here.
type EncounterArchiveAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewEncounterArchiveAdapter creates a new archive adapter and ensures
// the archive table exists.
func NewEncounterArchiveAdapter(client *postgres.Client) (repositories.EncounterArchive, error) {
	adapter := &EncounterArchiveAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
	if err := adapter.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return adapter, nil
}

// Archive inserts a completed encounter record.
func (a *EncounterArchiveAdapter) Archive(ctx context.Context, encounter *entities.Encounter) error {
	if encounter == nil {
		return apperrors.NewInternalError("encounter is nil", fmt.Errorf("encounter is nil"))
	}

	vitalsJSON, err := json.Marshal(encounter.VitalsLatest)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal vitals", err)
	}
	redFlagsJSON, err := json.Marshal(encounter.RedFlags)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal red flags", err)
	}

	record := goqu.Record{
		"id":             encounter.ID,
		"token":          encounter.Token,
		"first_name":     encounter.FirstName,
		"last_name":      encounter.LastName,
		"phone":          sql.NullString{String: encounter.Phone, Valid: encounter.Phone != ""},
		"status":         string(encounter.Status),
		"priority":       string(encounter.Priority),
		"lane":           string(encounter.Lane),
		"symptom_text":   sql.NullString{String: encounter.SymptomText, Valid: encounter.SymptomText != ""},
		"emergency_kind": sql.NullString{String: encounter.EmergencyKind, Valid: encounter.EmergencyKind != ""},
		"vitals":         string(vitalsJSON),
		"red_flags":      string(redFlagsJSON),
		"arrival_time":   encounter.ArrivalTime,
		"completed_at":   encounter.UpdatedAt,
	}

	query, args, err := a.db.Insert(archiveTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build archive insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to archive encounter", err)
	}

	return nil
}

func (a *EncounterArchiveAdapter) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS encounter_archive (
    id             TEXT PRIMARY KEY,
    token          TEXT NOT NULL,
    first_name     TEXT NOT NULL,
    last_name      TEXT NOT NULL,
    phone          TEXT,
    status         TEXT NOT NULL,
    priority       TEXT NOT NULL,
    lane           TEXT NOT NULL,
    symptom_text   TEXT,
    emergency_kind TEXT,
    vitals         JSONB,
    red_flags      JSONB,
    arrival_time   TIMESTAMPTZ NOT NULL,
    completed_at   TIMESTAMPTZ NOT NULL
)`
	if _, err := a.client.DB().ExecContext(ctx, ddl); err != nil {
		return apperrors.NewInternalError("failed to ensure archive schema", err)
	}
	return nil
}
