package repositories

import (
	"context"

	"github.com/medhaus/clinicflow/internal/domain/entities"
)

// EncounterArchive persists completed encounters after they are purged
// from the live store. In-flight queue state is deliberately not durable;
// only terminal encounters are written here, for reporting and billing.
type EncounterArchive interface {
	Archive(ctx context.Context, encounter *entities.Encounter) error
}
