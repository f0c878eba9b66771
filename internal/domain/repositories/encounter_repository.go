package repositories

import (
	"context"
	"time"

	"github.com/medhaus/clinicflow/internal/domain/entities"
)

// RegistrationInput is the intake data used to create a registration.
// The store assigns the PID and token.
type RegistrationInput struct {
	FirstName     string
	LastName      string
	Phone         string
	DOB           string
	SymptomText   string
	DurationText  string
	ArrivalWindow entities.ArrivalWindow
	Intake        entities.IntakeAnalysis
}

// ScheduledSlot carries the scheduler-derived fields written back to an
// encounter after a recomputation.
type ScheduledSlot struct {
	PositionInLine   int
	EstimatedWaitMin int
}

// EncounterRepository is the authoritative store of registrations and
// active encounters. The shipped implementation is in-memory and
// single-instance by design; the interface is the seam for a future
// external store.
//
// All mutations are atomic with respect to each other. Implementations
// must not perform I/O inside their critical sections.
type EncounterRepository interface {
	// CreateRegistration stores a new intake registration, assigning a
	// PID and a unique short token.
	CreateRegistration(ctx context.Context, input RegistrationInput) (*entities.Registration, error)

	// GetRegistration returns a registration by PID or token.
	GetRegistration(ctx context.Context, code string) (*entities.Registration, error)

	// CheckIn converts the registration matching code (PID or token,
	// "PID|TOKEN" scan payloads accepted) into a waiting encounter.
	// Returns a conflict error when the token already has a live
	// encounter; the queue is left unchanged.
	CheckIn(ctx context.Context, code string, now time.Time) (*entities.Encounter, error)

	// Get returns an encounter by ID or token.
	Get(ctx context.Context, idOrToken string) (*entities.Encounter, error)

	// UpdateVitals replaces the encounter's latest vitals snapshot whole.
	UpdateVitals(ctx context.Context, idOrToken string, vitals entities.VitalsSnapshot) (*entities.Encounter, error)

	// SetTriage records the triage engine's output on the encounter.
	SetTriage(ctx context.Context, id string, result entities.TriageResult, now time.Time) (*entities.Encounter, error)

	// Transition advances the encounter status. Only the single forward
	// step is legal; anything else fails closed with a typed rejection.
	Transition(ctx context.Context, idOrToken string, to entities.Status, now time.Time) (*entities.Encounter, error)

	// ListActive returns copies of all non-done encounters, order
	// unspecified.
	ListActive(ctx context.Context) ([]*entities.Encounter, error)

	// ApplySchedule writes recomputed derived fields back, keyed by
	// encounter ID. Unknown IDs are ignored.
	ApplySchedule(ctx context.Context, slots map[string]ScheduledSlot, now time.Time) error

	// ProviderCount returns the current provider capacity.
	ProviderCount(ctx context.Context) (int, error)

	// SetProviderCount sets provider capacity; values below zero are
	// rejected.
	SetProviderCount(ctx context.Context, count int) (int, error)

	// PurgeDone removes done encounters whose UpdatedAt is older than
	// cutoff and returns them for archival. Their tokens become
	// reusable afterwards.
	PurgeDone(ctx context.Context, cutoff time.Time) ([]*entities.Encounter, error)
}
