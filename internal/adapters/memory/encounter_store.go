package memory

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

const tokenAttempts = 500

var _ repositories.EncounterRepository = (*EncounterStore)(nil)

// EncounterStore is the authoritative in-memory table of registrations and
// active encounters. A single exclusive critical section covers every
// mutation, including provider capacity; nothing inside the lock performs
// I/O, so hold times stay bounded under many simultaneous stations.
//
// State is intentionally not durable: a restart loses in-flight queue
// state, and terminal encounters are handed to the archive on purge.
type EncounterStore struct {
	mu            sync.Mutex
	registrations map[string]*entities.Registration // keyed by PID
	regByToken    map[string]string                 // token -> PID
	encounters    map[string]*entities.Encounter    // keyed by ID
	encByToken    map[string]string                 // token -> ID
	providerCount int
	rng           *rand.Rand
}

// NewEncounterStore creates an empty store with one provider available.
func NewEncounterStore() *EncounterStore {
	return &EncounterStore{
		registrations: make(map[string]*entities.Registration),
		regByToken:    make(map[string]string),
		encounters:    make(map[string]*entities.Encounter),
		encByToken:    make(map[string]string),
		providerCount: 1,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRegistration stores a new intake registration with a fresh PID and
// a short token unique among all live registrations and encounters.
func (s *EncounterStore) CreateRegistration(ctx context.Context, input repositories.RegistrationInput) (*entities.Registration, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, apperrors.NewValidationError("first name is required")
	}
	if strings.TrimSpace(input.SymptomText) == "" {
		return nil, apperrors.NewValidationError("symptom text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg := &entities.Registration{
		PID:           newPID(),
		Token:         s.issueTokenLocked(),
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Phone:         strings.TrimSpace(input.Phone),
		DOB:           strings.TrimSpace(input.DOB),
		SymptomText:   strings.TrimSpace(input.SymptomText),
		DurationText:  input.DurationText,
		ArrivalWindow: input.ArrivalWindow,
		Intake:        input.Intake,
		CreatedAt:     time.Now().UTC(),
	}
	s.registrations[reg.PID] = reg
	s.regByToken[reg.Token] = reg.PID

	out := *reg
	return &out, nil
}

// GetRegistration returns a registration by PID or token.
func (s *EncounterStore) GetRegistration(ctx context.Context, code string) (*entities.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := s.findRegistrationLocked(code)
	if reg == nil {
		return nil, apperrors.NewNotFoundError("registration not found")
	}
	out := *reg
	return &out, nil
}

// CheckIn converts a registration into a waiting encounter. A code whose
// token already has a live encounter is rejected as a conflict without
// touching the queue, which makes an immediate duplicate retry harmless.
func (s *EncounterStore) CheckIn(ctx context.Context, code string, now time.Time) (*entities.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg := s.findRegistrationLocked(code); reg != nil {
		// Checked at creation time so two live encounters can never
		// share a token.
		if _, taken := s.encByToken[reg.Token]; taken {
			return nil, apperrors.NewConflictError("token already has a live encounter")
		}

		enc := &entities.Encounter{
			ID:          reg.PID,
			Token:       reg.Token,
			FirstName:   reg.FirstName,
			LastName:    reg.LastName,
			Phone:       reg.Phone,
			Status:      entities.StatusWaiting,
			Priority:    entities.PriorityLow,
			Lane:        entities.LaneFromComplexity(reg.Intake.Complexity),
			ArrivalTime: now.UTC(),
			SymptomText: reg.SymptomText,
			Intake:      reg.Intake,
			RedFlags:    append([]string(nil), reg.Intake.RedFlags...),
			UpdatedAt:   now.UTC(),
		}
		s.encounters[enc.ID] = enc
		s.encByToken[enc.Token] = enc.ID
		delete(s.registrations, reg.PID)
		delete(s.regByToken, reg.Token)
		return enc.Clone(), nil
	}

	if enc := s.findEncounterLocked(code); enc != nil {
		if enc.Active() {
			return nil, apperrors.NewConflictError("already checked in")
		}
		return nil, apperrors.NewNotFoundError("encounter is complete")
	}

	return nil, apperrors.NewNotFoundError("code not found")
}

// Get returns an encounter by ID or token.
func (s *EncounterStore) Get(ctx context.Context, idOrToken string) (*entities.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := s.findEncounterLocked(idOrToken)
	if enc == nil {
		return nil, apperrors.NewNotFoundError("encounter not found")
	}
	return enc.Clone(), nil
}

// UpdateVitals replaces the encounter's latest snapshot whole.
func (s *EncounterStore) UpdateVitals(ctx context.Context, idOrToken string, vitals entities.VitalsSnapshot) (*entities.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := s.findEncounterLocked(idOrToken)
	if enc == nil {
		return nil, apperrors.NewNotFoundError("encounter not found")
	}
	v := vitals
	enc.VitalsLatest = &v
	enc.UpdatedAt = time.Now().UTC()
	return enc.Clone(), nil
}

// SetTriage records the triage engine's output on the encounter.
func (s *EncounterStore) SetTriage(ctx context.Context, id string, result entities.TriageResult, now time.Time) (*entities.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc, ok := s.encounters[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("encounter not found")
	}
	enc.Priority = result.Priority
	enc.RedFlags = append([]string(nil), result.RedFlags...)
	enc.EmergencyKind = result.EmergencyKind
	enc.UpdatedAt = now.UTC()
	return enc.Clone(), nil
}

// Transition advances the encounter status along the forward-only state
// machine. Back-transitions and skips fail closed, leaving the status
// unchanged.
func (s *EncounterStore) Transition(ctx context.Context, idOrToken string, to entities.Status, now time.Time) (*entities.Encounter, error) {
	if !entities.ValidStatus(to) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", to))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	enc := s.findEncounterLocked(idOrToken)
	if enc == nil {
		return nil, apperrors.NewNotFoundError("encounter not found")
	}
	if !entities.CanTransition(enc.Status, to) {
		return nil, apperrors.NewInvalidTransitionError(
			fmt.Sprintf("cannot transition %s -> %s", enc.Status, to))
	}
	enc.Status = to
	enc.UpdatedAt = now.UTC()
	return enc.Clone(), nil
}

// ListActive returns copies of all non-done encounters in unspecified order.
func (s *EncounterStore) ListActive(ctx context.Context) ([]*entities.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.Encounter, 0, len(s.encounters))
	for _, enc := range s.encounters {
		if enc.Active() {
			out = append(out, enc.Clone())
		}
	}
	return out, nil
}

// ApplySchedule writes recomputed queue positions and wait estimates back.
func (s *EncounterStore) ApplySchedule(ctx context.Context, slots map[string]repositories.ScheduledSlot, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, slot := range slots {
		enc, ok := s.encounters[id]
		if !ok {
			continue
		}
		enc.PositionInLine = slot.PositionInLine
		enc.EstimatedWaitMin = slot.EstimatedWaitMin
		enc.UpdatedAt = now.UTC()
	}
	return nil
}

// ProviderCount returns the current provider capacity.
func (s *EncounterStore) ProviderCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providerCount, nil
}

// SetProviderCount sets provider capacity. Zero is legal and surfaces as a
// degraded (large) wait estimate; negatives are rejected.
func (s *EncounterStore) SetProviderCount(ctx context.Context, count int) (int, error) {
	if count < 0 {
		return 0, apperrors.NewValidationError("provider count must be >= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providerCount = count
	return s.providerCount, nil
}

// PurgeDone removes done encounters last touched before cutoff and returns
// them for archival. Their tokens become reusable afterwards.
func (s *EncounterStore) PurgeDone(ctx context.Context, cutoff time.Time) ([]*entities.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged []*entities.Encounter
	for id, enc := range s.encounters {
		if enc.Status == entities.StatusDone && enc.UpdatedAt.Before(cutoff) {
			purged = append(purged, enc)
			delete(s.encounters, id)
			delete(s.encByToken, enc.Token)
		}
	}
	return purged, nil
}

func (s *EncounterStore) findRegistrationLocked(code string) *entities.Registration {
	for _, c := range codeCandidates(code) {
		if reg, ok := s.registrations[c]; ok {
			return reg
		}
		if pid, ok := s.regByToken[c]; ok {
			return s.registrations[pid]
		}
	}
	return nil
}

func (s *EncounterStore) findEncounterLocked(code string) *entities.Encounter {
	for _, c := range codeCandidates(code) {
		if enc, ok := s.encounters[c]; ok {
			return enc
		}
		if id, ok := s.encByToken[c]; ok {
			return s.encounters[id]
		}
	}
	return nil
}

// codeCandidates normalizes a lookup code. QR payloads carry "PID|TOKEN",
// so both halves are tried before the raw value.
func codeCandidates(code string) []string {
	raw := strings.ToUpper(strings.TrimSpace(code))
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, "|") {
		return []string{raw}
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return append(out, raw)
}

// issueTokenLocked draws a short human-presentable code unique among live
// registrations and encounters. Tokens freed by purge may be drawn again.
func (s *EncounterStore) issueTokenLocked() string {
	for i := 0; i < tokenAttempts; i++ {
		candidate := fmt.Sprintf("UC-%04d", 1000+s.rng.Intn(9000))
		if _, ok := s.regByToken[candidate]; ok {
			continue
		}
		if _, ok := s.encByToken[candidate]; ok {
			continue
		}
		return candidate
	}
	return "UC-" + strings.ToUpper(uuid.New().String()[:4])
}

func newPID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
