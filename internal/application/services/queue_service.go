package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

// SnapshotPublisher receives the full queue snapshot after every
// recomputation. Publication must be non-blocking per subscriber.
type SnapshotPublisher interface {
	Publish(snapshot *entities.QueueSnapshot)
}

// CheckinNotifier pushes a successful check-in to the bedside sensor
// bridge so devices can bind readings to the encounter token.
type CheckinNotifier interface {
	NotifyCheckIn(ctx context.Context, pid, token string) error
}

// CheckInResult is the kiosk-facing outcome of a check-in attempt.
type CheckInResult struct {
	Accepted         bool   `json:"accepted"`
	Token            string `json:"token"`
	EstimatedWaitMin int    `json:"estimated_wait_min"`
	DisplayName      string `json:"display_name,omitempty"`
	Message          string `json:"message"`
}

// StaffQueueView is the staff console payload: the clinical queue plus
// aggregates.
type StaffQueueView struct {
	ProviderCount int                       `json:"provider_count"`
	AvgWaitMin    int                       `json:"avg_wait_min"`
	LaneCounts    entities.LaneCounts       `json:"lane_counts"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	Items         []entities.StaffQueueItem `json:"items"`
}

// QueueService coordinates the check-in, vitals, triage, scheduling, and
// broadcast chain. Every mutation runs the same tail: recompute the full
// schedule from the current snapshot, write derived fields back, and
// publish the new snapshot to all subscribers. External collaborators
// (event feed, sensor bridge, archive) are called outside the store's
// critical section and never on the mutation's failure path.
type QueueService struct {
	repo      repositories.EncounterRepository
	triage    *TriageService
	scheduler *QueueScheduler
	publisher SnapshotPublisher
	events    providers.EventBus // optional
	notifier  CheckinNotifier    // optional
	archive   repositories.EncounterArchive
	audit     *AuditLog
	retention time.Duration
}

// QueueServiceOptions carries the optional collaborators.
type QueueServiceOptions struct {
	Events        providers.EventBus
	Notifier      CheckinNotifier
	Archive       repositories.EncounterArchive
	DoneRetention time.Duration
}

// NewQueueService creates the queue service.
func NewQueueService(
	repo repositories.EncounterRepository,
	triage *TriageService,
	scheduler *QueueScheduler,
	publisher SnapshotPublisher,
	audit *AuditLog,
	opts QueueServiceOptions,
) *QueueService {
	retention := opts.DoneRetention
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	return &QueueService{
		repo:      repo,
		triage:    triage,
		scheduler: scheduler,
		publisher: publisher,
		events:    opts.Events,
		notifier:  opts.Notifier,
		archive:   opts.Archive,
		audit:     audit,
		retention: retention,
	}
}

// CheckIn converts a scanned or typed code into a waiting encounter.
// Idempotence against an immediate duplicate retry is provided by the
// store: a token with a live encounter is rejected as already checked in.
func (s *QueueService) CheckIn(ctx context.Context, code string) (*CheckInResult, error) {
	now := time.Now().UTC()
	enc, err := s.repo.CheckIn(ctx, code, now)
	if err != nil {
		return nil, err
	}

	// Symptom text alone can carry a red flag, so triage runs before the
	// first recompute; vitals refine the result later.
	result := s.triage.Triage(nil, enc.SymptomText)
	if _, err := s.repo.SetTriage(ctx, enc.ID, result, now); err != nil {
		return nil, err
	}

	s.recomputeAndPublish(ctx)

	enc, getErr := s.repo.Get(ctx, enc.ID)
	if getErr != nil {
		return nil, getErr
	}

	s.audit.Record("checkin", map[string]any{"pid": enc.ID, "token": enc.Token, "wait": enc.EstimatedWaitMin})
	s.emitEvent(entities.QueueEventCheckin, enc.ID, enc.Token, map[string]any{"wait": enc.EstimatedWaitMin})
	if s.notifier != nil {
		go s.notifyBridge(enc.ID, enc.Token)
	}

	return &CheckInResult{
		Accepted:         true,
		Token:            enc.Token,
		EstimatedWaitMin: enc.EstimatedWaitMin,
		DisplayName:      enc.DisplayName(),
		Message:          "You are checked in.",
	}, nil
}

// SubmitVitals validates and attaches a snapshot, re-runs triage, and
// recomputes the queue. Returns the encounter with fresh derived fields.
func (s *QueueService) SubmitVitals(ctx context.Context, code string, vitals entities.VitalsSnapshot) (*entities.Encounter, error) {
	if err := validateVitals(vitals); err != nil {
		return nil, err
	}
	if vitals.RecordedAt.IsZero() {
		vitals.RecordedAt = time.Now().UTC()
	}

	enc, err := s.repo.UpdateVitals(ctx, code, vitals)
	if err != nil {
		return nil, err
	}

	result := s.triage.Triage(enc.VitalsLatest, enc.SymptomText)
	if _, err := s.repo.SetTriage(ctx, enc.ID, result, time.Now().UTC()); err != nil {
		return nil, err
	}

	s.recomputeAndPublish(ctx)

	s.audit.Record("vitals_submit", map[string]any{"pid": enc.ID, "token": enc.Token, "device_id": vitals.DeviceID})
	s.emitEvent(entities.QueueEventVitals, enc.ID, enc.Token, map[string]any{"device_id": vitals.DeviceID})

	return s.repo.Get(ctx, enc.ID)
}

// LatestVitals returns the most recent snapshot for a code, or nil when
// none has been recorded.
func (s *QueueService) LatestVitals(ctx context.Context, code string) (*entities.VitalsSnapshot, error) {
	enc, err := s.repo.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return enc.VitalsLatest, nil
}

// TriageByCode recomputes triage from the current vitals and symptoms.
// Fresh every call: vitals may have changed since the last run.
func (s *QueueService) TriageByCode(ctx context.Context, code string) (*entities.TriageResult, error) {
	enc, err := s.repo.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	result := s.triage.Triage(enc.VitalsLatest, enc.SymptomText)
	if _, err := s.repo.SetTriage(ctx, enc.ID, result, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.recomputeAndPublish(ctx)

	s.audit.Record("triage", map[string]any{"pid": enc.ID, "token": enc.Token, "priority": result.Priority})
	s.emitEvent(entities.QueueEventTriage, enc.ID, enc.Token, map[string]any{"priority": string(result.Priority)})

	return &result, nil
}

// SetStatus advances an encounter along the forward-only state machine.
func (s *QueueService) SetStatus(ctx context.Context, idOrToken string, status entities.Status) (*entities.Encounter, error) {
	enc, err := s.repo.Transition(ctx, idOrToken, status, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.recomputeAndPublish(ctx)

	s.audit.Record("status_change", map[string]any{"pid": enc.ID, "status": string(status)})
	s.emitEvent(entities.QueueEventStatusChange, enc.ID, enc.Token, map[string]any{"status": string(status)})
	return enc, nil
}

// ProviderCount returns the current provider capacity.
func (s *QueueService) ProviderCount(ctx context.Context) (int, error) {
	return s.repo.ProviderCount(ctx)
}

// SetProviderCount updates provider capacity and republishes the queue.
func (s *QueueService) SetProviderCount(ctx context.Context, count int) (int, error) {
	applied, err := s.repo.SetProviderCount(ctx, count)
	if err != nil {
		return 0, err
	}

	s.recomputeAndPublish(ctx)

	s.audit.Record("provider_count_change", map[string]any{"provider_count": applied})
	s.emitEvent(entities.QueueEventProviderCountChange, "", "", map[string]any{"provider_count": applied})
	return applied, nil
}

// PublicQueue returns the privacy-reduced queue for displays and kiosks.
func (s *QueueService) PublicQueue(ctx context.Context) ([]entities.PublicQueueItem, error) {
	snap := s.Snapshot(ctx)
	return snap.Items, nil
}

// Snapshot builds the full current queue snapshot.
func (s *QueueService) Snapshot(ctx context.Context) *entities.QueueSnapshot {
	now := time.Now().UTC()
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("queue: snapshot list failed")
		return &entities.QueueSnapshot{Type: "queue_update", UpdatedAt: now}
	}
	providers, err := s.repo.ProviderCount(ctx)
	if err != nil {
		providers = 1
	}

	scheduled := s.scheduler.Recompute(active, providers)
	items := make([]entities.PublicQueueItem, 0, len(scheduled))
	for _, sc := range scheduled {
		typical := sc.Encounter.Intake.VisitDurationMin
		if typical <= 0 {
			typical = 20
		}
		items = append(items, entities.PublicQueueItem{
			Token:            sc.Encounter.Token,
			Priority:         sc.Encounter.Priority,
			StatusLabel:      sc.Encounter.Status.Label(),
			EstimatedWaitMin: sc.EstimatedWaitMin,
			PositionInLine:   sc.PositionInLine,
			ProvidersActive:  providers,
			UpdatedAt:        now,
			ETAExplanation: fmt.Sprintf("You're #%d in line • %d provider(s) • Typical visit %d-%d min",
				sc.PositionInLine+1, providers, typical, typical+10),
		})
	}

	return &entities.QueueSnapshot{
		Type:          "queue_update",
		ProviderCount: providers,
		UpdatedAt:     now,
		Items:         items,
	}
}

// StaffQueue returns the clinical queue view with aggregates.
func (s *QueueService) StaffQueue(ctx context.Context) (*StaffQueueView, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	providers, err := s.repo.ProviderCount(ctx)
	if err != nil {
		return nil, err
	}

	scheduled := s.scheduler.Recompute(active, providers)
	items := make([]entities.StaffQueueItem, 0, len(scheduled))
	var counts entities.LaneCounts
	totalWait := 0
	for _, sc := range scheduled {
		e := sc.Encounter
		switch e.Lane {
		case entities.LaneFast:
			counts.Fast++
		case entities.LaneComplex:
			counts.Complex++
		default:
			counts.Standard++
		}
		totalWait += sc.EstimatedWaitMin
		items = append(items, entities.StaffQueueItem{
			ID:               e.ID,
			Token:            e.Token,
			DisplayName:      e.DisplayName(),
			Status:           e.Status,
			StatusLabel:      e.Status.Label(),
			Priority:         e.Priority,
			Lane:             e.Lane,
			SymptomText:      e.SymptomText,
			RedFlags:         e.RedFlags,
			EmergencyKind:    e.EmergencyKind,
			Vitals:           e.VitalsLatest,
			EstimatedWaitMin: sc.EstimatedWaitMin,
			PositionInLine:   sc.PositionInLine,
			ArrivalTime:      e.ArrivalTime,
			UpdatedAt:        e.UpdatedAt,
		})
	}

	avg := 0
	if len(items) > 0 {
		avg = totalWait / len(items)
	}

	return &StaffQueueView{
		ProviderCount: providers,
		AvgWaitMin:    avg,
		LaneCounts:    counts,
		UpdatedAt:     time.Now().UTC(),
		Items:         items,
	}, nil
}

// LobbyLoad is a coarse waiting-room load score for the display.
func (s *QueueService) LobbyLoad(ctx context.Context) entities.LobbyLoad {
	snap := s.Snapshot(ctx)
	level := "Low"
	switch {
	case len(snap.Items) >= 8:
		level = "High"
	case len(snap.Items) >= 4:
		level = "Medium"
	}
	return entities.LobbyLoad{Level: level, QueueSize: len(snap.Items), UpdatedAt: snap.UpdatedAt}
}

// RunJanitor periodically purges done encounters past retention, handing
// them to the archive when one is configured. Blocks until ctx ends.
func (s *QueueService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := observability.GetLogger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.retention)
			purged, err := s.repo.PurgeDone(ctx, cutoff)
			if err != nil {
				log.Error().Err(err).Msg("queue: purge failed")
				continue
			}
			for _, enc := range purged {
				if s.archive == nil {
					continue
				}
				if err := s.archive.Archive(ctx, enc); err != nil {
					log.Warn().Err(err).Str("encounter_id", enc.ID).Msg("queue: archive failed")
				}
			}
			if len(purged) > 0 {
				log.Info().Int("purged", len(purged)).Msg("queue: evicted done encounters")
			}
		}
	}
}

// recomputeAndPublish rebuilds derived fields from the current snapshot
// and fans the result out to every subscriber. Runs after the mutation's
// critical section has been released, so viewers only ever observe fully
// applied states.
func (s *QueueService) recomputeAndPublish(ctx context.Context) {
	now := time.Now().UTC()
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("queue: recompute list failed")
		return
	}
	providers, err := s.repo.ProviderCount(ctx)
	if err != nil {
		providers = 1
	}

	scheduled := s.scheduler.Recompute(active, providers)
	slots := make(map[string]repositories.ScheduledSlot, len(scheduled))
	for _, sc := range scheduled {
		slots[sc.Encounter.ID] = repositories.ScheduledSlot{
			PositionInLine:   sc.PositionInLine,
			EstimatedWaitMin: sc.EstimatedWaitMin,
		}
	}
	if err := s.repo.ApplySchedule(ctx, slots, now); err != nil {
		observability.GetLogger().Error().Err(err).Msg("queue: apply schedule failed")
		return
	}

	if s.publisher != nil {
		s.publisher.Publish(s.Snapshot(ctx))
	}
}

func (s *QueueService) emitEvent(kind entities.QueueEventType, encounterID, token string, payload map[string]any) {
	if s.events == nil {
		return
	}
	event := &entities.QueueEvent{
		ID:          uuid.NewString(),
		Type:        kind,
		EncounterID: encounterID,
		Token:       token,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, providers.EventChannelQueue, event); err != nil {
			observability.GetLogger().Warn().Err(err).Str("type", string(kind)).Msg("queue: event publish failed")
		}
	}()
}

func (s *QueueService) notifyBridge(pid, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.notifier.NotifyCheckIn(ctx, pid, token); err != nil {
		observability.GetLogger().Warn().Err(err).Str("token", token).Msg("queue: sensor bridge notify failed")
	}
}

func validateVitals(v entities.VitalsSnapshot) error {
	check := func(name string, val *float64, min, max float64) error {
		if val == nil {
			return nil
		}
		if *val < min || *val > max {
			return apperrors.NewValidationError(fmt.Sprintf("%s out of accepted range [%g, %g]", name, min, max))
		}
		return nil
	}
	// Bounds reject physically implausible readings; values that are
	// clinically alarming but plausible pass through so triage can see
	// them.
	if err := check("spo2", v.SpO2, 0, 100); err != nil {
		return err
	}
	if err := check("hr", v.HR, 1, 1200); err != nil {
		return err
	}
	if err := check("temp_c", v.TempC, 25, 45); err != nil {
		return err
	}
	if err := check("bp_sys", v.BPSys, 1, 400); err != nil {
		return err
	}
	if err := check("bp_dia", v.BPDia, 1, 400); err != nil {
		return err
	}
	return nil
}
