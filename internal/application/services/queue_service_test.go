package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhaus/clinicflow/internal/adapters/memory"
	"github.com/medhaus/clinicflow/internal/application/services"
	"github.com/medhaus/clinicflow/internal/domain/entities"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

type fakePublisher struct {
	mu        sync.Mutex
	snapshots []*entities.QueueSnapshot
}

func (p *fakePublisher) Publish(snapshot *entities.QueueSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

func (p *fakePublisher) last() *entities.QueueSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return nil
	}
	return p.snapshots[len(p.snapshots)-1]
}

type fakeEventBus struct {
	mu     sync.Mutex
	events []*entities.QueueEvent
}

func (b *fakeEventBus) Publish(ctx context.Context, channel string, event *entities.QueueEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeEventBus) Close() error { return nil }

func (b *fakeEventBus) types() []entities.QueueEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]entities.QueueEventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeArchive struct {
	mu       sync.Mutex
	archived []*entities.Encounter
}

func (a *fakeArchive) Archive(ctx context.Context, enc *entities.Encounter) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, enc)
	return nil
}

func (a *fakeArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.archived)
}

type queueFixture struct {
	store     *memory.EncounterStore
	intake    *services.IntakeService
	queue     *services.QueueService
	publisher *fakePublisher
	bus       *fakeEventBus
	archive   *fakeArchive
	audit     *services.AuditLog
}

func newQueueFixture(t *testing.T, retention time.Duration) *queueFixture {
	t.Helper()
	store := memory.NewEncounterStore()
	publisher := &fakePublisher{}
	bus := &fakeEventBus{}
	archive := &fakeArchive{}
	audit := services.NewAuditLog()
	queue := services.NewQueueService(
		store,
		services.NewTriageService(),
		services.NewQueueScheduler(services.DefaultLaneDurations()),
		publisher,
		audit,
		services.QueueServiceOptions{
			Events:        bus,
			Archive:       archive,
			DoneRetention: retention,
		},
	)
	return &queueFixture{
		store:     store,
		intake:    services.NewIntakeService(store),
		queue:     queue,
		publisher: publisher,
		bus:       bus,
		archive:   archive,
		audit:     audit,
	}
}

func (fx *queueFixture) register(t *testing.T, first, symptoms string) *entities.Registration {
	t.Helper()
	reg, err := fx.intake.Register(context.Background(), first, "Tester", "", "", symptoms, "1 day", entities.ArrivalNow)
	require.NoError(t, err)
	return reg
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestQueueService_CheckIn(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()
	reg := fx.register(t, "Amina", "sore throat")

	result, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, reg.Token, result.Token)
	assert.Equal(t, "Amina T.", result.DisplayName)
	assert.Equal(t, 0, result.EstimatedWaitMin)

	// Every mutation republishes a complete snapshot.
	require.GreaterOrEqual(t, fx.publisher.count(), 1)
	snap := fx.publisher.last()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, reg.Token, snap.Items[0].Token)

	eventually(t, func() bool {
		for _, typ := range fx.bus.types() {
			if typ == entities.QueueEventCheckin {
				return true
			}
		}
		return false
	}, "check-in event never published")

	recent := fx.audit.Recent(10)
	require.NotEmpty(t, recent)
	assert.Equal(t, "checkin", recent[0].Type)
}

func TestQueueService_DuplicateCheckInConflicts(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()
	reg := fx.register(t, "Amina", "sore throat")

	_, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)
	published := fx.publisher.count()

	_, err = fx.queue.CheckIn(ctx, reg.Token)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	// The rejected retry must not touch the queue.
	assert.Equal(t, published, fx.publisher.count())
	items, err := fx.queue.PublicQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestQueueService_CheckInUnknownCode(t *testing.T) {
	fx := newQueueFixture(t, 0)
	_, err := fx.queue.CheckIn(context.Background(), "UC-0000")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestQueueService_CheckInTriagesSymptomText(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()

	routine := fx.register(t, "Calm", "mild headache")
	urgent := fx.register(t, "Amira", "crushing chest pain")
	_, err := fx.queue.CheckIn(ctx, routine.Token)
	require.NoError(t, err)
	_, err = fx.queue.CheckIn(ctx, urgent.Token)
	require.NoError(t, err)

	// A red flag in the intake text escalates at check-in, before any
	// vitals exist.
	enc, err := fx.store.Get(ctx, urgent.PID)
	require.NoError(t, err)
	assert.Equal(t, entities.PriorityHigh, enc.Priority)
	assert.Contains(t, enc.RedFlags, "chest pain")
	assert.Equal(t, 0, enc.PositionInLine)

	snap := fx.publisher.last()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, urgent.Token, snap.Items[0].Token)
	assert.Equal(t, routine.Token, snap.Items[1].Token)

	enc, err = fx.store.Get(ctx, routine.PID)
	require.NoError(t, err)
	assert.Equal(t, entities.PriorityLow, enc.Priority)
	assert.Empty(t, enc.RedFlags)
}

func TestQueueService_VitalsEscalationReordersQueue(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()

	first := fx.register(t, "First", "mild headache")
	second := fx.register(t, "Second", "mild headache")
	_, err := fx.queue.CheckIn(ctx, first.Token)
	require.NoError(t, err)
	_, err = fx.queue.CheckIn(ctx, second.Token)
	require.NoError(t, err)

	// Critically low oxygen on the later arrival jumps it to the front.
	enc, err := fx.queue.SubmitVitals(ctx, second.Token, entities.VitalsSnapshot{SpO2: f(88), DeviceID: "station-1"})
	require.NoError(t, err)
	assert.Equal(t, entities.PriorityHigh, enc.Priority)
	assert.Equal(t, 0, enc.PositionInLine)

	snap := fx.publisher.last()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, second.Token, snap.Items[0].Token)
	assert.Equal(t, first.Token, snap.Items[1].Token)
}

func TestQueueService_SubmitVitalsValidation(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()
	reg := fx.register(t, "Amina", "sore throat")
	_, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)

	_, err = fx.queue.SubmitVitals(ctx, reg.Token, entities.VitalsSnapshot{SpO2: f(140)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = fx.queue.SubmitVitals(ctx, reg.Token, entities.VitalsSnapshot{TempC: f(80)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	// Alarming but plausible readings must pass so triage can see them.
	_, err = fx.queue.SubmitVitals(ctx, reg.Token, entities.VitalsSnapshot{HR: f(180)})
	assert.NoError(t, err)
}

func TestQueueService_SetStatusForwardOnly(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()
	reg := fx.register(t, "Amina", "sore throat")
	_, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)

	enc, err := fx.queue.SetStatus(ctx, reg.Token, entities.StatusCalled)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCalled, enc.Status)

	// Skipping a state fails closed.
	_, err = fx.queue.SetStatus(ctx, reg.Token, entities.StatusDone)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))

	// So does going backwards.
	_, err = fx.queue.SetStatus(ctx, reg.Token, entities.StatusWaiting)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidTransition))

	_, err = fx.queue.SetStatus(ctx, reg.Token, entities.StatusInRoom)
	require.NoError(t, err)
	done, err := fx.queue.SetStatus(ctx, reg.Token, entities.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDone, done.Status)

	// Done encounters leave queue views immediately.
	items, err := fx.queue.PublicQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQueueService_ProviderCountRepublishes(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()
	reg := fx.register(t, "Amina", "sore throat")
	_, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)

	applied, err := fx.queue.SetProviderCount(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	snap := fx.publisher.last()
	assert.Equal(t, 3, snap.ProviderCount)

	_, err = fx.queue.SetProviderCount(ctx, -1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestQueueService_PublicQueueIsPrivacyReduced(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()
	reg := fx.register(t, "Amina", "chest pain")
	_, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)

	items, err := fx.queue.PublicQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, reg.Token, item.Token)
	assert.NotEmpty(t, item.StatusLabel)
	assert.Contains(t, item.ETAExplanation, "#1 in line")
	// Names, symptoms, and vitals stay on the staff surface only.
	assert.NotContains(t, item.ETAExplanation, "Amina")
}

func TestQueueService_StaffQueueAggregates(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()

	simple := fx.register(t, "Simple", "mild headache")
	complicated := fx.register(t, "Hard", "chest pain")
	_, err := fx.queue.CheckIn(ctx, simple.Token)
	require.NoError(t, err)
	_, err = fx.queue.CheckIn(ctx, complicated.Token)
	require.NoError(t, err)

	view, err := fx.queue.StaffQueue(ctx)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 1, view.ProviderCount)
	assert.Equal(t, 1, view.LaneCounts.Fast)
	assert.Equal(t, 1, view.LaneCounts.Complex)

	// Staff rows carry clinical context the public rows omit.
	assert.Equal(t, "Hard T.", view.Items[0].DisplayName)
	assert.Equal(t, "chest pain", view.Items[0].SymptomText)
	assert.Contains(t, view.Items[0].RedFlags, "chest pain")
}

func TestQueueService_LobbyLoadLevels(t *testing.T) {
	fx := newQueueFixture(t, 0)
	ctx := context.Background()

	load := fx.queue.LobbyLoad(ctx)
	assert.Equal(t, "Low", load.Level)
	assert.Equal(t, 0, load.QueueSize)

	for i := 0; i < 4; i++ {
		reg := fx.register(t, "Visitor", "mild headache")
		_, err := fx.queue.CheckIn(ctx, reg.Token)
		require.NoError(t, err)
	}
	assert.Equal(t, "Medium", fx.queue.LobbyLoad(ctx).Level)

	for i := 0; i < 4; i++ {
		reg := fx.register(t, "Visitor", "mild headache")
		_, err := fx.queue.CheckIn(ctx, reg.Token)
		require.NoError(t, err)
	}
	assert.Equal(t, "High", fx.queue.LobbyLoad(ctx).Level)
}

func TestQueueService_JanitorArchivesPurgedEncounters(t *testing.T) {
	fx := newQueueFixture(t, time.Nanosecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := fx.register(t, "Amina", "sore throat")
	_, err := fx.queue.CheckIn(ctx, reg.Token)
	require.NoError(t, err)
	for _, status := range []entities.Status{entities.StatusCalled, entities.StatusInRoom, entities.StatusDone} {
		_, err = fx.queue.SetStatus(ctx, reg.Token, status)
		require.NoError(t, err)
	}

	go fx.queue.RunJanitor(ctx, 10*time.Millisecond)

	eventually(t, func() bool { return fx.archive.count() == 1 }, "purged encounter never archived")

	// Purge frees the token for reuse.
	reg2, err := fx.intake.Register(ctx, "Amina", "Tester", "", "", "sore throat again", "1 day", entities.ArrivalNow)
	require.NoError(t, err)
	_, err = fx.queue.CheckIn(ctx, reg2.Token)
	require.NoError(t, err)
}

func TestAuditLog_RecentNewestFirstWithEviction(t *testing.T) {
	audit := services.NewAuditLog()
	for i := 0; i < 250; i++ {
		audit.Record("checkin", map[string]any{"n": i})
	}

	recent := audit.Recent(10)
	require.Len(t, recent, 10)
	assert.Equal(t, 249, recent[0].Details["n"])
	assert.Equal(t, 240, recent[9].Details["n"])

	all := audit.Recent(1000)
	assert.Len(t, all, 200)
}
