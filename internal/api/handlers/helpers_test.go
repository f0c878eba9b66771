package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/medhaus/clinicflow/internal/adapters/camera"
	"github.com/medhaus/clinicflow/internal/adapters/memory"
	"github.com/medhaus/clinicflow/internal/adapters/providers/insurance"
	"github.com/medhaus/clinicflow/internal/api/handlers"
	"github.com/medhaus/clinicflow/internal/api/middleware"
	"github.com/medhaus/clinicflow/internal/api/routes"
	"github.com/medhaus/clinicflow/internal/application/services"
	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/internal/realtime"
	"github.com/medhaus/clinicflow/pkg/config"
)

const staffPassword = "letmein"

// idleSource never delivers a frame; the camera surfaces fall back to
// the placeholder.
type idleSource struct{}

func (idleSource) Open(ctx context.Context) error { return nil }
func (idleSource) Read(ctx context.Context) (providers.Frame, error) {
	<-ctx.Done()
	return providers.Frame{}, ctx.Err()
}
func (idleSource) Close() error { return nil }

type apiFixture struct {
	store       *memory.EncounterStore
	intake      *services.IntakeService
	queue       *services.QueueService
	broadcaster *realtime.Broadcaster
	sessions    *middleware.StaffSessions
	handler     http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewEncounterStore()
	broadcaster := realtime.NewBroadcaster(nil)
	t.Cleanup(broadcaster.Close)

	audit := services.NewAuditLog()
	queue := services.NewQueueService(
		store,
		services.NewTriageService(),
		services.NewQueueScheduler(services.DefaultLaneDurations()),
		broadcaster,
		audit,
		services.QueueServiceOptions{},
	)
	intake := services.NewIntakeService(store)

	staffCfg := config.StaffConfig{Password: staffPassword, SecretKey: "test-secret", SessionTTL: time.Hour}
	sessions := middleware.NewStaffSessions(&staffCfg)

	cameraCfg := config.CameraConfig{
		Width:           320,
		Height:          240,
		FreshnessWindow: 2 * time.Second,
		ScanCooldown:    3 * time.Second,
		StreamFPS:       25,
	}
	manager := camera.NewManager(cameraCfg, idleSource{}, nil, nil)

	router := routes.NewRouter(
		handlers.NewIntakeHandler(intake, store),
		handlers.NewCheckinHandler(queue),
		handlers.NewVitalsHandler(queue),
		handlers.NewTriageHandler(queue),
		handlers.NewQueueHandler(queue),
		handlers.NewStaffHandler(queue, audit, sessions, &staffCfg),
		handlers.NewCameraHandler(manager, &cameraCfg),
		handlers.NewInsuranceHandler(insurance.NewMockAdapter(0), store),
		handlers.NewWSHandler(broadcaster),
		handlers.NewSSEHandler(broadcaster),
		handlers.NewHealthHandler(nil),
		sessions,
		nil,
	)

	return &apiFixture{
		store:       store,
		intake:      intake,
		queue:       queue,
		broadcaster: broadcaster,
		sessions:    sessions,
		handler:     router.SetupRoutes(),
	}
}

func (fx *apiFixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func (fx *apiFixture) register(t *testing.T, first, symptoms string) *entities.Registration {
	t.Helper()
	reg, err := fx.intake.Register(context.Background(), first, "Tester", "", "", symptoms, "1 day", entities.ArrivalNow)
	require.NoError(t, err)
	return reg
}

func (fx *apiFixture) checkIn(t *testing.T, code string) {
	t.Helper()
	rec := fx.do(t, http.MethodPost, "/api/checkin", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (fx *apiFixture) staffCookie(t *testing.T) *http.Cookie {
	t.Helper()
	rec := fx.do(t, http.MethodPost, "/api/staff/login", map[string]string{"password": staffPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	res := rec.Result()
	defer res.Body.Close()
	for _, c := range res.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("login response did not set the session cookie")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
