package routes

import (
	"net/http"

	"github.com/medhaus/clinicflow/internal/api/handlers"
	"github.com/medhaus/clinicflow/internal/api/middleware"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	intakeHandler  *handlers.IntakeHandler
	checkinHandler *handlers.CheckinHandler
	vitalsHandler  *handlers.VitalsHandler
	triageHandler  *handlers.TriageHandler
	queueHandler   *handlers.QueueHandler
	staffHandler   *handlers.StaffHandler

	cameraHandler    *handlers.CameraHandler
	insuranceHandler *handlers.InsuranceHandler
	wsHandler        *handlers.WSHandler
	sseHandler       *handlers.SSEHandler
	healthHandler    *handlers.HealthHandler

	sessions *middleware.StaffSessions
	metrics  *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	intakeHandler *handlers.IntakeHandler,
	checkinHandler *handlers.CheckinHandler,
	vitalsHandler *handlers.VitalsHandler,
	triageHandler *handlers.TriageHandler,
	queueHandler *handlers.QueueHandler,
	staffHandler *handlers.StaffHandler,
	cameraHandler *handlers.CameraHandler,
	insuranceHandler *handlers.InsuranceHandler,
	wsHandler *handlers.WSHandler,
	sseHandler *handlers.SSEHandler,
	healthHandler *handlers.HealthHandler,
	sessions *middleware.StaffSessions,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		intakeHandler:    intakeHandler,
		checkinHandler:   checkinHandler,
		vitalsHandler:    vitalsHandler,
		triageHandler:    triageHandler,
		queueHandler:     queueHandler,
		staffHandler:     staffHandler,
		cameraHandler:    cameraHandler,
		insuranceHandler: insuranceHandler,
		wsHandler:        wsHandler,
		sseHandler:       sseHandler,
		healthHandler:    healthHandler,
		sessions:         sessions,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health endpoints
	r.mux.HandleFunc("GET /healthz", r.healthHandler.Healthz)
	r.mux.HandleFunc("GET /readyz", r.healthHandler.Readyz)

	// Intake and QR endpoints
	r.mux.HandleFunc("POST /api/intake", r.intakeHandler.Register)
	r.mux.HandleFunc("GET /api/qr/{pid}", r.intakeHandler.GetQRPayload)
	r.mux.HandleFunc("GET /qr-img/{pid}", r.intakeHandler.GetQRImage)

	// Check-in endpoint (kiosk and scan)
	r.mux.HandleFunc("POST /api/checkin", r.checkinHandler.CheckIn)

	// Vitals station endpoints
	r.mux.HandleFunc("POST /api/vitals", r.vitalsHandler.Submit)
	r.mux.HandleFunc("GET /api/vitals/by-token", r.vitalsHandler.GetByToken)

	// Triage endpoint
	r.mux.HandleFunc("GET /api/triage", r.triageHandler.Triage)

	// Public queue endpoints
	r.mux.HandleFunc("GET /api/queue", r.queueHandler.GetQueue)
	r.mux.HandleFunc("GET /api/lobby-load", r.queueHandler.GetLobbyLoad)

	// Realtime queue surfaces
	r.mux.HandleFunc("GET /ws/queue", r.wsHandler.StreamQueue)
	r.mux.HandleFunc("GET /api/stream/queue", r.sseHandler.StreamQueue)

	// Camera endpoints
	if r.cameraHandler != nil {
		r.mux.HandleFunc("GET /camera/stream", r.cameraHandler.Stream)
		r.mux.HandleFunc("GET /api/camera/last-scan", r.cameraHandler.LastScan)
		r.mux.HandleFunc("GET /api/camera/status", r.cameraHandler.Status)
	}

	// Staff session endpoints live outside the auth gate
	r.mux.HandleFunc("POST /api/staff/login", r.staffHandler.Login)
	r.mux.HandleFunc("POST /api/staff/logout", r.staffHandler.Logout)

	// Staff console endpoints, behind the session check
	staff := http.NewServeMux()
	staff.HandleFunc("GET /api/staff/queue", r.staffHandler.GetQueue)
	staff.HandleFunc("POST /api/staff/status/{id}", r.staffHandler.SetStatus)
	staff.HandleFunc("GET /api/staff/providers", r.staffHandler.GetProviders)
	staff.HandleFunc("POST /api/staff/providers", r.staffHandler.SetProviders)
	staff.HandleFunc("GET /api/staff/audit", r.staffHandler.GetAudit)
	if r.insuranceHandler != nil {
		staff.HandleFunc("POST /api/insurance/eligibility", r.insuranceHandler.CheckEligibility)
	}
	guarded := r.sessions.Middleware(staff)
	r.mux.Handle("/api/staff/queue", guarded)
	r.mux.Handle("/api/staff/status/", guarded)
	r.mux.Handle("/api/staff/providers", guarded)
	r.mux.Handle("/api/staff/audit", guarded)
	r.mux.Handle("/api/insurance/eligibility", guarded)

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so error responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	if r.metrics != nil {
		handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	}
	handler = middleware.CORSMiddleware(handler)

	return handler
}
