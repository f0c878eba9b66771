package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medhaus/clinicflow/internal/adapters/camera"
	"github.com/medhaus/clinicflow/internal/adapters/database"
	"github.com/medhaus/clinicflow/internal/adapters/events"
	"github.com/medhaus/clinicflow/internal/adapters/memory"
	"github.com/medhaus/clinicflow/internal/adapters/providers/insurance"
	"github.com/medhaus/clinicflow/internal/api/handlers"
	"github.com/medhaus/clinicflow/internal/api/middleware"
	"github.com/medhaus/clinicflow/internal/api/routes"
	"github.com/medhaus/clinicflow/internal/application/services"
	domainproviders "github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/internal/domain/repositories"
	"github.com/medhaus/clinicflow/internal/infrastructure/clients/postgres"
	redisclient "github.com/medhaus/clinicflow/internal/infrastructure/clients/redis"
	"github.com/medhaus/clinicflow/internal/infrastructure/clients/sensorbridge"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
	"github.com/medhaus/clinicflow/internal/realtime"
	"github.com/medhaus/clinicflow/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	log := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// The authoritative store is in-memory and single-instance.
	store := memory.NewEncounterStore()

	// Optional archive of completed encounters
	var archive *postgres.Client
	var archiveRepo repositories.EncounterArchive
	if cfg.Archive.Enabled {
		archive, err = postgres.NewClient(&cfg.Archive)
		if err != nil {
			log.Warn().Err(err).Msg("archive database unavailable, continuing without archival")
		} else {
			defer archive.Close()
			adapter, err := database.NewEncounterArchiveAdapter(archive)
			if err != nil {
				log.Warn().Err(err).Msg("archive schema setup failed, continuing without archival")
			} else {
				archiveRepo = adapter
			}
		}
	}

	// Optional Redis event feed
	var redisConn *redisclient.Client
	var eventBus domainproviders.EventBus
	if cfg.Redis.Enabled {
		redisConn, err = redisclient.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without event feed")
		} else {
			defer redisConn.Close()
			eventBus = events.NewRedisEventBus(redisConn)
			log.Info().Msg("Redis event feed initialized")
		}
	}

	// Core services
	broadcaster := realtime.NewBroadcaster(metrics)
	defer broadcaster.Close()

	triageService := services.NewTriageService()
	intakeService := services.NewIntakeService(store)
	scheduler := services.NewQueueScheduler(services.LaneDurations{
		HighMin:   cfg.Queue.AvgVisitHighMin,
		MediumMin: cfg.Queue.AvgVisitMediumMin,
		LowMin:    cfg.Queue.AvgVisitLowMin,
	})
	auditLog := services.NewAuditLog()

	opts := services.QueueServiceOptions{
		Events:        eventBus,
		Archive:       archiveRepo,
		DoneRetention: cfg.Queue.DoneRetention,
	}
	if bridge := sensorbridge.NewClient(&cfg.SensorBridge); bridge != nil {
		opts.Notifier = bridge
	}
	queueService := services.NewQueueService(store, triageService, scheduler, broadcaster, auditLog, opts)

	// Background eviction of done encounters
	go queueService.RunJanitor(ctx, time.Minute)

	// Camera capture worker
	var cameraManager *camera.Manager
	if cfg.Camera.Enabled {
		var source domainproviders.FrameSource = camera.NewGstSource(
			cfg.Camera.Device,
			cfg.Camera.Width,
			cfg.Camera.Height,
			int(cfg.Camera.FPS),
		)
		scanHandler := func(value string) {
			scanCtx, scanCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scanCancel()
			if _, err := queueService.CheckIn(scanCtx, value); err != nil {
				log.Debug().Err(err).Msg("scan check-in rejected")
			}
		}
		cameraManager = camera.NewManager(cfg.Camera, source, scanHandler, metrics)
		go cameraManager.Run(ctx)
	} else {
		// Placeholder pipeline without a device, for dev machines.
		source := camera.NewSyntheticSource(cfg.Camera.Width, cfg.Camera.Height, int(cfg.Camera.FPS))
		cameraManager = camera.NewManager(cfg.Camera, source, nil, metrics)
		go cameraManager.Run(ctx)
	}

	insuranceProvider := insurance.FromConfig(&cfg.Insurance)
	sessions := middleware.NewStaffSessions(&cfg.Staff)

	// Handlers
	intakeHandler := handlers.NewIntakeHandler(intakeService, store)
	checkinHandler := handlers.NewCheckinHandler(queueService)
	vitalsHandler := handlers.NewVitalsHandler(queueService)
	triageHandler := handlers.NewTriageHandler(queueService)
	queueHandler := handlers.NewQueueHandler(queueService)
	staffHandler := handlers.NewStaffHandler(queueService, auditLog, sessions, &cfg.Staff)
	cameraHandler := handlers.NewCameraHandler(cameraManager, &cfg.Camera)
	insuranceHandler := handlers.NewInsuranceHandler(insuranceProvider, store)
	wsHandler := handlers.NewWSHandler(broadcaster)
	sseHandler := handlers.NewSSEHandler(broadcaster)
	checks := map[string]handlers.Pinger{}
	if archive != nil {
		checks["archive"] = archive
	}
	if redisConn != nil {
		checks["redis"] = redisConn
	}
	healthHandler := handlers.NewHealthHandler(checks)

	// Set up router
	router := routes.NewRouter(
		intakeHandler,
		checkinHandler,
		vitalsHandler,
		triageHandler,
		queueHandler,
		staffHandler,
		cameraHandler,
		insuranceHandler,
		wsHandler,
		sseHandler,
		healthHandler,
		sessions,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server. WriteTimeout stays zero: the MJPEG, SSE, and
	// WebSocket surfaces hold their connections open indefinitely.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}

	log.Info().Msg("server stopped")
}
