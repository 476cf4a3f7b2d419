package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/config"
	"github.com/clinicore/clinic-api/internal/handler"
	appointmentHandler "github.com/clinicore/clinic-api/internal/handler/appointment"
	authHandler "github.com/clinicore/clinic-api/internal/handler/auth"
	dashboardHandler "github.com/clinicore/clinic-api/internal/handler/dashboard"
	financeHandler "github.com/clinicore/clinic-api/internal/handler/finance"
	medicalrecordHandler "github.com/clinicore/clinic-api/internal/handler/medicalrecord"
	patientHandler "github.com/clinicore/clinic-api/internal/handler/patient"
	paymentHandler "github.com/clinicore/clinic-api/internal/handler/payment"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/repository/postgres"
	"github.com/clinicore/clinic-api/internal/router"
	appointmentService "github.com/clinicore/clinic-api/internal/service/appointment"
	auditService "github.com/clinicore/clinic-api/internal/service/audit"
	authService "github.com/clinicore/clinic-api/internal/service/auth"
	dashboardService "github.com/clinicore/clinic-api/internal/service/dashboard"
	financeService "github.com/clinicore/clinic-api/internal/service/finance"
	medicalService "github.com/clinicore/clinic-api/internal/service/medical"
	patientService "github.com/clinicore/clinic-api/internal/service/patient"
	paymentService "github.com/clinicore/clinic-api/internal/service/payment"
	jwtauth "github.com/clinicore/clinic-api/pkg/auth"
	"github.com/clinicore/clinic-api/pkg/logger"
	"github.com/clinicore/clinic-api/pkg/messaging/redis"
	"github.com/clinicore/clinic-api/pkg/metrics"
	"github.com/clinicore/clinic-api/pkg/security"
	"github.com/clinicore/clinic-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("clinic")

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	recordRepo := postgres.NewMedicalRecordRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	clinicianRepo := postgres.NewClinicianRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txRunner := postgres.NewTxRunner(db)

	// Services
	auditSvc := auditService.NewService(outboxRepo)
	appointmentSvc := appointmentService.NewService(appointmentRepo, recordRepo, txRunner, auditSvc, m, cfg.Clinic.Timezone)
	paymentSvc := paymentService.NewService(paymentRepo, appointmentRepo, auditSvc, cfg.Clinic.Timezone)
	dashboardSvc := dashboardService.NewService(appointmentRepo, cfg.Clinic.Timezone)
	financeSvc := financeService.NewService(paymentRepo, cfg.Clinic.Timezone)
	medicalSvc := medicalService.NewService(recordRepo, auditSvc)
	patientSvc := patientService.NewService(patientRepo, recordRepo, appointmentRepo)
	jwtSvc := jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authSvc := authService.NewService(clinicianRepo, jwtSvc, security.NewBcryptHasher(0))

	// Handlers
	h := handler.NewHandler()
	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		paymentHandler.NewHandler(paymentSvc),
		medicalrecordHandler.NewHandler(medicalSvc),
		dashboardHandler.NewHandler(dashboardSvc),
		financeHandler.NewHandler(financeSvc),
		patientHandler.NewHandler(patientSvc),
		h,
		m,
		router.Config{
			RateLimitEnabled:  cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			DashboardCacheTTL: 10 * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// The audit outbox is drained in-process; cmd/worker runs the same
	// loop standalone when the API should not carry it.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
		Channel:      cfg.Outbox.Channel,
	}, logger.NewLogger(nil), m)
	go outboxProcessor.Start(workerCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
