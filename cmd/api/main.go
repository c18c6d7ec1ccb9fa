package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/internal/bootstrap"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/credential"
	"github.com/jwalitptl/dental-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/dental-api/internal/handler/auth"
	"github.com/jwalitptl/dental-api/internal/handler/calendar"
	"github.com/jwalitptl/dental-api/internal/handler/dashboard"
	"github.com/jwalitptl/dental-api/internal/handler/health"
	"github.com/jwalitptl/dental-api/internal/handler/patient"
	"github.com/jwalitptl/dental-api/internal/handler/treatment"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository/kv"
	"github.com/jwalitptl/dental-api/internal/router"
	appointmentService "github.com/jwalitptl/dental-api/internal/service/appointment"
	dashboardService "github.com/jwalitptl/dental-api/internal/service/dashboard"
	patientService "github.com/jwalitptl/dental-api/internal/service/patient"
	treatmentService "github.com/jwalitptl/dental-api/internal/service/treatment"
	"github.com/jwalitptl/dental-api/internal/session"
	"github.com/jwalitptl/dental-api/internal/store"
	"github.com/jwalitptl/dental-api/pkg/auth"
	"github.com/jwalitptl/dental-api/pkg/email"
	"github.com/jwalitptl/dental-api/pkg/logger"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/security"
)

const expiryEmailSubject = "Your dental dashboard session has expired"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv(bootstrap.ConfigFileEnv))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	rootLogger := bootstrap.Logger(cfg.Log)
	loc, err := cfg.Location()
	if err != nil {
		rootLogger.Fatal().Err(err).Msg("invalid clinic timezone")
	}
	model.SetZonelessLocation(loc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(cfg.Metrics.Namespace)
	appMetrics.MustRegister(registry)

	// Storage and messaging
	kvs, err := bootstrap.OpenStore(ctx, cfg.Store, appMetrics, rootLogger)
	if err != nil {
		rootLogger.Fatal().Err(err).Msg("failed to open key-value store")
	}
	defer kvs.Close()

	broker, err := bootstrap.OpenBroker(ctx, cfg.Messaging, rootLogger)
	if err != nil {
		rootLogger.Fatal().Err(err).Msg("failed to connect message broker")
	}
	defer broker.Close()

	adapter := bootstrap.NewAdapter(kvs, broker, cfg.Messaging.Channel, appMetrics, rootLogger)
	if cfg.Clinic.SeedDemoData {
		if err := store.SeedDemoData(ctx, adapter, time.Now()); err != nil {
			rootLogger.Fatal().Err(err).Msg("failed to seed demo data")
		}
	}

	// Session
	creds, err := credential.NewDemoStore(security.NewBcryptHasher(cfg.Security.BcryptCost))
	if err != nil {
		rootLogger.Fatal().Err(err).Msg("failed to build credential store")
	}

	notices := session.NewNoticeBoard(0)
	notifiers := session.MultiNotifier{notices, session.NewLogNotifier(logger.Component(rootLogger, "notice"))}
	if cfg.Email.Enabled {
		notifiers = append(notifiers, session.NewEmailNotifier(email.NewSMTPSender(cfg.Email), expiryEmailSubject))
	}

	sessions := session.NewManager(cfg.Session, creds, kvs,
		session.WithNotifier(notifiers),
		session.WithMetrics(appMetrics),
		session.WithLogger(logger.Component(rootLogger, "session")),
	)
	defer sessions.Close()

	restored, err := sessions.Restore(ctx)
	switch {
	case err != nil:
		rootLogger.Warn().Err(err).Msg("failed to restore session")
	case restored != nil:
		rootLogger.Info().Str("user_id", restored.ID).Msg("session restored")
	}

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		jwtSecret = randomSecret()
		rootLogger.Warn().Msg("jwt.secret not set, using a random secret; tokens will not survive a restart")
	}
	tokens := auth.NewJWTService(jwtSecret, cfg.JWT.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(tokens, sessions)

	// Repositories
	patientRepo := kv.NewPatientRepository(adapter)
	appointmentRepo := kv.NewAppointmentRepository(adapter)
	treatmentRepo := kv.NewTreatmentRepository(adapter)

	// Services
	policy := cfg.Policy()
	patientSvc := patientService.NewService(patientRepo, nil)
	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo, loc, nil)
	treatmentSvc := treatmentService.NewService(treatmentRepo, policy, loc, nil)
	dashboardSvc := dashboardService.NewService(appointmentRepo, patientRepo, treatmentRepo, policy, loc, cfg.Dashboard,
		logger.Component(rootLogger, "dashboard"))
	if err := dashboardSvc.Subscribe(ctx, broker, cfg.Messaging.Channel); err != nil {
		rootLogger.Fatal().Err(err).Msg("failed to subscribe to change events")
	}

	// Handlers
	r := router.NewRouter(router.RouterConfig{
		Mode:          cfg.Server.Mode,
		CORSConfig:    middleware.DefaultCORSConfig(cfg.Security.AllowedOrigins...),
		Timeout:       cfg.Server.WriteTimeout,
		MetricsPrefix: cfg.Metrics.Namespace + "_http",
		Registerer:    registry,
		Logger:        logger.Component(rootLogger, "http"),
	},
		health.NewHandler(kvs, registry),
		authHandler.NewHandler(sessions, creds, tokens, notices, authMiddleware,
			router.LoginLimiter(cfg.RateLimit.Enabled, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
		dashboard.NewHandler(dashboardSvc, authMiddleware),
		appointment.NewHandler(appointmentSvc, authMiddleware),
		patient.NewHandler(patientSvc, authMiddleware),
		treatment.NewHandler(treatmentSvc, authMiddleware),
		calendar.NewHandler(appointmentSvc, authMiddleware),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		rootLogger.Info().Str("addr", srv.Addr).Str("mode", gin.Mode()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rootLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	rootLogger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		rootLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	rootLogger.Info().Msg("server exited properly")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("failed to generate jwt secret")
	}
	return hex.EncodeToString(b)
}
