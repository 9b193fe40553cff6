package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreyes/amparo/internal/auth"
	"github.com/dreyes/amparo/internal/background"
	"github.com/dreyes/amparo/internal/config"
	"github.com/dreyes/amparo/internal/database"
	"github.com/dreyes/amparo/internal/handlers"
	middlewareCustom "github.com/dreyes/amparo/internal/middleware"
	"github.com/dreyes/amparo/internal/repositories"
	"github.com/dreyes/amparo/internal/routes"
	"github.com/dreyes/amparo/internal/services"
	"github.com/dreyes/amparo/pkg/password"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	lockoutRepo := repositories.NewLockoutRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// Optional lockout alert email
	var notifier services.LockoutNotifier
	if cfg.Alerts.Enabled {
		sesNotifier, err := services.NewSESAlertService(
			cfg.Alerts.AWSRegion,
			cfg.Alerts.FromAddress,
			cfg.Alerts.OperatorAddress,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize alert service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize services
	policy := password.DefaultPolicy()
	policy.MinLength = cfg.Security.MinPasswordLength

	activityService := services.NewActivityService(auditRepo, activityRepo, logger)
	guardService := services.NewGuardService(attemptRepo, lockoutRepo, activityService, notifier, cfg.Security, logger)
	passwordService := services.NewPasswordService(userRepo, activityService, policy, cfg.Security.BcryptCost, logger)
	resetService := services.NewResetService(resetRepo, userRepo, activityService, policy, cfg.Security, logger)
	reportService := services.NewReportService(attemptRepo, lockoutRepo, logger)

	// Initialize handlers
	securityHandler := handlers.NewSecurityHandler(guardService, reportService)
	activityHandler := handlers.NewActivityHandler(activityService)
	passwordHandler := handlers.NewPasswordHandler(passwordService, resetService)

	// Token verification for the protected surface
	verifier := auth.NewTokenVerifier(cfg.Auth.TokenSecret)

	// Background compaction
	compactor := background.NewCompactor(
		lockoutRepo,
		attemptRepo,
		resetRepo,
		logger,
		cfg.Security.CompactInterval,
		cfg.Security.AttemptRetention,
	)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders())
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, securityHandler, activityHandler, passwordHandler, verifier)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start compaction task
	compactCtx, compactCancel := context.WithCancel(context.Background())
	defer compactCancel()

	go compactor.Start(compactCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	compactCancel()
	compactor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
