package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailpilot/mailpilot/internal/ai"
	"github.com/mailpilot/mailpilot/internal/auth"
	"github.com/mailpilot/mailpilot/internal/config"
	"github.com/mailpilot/mailpilot/internal/database"
	"github.com/mailpilot/mailpilot/internal/email"
	"github.com/mailpilot/mailpilot/internal/handler"
	"github.com/mailpilot/mailpilot/internal/logger"
	"github.com/mailpilot/mailpilot/internal/middleware"
	"github.com/mailpilot/mailpilot/internal/repository"
	"github.com/mailpilot/mailpilot/internal/router"
	"github.com/mailpilot/mailpilot/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", handler.Version).Msg("starting Mail Pilot server")

	if cfg.Server.AutoMigrate {
		if err := database.MigrateUp(cfg.Database, cfg.Server.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Str("path", cfg.Server.MigrationsPath).Msg("migrations applied")
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Connect to Redis
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}

	var sealer *auth.Sealer
	if cfg.Security.EncryptionKey != "" {
		sealer, err = auth.NewSealer(cfg.Security.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid encryption key")
		}
	} else {
		log.Warn().Msg("no encryption key configured, SMTP passwords cannot be saved")
	}

	ctx := context.Background()

	transport, err := email.NewTransport(ctx, cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mail transport")
	}
	log.Info().Str("provider", cfg.Email.Provider).Msg("mail transport initialized")

	generator, err := newGenerator(cfg.AI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize message generator")
	}

	// Initialize repositories
	recipientRepo := repository.NewRecipientRepository(db)
	historyRepo := repository.NewDeliveryLogRepository(db)
	settingsRepo := repository.NewSMTPSettingsRepository(db)

	// Initialize services
	smtpTester := email.NewSMTPTransport(cfg.Email.SkipTLSVerify)
	settingsSvc := service.NewSettingsService(settingsRepo, sealer, smtpTester, cfg.Email.AppName, log)

	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		History:     historyRepo,
		Transport:   transport,
		Log:         log,
		RetryFailed: cfg.Send.RetryFailedWithoutForce,
	})

	sendDeps := service.SendServiceDeps{
		Recipients:   recipientRepo,
		Orchestrator: orchestrator,
		Locker:       rdb,
		Progress:     service.NewRedisProgressStore(rdb, cfg.Send.ProgressTTL),
		LockTTL:      cfg.Send.LockTTL,
		Log:          log,
	}
	if email.UsesOwnerSettings(cfg.Email.Provider) {
		sendDeps.Settings = settingsSvc
	}
	sendSvc := service.NewSendService(sendDeps)

	h := handler.New(log, handler.Services{
		Recipients: service.NewRecipientService(recipientRepo, cfg.Import, log),
		Send:       sendSvc,
		History:    service.NewHistoryService(historyRepo),
		Settings:   settingsSvc,
		Messages:   service.NewMessageService(generator, recipientRepo, log),
	}, map[string]handler.HealthChecker{
		"postgres": db,
		"redis":    rdb,
	}, cfg.Import.MaxUploadMB<<20)

	// Initialize middleware
	mw := middleware.New(rdb, log, cfg)

	// Set up router
	r := router.New(h, mw, tokenSvc, cfg.Server.AllowedOrigins)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newGenerator(cfg config.AIConfig) (ai.Generator, error) {
	switch cfg.Provider {
	case "", "none":
		return ai.Disabled{}, nil
	case "openai":
		gen, err := ai.NewOpenAI(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
