package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/heirloom/internal"
	"github.com/DukeRupert/heirloom/internal/billing"
	"github.com/DukeRupert/heirloom/internal/blob"
	"github.com/DukeRupert/heirloom/internal/handler"
	"github.com/DukeRupert/heirloom/internal/metrics"
	"github.com/DukeRupert/heirloom/internal/middleware"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/DukeRupert/heirloom/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Run migrations over database/sql; goose needs it
	migrateDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := migrateDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(migrateDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	_ = migrateDB.Close()

	// The application itself talks to Postgres through pgx pools
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database pool failed: %w", err)
	}
	defer pool.Close()
	logger.Info("Database ready")

	st := store.NewPostgres(pool)

	// Initialize blob storage
	var blobs blob.Storage
	if cfg.StorageProvider == "r2" {
		blobs, err = blob.NewS3(blob.S3Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	} else {
		blobs, err = blob.NewLocal(blob.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("blob storage initialization failed: %w", err)
	}

	// Initialize billing (nil service means the webhook is a stub)
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			EssentialsPriceID: cfg.StripeEssentialsPriceID,
			FamilyPriceID:     cfg.StripeFamilyPriceID,
			LegacyPriceID:     cfg.StripeLegacyPriceID,
		})
		logger.Info("Stripe billing enabled")
	} else {
		logger.Warn("Stripe billing not configured, webhook will be a stub")
	}

	// Initialize services
	snapshotCache := service.NewSnapshotCache(st, logger)
	planService := service.NewPlanService(st, logger)
	accountService := service.NewAccountService(st, planService, logger)
	recipientService := service.NewRecipientService(st, planService, logger)
	contentService := service.NewContentService(st, blobs, snapshotCache, logger)
	vaultService := service.NewVaultService(st, logger)

	// Initialize middleware
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	// Initialize handlers
	planHandler := handler.NewPlanHandler(planService, logger)
	accountHandler := handler.NewAccountHandler(accountService, logger)
	recipientHandler := handler.NewRecipientHandler(recipientService, logger)
	vaultHandler := handler.NewVaultHandler(vaultService, logger)
	contentHandler := handler.NewContentHandler(contentService, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, accountService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Metrics (basic auth when configured)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	planHandler.RegisterRoutes(mux)
	accountHandler.RegisterRoutes(mux)
	recipientHandler.RegisterRoutes(mux)
	vaultHandler.RegisterRoutes(mux)
	contentHandler.RegisterRoutes(mux)
	webhookHandler.RegisterRoutes(mux)

	root := loggingMw.Handler(metrics.Middleware(mux))

	// ==========================================================================
	// Start delivery worker
	// ==========================================================================

	var deliveryWorker *worker.Worker
	if cfg.WorkerEnabled {
		deliveryWorker, err = worker.New(st, vaultService, worker.Config{
			PollInterval:    cfg.WorkerPollInterval,
			BatchSize:       cfg.WorkerBatchSize,
			SweepTimeout:    cfg.WorkerSweepTimeout,
			ShutdownTimeout: 30 * time.Second,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		deliveryWorker.Start(ctx)
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if deliveryWorker != nil {
		deliveryWorker.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
