// Package main provides the main entry point for the Simorgh decision and audit store
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kavehjm/Simorgh/app/handlers"
	"github.com/kavehjm/Simorgh/app/middleware"
	"github.com/kavehjm/Simorgh/app/router"
	"github.com/kavehjm/Simorgh/app/scheduler"
	"github.com/kavehjm/Simorgh/app/services"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/config"
	"github.com/kavehjm/Simorgh/repository"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
}

func main() {
	log.Println("Starting Simorgh application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.SetOutput(cfg.Logging.Writer())

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := app.router.Start(cfg.Server.Address()); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeApplication wires repositories, flows, handlers, and workers
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}

	redisClient, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache initialization failed: %w", err)
	}

	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("token service initialization failed: %w", err)
	}

	embeddingService := services.NewOpenAIEmbeddingService(
		cfg.Embedding.APIKey,
		cfg.Embedding.BaseURL,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.Timeout,
	)

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	eventRepo := repository.NewMarketingEventRepository(db)
	behavioralRepo := repository.NewBehavioralEventRepository(db)
	deliveryRepo := repository.NewDeliveryAttemptRepository(db)
	outcomeRepo := repository.NewOutcomeRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	decisionRepo := repository.NewDecisionRecordRepository(db)
	jobRepo := repository.NewEmbeddingJobRepository(db)

	// Business flows
	tenantFlow := businessflow.NewTenantFlow(tenantRepo, tokenService, redisClient, db)
	catalogFlow := businessflow.NewCatalogFlow(profileRepo, eventRepo, jobRepo, db)
	ledgerFlow := businessflow.NewLedgerFlow(behavioralRepo, deliveryRepo, outcomeRepo, profileRepo, eventRepo)
	snapshotFlow := businessflow.NewSnapshotFlow(snapshotRepo, profileRepo)
	decisionFlow := businessflow.NewDecisionFlow(decisionRepo, snapshotRepo, eventRepo, deliveryRepo, outcomeRepo)
	enrichmentFlow := businessflow.NewEnrichmentFlow(jobRepo, eventRepo, embeddingService, cfg.Worker.LockStaleness)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantFlow)
	catalogHandler := handlers.NewCatalogHandler(tenantFlow, catalogFlow)
	ledgerHandler := handlers.NewLedgerHandler(tenantFlow, ledgerFlow)
	snapshotHandler := handlers.NewSnapshotHandler(tenantFlow, snapshotFlow)
	decisionHandler := handlers.NewDecisionHandler(tenantFlow, decisionFlow)

	authMiddleware := middleware.NewTenantAuthMiddleware(tokenService)

	fiberRouter := router.NewFiberRouter(
		tenantHandler,
		catalogHandler,
		ledgerHandler,
		snapshotHandler,
		decisionHandler,
		authMiddleware,
	)

	app := &Application{
		router: fiberRouter,
		config: cfg,
	}

	// Background embedding worker
	if cfg.Worker.Enabled {
		worker := scheduler.NewEmbeddingWorker(enrichmentFlow, cfg.Worker.Interval)
		stopWorker := worker.Start(context.Background())
		app.stopFuncs = append(app.stopFuncs, stopWorker)
	}

	// Redis health monitor
	stopMonitor := startCacheHealthMonitor(context.Background(), redisClient, 30*time.Second)
	app.stopFuncs = append(app.stopFuncs, stopMonitor)

	return app, nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisAddr, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}
