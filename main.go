// Package main provides the main entry point for the drift bottle API
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/drift-bottle/app/handlers"
	"github.com/amirphl/drift-bottle/app/router"
	"github.com/amirphl/drift-bottle/app/scheduler"
	businessflow "github.com/amirphl/drift-bottle/business_flow"
	"github.com/amirphl/drift-bottle/config"
	"github.com/amirphl/drift-bottle/logging"
	"github.com/amirphl/drift-bottle/repository"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	logger    *zap.Logger
	mongo     *mongo.Client
	redis     *redis.Client
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting drift bottle api",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash))

	// Initialize application
	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.router.Start(router.Address(cfg.Server))
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case sig := <-sigChan:
		logger.Info("shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	app.shutdown()
	logger.Info("server stopped")
}

// initializeDatabase connects to MongoDB and verifies connectivity before serving
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Test the connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("mongodb connection established",
		zap.String("database", cfg.Name),
		zap.String("collection", cfg.Collection),
		zap.Uint64("max_pool_size", cfg.MaxPoolSize))

	return client, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startHealthMonitor starts a background goroutine that periodically runs check
// and logs failures. The returned cancel function stops the monitor.
func startHealthMonitor(parent context.Context, name string, check router.HealthCheck, interval time.Duration, logger *zap.Logger) func() {
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
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := check(ctx); err != nil {
					logger.Warn("healthcheck failed", zap.String("dependency", name), zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	client, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	healthChecks := map[string]router.HealthCheck{
		"mongodb": func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}
	if rc != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}
		stopFuncs = append(stopFuncs, startHealthMonitor(context.Background(), "redis", healthChecks["redis"], cfg.Cache.HealthInterval, logger))
	}
	stopFuncs = append(stopFuncs, startHealthMonitor(context.Background(), "mongodb", healthChecks["mongodb"], cfg.Database.HealthInterval, logger))

	// Initialize repositories
	store := repository.NewStore(
		client.Database(cfg.Database.Name),
		cfg.Database.OperationTimeout,
		repository.NewStoreBreaker(cfg.Breaker, logger),
		logger,
	)
	bottleRepo := repository.NewBottleRepository(store, cfg.Database.Collection)
	sequenceRepo := repository.NewSequenceRepository(store, cfg.Database.CountersCollection)

	if cfg.Database.EnsureIndexes {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		err := bottleRepo.EnsureIndexes(ctx)
		cancel()
		if err != nil {
			for _, fn := range stopFuncs {
				fn()
			}
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
	}

	// Initialize business flows
	bottleFlow := businessflow.NewBottleFlow(bottleRepo, sequenceRepo, rc, cfg.Cache, cfg.Claim, logger)

	if cfg.Cache.CountRefreshInterval > 0 {
		refresher := scheduler.NewCountRefresher(bottleFlow, logger, cfg.Cache.CountRefreshInterval, cfg.Database.OperationTimeout)
		stopFuncs = append(stopFuncs, refresher.Start(context.Background()))
	}

	// Initialize handlers
	bottleHandler := handlers.NewBottleHandler(bottleFlow, logger, cfg.Database.OperationTimeout*3)

	appRouter := router.NewFiberRouter(cfg, logger, bottleHandler, healthChecks)

	return &Application{
		router:    appRouter,
		config:    cfg,
		logger:    logger,
		mongo:     client,
		redis:     rc,
		stopFuncs: stopFuncs,
	}, nil
}

// shutdown stops background workers, drains in-flight requests and releases store handles
func (a *Application) shutdown() {
	for _, fn := range a.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.router.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("error during server shutdown", zap.Error(err))
	}

	if err := a.mongo.Disconnect(shutdownCtx); err != nil {
		a.logger.Error("error disconnecting mongodb", zap.Error(err))
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("error closing redis", zap.Error(err))
		}
	}
}
