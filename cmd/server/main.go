package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appsync "github.com/connec/shopify-connector/internal/application/sync"
	"github.com/connec/shopify-connector/internal/domain/sync"
	"github.com/connec/shopify-connector/internal/infrastructure/config"
	"github.com/connec/shopify-connector/internal/infrastructure/connec"
	"github.com/connec/shopify-connector/internal/infrastructure/logger"
	"github.com/connec/shopify-connector/internal/infrastructure/persistence"
	"github.com/connec/shopify-connector/internal/infrastructure/queue"
	"github.com/connec/shopify-connector/internal/infrastructure/scheduler"
	"github.com/connec/shopify-connector/internal/infrastructure/shopify"
	"github.com/connec/shopify-connector/internal/infrastructure/telemetry"
	"github.com/connec/shopify-connector/internal/interfaces/http/handler"
	"github.com/connec/shopify-connector/internal/interfaces/http/middleware"
)

// clientProvider builds per-organization platform clients from the two
// infrastructure providers.
type clientProvider struct {
	shopify *shopify.Provider
	connec  *connec.Provider
}

func (p *clientProvider) ExternalClient(org *sync.Organization) sync.ExternalClient {
	return p.shopify.ClientFor(org)
}

func (p *clientProvider) ConnecClient(org *sync.Organization) sync.ConnecClient {
	return p.connec.ClientFor(org)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Shopify connector",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled
	if err := telemetry.RegisterGormTracing(db.DB, dbTracing, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Connect Redis for the job queue
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	pingCancel()
	log.Info("Redis connected successfully")

	// Initialize repositories
	idMapRepo := persistence.NewGormIdMapRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)

	// Initialize platform client providers
	connecProvider, err := connec.NewProvider(&connec.Config{
		BaseURL:   cfg.Connec.BaseURL,
		APIKey:    cfg.Connec.APIKey,
		APISecret: cfg.Connec.APISecret,
		Timeout:   cfg.Connec.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to configure Connec client", zap.Error(err))
	}
	clients := &clientProvider{
		shopify: shopify.NewProvider(cfg.Shopify.APIVersion, cfg.Shopify.APIBaseURL, cfg.Shopify.Timeout),
		connec:  connecProvider,
	}

	// Initialize the synchronization engine
	registry := appsync.NewRegistry()
	pushService := appsync.NewPushService(idMapRepo, log)
	syncService := appsync.NewService(registry, clients, pushService, log)

	jobQueue := queue.NewRedisQueue(redisClient, cfg.Sync.QueueKey)
	resolver := appsync.NewResolver(clients, jobQueue, log)

	// Root context cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start queue workers
	workers := cfg.Sync.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		worker := queue.NewWorker(jobQueue, orgRepo, syncService, cfg.Sync.PopTimeout, log)
		go worker.Run(ctx)
	}
	log.Info("Queue workers started", zap.Int("workers", workers))

	// Start the scheduled pass sweep
	var passScheduler *scheduler.PassScheduler
	if cfg.Sync.PassEnabled {
		schedulerConfig := scheduler.DefaultPassSchedulerConfig()
		schedulerConfig.Interval = cfg.Sync.PassInterval
		passScheduler, err = scheduler.NewPassScheduler(schedulerConfig, orgRepo, syncService, log)
		if err != nil {
			log.Fatal("Failed to create pass scheduler", zap.Error(err))
		}
		if err := passScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start pass scheduler", zap.Error(err))
		}
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health endpoint probes the queue and the database
	healthHandler := handler.NewHealthHandler(
		handler.HealthCheck{Name: "database", Check: func(ctx context.Context) error { return db.Ping() }},
		handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	)
	webhookHandler := handler.NewWebhookHandler(orgRepo, resolver, cfg.Shopify.WebhookSecret, log)

	root := engine.Group("")
	healthHandler.RegisterRoutes(root)
	webhookHandler.RegisterRoutes(root)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if passScheduler != nil {
		if err := passScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Pass scheduler shutdown failed", zap.Error(err))
		}
	}
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
