package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/engarde-app/signup-sync/internal/api/router"
	appconfig "github.com/engarde-app/signup-sync/internal/config"
	"github.com/engarde-app/signup-sync/internal/funnel"
	"github.com/engarde-app/signup-sync/internal/observability/metrics"
	"github.com/engarde-app/signup-sync/internal/sources/easyappointments"
	"github.com/engarde-app/signup-sync/internal/sources/eventbrite"
	"github.com/engarde-app/signup-sync/internal/sources/poshvip"
	"github.com/engarde-app/signup-sync/internal/sources/zoom"
	"github.com/engarde-app/signup-sync/internal/tracking"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting signup-sync API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Sync engine pool (pgx) and tracking pool (database/sql) share the
	// same database.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	trackingDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open tracking db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = trackingDB.Close() }()

	// Optional Redis status cache.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	// Adapter registry: one adapter per pullable source.
	registry := funnel.NewRegistry().
		Register(funnel.SourceEasyAppointments, easyappointments.NewAdapter(logger)).
		Register(funnel.SourceZoom, zoom.NewAdapter(logger)).
		Register(funnel.SourceEventbrite, eventbrite.NewAdapter(logger)).
		Register(funnel.SourcePoshVIP, poshvip.NewAdapter(logger))

	store := funnel.NewStore(pool)
	syncMetrics := metrics.NewSyncMetrics(nil)
	syncService, err := funnel.NewSyncService(funnel.SyncServiceConfig{
		Store:      store,
		Registry:   registry,
		Cache:      funnel.NewStatusCache(redisClient, cfg.StatusCacheTTL),
		Metrics:    syncMetrics,
		Logger:     logger,
		WindowDays: cfg.SyncWindowDays,
	})
	if err != nil {
		logger.Error("failed to build sync service", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	syncHandler := funnel.NewHandler(syncService, logger)
	trackingHandler := tracking.NewHandler(tracking.NewRepository(trackingDB), logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		SyncHandler:        syncHandler,
		TrackingHandler:    trackingHandler,
		MetricsHandler:     promhttp.Handler(),
		ServiceToken:       cfg.ServiceToken,
		ServiceJWTSecret:   cfg.ServiceJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Optional auto-sync scheduler.
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.AutoSyncEnabled {
		scheduler, err := funnel.NewScheduler(funnel.SchedulerConfig{
			Service:  syncService,
			Store:    store,
			Logger:   logger,
			Interval: cfg.AutoSyncInterval,
		})
		if err != nil {
			logger.Error("failed to build scheduler", "error", err)
			os.Exit(1)
		}
		go scheduler.Start(schedulerCtx)
		logger.Info("auto-sync scheduler enabled", "interval", cfg.AutoSyncInterval)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopScheduler()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
