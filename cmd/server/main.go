// Package main is the entrypoint for the PetVision API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmoreau/petvision/internal/alert"
	"github.com/hmoreau/petvision/internal/api"
	"github.com/hmoreau/petvision/internal/api/handler"
	mw "github.com/hmoreau/petvision/internal/api/middleware"
	"github.com/hmoreau/petvision/internal/cache"
	"github.com/hmoreau/petvision/internal/config"
	"github.com/hmoreau/petvision/internal/inference"
	"github.com/hmoreau/petvision/internal/metrics"
	"github.com/hmoreau/petvision/internal/predictor"
	"github.com/hmoreau/petvision/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"predictor_backend", cfg.Predictor.Backend,
		"metrics_enabled", cfg.Metrics.Enabled,
		"alerting_enabled", cfg.AlertingEnabled(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create predictor backend
	pred, err := predictor.New(cfg.Predictor)
	if err != nil {
		return fmt.Errorf("create predictor: %w", err)
	}
	slog.Info("predictor initialized", "backend", pred.Name(), "ready", pred.Ready())

	// 6. Create store
	pgStore := store.NewPostgresStore(pool)

	// 7. Metrics sink and alert notifier
	var sink metrics.Sink = metrics.NopSink{}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sink = metrics.NewPromSink(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	var notifier alert.Notifier = alert.NopNotifier{}
	if cfg.AlertingEnabled() {
		notifier = alert.NewDiscordNotifier(cfg.Alerting.DiscordWebhookURL)
	}

	// 8. Wire the inference service
	svc := inference.NewService(pred, pgStore, redisCache, sink, notifier,
		cfg.Alerting.LatencyThreshold, inference.MonitoringStatus{
			Metrics:  cfg.Metrics.Enabled,
			Alerting: cfg.AlertingEnabled(),
		})

	// 9. Build router with dependencies
	auth := mw.NewAuth(cfg.Auth.TokenHash)
	rateLimit := mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute)

	router := api.NewRouter(api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler:     handler.NewHealthHandler(svc),
		PredictHandler:    handler.NewPredictHandler(svc),
		FeedbackHandler:   handler.NewFeedbackHandler(svc),
		StatisticsHandler: handler.NewStatisticsHandler(svc),
		RecentPredictions: handler.NewRecentPredictionsHandler(svc),
		MetricsHandler:    metricsHandler,
	})

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
