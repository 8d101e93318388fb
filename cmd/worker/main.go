package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"thaileague/pipeline/internal/cache"
	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/config"
	"thaileague/pipeline/internal/metrics"
	"thaileague/pipeline/internal/pipeline"
	"thaileague/pipeline/internal/predict"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/scheduler"
	"thaileague/pipeline/internal/score"
	"thaileague/pipeline/internal/sourcecache"
	"thaileague/pipeline/internal/transform"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.MustLoad()
	setupLogger(cfg)

	log.Info().Msg("Starting Thai League statistics worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	var predictionCache *cache.Cache
	if c, err := cache.New(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, "predictions"); err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
	} else {
		predictionCache = c
		defer predictionCache.Close()
	}

	source := sourcecache.New(
		client.NewClient(cfg.SourceBaseURL, cfg.SourceCommit, cfg.SourceTimeout, cfg.SourceRateLimit),
		cfg.CacheDir,
		cfg.CacheFreshness,
	)

	predictor, err := predict.NewService(db, predictionCache, cfg.ModelsDir, cfg.PredictionCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load prediction model")
	}

	positions := transform.NewPositionTable()
	orch := pipeline.NewOrchestrator(db, source, transform.NewNormalizer(positions), score.NewEngine(db, positions), predictor)

	if cfg.EnableMetrics {
		go startMetricsServer(ctx, cfg.MetricsPort, db)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	sched := scheduler.NewScheduler(cfg, db, source, orch)

	if cfg.EnableScheduler {
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.RunOnStart {
		log.Info().Msg("Running startup update...")
		if _, err := sched.ExecuteScheduledUpdate(ctx); err != nil {
			log.Error().Err(err).Msg("Startup update failed, continuing anyway...")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Pretty console logging in development
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer serves the Prometheus metrics and health endpoints
func startMetricsServer(ctx context.Context, port int, db *repository.Database) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
