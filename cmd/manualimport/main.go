// Command manualimport provides a hardened CLI for manually importing Thai League
// season statistics. This ensures validation, logging, and idempotency so operators
// can safely re-run imports, inspect status, and request forecasts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"thaileague/pipeline/internal/cache"
	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/config"
	"thaileague/pipeline/internal/match"
	"thaileague/pipeline/internal/pipeline"
	"thaileague/pipeline/internal/predict"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/score"
	"thaileague/pipeline/internal/sourcecache"
	"thaileague/pipeline/internal/transform"

	"github.com/rs/zerolog/log"
)

func main() {
	season := flag.String("season", "", "season label to import, e.g. 2024-25")
	threshold := flag.Int("threshold", match.DefaultThreshold, "minimum identity match score (0-100)")
	force := flag.Bool("force", false, "re-download the season file even if cached")
	scores := flag.Bool("scores", true, "compute development scores after import")
	cleanup := flag.Bool("cleanup", false, "delete the season's data and re-import from scratch")
	status := flag.Bool("status", false, "print import status instead of running an import")
	predictID := flag.Int("predict", 0, "player ID to forecast instead of running an import")
	years := flag.Int("years", 1, "seasons ahead to forecast with -predict")
	flag.Parse()

	if *predictID == 0 && !*status && *season == "" {
		fmt.Fprintln(os.Stderr, "manualimport: -season is required unless -status or -predict is given")
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     fmt.Sprintf("%d", cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// 1. Validate database connectivity
	log.Info().Msg("Validating service health...")
	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	var predictionCache *cache.Cache
	if c, err := cache.New(cache.Config{
		Host:     cfg.RedisHost,
		Port:     fmt.Sprintf("%d", cfg.RedisPort),
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

	switch {
	case *predictID != 0:
		runPredict(ctx, predictor, *predictID, *season, *years)
	case *status:
		runStatus(ctx, orch, *season)
	case *cleanup:
		runCleanup(ctx, orch, *season)
	default:
		runImport(ctx, orch, *season, *threshold, *force, *scores)
	}
}

func runImport(ctx context.Context, orch *pipeline.Orchestrator, season string, threshold int, force, scores bool) {
	log.Info().
		Str("season", season).
		Int("threshold", threshold).
		Bool("force", force).
		Msg("Starting manual import")

	ok, message, report := orch.Execute(ctx, season, threshold, force, scores)
	printJSON(report)
	if !ok {
		log.Fatal().Str("season", season).Msg(message)
	}
	log.Info().Str("season", season).Msg(message)
}

func runCleanup(ctx context.Context, orch *pipeline.Orchestrator, season string) {
	log.Info().Str("season", season).Msg("Starting cleanup and reprocess")

	ok, message, report := orch.CleanupAndReprocess(ctx, season)
	printJSON(report)
	if !ok {
		log.Fatal().Str("season", season).Msg(message)
	}
	log.Info().Str("season", season).Msg(message)
}

func runStatus(ctx context.Context, orch *pipeline.Orchestrator, season string) {
	var (
		info map[string]interface{}
		err  error
	)
	if season == "" {
		info, err = orch.ImportSummary(ctx)
	} else {
		info, err = orch.ImportStatus(ctx, season)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read import status")
	}
	printJSON(info)
}

func runPredict(ctx context.Context, predictor *predict.Service, playerID int, season string, years int) {
	if !predictor.Ready() {
		log.Fatal().Msg("Prediction model is not loaded")
	}
	if season == "" {
		fmt.Fprintln(os.Stderr, "manualimport: -predict requires -season for the baseline")
		os.Exit(2)
	}

	result, err := predictor.Predict(ctx, playerID, season, years)
	if err != nil {
		log.Fatal().Err(err).Int("player_id", playerID).Msg("Prediction failed")
	}
	printJSON(result)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
	fmt.Println(string(out))
}
