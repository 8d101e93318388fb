package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"thaileague/pipeline/internal/cache"
	"thaileague/pipeline/internal/metrics"
	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/repository"

	"github.com/rs/zerolog/log"
)

// predictionTTL bounds how long a served forecast is reused before the
// model runs again, unless the caller configures its own window
const predictionTTL = time.Hour

// Service serves PDI forecasts from the loaded artifact. Results are cached
// per (player, season, horizon) in Redis with an in-process fallback map, so
// a Redis outage degrades to recomputation rather than failure.
type Service struct {
	db    *repository.Database
	cache *cache.Cache
	model *Model
	ttl   time.Duration

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	result  *models.PredictionResult
	expires time.Time
}

// NewService loads the best available artifact from modelsDir. A directory
// without any artifact yields a service that is not ready and answers every
// Predict with (nil, nil); a directory with a broken artifact is an error.
// A non-positive cacheTTL falls back to the default reuse window.
func NewService(db *repository.Database, c *cache.Cache, modelsDir string, cacheTTL time.Duration) (*Service, error) {
	if cacheTTL <= 0 {
		cacheTTL = predictionTTL
	}

	model, err := LoadModel(modelsDir)
	if err != nil && !errors.Is(err, ErrModelUnavailable) {
		return nil, err
	}
	if model == nil {
		log.Warn().Str("dir", modelsDir).Msg("No prediction artifact available, forecasts disabled")
	}

	return &Service{
		db:    db,
		cache: c,
		model: model,
		ttl:   cacheTTL,
		local: make(map[string]localEntry),
	}, nil
}

// Ready reports whether an artifact is loaded
func (s *Service) Ready() bool {
	return s.model != nil
}

// Model exposes the loaded artifact, nil when the service is not ready
func (s *Service) Model() *Model {
	return s.model
}

// Predict forecasts a player's PDI yearsAhead seasons past currentSeason,
// using the player's most recent persisted stats row as the model input.
// Returns (nil, nil) when no artifact is loaded.
func (s *Service) Predict(ctx context.Context, playerID int, currentSeason string, yearsAhead int) (*models.PredictionResult, error) {
	if s.model == nil {
		return nil, nil
	}
	if yearsAhead < 1 {
		return nil, fmt.Errorf("years ahead must be at least 1, got %d", yearsAhead)
	}

	targetSeason, err := models.FutureSeason(currentSeason, yearsAhead)
	if err != nil {
		return nil, fmt.Errorf("failed to derive target season: %w", err)
	}

	key := predictionKey(playerID, currentSeason, yearsAhead)
	if cached := s.lookup(ctx, key); cached != nil {
		return cached, nil
	}

	stats, err := s.db.Stats.LatestByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for player %d: %w", playerID, err)
	}

	result := s.forecast(stats, currentSeason, targetSeason, yearsAhead)

	// The audit row is best effort, a serving path should not fail on it
	if err := s.db.Predictions.Create(ctx, result.ToPrediction()); err != nil {
		log.Warn().Err(err).Int("player_id", playerID).Msg("Failed to persist prediction audit row")
	}

	s.store(ctx, key, result)
	metrics.RecordPrediction(s.model.Name, "computed")

	log.Info().
		Int("player_id", playerID).
		Str("season", currentSeason).
		Str("target_season", targetSeason).
		Float64("estimate", result.Estimate).
		Str("model", s.model.Name).
		Msg("Served PDI forecast")

	return result, nil
}

// PredictBatch forecasts a list of players. Players that fail individually
// are logged and skipped so one missing stats row does not sink the batch.
func (s *Service) PredictBatch(ctx context.Context, playerIDs []int, currentSeason string, yearsAhead int) (map[int]*models.PredictionResult, error) {
	if s.model == nil {
		return nil, nil
	}

	results := make(map[int]*models.PredictionResult, len(playerIDs))
	for _, id := range playerIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := s.Predict(ctx, id, currentSeason, yearsAhead)
		if err != nil {
			log.Warn().Err(err).Int("player_id", id).Msg("Skipping player in forecast batch")
			continue
		}
		results[id] = result
	}

	return results, nil
}

// Invalidate drops every cached forecast, both Redis and local. Called when
// a season is reprocessed and served numbers may no longer match the data.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache != nil {
		if _, err := s.cache.DeletePattern(ctx, "pdi:pred:*"); err != nil {
			log.Warn().Err(err).Msg("Failed to clear prediction cache")
		}
	}

	s.mu.Lock()
	s.local = make(map[string]localEntry)
	s.mu.Unlock()
}

// forecast runs the linear model over one stats row and clips everything
// into the PDI domain. The interval is the point estimate widened by the
// artifact's measured MAE.
func (s *Service) forecast(stats *models.ProfessionalStats, season, targetSeason string, yearsAhead int) *models.PredictionResult {
	vector := s.model.Vectorize(FeatureVector(stats))
	estimate := round2(models.ClampPDI(s.model.Score(vector)))

	return &models.PredictionResult{
		PlayerID:      stats.PlayerID,
		Season:        season,
		TargetSeason:  targetSeason,
		YearsAhead:    yearsAhead,
		Estimate:      estimate,
		IntervalLower: round2(models.ClampPDI(estimate - s.model.MAE)),
		IntervalUpper: round2(models.ClampPDI(estimate + s.model.MAE)),
		ModelName:     s.model.Name,
		ModelMAE:      s.model.MAE,
		GeneratedAt:   time.Now().UTC(),
	}
}

// lookup checks Redis first, then the in-process fallback
func (s *Service) lookup(ctx context.Context, key string) *models.PredictionResult {
	if s.cache != nil {
		var result models.PredictionResult
		hit, err := s.cache.Get(ctx, key, &result)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Prediction cache read failed")
		} else if hit {
			metrics.RecordPrediction(result.ModelName, "cache")
			return &result
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.local[key]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expires) {
		delete(s.local, key)
		return nil
	}

	metrics.RecordPrediction(entry.result.ModelName, "local")
	return entry.result
}

// store writes through to Redis and the local fallback
func (s *Service) store(ctx context.Context, key string, result *models.PredictionResult) {
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Prediction cache write failed")
		}
	}

	s.mu.Lock()
	s.local[key] = localEntry{result: result, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}

func predictionKey(playerID int, season string, yearsAhead int) string {
	return fmt.Sprintf("pdi:pred:%d:%s:%d", playerID, season, yearsAhead)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
