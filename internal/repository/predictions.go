package repository

import (
	"context"
	"fmt"

	"thaileague/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles the prediction audit trail
type PredictionRepository struct {
	db *Database
}

// Create inserts a served prediction after validating it
func (r *PredictionRepository) Create(ctx context.Context, pred *models.PDIPrediction) error {
	if pred == nil {
		return fmt.Errorf("prediction cannot be nil")
	}

	if err := validatePrediction(pred); err != nil {
		return fmt.Errorf("prediction validation failed: %w", err)
	}

	query := `
		INSERT INTO pdi_predictions (
			player_id, season, target_season, years_ahead,
			estimate, interval_lower, interval_upper,
			model_name, model_mae
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		pred.PlayerID, pred.Season, pred.TargetSeason, pred.YearsAhead,
		pred.Estimate, pred.IntervalLower, pred.IntervalUpper,
		pred.ModelName, pred.ModelMAE,
	).Scan(&pred.ID, &pred.CreatedAt)

	if err != nil {
		log.Error().Err(err).Int("player_id", pred.PlayerID).Msg("Failed to insert prediction")
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	return nil
}

// Latest retrieves the most recent audit row for one request shape, nil when
// the player was never forecast.
func (r *PredictionRepository) Latest(ctx context.Context, playerID int, season string, yearsAhead int) (*models.PDIPrediction, error) {
	query := `
		SELECT id, player_id, season, target_season, years_ahead,
		       estimate, interval_lower, interval_upper,
		       model_name, model_mae, created_at
		FROM pdi_predictions
		WHERE player_id = $1 AND season = $2 AND years_ahead = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	pred := &models.PDIPrediction{}
	err := r.db.Pool.QueryRow(ctx, query, playerID, season, yearsAhead).Scan(
		&pred.ID, &pred.PlayerID, &pred.Season, &pred.TargetSeason, &pred.YearsAhead,
		&pred.Estimate, &pred.IntervalLower, &pred.IntervalUpper,
		&pred.ModelName, &pred.ModelMAE, &pred.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return pred, nil
}

// ListByPlayer retrieves a player's forecast history, newest first
func (r *PredictionRepository) ListByPlayer(ctx context.Context, playerID, limit int) ([]*models.PDIPrediction, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, player_id, season, target_season, years_ahead,
		       estimate, interval_lower, interval_upper,
		       model_name, model_mae, created_at
		FROM pdi_predictions
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var preds []*models.PDIPrediction
	for rows.Next() {
		pred := &models.PDIPrediction{}
		if err := rows.Scan(
			&pred.ID, &pred.PlayerID, &pred.Season, &pred.TargetSeason, &pred.YearsAhead,
			&pred.Estimate, &pred.IntervalLower, &pred.IntervalUpper,
			&pred.ModelName, &pred.ModelMAE, &pred.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, pred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return preds, nil
}

// CountByModel breaks down how many forecasts each artifact served
func (r *PredictionRepository) CountByModel(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT model_name, COUNT(*)
		FROM pdi_predictions
		GROUP BY model_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count predictions by model: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var model string
		var count int
		if err := rows.Scan(&model, &count); err != nil {
			return nil, fmt.Errorf("failed to scan prediction count: %w", err)
		}
		counts[model] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction counts: %w", err)
	}

	return counts, nil
}

// validatePrediction ensures an audit row is sane before insertion
func validatePrediction(pred *models.PDIPrediction) error {
	if pred.PlayerID <= 0 {
		return fmt.Errorf("player_id must be positive")
	}
	if pred.Season == "" {
		return fmt.Errorf("season is required")
	}
	if pred.YearsAhead <= 0 {
		return fmt.Errorf("years_ahead must be positive")
	}
	if pred.ModelName == "" {
		return fmt.Errorf("model_name is required")
	}
	if pred.Estimate < models.MinPDI || pred.Estimate > models.MaxPDI {
		return fmt.Errorf("estimate out of range: %.2f", pred.Estimate)
	}
	if pred.IntervalLower > pred.Estimate || pred.IntervalUpper < pred.Estimate {
		return fmt.Errorf("interval does not contain estimate")
	}
	return nil
}
