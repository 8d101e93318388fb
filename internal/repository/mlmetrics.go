package repository

import (
	"context"
	"fmt"

	"thaileague/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// MLMetricsRepository handles PDI metrics database operations
type MLMetricsRepository struct {
	db *Database
}

const metricsColumns = `
	id, player_id, season,
	pdi_overall, pdi_universal, pdi_zone, pdi_position_specific,
	position_analyzed, model_version, last_calculated,
	created_at, updated_at`

func scanMetrics(row pgx.Row) (*models.MLMetrics, error) {
	var m models.MLMetrics
	err := row.Scan(
		&m.ID, &m.PlayerID, &m.Season,
		&m.PDIOverall, &m.PDIUniversal, &m.PDIZone, &m.PDIPositionSpecific,
		&m.PositionAnalyzed, &m.ModelVersion, &m.LastCalculated,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upsert inserts or updates the metrics row for one player-season
func (r *MLMetricsRepository) Upsert(ctx context.Context, metrics *models.MLMetrics) error {
	query := `
		INSERT INTO ml_metrics (
			player_id, season,
			pdi_overall, pdi_universal, pdi_zone, pdi_position_specific,
			position_analyzed, model_version, last_calculated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (player_id, season) DO UPDATE SET
			pdi_overall = EXCLUDED.pdi_overall,
			pdi_universal = EXCLUDED.pdi_universal,
			pdi_zone = EXCLUDED.pdi_zone,
			pdi_position_specific = EXCLUDED.pdi_position_specific,
			position_analyzed = EXCLUDED.position_analyzed,
			model_version = EXCLUDED.model_version,
			last_calculated = EXCLUDED.last_calculated,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		metrics.PlayerID, metrics.Season,
		metrics.PDIOverall, metrics.PDIUniversal, metrics.PDIZone, metrics.PDIPositionSpecific,
		metrics.PositionAnalyzed, metrics.ModelVersion, metrics.LastCalculated,
	).Scan(&metrics.ID, &metrics.CreatedAt, &metrics.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert ml metrics: %w", err)
	}

	log.Debug().
		Int("player_id", metrics.PlayerID).
		Str("season", metrics.Season).
		Float64("pdi", metrics.PDIOverall.Float64).
		Msg("PDI metrics stored")

	return nil
}

// Get retrieves the metrics row for one player-season, nil when none exists
func (r *MLMetricsRepository) Get(ctx context.Context, playerID int, season string) (*models.MLMetrics, error) {
	query := `SELECT` + metricsColumns + `
		FROM ml_metrics
		WHERE player_id = $1 AND season = $2
	`

	metrics, err := scanMetrics(r.db.Pool.QueryRow(ctx, query, playerID, season))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ml metrics: %w", err)
	}

	return metrics, nil
}

// Exists reports whether a metrics row exists for one player-season
func (r *MLMetricsRepository) Exists(ctx context.Context, playerID int, season string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ml_metrics WHERE player_id = $1 AND season = $2)`

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, playerID, season).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ml metrics: %w", err)
	}

	return exists, nil
}

// ListBySeason retrieves all metrics rows for a season
func (r *MLMetricsRepository) ListBySeason(ctx context.Context, season string) ([]*models.MLMetrics, error) {
	query := `SELECT` + metricsColumns + `
		FROM ml_metrics
		WHERE season = $1
		ORDER BY pdi_overall DESC NULLS LAST
	`

	rows, err := r.db.Pool.Query(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list ml metrics: %w", err)
	}
	defer rows.Close()

	var metricsList []*models.MLMetrics
	for rows.Next() {
		metrics, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ml metrics: %w", err)
		}
		metricsList = append(metricsList, metrics)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ml metrics: %w", err)
	}

	return metricsList, nil
}

// ListByPlayer retrieves a player's metrics across seasons, newest first
func (r *MLMetricsRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.MLMetrics, error) {
	query := `SELECT` + metricsColumns + `
		FROM ml_metrics
		WHERE player_id = $1
		ORDER BY season DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player metrics: %w", err)
	}
	defer rows.Close()

	var metricsList []*models.MLMetrics
	for rows.Next() {
		metrics, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ml metrics: %w", err)
		}
		metricsList = append(metricsList, metrics)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ml metrics: %w", err)
	}

	return metricsList, nil
}

// CountBySeason returns the number of metrics rows for a season
func (r *MLMetricsRepository) CountBySeason(ctx context.Context, season string) (int, error) {
	query := `SELECT COUNT(*) FROM ml_metrics WHERE season = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, season).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ml metrics: %w", err)
	}

	return count, nil
}

// DeleteBySeason removes all metrics rows for a season and reports how many
func (r *MLMetricsRepository) DeleteBySeason(ctx context.Context, season string) (int64, error) {
	query := `DELETE FROM ml_metrics WHERE season = $1`

	result, err := r.db.Pool.Exec(ctx, query, season)
	if err != nil {
		return 0, fmt.Errorf("failed to delete season metrics: %w", err)
	}

	deleted := result.RowsAffected()
	log.Debug().
		Str("season", season).
		Int64("deleted", deleted).
		Msg("Season metrics deleted")

	return deleted, nil
}
