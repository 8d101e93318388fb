package repository

import (
	"context"
	"fmt"

	"thaileague/pipeline/internal/models"

	"github.com/rs/zerolog/log"
)

// Rankings returns the season leaderboard ordered by overall PDI. An empty
// position returns every position group.
func (r *MLMetricsRepository) Rankings(ctx context.Context, season, position string, limit int) ([]*models.PlayerRanking, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT m.player_id, p.full_name, m.position_analyzed,
		       COALESCE(s.team, ''), m.pdi_overall
		FROM ml_metrics m
		JOIN players p ON p.id = m.player_id
		LEFT JOIN professional_stats s
		  ON s.player_id = m.player_id AND s.season = m.season
		WHERE m.season = $1
		  AND m.pdi_overall IS NOT NULL
		  AND ($2 = '' OR m.position_analyzed = $2)
		ORDER BY m.pdi_overall DESC
		LIMIT $3
	`

	rows, err := r.db.Pool.Query(ctx, query, season, position, limit)
	if err != nil {
		log.Error().Err(err).Str("season", season).Msg("Failed to query rankings")
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	defer rows.Close()

	var rankings []*models.PlayerRanking
	for rows.Next() {
		ranking := &models.PlayerRanking{}
		var pos *string
		if err := rows.Scan(
			&ranking.PlayerID, &ranking.PlayerName, &pos,
			&ranking.Team, &ranking.PDIOverall,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		if pos != nil {
			ranking.Position = *pos
		}
		ranking.Rank = len(rankings) + 1
		rankings = append(rankings, ranking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rankings: %w", err)
	}

	return rankings, nil
}

// PositionAverages aggregates PDI per position group for one season
func (r *MLMetricsRepository) PositionAverages(ctx context.Context, season string) ([]*models.PositionAverage, error) {
	query := `
		SELECT m.position_analyzed,
		       COUNT(*),
		       AVG(m.pdi_overall),
		       AVG(m.pdi_universal),
		       AVG(m.pdi_zone),
		       AVG(m.pdi_position_specific)
		FROM ml_metrics m
		WHERE m.season = $1
		  AND m.pdi_overall IS NOT NULL
		  AND m.position_analyzed IS NOT NULL
		GROUP BY m.position_analyzed
		ORDER BY AVG(m.pdi_overall) DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query position averages: %w", err)
	}
	defer rows.Close()

	var averages []*models.PositionAverage
	for rows.Next() {
		avg := &models.PositionAverage{}
		if err := rows.Scan(
			&avg.Position, &avg.PlayerCount,
			&avg.AvgOverall, &avg.AvgUniversal, &avg.AvgZone, &avg.AvgSpecific,
		); err != nil {
			return nil, fmt.Errorf("failed to scan position average: %w", err)
		}
		averages = append(averages, avg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position averages: %w", err)
	}

	return averages, nil
}
