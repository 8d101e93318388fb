package repository

import (
	"context"
	"fmt"

	"thaileague/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// StatsRepository handles professional season stats database operations
type StatsRepository struct {
	db *Database
}

// statsColumns is the full select list for professional_stats, shared by
// every getter so the scan order stays in one place.
const statsColumns = `
	id, player_id, wyscout_id, season,
	player_name, full_name, team, team_within_timeframe, team_logo_url,
	competition, age, birthday, birth_country, passport_country,
	height, weight, foot, market_value,
	primary_position, secondary_position, third_position,
	matches_played, minutes_played,
	goals, assists, shots, shots_per_90, shots_on_target_pct,
	goal_conversion_pct, goals_per_90, assists_per_90,
	touches_in_box_per_90, shot_assists_per_90,
	defensive_actions_per_90, defensive_duels_per_90, defensive_duels_won_pct,
	aerial_duels_per_90, aerial_duels_won_pct, sliding_tackles_per_90,
	interceptions_per_90, fouls_per_90,
	passes_per_90, pass_accuracy_pct, forward_passes_per_90,
	forward_passes_accuracy_pct, back_passes_per_90, back_passes_accuracy_pct,
	long_passes_per_90, long_passes_accuracy_pct, progressive_passes_per_90,
	progressive_passes_accuracy_pct, key_passes_per_90,
	duels_per_90, duels_won_pct, offensive_duels_per_90,
	offensive_duels_won_pct, dribbles_per_90, dribbles_success_pct,
	progressive_runs_per_90,
	expected_goals, expected_assists, xg_per_90, xa_per_90,
	yellow_cards, red_cards, yellow_cards_per_90, red_cards_per_90,
	fouls_suffered_per_90,
	created_at, updated_at`

func scanStats(row pgx.Row) (*models.ProfessionalStats, error) {
	var s models.ProfessionalStats
	err := row.Scan(
		&s.ID, &s.PlayerID, &s.WyscoutID, &s.Season,
		&s.PlayerName, &s.FullName, &s.Team, &s.TeamWithinTimeframe, &s.TeamLogoURL,
		&s.Competition, &s.Age, &s.Birthday, &s.BirthCountry, &s.PassportCountry,
		&s.Height, &s.Weight, &s.Foot, &s.MarketValue,
		&s.PrimaryPosition, &s.SecondaryPosition, &s.ThirdPosition,
		&s.MatchesPlayed, &s.MinutesPlayed,
		&s.Goals, &s.Assists, &s.Shots, &s.ShotsPer90, &s.ShotsOnTargetPct,
		&s.GoalConversionPct, &s.GoalsPer90, &s.AssistsPer90,
		&s.TouchesInBoxPer90, &s.ShotAssistsPer90,
		&s.DefensiveActionsPer90, &s.DefensiveDuelsPer90, &s.DefensiveDuelsWonPct,
		&s.AerialDuelsPer90, &s.AerialDuelsWonPct, &s.SlidingTacklesPer90,
		&s.InterceptionsPer90, &s.FoulsPer90,
		&s.PassesPer90, &s.PassAccuracyPct, &s.ForwardPassesPer90,
		&s.ForwardPassesAccuracyPct, &s.BackPassesPer90, &s.BackPassesAccuracyPct,
		&s.LongPassesPer90, &s.LongPassesAccuracyPct, &s.ProgressivePassesPer90,
		&s.ProgressivePassesAccuracyPct, &s.KeyPassesPer90,
		&s.DuelsPer90, &s.DuelsWonPct, &s.OffensiveDuelsPer90,
		&s.OffensiveDuelsWonPct, &s.DribblesPer90, &s.DribblesSuccessPct,
		&s.ProgressiveRunsPer90,
		&s.ExpectedGoals, &s.ExpectedAssists, &s.XgPer90, &s.XaPer90,
		&s.YellowCards, &s.RedCards, &s.YellowCardsPer90, &s.RedCardsPer90,
		&s.FoulsSufferedPer90,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert inserts or updates one player-season stats record
func (r *StatsRepository) Upsert(ctx context.Context, stats *models.ProfessionalStats) error {
	query := `
		INSERT INTO professional_stats (
			player_id, wyscout_id, season,
			player_name, full_name, team, team_within_timeframe, team_logo_url,
			competition, age, birthday, birth_country, passport_country,
			height, weight, foot, market_value,
			primary_position, secondary_position, third_position,
			matches_played, minutes_played,
			goals, assists, shots, shots_per_90, shots_on_target_pct,
			goal_conversion_pct, goals_per_90, assists_per_90,
			touches_in_box_per_90, shot_assists_per_90,
			defensive_actions_per_90, defensive_duels_per_90, defensive_duels_won_pct,
			aerial_duels_per_90, aerial_duels_won_pct, sliding_tackles_per_90,
			interceptions_per_90, fouls_per_90,
			passes_per_90, pass_accuracy_pct, forward_passes_per_90,
			forward_passes_accuracy_pct, back_passes_per_90, back_passes_accuracy_pct,
			long_passes_per_90, long_passes_accuracy_pct, progressive_passes_per_90,
			progressive_passes_accuracy_pct, key_passes_per_90,
			duels_per_90, duels_won_pct, offensive_duels_per_90,
			offensive_duels_won_pct, dribbles_per_90, dribbles_success_pct,
			progressive_runs_per_90,
			expected_goals, expected_assists, xg_per_90, xa_per_90,
			yellow_cards, red_cards, yellow_cards_per_90, red_cards_per_90,
			fouls_suffered_per_90
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, $44, $45, $46, $47, $48, $49, $50,
			$51, $52, $53, $54, $55, $56, $57, $58, $59, $60,
			$61, $62, $63, $64, $65, $66, $67
		)
		ON CONFLICT (wyscout_id, season) DO UPDATE SET
			player_id = EXCLUDED.player_id,
			player_name = EXCLUDED.player_name,
			full_name = EXCLUDED.full_name,
			team = EXCLUDED.team,
			team_within_timeframe = EXCLUDED.team_within_timeframe,
			team_logo_url = EXCLUDED.team_logo_url,
			competition = EXCLUDED.competition,
			age = EXCLUDED.age,
			birthday = EXCLUDED.birthday,
			birth_country = EXCLUDED.birth_country,
			passport_country = EXCLUDED.passport_country,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			foot = EXCLUDED.foot,
			market_value = EXCLUDED.market_value,
			primary_position = EXCLUDED.primary_position,
			secondary_position = EXCLUDED.secondary_position,
			third_position = EXCLUDED.third_position,
			matches_played = EXCLUDED.matches_played,
			minutes_played = EXCLUDED.minutes_played,
			goals = EXCLUDED.goals,
			assists = EXCLUDED.assists,
			shots = EXCLUDED.shots,
			shots_per_90 = EXCLUDED.shots_per_90,
			shots_on_target_pct = EXCLUDED.shots_on_target_pct,
			goal_conversion_pct = EXCLUDED.goal_conversion_pct,
			goals_per_90 = EXCLUDED.goals_per_90,
			assists_per_90 = EXCLUDED.assists_per_90,
			touches_in_box_per_90 = EXCLUDED.touches_in_box_per_90,
			shot_assists_per_90 = EXCLUDED.shot_assists_per_90,
			defensive_actions_per_90 = EXCLUDED.defensive_actions_per_90,
			defensive_duels_per_90 = EXCLUDED.defensive_duels_per_90,
			defensive_duels_won_pct = EXCLUDED.defensive_duels_won_pct,
			aerial_duels_per_90 = EXCLUDED.aerial_duels_per_90,
			aerial_duels_won_pct = EXCLUDED.aerial_duels_won_pct,
			sliding_tackles_per_90 = EXCLUDED.sliding_tackles_per_90,
			interceptions_per_90 = EXCLUDED.interceptions_per_90,
			fouls_per_90 = EXCLUDED.fouls_per_90,
			passes_per_90 = EXCLUDED.passes_per_90,
			pass_accuracy_pct = EXCLUDED.pass_accuracy_pct,
			forward_passes_per_90 = EXCLUDED.forward_passes_per_90,
			forward_passes_accuracy_pct = EXCLUDED.forward_passes_accuracy_pct,
			back_passes_per_90 = EXCLUDED.back_passes_per_90,
			back_passes_accuracy_pct = EXCLUDED.back_passes_accuracy_pct,
			long_passes_per_90 = EXCLUDED.long_passes_per_90,
			long_passes_accuracy_pct = EXCLUDED.long_passes_accuracy_pct,
			progressive_passes_per_90 = EXCLUDED.progressive_passes_per_90,
			progressive_passes_accuracy_pct = EXCLUDED.progressive_passes_accuracy_pct,
			key_passes_per_90 = EXCLUDED.key_passes_per_90,
			duels_per_90 = EXCLUDED.duels_per_90,
			duels_won_pct = EXCLUDED.duels_won_pct,
			offensive_duels_per_90 = EXCLUDED.offensive_duels_per_90,
			offensive_duels_won_pct = EXCLUDED.offensive_duels_won_pct,
			dribbles_per_90 = EXCLUDED.dribbles_per_90,
			dribbles_success_pct = EXCLUDED.dribbles_success_pct,
			progressive_runs_per_90 = EXCLUDED.progressive_runs_per_90,
			expected_goals = EXCLUDED.expected_goals,
			expected_assists = EXCLUDED.expected_assists,
			xg_per_90 = EXCLUDED.xg_per_90,
			xa_per_90 = EXCLUDED.xa_per_90,
			yellow_cards = EXCLUDED.yellow_cards,
			red_cards = EXCLUDED.red_cards,
			yellow_cards_per_90 = EXCLUDED.yellow_cards_per_90,
			red_cards_per_90 = EXCLUDED.red_cards_per_90,
			fouls_suffered_per_90 = EXCLUDED.fouls_suffered_per_90,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		stats.PlayerID, stats.WyscoutID, stats.Season,
		stats.PlayerName, stats.FullName, stats.Team, stats.TeamWithinTimeframe, stats.TeamLogoURL,
		stats.Competition, stats.Age, stats.Birthday, stats.BirthCountry, stats.PassportCountry,
		stats.Height, stats.Weight, stats.Foot, stats.MarketValue,
		stats.PrimaryPosition, stats.SecondaryPosition, stats.ThirdPosition,
		stats.MatchesPlayed, stats.MinutesPlayed,
		stats.Goals, stats.Assists, stats.Shots, stats.ShotsPer90, stats.ShotsOnTargetPct,
		stats.GoalConversionPct, stats.GoalsPer90, stats.AssistsPer90,
		stats.TouchesInBoxPer90, stats.ShotAssistsPer90,
		stats.DefensiveActionsPer90, stats.DefensiveDuelsPer90, stats.DefensiveDuelsWonPct,
		stats.AerialDuelsPer90, stats.AerialDuelsWonPct, stats.SlidingTacklesPer90,
		stats.InterceptionsPer90, stats.FoulsPer90,
		stats.PassesPer90, stats.PassAccuracyPct, stats.ForwardPassesPer90,
		stats.ForwardPassesAccuracyPct, stats.BackPassesPer90, stats.BackPassesAccuracyPct,
		stats.LongPassesPer90, stats.LongPassesAccuracyPct, stats.ProgressivePassesPer90,
		stats.ProgressivePassesAccuracyPct, stats.KeyPassesPer90,
		stats.DuelsPer90, stats.DuelsWonPct, stats.OffensiveDuelsPer90,
		stats.OffensiveDuelsWonPct, stats.DribblesPer90, stats.DribblesSuccessPct,
		stats.ProgressiveRunsPer90,
		stats.ExpectedGoals, stats.ExpectedAssists, stats.XgPer90, stats.XaPer90,
		stats.YellowCards, stats.RedCards, stats.YellowCardsPer90, stats.RedCardsPer90,
		stats.FoulsSufferedPer90,
	).Scan(&stats.ID, &stats.CreatedAt, &stats.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert professional stats: %w", err)
	}

	return nil
}

// Exists reports whether a stats record exists for a Wyscout ID in a season
func (r *StatsRepository) Exists(ctx context.Context, wyscoutID int, season string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM professional_stats WHERE wyscout_id = $1 AND season = $2)`

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, wyscoutID, season).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check professional stats: %w", err)
	}

	return exists, nil
}

// GetByPlayerAndSeason retrieves stats for a player in a specific season
func (r *StatsRepository) GetByPlayerAndSeason(ctx context.Context, playerID int, season string) (*models.ProfessionalStats, error) {
	query := `SELECT` + statsColumns + `
		FROM professional_stats
		WHERE player_id = $1 AND season = $2
	`

	stats, err := scanStats(r.db.Pool.QueryRow(ctx, query, playerID, season))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("stats not found: player_id=%d, season=%s", playerID, season)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get professional stats: %w", err)
	}

	return stats, nil
}

// GetByWyscoutAndSeason retrieves stats for a Wyscout ID in a specific season
func (r *StatsRepository) GetByWyscoutAndSeason(ctx context.Context, wyscoutID int, season string) (*models.ProfessionalStats, error) {
	query := `SELECT` + statsColumns + `
		FROM professional_stats
		WHERE wyscout_id = $1 AND season = $2
	`

	stats, err := scanStats(r.db.Pool.QueryRow(ctx, query, wyscoutID, season))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("stats not found: wyscout_id=%d, season=%s", wyscoutID, season)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get professional stats: %w", err)
	}

	return stats, nil
}

// ListBySeason retrieves all stats records for a season
func (r *StatsRepository) ListBySeason(ctx context.Context, season string) ([]*models.ProfessionalStats, error) {
	query := `SELECT` + statsColumns + `
		FROM professional_stats
		WHERE season = $1
		ORDER BY player_name
	`

	rows, err := r.db.Pool.Query(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list season stats: %w", err)
	}
	defer rows.Close()

	var statsList []*models.ProfessionalStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		statsList = append(statsList, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", err)
	}

	return statsList, nil
}

// ListByPlayer retrieves all seasons on record for a player, newest first
func (r *StatsRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.ProfessionalStats, error) {
	query := `SELECT` + statsColumns + `
		FROM professional_stats
		WHERE player_id = $1
		ORDER BY season DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player stats: %w", err)
	}
	defer rows.Close()

	var statsList []*models.ProfessionalStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		statsList = append(statsList, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", err)
	}

	return statsList, nil
}

// LatestByPlayer retrieves the newest season on record for a player
func (r *StatsRepository) LatestByPlayer(ctx context.Context, playerID int) (*models.ProfessionalStats, error) {
	query := `SELECT` + statsColumns + `
		FROM professional_stats
		WHERE player_id = $1
		ORDER BY season DESC
		LIMIT 1
	`

	stats, err := scanStats(r.db.Pool.QueryRow(ctx, query, playerID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("stats not found: player_id=%d", playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest stats: %w", err)
	}

	return stats, nil
}

// Seasons returns the distinct seasons present, newest first
func (r *StatsRepository) Seasons(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT season FROM professional_stats ORDER BY season DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []string
	for rows.Next() {
		var season string
		if err := rows.Scan(&season); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, season)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seasons: %w", err)
	}

	return seasons, nil
}

// CountBySeason returns the number of stats records for a season
func (r *StatsRepository) CountBySeason(ctx context.Context, season string) (int, error) {
	query := `SELECT COUNT(*) FROM professional_stats WHERE season = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, season).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count season stats: %w", err)
	}

	return count, nil
}

// DeleteBySeason removes all stats records for a season and reports how many
func (r *StatsRepository) DeleteBySeason(ctx context.Context, season string) (int64, error) {
	query := `DELETE FROM professional_stats WHERE season = $1`

	result, err := r.db.Pool.Exec(ctx, query, season)
	if err != nil {
		return 0, fmt.Errorf("failed to delete season stats: %w", err)
	}

	deleted := result.RowsAffected()
	log.Debug().
		Str("season", season).
		Int64("deleted", deleted).
		Msg("Season stats deleted")

	return deleted, nil
}
