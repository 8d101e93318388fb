package repository

import (
	"context"
	"fmt"

	"thaileague/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PlayerRepository handles player database operations
type PlayerRepository struct {
	db *Database
}

// Create inserts a new player
func (r *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (
			full_name, known_name, is_professional, wyscout_id
		) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		player.FullName, player.KnownName, player.IsProfessional, player.WyscoutID,
	).Scan(&player.ID, &player.CreatedAt, &player.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	log.Debug().
		Int("id", player.ID).
		Str("name", player.FullName).
		Msg("Player created")

	return nil
}

// GetByID retrieves a player by its database ID
func (r *PlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, full_name, known_name, is_professional, wyscout_id,
		       created_at, updated_at
		FROM players
		WHERE id = $1
	`

	var player models.Player
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&player.ID, &player.FullName, &player.KnownName,
		&player.IsProfessional, &player.WyscoutID,
		&player.CreatedAt, &player.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("player not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &player, nil
}

// GetByWyscoutID retrieves a player by its linked Wyscout ID
func (r *PlayerRepository) GetByWyscoutID(ctx context.Context, wyscoutID int) (*models.Player, error) {
	query := `
		SELECT id, full_name, known_name, is_professional, wyscout_id,
		       created_at, updated_at
		FROM players
		WHERE wyscout_id = $1
	`

	var player models.Player
	err := r.db.Pool.QueryRow(ctx, query, wyscoutID).Scan(
		&player.ID, &player.FullName, &player.KnownName,
		&player.IsProfessional, &player.WyscoutID,
		&player.CreatedAt, &player.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("player not found: wyscout_id=%d", wyscoutID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &player, nil
}

// List retrieves all players
func (r *PlayerRepository) List(ctx context.Context) ([]*models.Player, error) {
	query := `
		SELECT id, full_name, known_name, is_professional, wyscout_id,
		       created_at, updated_at
		FROM players
		ORDER BY full_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var player models.Player
		err := rows.Scan(
			&player.ID, &player.FullName, &player.KnownName,
			&player.IsProfessional, &player.WyscoutID,
			&player.CreatedAt, &player.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// ListProfessionals retrieves players flagged as professionals
func (r *PlayerRepository) ListProfessionals(ctx context.Context) ([]*models.Player, error) {
	query := `
		SELECT id, full_name, known_name, is_professional, wyscout_id,
		       created_at, updated_at
		FROM players
		WHERE is_professional = TRUE
		ORDER BY full_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list professional players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var player models.Player
		err := rows.Scan(
			&player.ID, &player.FullName, &player.KnownName,
			&player.IsProfessional, &player.WyscoutID,
			&player.CreatedAt, &player.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &player)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// LinkWyscoutID records the Wyscout ID a player was matched to
func (r *PlayerRepository) LinkWyscoutID(ctx context.Context, playerID int, wyscoutID int) error {
	query := `
		UPDATE players SET
			wyscout_id = $1,
			updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`

	var updatedAt interface{}
	err := r.db.Pool.QueryRow(ctx, query, wyscoutID, playerID).Scan(&updatedAt)

	if err == pgx.ErrNoRows {
		return fmt.Errorf("player not found: id=%d", playerID)
	}
	if err != nil {
		return fmt.Errorf("failed to link player: %w", err)
	}

	log.Debug().
		Int("player_id", playerID).
		Int("wyscout_id", wyscoutID).
		Msg("Player linked to Wyscout ID")

	return nil
}

// Delete deletes a player
func (r *PlayerRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM players WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("player not found: id=%d", id)
	}

	log.Debug().Int("id", id).Msg("Player deleted")
	return nil
}

// Count returns the total number of players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM players`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}

	return count, nil
}

// CountLinked returns the number of players with a Wyscout ID
func (r *PlayerRepository) CountLinked(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM players WHERE wyscout_id IS NOT NULL`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count linked players: %w", err)
	}

	return count, nil
}
