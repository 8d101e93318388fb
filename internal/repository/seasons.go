package repository

import (
	"context"
	"fmt"

	"thaileague/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// SeasonRepository handles season import tracking database operations
type SeasonRepository struct {
	db *Database
}

const seasonColumns = `
	id, season, status, source_url, file_hash, file_size_mb,
	total_records, imported_records, matched_players, unmatched_players,
	errors_count, import_log, error_log,
	last_updated, last_import_attempt, created_at, updated_at`

func scanSeason(row pgx.Row) (*models.SeasonImport, error) {
	var s models.SeasonImport
	err := row.Scan(
		&s.ID, &s.Season, &s.Status, &s.SourceURL, &s.FileHash, &s.FileSizeMB,
		&s.TotalRecords, &s.ImportedRecords, &s.MatchedPlayers, &s.UnmatchedPlayers,
		&s.ErrorsCount, &s.ImportLog, &s.ErrorLog,
		&s.LastUpdated, &s.LastImportAttempt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOrCreate fetches the tracking row for a season, creating a pending one
// on first sight.
func (r *SeasonRepository) GetOrCreate(ctx context.Context, season string) (*models.SeasonImport, error) {
	query := `
		INSERT INTO season_imports (season, status, last_updated)
		VALUES ($1, $2, NOW())
		ON CONFLICT (season) DO UPDATE SET season = EXCLUDED.season
		RETURNING` + seasonColumns + `
	`

	imported, err := scanSeason(r.db.Pool.QueryRow(ctx, query, season, models.ImportStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create season import: %w", err)
	}

	return imported, nil
}

// GetBySeason retrieves the tracking row for a season
func (r *SeasonRepository) GetBySeason(ctx context.Context, season string) (*models.SeasonImport, error) {
	query := `SELECT` + seasonColumns + `
		FROM season_imports
		WHERE season = $1
	`

	imported, err := scanSeason(r.db.Pool.QueryRow(ctx, query, season))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("season import not found: season=%s", season)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season import: %w", err)
	}

	return imported, nil
}

// List retrieves all season tracking rows, newest season first
func (r *SeasonRepository) List(ctx context.Context) ([]*models.SeasonImport, error) {
	query := `SELECT` + seasonColumns + `
		FROM season_imports
		ORDER BY season DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list season imports: %w", err)
	}
	defer rows.Close()

	var imports []*models.SeasonImport
	for rows.Next() {
		imported, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season import: %w", err)
		}
		imports = append(imports, imported)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season imports: %w", err)
	}

	return imports, nil
}

// MarkInProgress flags a season as being imported right now
func (r *SeasonRepository) MarkInProgress(ctx context.Context, season string) error {
	query := `
		UPDATE season_imports
		SET status = $1, last_import_attempt = NOW(), updated_at = NOW()
		WHERE season = $2
	`

	result, err := r.db.Pool.Exec(ctx, query, models.ImportStatusInProgress, season)
	if err != nil {
		return fmt.Errorf("failed to mark season in progress: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("season import not found: season=%s", season)
	}

	return nil
}

func (r *SeasonRepository) markFinished(ctx context.Context, season, status string, c models.ImportCounters, importLog string) error {
	query := `
		UPDATE season_imports
		SET status = $1,
			total_records = $2,
			imported_records = $3,
			matched_players = $4,
			unmatched_players = $5,
			errors_count = $6,
			import_log = $7,
			last_updated = NOW(),
			updated_at = NOW()
		WHERE season = $8
	`

	result, err := r.db.Pool.Exec(
		ctx, query,
		status, c.Total, c.Imported, c.Matched, c.Unmatched, c.Errors,
		importLog, season,
	)
	if err != nil {
		return fmt.Errorf("failed to mark season %s: %w", status, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("season import not found: season=%s", season)
	}

	log.Debug().
		Str("season", season).
		Str("status", status).
		Int("imported", c.Imported).
		Msg("Season import finished")

	return nil
}

// MarkCompleted records a successful first import of a season
func (r *SeasonRepository) MarkCompleted(ctx context.Context, season string, c models.ImportCounters, importLog string) error {
	return r.markFinished(ctx, season, models.ImportStatusCompleted, c, importLog)
}

// MarkUpdated records a successful incremental refresh of a season
func (r *SeasonRepository) MarkUpdated(ctx context.Context, season string, c models.ImportCounters, importLog string) error {
	return r.markFinished(ctx, season, models.ImportStatusUpdated, c, importLog)
}

// MarkFailed records a failed import attempt with the error detail
func (r *SeasonRepository) MarkFailed(ctx context.Context, season, errorLog string) error {
	query := `
		UPDATE season_imports
		SET status = $1, error_log = $2, updated_at = NOW()
		WHERE season = $3
	`

	result, err := r.db.Pool.Exec(ctx, query, models.ImportStatusFailed, errorLog, season)
	if err != nil {
		return fmt.Errorf("failed to mark season failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("season import not found: season=%s", season)
	}

	return nil
}

// SetFileInfo records where the season file came from and what it hashed to
func (r *SeasonRepository) SetFileInfo(ctx context.Context, season, sourceURL, fileHash string, fileSizeMB float64) error {
	query := `
		UPDATE season_imports
		SET source_url = $1, file_hash = $2, file_size_mb = $3, updated_at = NOW()
		WHERE season = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, sourceURL, fileHash, fileSizeMB, season)
	if err != nil {
		return fmt.Errorf("failed to set season file info: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("season import not found: season=%s", season)
	}

	return nil
}

// FileHash returns the stored content hash for a season, or empty when the
// season was never imported.
func (r *SeasonRepository) FileHash(ctx context.Context, season string) (string, error) {
	query := `SELECT file_hash FROM season_imports WHERE season = $1`

	var hash *string
	err := r.db.Pool.QueryRow(ctx, query, season).Scan(&hash)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get season file hash: %w", err)
	}

	if hash == nil {
		return "", nil
	}
	return *hash, nil
}

// Reset returns a season to pending with counters and logs cleared so it can
// be imported from scratch.
func (r *SeasonRepository) Reset(ctx context.Context, season string) error {
	query := `
		UPDATE season_imports
		SET status = $1,
			file_hash = NULL,
			total_records = NULL,
			imported_records = NULL,
			matched_players = NULL,
			unmatched_players = NULL,
			errors_count = NULL,
			import_log = NULL,
			error_log = NULL,
			updated_at = NOW()
		WHERE season = $2
	`

	result, err := r.db.Pool.Exec(ctx, query, models.ImportStatusPending, season)
	if err != nil {
		return fmt.Errorf("failed to reset season import: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("season import not found: season=%s", season)
	}

	log.Debug().Str("season", season).Msg("Season import reset")
	return nil
}

// CountByStatus returns how many seasons sit in a given status
func (r *SeasonRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	query := `SELECT COUNT(*) FROM season_imports WHERE status = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count season imports: %w", err)
	}

	return count, nil
}
