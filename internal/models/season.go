package models

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Import status values for a season's ingestion lifecycle
const (
	ImportStatusPending    = "pending"
	ImportStatusInProgress = "in_progress"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
	ImportStatusUpdated    = "updated"
)

// SeasonImport tracks the ingestion lifecycle of one season. Rows are never
// deleted, only re-marked.
type SeasonImport struct {
	ID     int    `db:"id"`
	Season string `db:"season"`
	Status string `db:"status"`

	// Source file information
	SourceURL  sql.NullString  `db:"source_url"`
	FileHash   sql.NullString  `db:"file_hash"`
	FileSizeMB sql.NullFloat64 `db:"file_size_mb"`

	// Import counters
	TotalRecords     sql.NullInt32 `db:"total_records"`
	ImportedRecords  sql.NullInt32 `db:"imported_records"`
	MatchedPlayers   sql.NullInt32 `db:"matched_players"`
	UnmatchedPlayers sql.NullInt32 `db:"unmatched_players"`
	ErrorsCount      sql.NullInt32 `db:"errors_count"`

	// Logs and notes
	ImportLog sql.NullString `db:"import_log"`
	ErrorLog  sql.NullString `db:"error_log"`

	LastUpdated       time.Time    `db:"last_updated"`
	LastImportAttempt sql.NullTime `db:"last_import_attempt"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

// IsCompleted returns true once the season import finished successfully
func (s *SeasonImport) IsCompleted() bool {
	return s.Status == ImportStatusCompleted || s.Status == ImportStatusUpdated
}

// IsInProgress returns true while an import run holds the season
func (s *SeasonImport) IsInProgress() bool {
	return s.Status == ImportStatusInProgress
}

// IsCurrentSeason reports whether this season is the active one at the given
// time: its start year equals the current or the prior calendar year.
func (s *SeasonImport) IsCurrentSeason(now time.Time) bool {
	return IsCurrentSeason(s.Season, now)
}

// ImportCounters is the set of counters recorded after an import run
type ImportCounters struct {
	Total     int
	Imported  int
	Matched   int
	Unmatched int
	Errors    int
}

// SeasonStartYear parses the four-digit start year out of a season label
// like "2024-25".
func SeasonStartYear(season string) (int, error) {
	parts := strings.Split(season, "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed season %q", season)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return 0, fmt.Errorf("malformed season %q", season)
	}
	return year, nil
}

// IsCurrentSeason reports whether the season's start year matches the current
// or prior calendar year.
func IsCurrentSeason(season string, now time.Time) bool {
	start, err := SeasonStartYear(season)
	if err != nil {
		return false
	}
	year := now.Year()
	return start == year || start == year-1
}

// FutureSeason shifts a season label forward: FutureSeason("2024-25", 1)
// returns "2025-26".
func FutureSeason(season string, yearsAhead int) (string, error) {
	start, err := SeasonStartYear(season)
	if err != nil {
		return "", err
	}
	futureStart := start + yearsAhead
	return fmt.Sprintf("%d-%02d", futureStart, (futureStart+1)%100), nil
}
