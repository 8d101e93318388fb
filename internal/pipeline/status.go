package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/match"
	"thaileague/pipeline/internal/models"
)

// ImportStatus reports one season's import state together with what the
// local cache and the registry hold for it.
func (o *Orchestrator) ImportStatus(ctx context.Context, season string) (map[string]interface{}, error) {
	status := map[string]interface{}{
		"season": season,
		"status": "not_processed",
		"known":  client.IsKnownSeason(season),
	}

	states, err := o.db.Seasons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list import states: %w", err)
	}
	for _, state := range states {
		if state.Season != season {
			continue
		}
		status["status"] = state.Status
		status["last_updated"] = state.LastUpdated
		if state.LastImportAttempt.Valid {
			status["last_import_attempt"] = state.LastImportAttempt.Time
		}
		addCount(status, "total_records", state.TotalRecords)
		addCount(status, "imported_records", state.ImportedRecords)
		addCount(status, "matched_players", state.MatchedPlayers)
		addCount(status, "unmatched_players", state.UnmatchedPlayers)
		addCount(status, "errors_count", state.ErrorsCount)
		if state.FileHash.Valid {
			status["file_hash"] = state.FileHash.String
		}
		break
	}

	if count, err := o.db.Stats.CountBySeason(ctx, season); err == nil {
		status["stats_rows"] = count
	}
	if count, err := o.db.MLMetrics.CountBySeason(ctx, season); err == nil {
		status["score_rows"] = count
	}

	if infos, err := o.source.CacheInfo(); err == nil {
		for _, info := range infos {
			if info.Season == season {
				status["cache_file"] = map[string]interface{}{
					"size_mb":  info.SizeMB,
					"modified": info.Modified,
				}
				break
			}
		}
	}

	return status, nil
}

// ImportSummary lists every tracked season's state at a glance
func (o *Orchestrator) ImportSummary(ctx context.Context) (map[string]interface{}, error) {
	states, err := o.db.Seasons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list import states: %w", err)
	}

	seasons := make([]map[string]interface{}, 0, len(states))
	byStatus := make(map[string]int)
	for _, state := range states {
		byStatus[state.Status]++

		entry := map[string]interface{}{
			"season":       state.Season,
			"status":       state.Status,
			"last_updated": state.LastUpdated,
		}
		addCount(entry, "imported_records", state.ImportedRecords)
		addCount(entry, "matched_players", state.MatchedPlayers)
		seasons = append(seasons, entry)
	}

	summary := map[string]interface{}{
		"seasons":       seasons,
		"by_status":     byStatus,
		"known_seasons": client.KnownSeasons(),
	}

	if counts, err := o.db.Predictions.CountByModel(ctx); err == nil && len(counts) > 0 {
		summary["predictions_by_model"] = counts
	}

	return summary, nil
}

// CleanupAndReprocess wipes a season's derived data, resets its import
// state, drops the cached source file, then runs the pipeline again from a
// fresh download.
func (o *Orchestrator) CleanupAndReprocess(ctx context.Context, season string) (bool, string, *Report) {
	log.Info().Str("season", season).Msg("Cleaning season before reprocess")

	statsDeleted, err := o.db.Stats.DeleteBySeason(ctx, season)
	if err != nil {
		return false, fmt.Sprintf("failed to delete season stats: %v", err), nil
	}

	scoresDeleted, err := o.db.MLMetrics.DeleteBySeason(ctx, season)
	if err != nil {
		return false, fmt.Sprintf("failed to delete season scores: %v", err), nil
	}

	if err := o.db.Seasons.Reset(ctx, season); err != nil {
		return false, fmt.Sprintf("failed to reset import state: %v", err), nil
	}

	if err := o.source.ClearCache(season); err != nil {
		log.Warn().Err(err).Str("season", season).Msg("Failed to clear cached source file")
	}

	if o.predictor != nil {
		o.predictor.Invalidate(ctx)
	}

	log.Info().
		Str("season", season).
		Int64("stats_deleted", statsDeleted).
		Int64("scores_deleted", scoresDeleted).
		Msg("Season cleaned, reprocessing")

	return o.Execute(ctx, season, match.DefaultThreshold, true, true)
}

func addCount(m map[string]interface{}, key string, v sql.NullInt32) {
	if v.Valid {
		m[key] = int(v.Int32)
	}
}
