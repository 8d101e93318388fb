package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/match"
	"thaileague/pipeline/internal/metrics"
	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/predict"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/score"
	"thaileague/pipeline/internal/sourcecache"
	"thaileague/pipeline/internal/transform"
)

const (
	freeAgentTeam      = "Free agent"
	defaultCompetition = "Thai League"

	// qualityTarget is the data quality floor the import aims for. Falling
	// short warns, it does not abort.
	qualityTarget = 80.0
)

// Orchestrator sequences one season import through six ordered phases:
// business understanding, data understanding, data preparation, modeling,
// evaluation, deployment. The first failing phase stops the run; every
// phase that ran leaves its entry in the report either way.
type Orchestrator struct {
	db         *repository.Database
	source     *sourcecache.Cache
	normalizer *transform.Normalizer
	engine     *score.Engine
	predictor  *predict.Service
}

// NewOrchestrator wires the pipeline components. predictor may be nil when
// forecasting is disabled; the other components are required.
func NewOrchestrator(db *repository.Database, source *sourcecache.Cache, normalizer *transform.Normalizer, engine *score.Engine, predictor *predict.Service) *Orchestrator {
	return &Orchestrator{
		db:         db,
		source:     source,
		normalizer: normalizer,
		engine:     engine,
		predictor:  predictor,
	}
}

// Execute runs the full pipeline for one season. It never returns an error:
// failures are folded into the report and the (success, message) pair, and
// the report always retains the phases that ran before the abort.
func (o *Orchestrator) Execute(ctx context.Context, season string, threshold int, forceReload, computeScores bool) (bool, string, *Report) {
	report := newReport(season)

	log.Info().
		Str("season", season).
		Int("threshold", threshold).
		Bool("force_reload", forceReload).
		Bool("compute_scores", computeScores).
		Msg("Starting season import pipeline")

	state, skip, ok := o.businessUnderstanding(ctx, season, forceReload, report)
	if skip {
		report.finish()
		metrics.RecordPipelineRun(season, "skipped", report.ElapsedSeconds)
		return false, fmt.Sprintf("season %s already processed, use force reload to reimport", season), report
	}
	if !ok {
		return o.abort(ctx, report, false)
	}
	wasProcessed := state.IsCompleted()

	fetch, ok := o.dataUnderstanding(ctx, season, report)
	if !ok {
		return o.abort(ctx, report, true)
	}

	records, matches, prep, ok := o.dataPreparation(ctx, season, threshold, fetch.Table, report)
	if !ok {
		return o.abort(ctx, report, true)
	}

	loaded, loadErrors, ok := o.modeling(ctx, season, records, matches, report)
	if !ok {
		return o.abort(ctx, report, true)
	}

	scored := o.evaluation(ctx, season, matches, computeScores, forceReload, report)

	counters := models.ImportCounters{
		Total:     prep.TotalRows,
		Imported:  loaded,
		Matched:   len(matches.Matched()),
		Unmatched: len(matches.NoMatch),
		Errors:    loadErrors,
	}
	message, ok := o.deployment(ctx, season, fetch, counters, wasProcessed, report)
	if !ok {
		return o.abort(ctx, report, true)
	}

	exact, fuzzy, nomatch := matches.Counts()
	report.finish()
	report.FinalStats = map[string]interface{}{
		"total_extracted": len(fetch.Table.Rows),
		"total_prepared":  len(records),
		"total_loaded":    loaded,
		"exact_matches":   exact,
		"fuzzy_matches":   fuzzy,
		"no_matches":      nomatch,
		"scores_computed": scored,
		"elapsed_seconds": report.ElapsedSeconds,
	}
	if prepPhase := report.Phase(phaseDataPreparation); prepPhase != nil {
		report.FinalStats["quality_score"] = prepPhase.Detail["quality_score"]
	}

	metrics.RecordPipelineRun(season, "completed", report.ElapsedSeconds)
	metrics.RecordsProcessed.WithLabelValues(season).Add(float64(loaded))
	log.Info().
		Str("season", season).
		Int("loaded", loaded).
		Int("matched", exact+fuzzy).
		Float64("elapsed_seconds", report.ElapsedSeconds).
		Msg("Season import pipeline completed")

	return true, message, report
}

// abort finalizes a failed run: the failing phase is the last report entry.
// markFailed is false when the import state row was never touched.
func (o *Orchestrator) abort(ctx context.Context, report *Report, markFailed bool) (bool, string, *Report) {
	last := report.LastPhase()
	metrics.RecordPhaseFailure(last.Phase)

	if markFailed {
		if err := o.db.Seasons.MarkFailed(ctx, report.Season, last.Message); err != nil {
			log.Warn().Err(err).Str("season", report.Season).Msg("Failed to mark season as failed")
		}
	}

	report.finish()
	metrics.RecordPipelineRun(report.Season, "failed", report.ElapsedSeconds)

	return false, fmt.Sprintf("%s failed: %s", last.Phase, last.Message), report
}

// businessUnderstanding validates the season is supported and not already
// processed, then claims the import state row. skip is true for the benign
// already-processed outcome, which is reported but not counted as a failure.
func (o *Orchestrator) businessUnderstanding(ctx context.Context, season string, forceReload bool, report *Report) (state *models.SeasonImport, skip, ok bool) {
	if !client.IsKnownSeason(season) {
		msg := fmt.Sprintf("season %s is not supported, known seasons: %s",
			season, strings.Join(client.KnownSeasons(), ", "))
		report.add(phaseBusinessUnderstanding, false, msg, nil)
		return nil, false, false
	}

	state, err := o.db.Seasons.GetOrCreate(ctx, season)
	if err != nil {
		report.add(phaseBusinessUnderstanding, false, fmt.Sprintf("failed to load import state: %v", err), nil)
		return nil, false, false
	}

	detail := map[string]interface{}{"previous_status": state.Status}

	if !forceReload && state.IsCompleted() {
		report.add(phaseBusinessUnderstanding, false, fmt.Sprintf("season %s already processed", season), detail)
		return state, true, false
	}

	if err := o.db.Seasons.MarkInProgress(ctx, season); err != nil {
		report.add(phaseBusinessUnderstanding, false, fmt.Sprintf("failed to mark season in progress: %v", err), detail)
		return nil, false, false
	}

	report.add(phaseBusinessUnderstanding, true, fmt.Sprintf("objectives validated for season %s", season), detail)
	return state, false, true
}

// dataUnderstanding pulls the season table and takes a first quality
// reading before anything is cleaned
func (o *Orchestrator) dataUnderstanding(ctx context.Context, season string, report *Report) (*sourcecache.FetchResult, bool) {
	fetch, err := o.source.Fetch(ctx, season)
	if err != nil {
		report.add(phaseDataUnderstanding, false, fmt.Sprintf("source fetch failed: %v", err), nil)
		return nil, false
	}

	if fetch.Stale {
		report.warn(fmt.Sprintf("serving stale cache for season %s: %s", season, fetch.Message))
	}

	detail := map[string]interface{}{
		"rows":          len(fetch.Table.Rows),
		"columns":       len(fetch.Table.Header),
		"skipped_rows":  fetch.Table.Skipped,
		"from_cache":    fetch.FromCache,
		"stale":         fetch.Stale,
		"file_size_mb":  fetch.SizeMB,
		"quality_score": initialQuality(fetch.Table),
	}

	if len(fetch.Table.Rows) == 0 {
		report.add(phaseDataUnderstanding, false, "no rows extracted from source", detail)
		return nil, false
	}

	report.add(phaseDataUnderstanding, true, fmt.Sprintf("extracted %d rows", len(fetch.Table.Rows)), detail)
	return fetch, true
}

// dataPreparation cleans the table and reconciles every record against the
// player registry
func (o *Orchestrator) dataPreparation(ctx context.Context, season string, threshold int, table *sourcecache.Table, report *Report) ([]*models.ProfessionalStatsInput, *match.Result, *transform.Report, bool) {
	records, prep, err := o.normalizer.NormalizeTable(table, season)
	if err != nil {
		report.add(phaseDataPreparation, false, fmt.Sprintf("normalization failed: %v", err), nil)
		return nil, nil, nil, false
	}

	matcher, err := match.NewMatcher(threshold)
	if err != nil {
		report.add(phaseDataPreparation, false, fmt.Sprintf("invalid matcher threshold: %v", err), nil)
		return nil, nil, nil, false
	}

	registry, err := o.db.Players.ListProfessionals(ctx)
	if err != nil {
		report.add(phaseDataPreparation, false, fmt.Sprintf("failed to load player registry: %v", err), nil)
		return nil, nil, nil, false
	}

	result := matcher.Match(records, registry)
	exact, fuzzy, nomatch := result.Counts()

	matchRate := 0.0
	if len(records) > 0 {
		matchRate = float64(exact+fuzzy) / float64(len(records)) * 100
	}
	quality := finalQuality(prep.Completeness(), matchRate)
	if quality < qualityTarget {
		report.warn(fmt.Sprintf("data quality %.2f below target %.0f for season %s", quality, qualityTarget, season))
	}

	detail := map[string]interface{}{
		"clean_records": prep.CleanRecords,
		"dropped_no_id": prep.DroppedNoID,
		"coerced_cells": prep.CoercedCells,
		"exact_matches": exact,
		"fuzzy_matches": fuzzy,
		"no_matches":    nomatch,
		"match_rate":    round2(matchRate),
		"quality_score": quality,
	}
	if len(prep.UnknownPositions) > 0 {
		detail["unknown_positions"] = prep.UnknownPositions
	}

	msg := fmt.Sprintf("prepared %d records, matched %d (%.1f%%)", len(records), exact+fuzzy, matchRate)
	report.add(phaseDataPreparation, true, msg, detail)
	return records, result, prep, true
}

// modeling persists every matched record, binding newly resolved Wyscout
// identifiers along the way. Individual row failures are counted and the
// loop continues; only a wholesale load failure aborts.
func (o *Orchestrator) modeling(ctx context.Context, season string, records []*models.ProfessionalStatsInput, matches *match.Result, report *Report) (loaded, failures int, ok bool) {
	byID := make(map[int]*models.ProfessionalStatsInput, len(records))
	for _, rec := range records {
		byID[rec.WyscoutID] = rec
	}

	matched := matches.Matched()
	linked := 0
	for _, m := range matched {
		if err := ctx.Err(); err != nil {
			report.add(phaseModeling, false, fmt.Sprintf("modeling interrupted: %v", err), nil)
			return loaded, failures, false
		}

		rec, found := byID[m.WyscoutID]
		if !found {
			log.Warn().Int("wyscout_id", m.WyscoutID).Str("player", m.RecordName).Msg("Matched record missing from clean set")
			failures++
			continue
		}

		if m.MatchType != match.MatchTypeWyscoutID && !m.Player.HasExternalID() {
			if err := o.db.Players.LinkWyscoutID(ctx, m.Player.ID, m.WyscoutID); err != nil {
				log.Warn().Err(err).Int("player_id", m.Player.ID).Msg("Failed to bind Wyscout id")
			} else {
				linked++
			}
		}

		stats := rec.ToStats(m.Player.ID)
		applyBusinessRules(stats)

		if err := o.db.Stats.Upsert(ctx, stats); err != nil {
			log.Error().Err(err).Str("player", m.RecordName).Str("season", season).Msg("Failed to upsert season stats")
			failures++
			continue
		}
		loaded++
	}

	detail := map[string]interface{}{
		"loaded":     loaded,
		"errors":     failures,
		"ids_linked": linked,
		"unmatched":  len(matches.NoMatch),
	}

	if loaded == 0 && len(matched) > 0 {
		report.add(phaseModeling, false, fmt.Sprintf("no records could be loaded (%d attempted)", len(matched)), detail)
		return loaded, failures, false
	}

	report.add(phaseModeling, true, fmt.Sprintf("loaded %d records (%d errors)", loaded, failures), detail)
	return loaded, failures, true
}

// evaluation computes scores for the matched players and pulls simple
// league insights. Per-player failures warn, the phase itself succeeds.
func (o *Orchestrator) evaluation(ctx context.Context, season string, matches *match.Result, computeScores, force bool, report *Report) int {
	if !computeScores {
		report.add(phaseEvaluation, true, "score computation skipped", nil)
		return 0
	}

	scored := 0
	scoreFailures := 0
	var total float64
	for _, m := range matches.Matched() {
		row, err := o.engine.GetOrCompute(ctx, m.Player.ID, season, force)
		if err != nil {
			scoreFailures++
			log.Warn().Err(err).Int("player_id", m.Player.ID).Str("season", season).Msg("Score computation failed")
			continue
		}
		scored++
		if row.PDIOverall.Valid {
			total += row.PDIOverall.Float64
		}
	}

	detail := map[string]interface{}{
		"players_scored": scored,
		"score_failures": scoreFailures,
	}
	if scored > 0 {
		detail["avg_pdi"] = round2(total / float64(scored))
	}

	if top, err := o.engine.Rankings(ctx, season, "", 5); err == nil && len(top) > 0 {
		performers := make([]map[string]interface{}, 0, len(top))
		for _, r := range top {
			performers = append(performers, map[string]interface{}{
				"player_id": r.PlayerID,
				"name":      r.PlayerName,
				"pdi":       r.PDIOverall,
				"tier":      score.Tier(r.PDIOverall),
			})
		}
		detail["top_performers"] = performers
	}
	if averages, err := o.engine.PositionAverages(ctx, season); err == nil && len(averages) > 0 {
		detail["position_averages"] = averages
	}

	report.add(phaseEvaluation, true, fmt.Sprintf("scored %d players (%d failures)", scored, scoreFailures), detail)
	return scored
}

// deployment records the source file identity and settles the import state.
// A season that was processed before lands on "updated" rather than
// "completed", so refreshes stay distinguishable from first imports.
func (o *Orchestrator) deployment(ctx context.Context, season string, fetch *sourcecache.FetchResult, counters models.ImportCounters, wasProcessed bool, report *Report) (string, bool) {
	if err := o.db.Seasons.SetFileInfo(ctx, season, fetch.SourceURL, fetch.Hash, fetch.SizeMB); err != nil {
		report.add(phaseDeployment, false, fmt.Sprintf("failed to record source file info: %v", err), nil)
		return "", false
	}

	importLog := fmt.Sprintf("imported %d/%d records, %d matched, %d unmatched, %d errors",
		counters.Imported, counters.Total, counters.Matched, counters.Unmatched, counters.Errors)

	status := models.ImportStatusCompleted
	mark := o.db.Seasons.MarkCompleted
	if wasProcessed {
		status = models.ImportStatusUpdated
		mark = o.db.Seasons.MarkUpdated
	}
	if err := mark(ctx, season, counters, importLog); err != nil {
		report.add(phaseDeployment, false, fmt.Sprintf("failed to mark season %s: %v", status, err), nil)
		return "", false
	}

	detail := map[string]interface{}{
		"status":       status,
		"file_hash":    fetch.Hash,
		"file_size_mb": fetch.SizeMB,
	}
	report.add(phaseDeployment, true, fmt.Sprintf("season marked %s", status), detail)

	return fmt.Sprintf("pipeline completed for %s: %s", season, importLog), true
}

// applyBusinessRules resolves the team fallback chain and the default
// competition for rows that arrive without one
func applyBusinessRules(stats *models.ProfessionalStats) {
	if stats.Team == "" {
		if stats.TeamWithinTimeframe.Valid && stats.TeamWithinTimeframe.String != "" {
			stats.Team = stats.TeamWithinTimeframe.String
		} else {
			stats.Team = freeAgentTeam
		}
	}
	if stats.Competition == "" {
		stats.Competition = defaultCompetition
	}
}
