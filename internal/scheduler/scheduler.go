package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/config"
	"thaileague/pipeline/internal/metrics"
	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/pipeline"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/sourcecache"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Maintenance actions, one per phase of the Thai League calendar.
const (
	ActionSearchNewSeason = "search_new_season"
	ActionUpdateCurrent   = "update_current"
	ActionSeasonEnded     = "season_ended"
)

// DetermineAction maps a calendar month to the maintenance action for that
// point in the Thai League year. June is the gap after the season ends,
// July and August are when the next season's file appears upstream, and in
// every other month the current season's file keeps growing.
func DetermineAction(month time.Month) string {
	switch {
	case month == time.June:
		return ActionSeasonEnded
	case month == time.July || month == time.August:
		return ActionSearchNewSeason
	default:
		return ActionUpdateCurrent
	}
}

// UpdateReport describes the outcome of one scheduled maintenance run.
// When the run triggered a season import, Pipeline carries the full phase
// trace of that import.
type UpdateReport struct {
	Action         string           `json:"action"`
	Season         string           `json:"season,omitempty"`
	TriggeredRun   bool             `json:"triggered_run"`
	Detail         string           `json:"detail"`
	Pipeline       *pipeline.Report `json:"pipeline,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
}

// Scheduler runs the recurring maintenance jobs: a weekly smart update that
// picks its action from the calendar, a daily source change check, and a
// registry metrics heartbeat.
type Scheduler struct {
	cfg    *config.Config
	db     *repository.Database
	source *sourcecache.Cache
	orch   *pipeline.Orchestrator

	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, db *repository.Database, source *sourcecache.Cache, orch *pipeline.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		db:       db,
		source:   source,
		orch:     orch,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start registers the cron entries and launches the heartbeat loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.WeeklyUpdateCron, func() {
		log.Info().Msg("Running weekly smart update...")
		if _, err := s.ExecuteScheduledUpdate(ctx); err != nil {
			log.Error().Err(err).Msg("Weekly smart update failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule weekly update: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.HashCheckCron, func() {
		log.Info().Msg("Running daily source change check...")
		if err := s.checkCurrentSeasonHash(ctx); err != nil {
			log.Error().Err(err).Msg("Daily source change check failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule hash check: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("weekly_update", s.cfg.WeeklyUpdateCron).
		Str("hash_check", s.cfg.HashCheckCron).
		Msg("Maintenance jobs scheduled")

	s.ticker = time.NewTicker(s.cfg.HeartbeatInterval)
	log.Info().
		Dur("interval", s.cfg.HeartbeatInterval).
		Msg("Registry heartbeat started")

	go s.run(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// run drives the heartbeat ticker until the context or the scheduler stops
func (s *Scheduler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping scheduler loop")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping scheduler loop")
			return
		case <-s.ticker.C:
			s.heartbeat(ctx)
		}
	}
}

// heartbeat refreshes the registry and connection pool gauges
func (s *Scheduler) heartbeat(ctx context.Context) {
	stat := s.db.Pool.Stat()
	metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())

	players, err := s.db.Players.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Heartbeat player count failed")
		return
	}

	linked, err := s.db.Players.CountLinked(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Heartbeat linked player count failed")
		return
	}

	seasons, err := s.db.Seasons.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Heartbeat season list failed")
		return
	}

	metrics.UpdateRegistryStats(int64(players), int64(len(seasons)))

	log.Debug().
		Int("players", players).
		Int("linked", linked).
		Int("seasons", len(seasons)).
		Msg("Registry heartbeat")
}

// ExecuteScheduledUpdate picks the maintenance action for the current month
// and carries it out. The decision is stateless: everything it needs comes
// from the calendar and the season import records.
func (s *Scheduler) ExecuteScheduledUpdate(ctx context.Context) (*UpdateReport, error) {
	started := s.now()
	action := DetermineAction(started.Month())
	report := &UpdateReport{Action: action, StartedAt: started.UTC()}

	log.Info().Str("action", action).Msg("Scheduled update starting")

	var err error
	switch action {
	case ActionSearchNewSeason:
		err = s.searchNewSeason(ctx, report)
	case ActionUpdateCurrent:
		err = s.updateCurrentSeason(ctx, report)
	default:
		report.Detail = "season ended, no updates"
	}

	report.ElapsedSeconds = round2(time.Since(started).Seconds())

	if err != nil {
		metrics.RecordScheduledUpdate(action, "error")
		return report, err
	}

	metrics.RecordScheduledUpdate(action, "ok")
	log.Info().
		Str("action", action).
		Str("detail", report.Detail).
		Bool("triggered_run", report.TriggeredRun).
		Float64("elapsed_seconds", report.ElapsedSeconds).
		Msg("Scheduled update finished")

	return report, nil
}

// searchNewSeason looks for a published season file that has never been
// imported and, when the registry has linked professionals worth matching,
// runs the full pipeline against it.
func (s *Scheduler) searchNewSeason(ctx context.Context, report *UpdateReport) error {
	imports, err := s.db.Seasons.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list season imports: %w", err)
	}

	unseen := unseenSeason(client.KnownSeasons(), imports)
	if unseen == "" {
		report.Detail = "no unseen seasons available"
		return nil
	}
	report.Season = unseen

	professionals, err := s.db.Players.ListProfessionals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list professional players: %w", err)
	}

	eligible := eligibleCount(professionals)
	if eligible == 0 {
		report.Detail = fmt.Sprintf("season %s available but no linked professional players to match", unseen)
		log.Warn().Str("season", unseen).Msg("Skipping new season, registry has no linked professionals")
		return nil
	}

	log.Info().
		Str("season", unseen).
		Int("eligible_players", eligible).
		Msg("Importing newly available season")

	ok, message, pipelineReport := s.orch.Execute(ctx, unseen, s.cfg.MatchThreshold, true, true)
	report.TriggeredRun = true
	report.Detail = message
	report.Pipeline = pipelineReport
	if !ok {
		return fmt.Errorf("failed to import season %s: %s", unseen, message)
	}

	return nil
}

// updateCurrentSeason reimports the in-season file when its upstream content
// hash no longer matches the one recorded at the last import.
func (s *Scheduler) updateCurrentSeason(ctx context.Context, report *UpdateReport) error {
	current := currentSeason(client.KnownSeasons(), s.now())
	if current == "" {
		report.Detail = "no current season in the known range"
		return nil
	}
	report.Season = current

	knownHash, err := s.db.Seasons.FileHash(ctx, current)
	if err != nil {
		return fmt.Errorf("failed to read recorded file hash: %w", err)
	}

	changed, remoteHash, err := s.source.HasUpdate(ctx, current, knownHash)
	if err != nil {
		return fmt.Errorf("failed to run change check: %w", err)
	}

	if !changed {
		report.Detail = fmt.Sprintf("season %s unchanged upstream", current)
		return nil
	}

	log.Info().
		Str("season", current).
		Str("remote_hash", remoteHash).
		Msg("Source file changed, reimporting current season")

	if err := s.source.ClearCache(current); err != nil {
		log.Warn().Err(err).Str("season", current).Msg("Failed to clear season cache before reimport")
	}

	ok, message, pipelineReport := s.orch.Execute(ctx, current, s.cfg.MatchThreshold, true, true)
	report.TriggeredRun = true
	report.Detail = message
	report.Pipeline = pipelineReport
	if !ok {
		return fmt.Errorf("failed to update season %s: %s", current, message)
	}

	return nil
}

// checkCurrentSeasonHash is the daily change probe. Outside the in-season
// window it does nothing; inside it, it behaves like an update_current run
// and reimports only on a hash change.
func (s *Scheduler) checkCurrentSeasonHash(ctx context.Context) error {
	action := DetermineAction(s.now().Month())
	if action != ActionUpdateCurrent {
		log.Debug().Str("action", action).Msg("Skipping daily change check outside the season window")
		return nil
	}

	report := &UpdateReport{Action: ActionUpdateCurrent, StartedAt: s.now().UTC()}
	if err := s.updateCurrentSeason(ctx, report); err != nil {
		metrics.RecordScheduledUpdate("hash_check", "error")
		return err
	}

	metrics.RecordScheduledUpdate("hash_check", "ok")
	log.Info().
		Str("detail", report.Detail).
		Bool("triggered_run", report.TriggeredRun).
		Msg("Daily change check finished")

	return nil
}

// unseenSeason returns the oldest published season with no completed import,
// or "" when every published season has been imported.
func unseenSeason(available []string, imports []*models.SeasonImport) string {
	done := make(map[string]bool, len(imports))
	for _, imp := range imports {
		if imp.IsCompleted() {
			done[imp.Season] = true
		}
	}

	for _, season := range available {
		if !done[season] {
			return season
		}
	}
	return ""
}

// currentSeason returns the latest published season whose start year is the
// current or prior calendar year, or "" when none qualifies.
func currentSeason(available []string, now time.Time) string {
	var current string
	for _, season := range available {
		if models.IsCurrentSeason(season, now) {
			current = season
		}
	}
	return current
}

// eligibleCount counts the professionals already bound to a Wyscout ID
func eligibleCount(players []*models.Player) int {
	n := 0
	for _, p := range players {
		if p.HasExternalID() {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
