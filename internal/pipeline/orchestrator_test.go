package pipeline

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/score"
	"thaileague/pipeline/internal/sourcecache"
	"thaileague/pipeline/internal/transform"
)

func TestExecute_UnknownSeasonAborts(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, nil, nil)

	success, msg, report := o.Execute(context.Background(), "1999-00", 85, false, true)

	assert.False(t, success)
	assert.Contains(t, msg, "not supported")
	require.Len(t, report.Phases, 1)
	assert.Equal(t, phaseBusinessUnderstanding, report.Phases[0].Phase)
	assert.False(t, report.Phases[0].Success)
}

// Integration coverage below drives the full pipeline against a live
// database and a fake source host.
// Run with: TEST_DATABASE=1 go test -v ./internal/pipeline/...

const seasonCSV = `Player,Full name,Wyscout id,Team,Team within selected timeframe,Competition,Age,Birthday,Primary position,Foot,Matches played,Minutes played,Goals,Assists,"Shots on target, %","Goals per 90","Passes accuracy, %",xG,On loan
J. Doe,John Doe,941001,Bangkok United,Bangkok United,Thai League 1,24,1999-03-14,CF,right,28,2500,12,4,52.5,0.43,78.2,9.1,False
S. Test,Somchai Testarak,941002,,Buriram United,,27,1996-07-02,CMF,left,30,2700,3,6,40.0,0.1,85.4,2.2,False
U. Nobody,Unknown Nobody,941003,Chonburi FC,Chonburi FC,Thai League 1,22,2001-11-20,RW,right,15,900,2,1,38.5,0.2,70.1,1.8,False
`

type pipelineHarness struct {
	db     *repository.Database
	orch   *Orchestrator
	season string
	ctx    context.Context

	playerBound  *models.Player
	playerByName *models.Player
}

func setupPipeline(t *testing.T) *pipelineHarness {
	t.Helper()
	ctx := context.Background()

	if os.Getenv("TEST_DATABASE") == "" {
		t.Skip("TEST_DATABASE not set, skipping pipeline integration test")
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     "localhost",
		Port:     "5432",
		Database: "thaileague_test",
		User:     "thaileague_user",
		Password: "thaileague_password",
		SSLMode:  "disable",
	})
	require.NoError(t, err, "Failed to connect to test database")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(seasonCSV))
	}))
	t.Cleanup(server.Close)

	source := sourcecache.New(
		client.NewClient(server.URL, "testcommit", 5*time.Second, 2),
		t.TempDir(),
		24*time.Hour,
	)

	positions := transform.NewPositionTable()
	h := &pipelineHarness{
		db:     db,
		orch:   NewOrchestrator(db, source, transform.NewNormalizer(positions), score.NewEngine(db, positions), nil),
		season: "2023-24",
		ctx:    ctx,
	}

	// Start from a clean slate even if an earlier run crashed midway
	h.cleanupRows(t)

	h.playerBound = &models.Player{
		FullName:       "John Doe",
		IsProfessional: true,
		WyscoutID:      sql.NullInt32{Int32: 941001, Valid: true},
	}
	require.NoError(t, db.Players.Create(ctx, h.playerBound))

	h.playerByName = &models.Player{
		FullName:       "Somchai Testarak",
		IsProfessional: true,
	}
	require.NoError(t, db.Players.Create(ctx, h.playerByName))

	t.Cleanup(func() {
		h.cleanupRows(t)
		if h.playerBound.ID != 0 {
			db.Players.Delete(ctx, h.playerBound.ID)
		}
		if h.playerByName.ID != 0 {
			db.Players.Delete(ctx, h.playerByName.ID)
		}
		db.Close()
	})

	return h
}

func (h *pipelineHarness) cleanupRows(t *testing.T) {
	t.Helper()

	_, err := h.db.Stats.DeleteBySeason(h.ctx, h.season)
	require.NoError(t, err)
	_, err = h.db.MLMetrics.DeleteBySeason(h.ctx, h.season)
	require.NoError(t, err)

	// The season row is never deleted, only re-marked
	_, err = h.db.Seasons.GetOrCreate(h.ctx, h.season)
	require.NoError(t, err)
	require.NoError(t, h.db.Seasons.Reset(h.ctx, h.season))

	for _, leftover := range []int{941001, 941002} {
		if p, err := h.db.Players.GetByWyscoutID(h.ctx, leftover); err == nil {
			h.db.Players.Delete(h.ctx, p.ID)
		}
	}
}

func TestExecute_FullRun(t *testing.T) {
	h := setupPipeline(t)

	success, msg, report := h.orch.Execute(h.ctx, h.season, 85, false, true)

	require.True(t, success, "pipeline should complete: %s", msg)
	assert.Contains(t, msg, "pipeline completed")
	require.Len(t, report.Phases, 6)
	for _, phase := range report.Phases {
		assert.True(t, phase.Success, "phase %s should succeed: %s", phase.Phase, phase.Message)
	}

	assert.Equal(t, 3, report.FinalStats["total_extracted"])
	assert.Equal(t, 3, report.FinalStats["total_prepared"])
	assert.Equal(t, 2, report.FinalStats["total_loaded"])
	assert.Equal(t, 2, report.FinalStats["exact_matches"])
	assert.Equal(t, 0, report.FinalStats["fuzzy_matches"])
	assert.Equal(t, 1, report.FinalStats["no_matches"])
	assert.Equal(t, 2, report.FinalStats["scores_computed"])

	// Stats landed with business rules applied
	doe, err := h.db.Stats.GetByWyscoutAndSeason(h.ctx, 941001, h.season)
	require.NoError(t, err)
	require.NotNil(t, doe)
	assert.Equal(t, "Bangkok United", doe.Team)
	assert.Equal(t, "Thai League 1", doe.Competition)

	somchai, err := h.db.Stats.GetByWyscoutAndSeason(h.ctx, 941002, h.season)
	require.NoError(t, err)
	require.NotNil(t, somchai)
	assert.Equal(t, "Buriram United", somchai.Team, "empty team falls back to timeframe team")
	assert.Equal(t, "Thai League", somchai.Competition, "empty competition gets the default")

	// The exact-name match bound its Wyscout id
	bound, err := h.db.Players.GetByID(h.ctx, h.playerByName.ID)
	require.NoError(t, err)
	assert.True(t, bound.HasExternalID())
	assert.Equal(t, int32(941002), bound.WyscoutID.Int32)

	// Scores were computed for both matched players
	for _, playerID := range []int{h.playerBound.ID, h.playerByName.ID} {
		row, err := h.db.MLMetrics.Get(h.ctx, playerID, h.season)
		require.NoError(t, err)
		require.NotNil(t, row, "score row for player %d", playerID)
		assert.True(t, row.PDIOverall.Valid)
		assert.GreaterOrEqual(t, row.PDIOverall.Float64, models.MinPDI)
		assert.LessOrEqual(t, row.PDIOverall.Float64, models.MaxPDI)
	}

	// Import state settled as completed with counters
	state, err := h.db.Seasons.GetBySeason(h.ctx, h.season)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, state.Status)
	assert.Equal(t, int32(3), state.TotalRecords.Int32)
	assert.Equal(t, int32(2), state.ImportedRecords.Int32)
	assert.Equal(t, int32(2), state.MatchedPlayers.Int32)
	assert.Equal(t, int32(1), state.UnmatchedPlayers.Int32)
	assert.True(t, state.FileHash.Valid)
}

func TestExecute_AlreadyProcessedThenForceReload(t *testing.T) {
	h := setupPipeline(t)

	success, _, _ := h.orch.Execute(h.ctx, h.season, 85, false, false)
	require.True(t, success)

	// Second run without force aborts in phase one
	success, msg, report := h.orch.Execute(h.ctx, h.season, 85, false, false)
	assert.False(t, success)
	assert.Contains(t, msg, "already processed")
	require.Len(t, report.Phases, 1)

	// Force reload runs all six phases and lands on "updated"
	success, _, report = h.orch.Execute(h.ctx, h.season, 85, true, false)
	require.True(t, success)
	assert.Len(t, report.Phases, 6)

	state, err := h.db.Seasons.GetBySeason(h.ctx, h.season)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusUpdated, state.Status)
}

func TestImportStatusAndSummary(t *testing.T) {
	h := setupPipeline(t)

	status, err := h.orch.ImportStatus(h.ctx, h.season)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusPending, status["status"])
	assert.Equal(t, true, status["known"])

	success, _, _ := h.orch.Execute(h.ctx, h.season, 85, false, false)
	require.True(t, success)

	status, err = h.orch.ImportStatus(h.ctx, h.season)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, status["status"])
	assert.Equal(t, 2, status["imported_records"])
	assert.Equal(t, 2, status["stats_rows"])
	assert.NotNil(t, status["cache_file"], "fetched season should be cached on disk")

	summary, err := h.orch.ImportSummary(h.ctx)
	require.NoError(t, err)
	byStatus := summary["by_status"].(map[string]int)
	assert.GreaterOrEqual(t, byStatus[models.ImportStatusCompleted], 1)
}

func TestCleanupAndReprocess(t *testing.T) {
	h := setupPipeline(t)

	success, _, _ := h.orch.Execute(h.ctx, h.season, 85, false, true)
	require.True(t, success)

	success, msg, report := h.orch.CleanupAndReprocess(h.ctx, h.season)
	require.True(t, success, "reprocess should complete: %s", msg)
	assert.Len(t, report.Phases, 6)

	count, err := h.db.Stats.CountBySeason(h.ctx, h.season)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "stats should be rebuilt after cleanup")

	state, err := h.db.Seasons.GetBySeason(h.ctx, h.season)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, state.Status, "reset state lands on completed, not updated")
}
