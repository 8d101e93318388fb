package scheduler

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thaileague/pipeline/internal/client"
	"thaileague/pipeline/internal/config"
	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/pipeline"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/score"
	"thaileague/pipeline/internal/sourcecache"
	"thaileague/pipeline/internal/transform"
)

func TestDetermineAction(t *testing.T) {
	tests := []struct {
		month  time.Month
		action string
	}{
		{time.January, ActionUpdateCurrent},
		{time.May, ActionUpdateCurrent},
		{time.June, ActionSeasonEnded},
		{time.July, ActionSearchNewSeason},
		{time.August, ActionSearchNewSeason},
		{time.September, ActionUpdateCurrent},
		{time.November, ActionUpdateCurrent},
		{time.December, ActionUpdateCurrent},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.action, DetermineAction(tc.month), "month %s", tc.month)
	}
}

func TestUnseenSeason(t *testing.T) {
	available := []string{"2020-21", "2021-22", "2022-23"}

	t.Run("nothing imported picks the oldest", func(t *testing.T) {
		assert.Equal(t, "2020-21", unseenSeason(available, nil))
	})

	t.Run("completed seasons are skipped", func(t *testing.T) {
		imports := []*models.SeasonImport{
			{Season: "2020-21", Status: models.ImportStatusCompleted},
			{Season: "2021-22", Status: models.ImportStatusUpdated},
		}
		assert.Equal(t, "2022-23", unseenSeason(available, imports))
	})

	t.Run("failed imports stay eligible", func(t *testing.T) {
		imports := []*models.SeasonImport{
			{Season: "2020-21", Status: models.ImportStatusFailed},
		}
		assert.Equal(t, "2020-21", unseenSeason(available, imports))
	})

	t.Run("everything imported", func(t *testing.T) {
		imports := []*models.SeasonImport{
			{Season: "2020-21", Status: models.ImportStatusCompleted},
			{Season: "2021-22", Status: models.ImportStatusCompleted},
			{Season: "2022-23", Status: models.ImportStatusCompleted},
		}
		assert.Equal(t, "", unseenSeason(available, imports))
	})
}

func TestCurrentSeason(t *testing.T) {
	available := []string{"2020-21", "2021-22", "2022-23", "2023-24", "2024-25"}

	// Early in the season both the prior and the current start year
	// qualify, the newest published season wins.
	nov := time.Date(2024, time.November, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-25", currentSeason(available, nov))

	// After the turn of the year only the prior start year qualifies.
	mar := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-25", currentSeason(available, mar))

	far := time.Date(2035, time.February, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "", currentSeason(available, far))
}

func TestEligibleCount(t *testing.T) {
	players := []*models.Player{
		{ID: 1, WyscoutID: sql.NullInt32{Int32: 100, Valid: true}},
		{ID: 2},
		{ID: 3, WyscoutID: sql.NullInt32{Int32: 200, Valid: true}},
	}

	assert.Equal(t, 2, eligibleCount(players))
	assert.Equal(t, 0, eligibleCount(nil))
}

func TestExecuteScheduledUpdate_SeasonEnded(t *testing.T) {
	s := NewScheduler(&config.Config{}, nil, nil, nil)
	s.now = func() time.Time { return time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC) }

	report, err := s.ExecuteScheduledUpdate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ActionSeasonEnded, report.Action)
	assert.False(t, report.TriggeredRun)
	assert.Contains(t, report.Detail, "season ended")
	assert.Nil(t, report.Pipeline)
}

// Integration coverage below drives scheduled updates against a live
// database and a fake source host.
// Run with: TEST_DATABASE=1 go test -v ./internal/scheduler/...

const scheduledCSV = `Player,Full name,Wyscout id,Team,Team within selected timeframe,Competition,Age,Birthday,Primary position,Foot,Matches played,Minutes played,Goals,Assists,"Shots on target, %","Goals per 90","Passes accuracy, %",xG,On loan
A. Yodsangwal,Anan Yodsangwal,951001,Port FC,Port FC,Thai League 1,25,1999-05-10,CF,right,20,1800,8,2,50.0,0.4,76.0,6.5,False
N. Kaewta,Nattapong Kaewta,951009,PT Prachuap,PT Prachuap,Thai League 1,23,2001-01-15,LW,left,12,700,1,0,33.3,0.13,69.0,0.9,False
`

type schedulerHarness struct {
	db    *repository.Database
	sched *Scheduler
	ctx   context.Context

	mu   sync.Mutex
	body string
}

func (h *schedulerHarness) setBody(body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.body = body
}

func setupScheduler(t *testing.T) *schedulerHarness {
	t.Helper()
	ctx := context.Background()

	if os.Getenv("TEST_DATABASE") == "" {
		t.Skip("TEST_DATABASE not set, skipping scheduler integration test")
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

	h := &schedulerHarness{db: db, ctx: ctx, body: scheduledCSV}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		w.Write([]byte(h.body))
	}))
	t.Cleanup(server.Close)

	source := sourcecache.New(
		client.NewClient(server.URL, "testcommit", 5*time.Second, 2),
		t.TempDir(),
		24*time.Hour,
	)

	positions := transform.NewPositionTable()
	orch := pipeline.NewOrchestrator(db, source, transform.NewNormalizer(positions), score.NewEngine(db, positions), nil)
	h.sched = NewScheduler(&config.Config{}, db, source, orch)

	h.cleanupRows(t)

	player := &models.Player{
		FullName:       "Anan Yodsangwal",
		IsProfessional: true,
		WyscoutID:      sql.NullInt32{Int32: 951001, Valid: true},
	}
	require.NoError(t, db.Players.Create(ctx, player))

	t.Cleanup(func() {
		h.cleanupRows(t)
		db.Close()
	})

	return h
}

func (h *schedulerHarness) cleanupRows(t *testing.T) {
	t.Helper()

	for _, season := range []string{"2020-21", "2024-25"} {
		_, err := h.db.Stats.DeleteBySeason(h.ctx, season)
		require.NoError(t, err)
		_, err = h.db.MLMetrics.DeleteBySeason(h.ctx, season)
		require.NoError(t, err)
		_, err = h.db.Seasons.GetOrCreate(h.ctx, season)
		require.NoError(t, err)
		require.NoError(t, h.db.Seasons.Reset(h.ctx, season))
	}

	for _, leftover := range []int{951001, 951009} {
		if p, err := h.db.Players.GetByWyscoutID(h.ctx, leftover); err == nil {
			h.db.Players.Delete(h.ctx, p.ID)
		}
	}
}

func TestExecuteScheduledUpdate_SearchImportsUnseenSeason(t *testing.T) {
	h := setupScheduler(t)
	h.sched.now = func() time.Time { return time.Date(2025, time.July, 20, 4, 0, 0, 0, time.UTC) }

	report, err := h.sched.ExecuteScheduledUpdate(h.ctx)

	require.NoError(t, err)
	assert.Equal(t, ActionSearchNewSeason, report.Action)
	assert.Equal(t, "2020-21", report.Season, "Oldest unimported season should be picked")
	assert.True(t, report.TriggeredRun)
	assert.Contains(t, report.Detail, "pipeline completed")
	require.NotNil(t, report.Pipeline)
	assert.Len(t, report.Pipeline.Phases, 6)

	state, err := h.db.Seasons.GetBySeason(h.ctx, "2020-21")
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, state.Status)

	loaded, err := h.db.Stats.CountBySeason(h.ctx, "2020-21")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded, "Only the linked player's row should import")
}

func TestExecuteScheduledUpdate_CurrentSeasonHashGate(t *testing.T) {
	h := setupScheduler(t)
	h.sched.now = func() time.Time { return time.Date(2024, time.November, 15, 4, 0, 0, 0, time.UTC) }

	// Record the served file's hash as already imported
	sum := md5.Sum([]byte(scheduledCSV))
	require.NoError(t, h.db.Seasons.SetFileInfo(h.ctx, "2024-25", "http://example/2024-25", hex.EncodeToString(sum[:]), 0.1))

	report, err := h.sched.ExecuteScheduledUpdate(h.ctx)

	require.NoError(t, err)
	assert.Equal(t, ActionUpdateCurrent, report.Action)
	assert.Equal(t, "2024-25", report.Season)
	assert.False(t, report.TriggeredRun, "Unchanged source should not trigger a run")
	assert.Contains(t, report.Detail, "unchanged")

	// Upstream content changes, the next check reimports
	updated := scheduledCSV + `S. Chanathip,Somsak Chanathip,951010,Chiangrai United,Chiangrai United,Thai League 1,21,2003-02-02,RB,right,10,600,0,1,0.0,0.0,71.2,0.2,False` + "\n"
	h.setBody(updated)

	report, err = h.sched.ExecuteScheduledUpdate(h.ctx)

	require.NoError(t, err)
	assert.True(t, report.TriggeredRun, "Changed source should trigger a reimport")
	assert.Contains(t, report.Detail, "pipeline completed")

	state, err := h.db.Seasons.GetBySeason(h.ctx, "2024-25")
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, state.Status)

	newSum := md5.Sum([]byte(updated))
	hash, err := h.db.Seasons.FileHash(h.ctx, "2024-25")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(newSum[:]), hash, "Deployment should record the new content hash")
}
