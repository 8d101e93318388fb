package score

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/transform"
)

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func ni(v int32) sql.NullInt32 {
	return sql.NullInt32{Int32: v, Valid: true}
}

func ns(v string) sql.NullString {
	return sql.NullString{String: v, Valid: true}
}

func forwardStats() *models.ProfessionalStats {
	return &models.ProfessionalStats{
		PlayerID:        7,
		Season:          "2023-24",
		PrimaryPosition: ns("CF"),

		MatchesPlayed: ni(30),
		MinutesPlayed: ni(2700),
		YellowCards:   ni(6),

		PassAccuracyPct: nf(80),
		DuelsWonPct:     nf(50),

		GoalsPer90:        nf(0.6),
		AssistsPer90:      nf(0.25),
		ExpectedGoals:     nf(8.4),
		GoalConversionPct: nf(30),
		TouchesInBoxPer90: nf(5),
		ShotAssistsPer90:  nf(2),

		PassesPer90:                  nf(24),
		ProgressivePassesAccuracyPct: nf(70),
		KeyPassesPer90:               nf(0.8),
	}
}

func TestUniversalScore(t *testing.T) {
	s := forwardStats()

	// pass 80*1.2=96 (.30), duels 50*1.5=75 (.25),
	// activity 2700/30/90*100=100 (.20), discipline 100-(6/30)*50=90 (.25)
	got := universalScore(s)
	assert.InDelta(t, 90.05, got, 0.001)
}

func TestUniversalScore_MissingInputsAreNeutral(t *testing.T) {
	// Only discipline remains, starting perfect
	got := universalScore(&models.ProfessionalStats{})
	assert.InDelta(t, 100.0, got, 0.001)
}

func TestDefensiveZone(t *testing.T) {
	s := &models.ProfessionalStats{
		DefensiveActionsPer90: nf(9),
		DefensiveDuelsWonPct:  nf(60),
		AerialDuelsWonPct:     nf(55),
	}

	// actions 9*4=36 (.40), duels 60*1.3=78 (.35), aerial 55*1.2=66 (.25)
	got := defensiveZone(s)
	assert.InDelta(t, 36*0.40+78*0.35+66*0.25, got, 0.001)
}

func TestDefensiveZone_NoInputs(t *testing.T) {
	assert.InDelta(t, neutralScore, defensiveZone(&models.ProfessionalStats{}), 0.001)
}

func TestForwardSpecific(t *testing.T) {
	s := forwardStats()

	// conversion 30*2=60 (.40), box 5*8=40 (.30), shot assists 2*15=30 (.30)
	got := forwardSpecific(s)
	assert.InDelta(t, 45.0, got, 0.001)
}

func TestScoreCapsAtHundred(t *testing.T) {
	s := &models.ProfessionalStats{
		GoalsPer90:    nf(4),  // 4*50 caps at 100
		AssistsPer90:  nf(3),  // 3*40 caps at 100
		ExpectedGoals: nf(20), // 20*20 caps at 100
	}
	assert.InDelta(t, 100.0, offensiveZone(s), 0.001)
}

func TestRoleFor(t *testing.T) {
	tests := []struct {
		position string
		role     string
	}{
		{"GK", "GK"},
		{"RCB3", "CB"},
		{"lwb", "FB"},
		{"LDMF", "DMF"},
		{"RCMF", "CMF"},
		{"LAMF", "AMF"},
		{"RW", "W"},
		{"SS", "CF"},
		{"", "CMF"},
		{"SWEEPER", "CMF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.role, roleFor(tt.position), "position %q", tt.position)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	engine := NewEngine(nil, transform.NewPositionTable())

	first := engine.Compute(forwardStats())
	second := engine.Compute(forwardStats())

	assert.Equal(t, first.PDIOverall.Float64, second.PDIOverall.Float64)
	assert.Equal(t, first.PDIUniversal.Float64, second.PDIUniversal.Float64)
	assert.Equal(t, first.PDIZone.Float64, second.PDIZone.Float64)
	assert.Equal(t, first.PDIPositionSpecific.Float64, second.PDIPositionSpecific.Float64)
}

func TestCompute_BlendAndMetadata(t *testing.T) {
	engine := NewEngine(nil, transform.NewPositionTable())

	m := engine.Compute(forwardStats())

	require.True(t, m.PDIOverall.Valid)
	blend := m.PDIUniversal.Float64*models.WeightUniversal +
		m.PDIZone.Float64*models.WeightZone +
		m.PDIPositionSpecific.Float64*models.WeightPositionSpecific
	assert.InDelta(t, models.ClampPDI(blend), m.PDIOverall.Float64, 0.02)

	assert.Equal(t, 7, m.PlayerID)
	assert.Equal(t, "2023-24", m.Season)
	assert.Equal(t, transform.GroupFWD, m.PositionAnalyzed.String)
	assert.Equal(t, modelVersion, m.ModelVersion.String)
	assert.True(t, m.LastCalculated.Valid)
}

func TestCompute_BoundsHoldForAllZeroInput(t *testing.T) {
	engine := NewEngine(nil, transform.NewPositionTable())

	empty := &models.ProfessionalStats{
		PlayerID: 1,
		Season:   "2023-24",
	}
	m := engine.Compute(empty)

	assert.GreaterOrEqual(t, m.PDIOverall.Float64, models.MinPDI)
	assert.LessOrEqual(t, m.PDIOverall.Float64, models.MaxPDI)
}

func TestTier(t *testing.T) {
	tests := []struct {
		score float64
		tier  string
	}{
		{91.2, TierElite},
		{85, TierElite},
		{84.9, TierStrong},
		{70, TierStrong},
		{55, TierAverage},
		{40, TierDeveloping},
		{39.9, TierStruggling},
		{0, TierStruggling},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, Tier(tt.score), "score %.1f", tt.score)
	}
}
