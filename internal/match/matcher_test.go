package match

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thaileague/pipeline/internal/models"
)

func registryPlayer(id int, fullName, knownName string, wyscoutID int) *models.Player {
	p := &models.Player{ID: id, FullName: fullName, IsProfessional: true}
	if knownName != "" {
		p.KnownName = sql.NullString{String: knownName, Valid: true}
	}
	if wyscoutID != 0 {
		p.WyscoutID = sql.NullInt32{Int32: int32(wyscoutID), Valid: true}
	}
	return p
}

func seasonRecord(wyscoutID int, playerName, fullName, season string) *models.ProfessionalStatsInput {
	return &models.ProfessionalStatsInput{
		WyscoutID:  wyscoutID,
		PlayerName: playerName,
		FullName:   fullName,
		Season:     season,
	}
}

func TestNewMatcher_ThresholdValidation(t *testing.T) {
	_, err := NewMatcher(101)
	assert.Error(t, err, "Threshold above 100 is invalid")

	_, err = NewMatcher(-1)
	assert.Error(t, err, "Negative threshold is invalid")

	m, err := NewMatcher(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, m.threshold, "Zero means default")
}

func TestMatch_ByWyscoutID(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	registry := []*models.Player{
		registryPlayer(1, "Chanathip Songkrasin", "Chanathip", 415863),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(415863, "C. Songkrasin", "Chanathip Songkrasin", "2023-24"),
	}

	result := m.Match(records, registry)

	require.Len(t, result.Exact, 1)
	assert.Empty(t, result.Fuzzy)
	assert.Empty(t, result.NoMatch)
	assert.Equal(t, MatchTypeWyscoutID, result.Exact[0].MatchType)
	assert.Equal(t, 100, result.Exact[0].Confidence)
	assert.Equal(t, 1, result.Exact[0].Player.ID)
}

func TestMatch_ByExactName(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	// Registry player has no bound ID; the record name differs only by
	// diacritics and case.
	registry := []*models.Player{
		registryPlayer(2, "José Mendoza", "", 0),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(777, "JOSE MENDOZA", "Jose Mendoza", "2023-24"),
	}

	result := m.Match(records, registry)

	require.Len(t, result.Exact, 1)
	assert.Equal(t, MatchTypeExactName, result.Exact[0].MatchType)
	assert.Equal(t, 100, result.Exact[0].Confidence)
	assert.Equal(t, 2, result.Exact[0].Player.ID)
}

func TestMatch_FuzzySingleCandidate(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	registry := []*models.Player{
		registryPlayer(3, "Suphanat Mueanta", "", 0),
		registryPlayer(4, "Guilherme Bissoli", "", 0),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(888, "S. Mueanta", "Suphanat Mueanta Jr", "2023-24"),
	}

	result := m.Match(records, registry)

	require.Len(t, result.Fuzzy, 1, "One candidate above threshold binds")
	assert.Empty(t, result.NoMatch)
	assert.Equal(t, MatchTypeFuzzyName, result.Fuzzy[0].MatchType)
	assert.Equal(t, 3, result.Fuzzy[0].Player.ID)
	assert.GreaterOrEqual(t, result.Fuzzy[0].Confidence, 85)
}

func TestMatch_AmbiguousGoesToNoMatch(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	// Two registry players close enough to the same record
	registry := []*models.Player{
		registryPlayer(5, "Sittichok Kannoo", "", 0),
		registryPlayer(6, "Sittichok Kannod", "", 0),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(999, "Sittichok Kanno", "Sittichok Kanno", "2023-24"),
	}

	result := m.Match(records, registry)

	assert.Empty(t, result.Exact)
	assert.Empty(t, result.Fuzzy, "Ambiguity must never auto-bind")
	require.Len(t, result.NoMatch, 1)
	assert.Len(t, result.NoMatch[0].Candidates, 2, "Contenders kept for review")
	assert.Contains(t, result.NoMatch[0].Reason, "ambiguous")
	assert.GreaterOrEqual(t, result.NoMatch[0].Candidates[0].Confidence,
		result.NoMatch[0].Candidates[1].Confidence, "Candidates sorted by confidence")
}

func TestMatch_BelowThreshold(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	registry := []*models.Player{
		registryPlayer(7, "Completely Different", "", 0),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(1001, "Worachit Kanitsribampen", "Worachit Kanitsribampen", "2023-24"),
	}

	result := m.Match(records, registry)

	require.Len(t, result.NoMatch, 1)
	assert.Equal(t, "no candidate above threshold", result.NoMatch[0].Reason)
}

func TestMatch_DedupeKeepsLatestSeason(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	registry := []*models.Player{
		registryPlayer(8, "Teerasil Dangda", "", 415900),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(415900, "T. Dangda", "Teerasil Dangda", "2022-23"),
		seasonRecord(415900, "T. Dangda", "Teerasil Dangda", "2023-24"),
	}

	result := m.Match(records, registry)

	require.Len(t, result.Exact, 1, "Same identifier across seasons keeps one entry")
	assert.Equal(t, "2023-24", result.Exact[0].Season, "The chronologically latest season wins")
}

func TestMatch_EmptyNamesSkipped(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	registry := []*models.Player{
		registryPlayer(9, "Real Player", "", 0),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(1002, "***", "!!!", "2023-24"),
	}

	result := m.Match(records, registry)

	assert.Equal(t, 1, result.Skipped, "Unusable names are skipped, not bucketed")
	assert.Empty(t, result.Exact)
	assert.Empty(t, result.Fuzzy)
	assert.Empty(t, result.NoMatch)
}

func TestMatch_ResultHelpers(t *testing.T) {
	m, err := NewMatcher(85)
	require.NoError(t, err)

	registry := []*models.Player{
		registryPlayer(10, "Chanathip Songkrasin", "Chanathip", 415863),
		registryPlayer(11, "Suphanat Mueanta", "", 0),
	}
	records := []*models.ProfessionalStatsInput{
		seasonRecord(415863, "C. Songkrasin", "Chanathip Songkrasin", "2023-24"),
		seasonRecord(2000, "S. Muaenta", "Suphanat Muaenta", "2023-24"),
		seasonRecord(3000, "Nobody Known", "Nobody Known", "2023-24"),
	}

	result := m.Match(records, registry)

	exact, fuzzy, noMatch := result.Counts()
	assert.Equal(t, 1, exact)
	assert.Equal(t, 1, fuzzy)
	assert.Equal(t, 1, noMatch)

	matched := result.Matched()
	require.Len(t, matched, 2)
	assert.Equal(t, MatchTypeWyscoutID, matched[0].MatchType, "Exact matches come first")
}
