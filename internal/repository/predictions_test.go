package repository

import (
	"testing"

	"thaileague/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePrediction(t *testing.T) {
	valid := &models.PDIPrediction{
		PlayerID:      1,
		Season:        "2023-24",
		TargetSeason:  "2024-25",
		YearsAhead:    1,
		Estimate:      65.0,
		IntervalLower: 61.3,
		IntervalUpper: 68.7,
		ModelName:     "ensemble",
		ModelMAE:      3.692,
	}
	assert.NoError(t, validatePrediction(valid), "Well-formed prediction should validate")

	missing := *valid
	missing.ModelName = ""
	assert.Error(t, validatePrediction(&missing), "Model name is required")

	outOfRange := *valid
	outOfRange.Estimate = 120.0
	assert.Error(t, validatePrediction(&outOfRange), "Estimate must stay in the PDI domain")

	badInterval := *valid
	badInterval.IntervalLower = 70.0
	assert.Error(t, validatePrediction(&badInterval), "Interval must contain the estimate")

	noHorizon := *valid
	noHorizon.YearsAhead = 0
	assert.Error(t, validatePrediction(&noHorizon), "Horizon must be positive")
}

func TestPredictionRepository_CreateAndLatest(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	player := seedTestPlayer(t, ctx, db, "Suphanat Mueanta")
	defer db.Players.Delete(ctx, player.ID)

	pred := &models.PDIPrediction{
		PlayerID:      player.ID,
		Season:        "2023-24",
		TargetSeason:  "2024-25",
		YearsAhead:    1,
		Estimate:      71.2,
		IntervalLower: 67.5,
		IntervalUpper: 74.9,
		ModelName:     "ensemble",
		ModelMAE:      3.692,
	}

	err := db.Predictions.Create(ctx, pred)
	require.NoError(t, err, "Should insert prediction")
	assert.NotZero(t, pred.ID, "Should assign an ID")

	latest, err := db.Predictions.Latest(ctx, player.ID, "2023-24", 1)
	require.NoError(t, err, "Should fetch latest prediction")
	require.NotNil(t, latest, "Prediction should exist")
	assert.Equal(t, 71.2, latest.Estimate)
	assert.Equal(t, "ensemble", latest.ModelName)

	lower, upper := latest.Interval()
	assert.Equal(t, 67.5, lower)
	assert.Equal(t, 74.9, upper)

	history, err := db.Predictions.ListByPlayer(ctx, player.ID, 10)
	require.NoError(t, err, "Should list history")
	assert.Len(t, history, 1)
}

func TestPredictionRepository_LatestMissing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	latest, err := db.Predictions.Latest(ctx, 99999999, "2023-24", 1)
	require.NoError(t, err, "Missing prediction is not an error")
	assert.Nil(t, latest, "Missing prediction returns nil")
}
