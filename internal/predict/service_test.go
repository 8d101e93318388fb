package predict

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"thaileague/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readyService builds a service backed by the ridge test artifact and no
// database or Redis, enough for the pure forecasting paths.
func readyService(t *testing.T) *Service {
	t.Helper()

	dir := t.TempDir()
	writeArtifact(t, dir, "pdi_model_ridge.json", ridgeArtifact)

	svc, err := NewService(nil, nil, dir, 0)
	require.NoError(t, err)
	require.True(t, svc.Ready())

	return svc
}

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestNewService_NotReady(t *testing.T) {
	svc, err := NewService(nil, nil, t.TempDir(), 0)
	require.NoError(t, err)

	assert.False(t, svc.Ready())
	assert.Nil(t, svc.Model())

	result, err := svc.Predict(context.Background(), 1, "2024-25", 1)
	require.NoError(t, err)
	assert.Nil(t, result)

	batch, err := svc.PredictBatch(context.Background(), []int{1, 2}, "2024-25", 1)
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestNewService_BrokenArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "pdi_model_ensemble.json", `{"schema_version": 9}`)

	svc, err := NewService(nil, nil, dir, 0)

	assert.Nil(t, svc)
	require.Error(t, err)
}

func TestPredict_RejectsBadHorizon(t *testing.T) {
	svc := readyService(t)

	_, err := svc.Predict(context.Background(), 1, "2024-25", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "years ahead")
}

func TestPredict_RejectsMalformedSeason(t *testing.T) {
	svc := readyService(t)

	_, err := svc.Predict(context.Background(), 1, "twenty-four", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "target season")
}

func TestForecast_HandComputed(t *testing.T) {
	svc := readyService(t)
	stats := &models.ProfessionalStats{
		PlayerID:        42,
		GoalsPer90:      nf(0.6),
		AssistsPer90:    nf(0.25),
		PassAccuracyPct: nf(80),
	}

	result := svc.forecast(stats, "2024-25", "2025-26", 1)

	// 0.6*20 + 0.25*10 + 80*0.5 + 10
	assert.InDelta(t, 64.5, result.Estimate, 1e-9)
	assert.InDelta(t, 60.81, result.IntervalLower, 1e-9)
	assert.InDelta(t, 68.19, result.IntervalUpper, 1e-9)
	assert.Equal(t, 42, result.PlayerID)
	assert.Equal(t, "2024-25", result.Season)
	assert.Equal(t, "2025-26", result.TargetSeason)
	assert.Equal(t, 1, result.YearsAhead)
	assert.Equal(t, "ridge_regression", result.ModelName)
	assert.InDelta(t, 3.692, result.ModelMAE, 1e-9)
	assert.False(t, result.GeneratedAt.IsZero())

	again := svc.forecast(stats, "2024-25", "2025-26", 1)
	assert.Equal(t, result.Estimate, again.Estimate)
	assert.Equal(t, result.IntervalLower, again.IntervalLower)
	assert.Equal(t, result.IntervalUpper, again.IntervalUpper)
}

func TestForecast_ClipsToDomain(t *testing.T) {
	svc := readyService(t)

	low := svc.forecast(&models.ProfessionalStats{PlayerID: 7}, "2024-25", "2025-26", 1)
	assert.InDelta(t, models.MinPDI, low.Estimate, 1e-9)
	assert.InDelta(t, models.MinPDI, low.IntervalLower, 1e-9)
	assert.InDelta(t, 33.69, low.IntervalUpper, 1e-9)

	high := svc.forecast(&models.ProfessionalStats{PlayerID: 7, GoalsPer90: nf(100)}, "2024-25", "2025-26", 1)
	assert.InDelta(t, models.MaxPDI, high.Estimate, 1e-9)
	assert.InDelta(t, 96.31, high.IntervalLower, 1e-9)
	assert.InDelta(t, models.MaxPDI, high.IntervalUpper, 1e-9)
}

func TestPredictionKey(t *testing.T) {
	assert.Equal(t, "pdi:pred:42:2024-25:2", predictionKey(42, "2024-25", 2))
}

func TestLocalCacheRoundTrip(t *testing.T) {
	svc := readyService(t)
	ctx := context.Background()
	key := predictionKey(42, "2024-25", 1)
	result := svc.forecast(&models.ProfessionalStats{PlayerID: 42, GoalsPer90: nf(0.6)}, "2024-25", "2025-26", 1)

	assert.Nil(t, svc.lookup(ctx, key))

	svc.store(ctx, key, result)
	got := svc.lookup(ctx, key)
	require.NotNil(t, got)
	assert.Equal(t, result, got)

	svc.mu.Lock()
	entry := svc.local[key]
	entry.expires = time.Now().Add(-time.Minute)
	svc.local[key] = entry
	svc.mu.Unlock()

	assert.Nil(t, svc.lookup(ctx, key))

	svc.mu.Lock()
	_, ok := svc.local[key]
	svc.mu.Unlock()
	assert.False(t, ok, "expired entry should be pruned")
}

func TestInvalidate_ClearsLocal(t *testing.T) {
	svc := readyService(t)
	ctx := context.Background()
	key := predictionKey(9, "2024-25", 1)

	svc.store(ctx, key, svc.forecast(&models.ProfessionalStats{PlayerID: 9}, "2024-25", "2025-26", 1))
	require.NotNil(t, svc.lookup(ctx, key))

	svc.Invalidate(ctx)

	assert.Nil(t, svc.lookup(ctx, key))
}
