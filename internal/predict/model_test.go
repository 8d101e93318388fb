package predict

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"thaileague/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ridgeArtifact = `{
	"schema_version": 1,
	"model": {
		"name": "ridge_regression",
		"algorithm": "ridge",
		"version": "2.1.0",
		"expected_mae": 3.692,
		"accuracy_label": "good"
	},
	"features": ["goals_per_90", "assists_per_90", "pass_accuracy_pct"],
	"coefficients": [20, 10, 0.5],
	"intercept": 10
}`

const baselineArtifact = `{
	"schema_version": 1,
	"model": {
		"name": "baseline_linear",
		"algorithm": "ols",
		"version": "1.0.0"
	},
	"features": ["minutes_played"],
	"coefficients": [0.01],
	"intercept": 40
}`

func writeArtifact(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadModel_PriorityOrder(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "pdi_model_ridge.json", ridgeArtifact)
	writeArtifact(t, dir, "pdi_model_baseline.json", baselineArtifact)

	model, err := LoadModel(dir)
	require.NoError(t, err)

	assert.Equal(t, "ridge_regression", model.Name)
	assert.Equal(t, "2.1.0", model.Version)
	assert.InDelta(t, 3.692, model.MAE, 1e-9)
	assert.Equal(t, 3, model.FeatureCount())
	assert.False(t, model.LoadedAt.IsZero())
}

func TestLoadModel_NoArtifact(t *testing.T) {
	model, err := LoadModel(t.TempDir())

	assert.Nil(t, model)
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoadModel_FallbackMAE(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "pdi_model_baseline.json", baselineArtifact)

	model, err := LoadModel(dir)
	require.NoError(t, err)

	assert.Equal(t, "baseline_linear", model.Name)
	assert.InDelta(t, fallbackMAE, model.MAE, 1e-9)
}

func TestLoadModel_RejectsBrokenArtifacts(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "not json",
			body:    `{`,
			wantErr: "failed to parse",
		},
		{
			name:    "unsupported schema version",
			body:    `{"schema_version": 9, "model": {"name": "m"}, "features": ["goals"], "coefficients": [1]}`,
			wantErr: "unsupported schema version",
		},
		{
			name:    "missing model name",
			body:    `{"schema_version": 1, "features": ["goals"], "coefficients": [1]}`,
			wantErr: "missing the model name",
		},
		{
			name:    "no features",
			body:    `{"schema_version": 1, "model": {"name": "m"}, "features": [], "coefficients": []}`,
			wantErr: "declares no features",
		},
		{
			name:    "coefficient count mismatch",
			body:    `{"schema_version": 1, "model": {"name": "m"}, "features": ["goals"], "coefficients": [1, 2]}`,
			wantErr: "2 coefficients for 1 features",
		},
		{
			name:    "empty feature name",
			body:    `{"schema_version": 1, "model": {"name": "m"}, "features": [""], "coefficients": [1]}`,
			wantErr: "empty feature name",
		},
		{
			name:    "duplicate feature",
			body:    `{"schema_version": 1, "model": {"name": "m"}, "features": ["goals", "goals"], "coefficients": [1, 2]}`,
			wantErr: "twice",
		},
		{
			name:    "unknown feature",
			body:    `{"schema_version": 1, "model": {"name": "m"}, "features": ["shoe_size"], "coefficients": [1]}`,
			wantErr: "unknown feature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeArtifact(t, dir, "pdi_model_ensemble.json", tt.body)

			model, err := LoadModel(dir)
			assert.Nil(t, model)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadModel_BrokenArtifactDoesNotFallThrough(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "pdi_model_ensemble.json", `{"schema_version": 9}`)
	writeArtifact(t, dir, "pdi_model_ridge.json", ridgeArtifact)

	model, err := LoadModel(dir)

	assert.Nil(t, model)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestModel_VectorizeKeepsTrainingOrder(t *testing.T) {
	model := &Model{
		features:     []string{"goals_per_90", "pass_accuracy_pct"},
		coefficients: []float64{2, 0.5},
		intercept:    1,
	}

	vec := model.Vectorize(map[string]float64{
		"pass_accuracy_pct": 80,
		"goals_per_90":      0.5,
		"duels_won_pct":     99,
	})

	assert.Equal(t, []float64{0.5, 80}, vec)
	assert.InDelta(t, 42.0, model.Score(vec), 1e-9)
}

func TestModel_VectorizeFillsMissingWithZero(t *testing.T) {
	model := &Model{
		features:     []string{"goals_per_90", "pass_accuracy_pct"},
		coefficients: []float64{2, 0.5},
		intercept:    1,
	}

	vec := model.Vectorize(map[string]float64{})

	assert.Equal(t, []float64{0, 0}, vec)
	assert.InDelta(t, 1.0, model.Score(vec), 1e-9)
}

func TestFeatureVector_NullsEncodeZero(t *testing.T) {
	stats := &models.ProfessionalStats{
		MinutesPlayed: sql.NullInt32{Int32: 2140, Valid: true},
		GoalsPer90:    sql.NullFloat64{Float64: 0.6, Valid: true},
	}

	features := FeatureVector(stats)

	assert.Len(t, features, 51)
	assert.Equal(t, 2140.0, features["minutes_played"])
	assert.Equal(t, 0.6, features["goals_per_90"])
	assert.Equal(t, 0.0, features["xg_per_90"])
	assert.Equal(t, 0.0, features["age"])
}
