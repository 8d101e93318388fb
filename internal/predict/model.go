package predict

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// artifactSchemaVersion is the artifact layout this loader understands.
// Bumped together with the training exporter whenever the JSON shape changes.
const artifactSchemaVersion = 1

// fallbackMAE stands in when an artifact ships without a measured error
const fallbackMAE = 5.0

// artifactNames is the load order, most capable model first. The first
// readable file wins; the later entries are legacy fallbacks kept so a
// partial deploy still serves forecasts.
var artifactNames = []string{
	"pdi_model_ensemble.json",
	"pdi_model_ridge.json",
	"pdi_model_baseline.json",
}

// ErrModelUnavailable means the models directory holds no artifact at all.
// Callers treat this as "forecasts disabled", not as a failure.
var ErrModelUnavailable = errors.New("no model artifact found")

// artifact is the on-disk JSON layout written by the training exporter
type artifact struct {
	SchemaVersion int `json:"schema_version"`

	Model struct {
		Name      string  `json:"name"`
		Algorithm string  `json:"algorithm"`
		Version   string  `json:"version"`
		MAE       float64 `json:"expected_mae"`
		Accuracy  string  `json:"accuracy_label"`
	} `json:"model"`

	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Model is a loaded, validated linear scoring artifact
type Model struct {
	Name      string
	Algorithm string
	Version   string
	MAE       float64
	Accuracy  string

	features     []string
	coefficients []float64
	intercept    float64

	Path     string
	LoadedAt time.Time
}

// LoadModel walks the artifact priority list under dir and returns the first
// one that exists. A missing file falls through to the next candidate, but a
// file that exists and fails validation is a hard error so a broken deploy
// surfaces at startup instead of at inference time.
func LoadModel(dir string) (*Model, error) {
	for _, name := range artifactNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
		}

		model, err := parseArtifact(data, path)
		if err != nil {
			return nil, err
		}

		log.Info().
			Str("artifact", name).
			Str("model", model.Name).
			Str("version", model.Version).
			Float64("mae", model.MAE).
			Int("features", len(model.features)).
			Msg("Loaded prediction model")

		return model, nil
	}

	return nil, fmt.Errorf("%w in %s", ErrModelUnavailable, dir)
}

func parseArtifact(data []byte, path string) (*Model, error) {
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}

	if art.SchemaVersion != artifactSchemaVersion {
		return nil, fmt.Errorf("artifact %s has unsupported schema version %d", path, art.SchemaVersion)
	}
	if art.Model.Name == "" {
		return nil, fmt.Errorf("artifact %s is missing the model name", path)
	}
	if len(art.Features) == 0 {
		return nil, fmt.Errorf("artifact %s declares no features", path)
	}
	if len(art.Coefficients) != len(art.Features) {
		return nil, fmt.Errorf("artifact %s has %d coefficients for %d features",
			path, len(art.Coefficients), len(art.Features))
	}

	seen := make(map[string]struct{}, len(art.Features))
	for i, name := range art.Features {
		if name == "" {
			return nil, fmt.Errorf("artifact %s has an empty feature name at index %d", path, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("artifact %s lists feature %q twice", path, name)
		}
		if _, known := knownFeatures[name]; !known {
			return nil, fmt.Errorf("artifact %s references unknown feature %q", path, name)
		}
		seen[name] = struct{}{}
	}

	mae := art.Model.MAE
	if mae <= 0 {
		log.Warn().Str("artifact", path).Msg("Artifact carries no expected MAE, using fallback")
		mae = fallbackMAE
	}

	return &Model{
		Name:         art.Model.Name,
		Algorithm:    art.Model.Algorithm,
		Version:      art.Model.Version,
		MAE:          mae,
		Accuracy:     art.Model.Accuracy,
		features:     art.Features,
		coefficients: art.Coefficients,
		intercept:    art.Intercept,
		Path:         path,
		LoadedAt:     time.Now().UTC(),
	}, nil
}

// Vectorize reindexes a named feature map into the artifact's training
// column order. Features the row does not carry contribute zero, matching
// how nulls were encoded during training.
func (m *Model) Vectorize(features map[string]float64) []float64 {
	vector := make([]float64, len(m.features))
	for i, name := range m.features {
		vector[i] = features[name]
	}
	return vector
}

// Score runs the linear form over an already ordered vector
func (m *Model) Score(vector []float64) float64 {
	return floats.Dot(m.coefficients, vector) + m.intercept
}

// FeatureCount reports how many inputs the artifact was trained on
func (m *Model) FeatureCount() int {
	return len(m.features)
}
