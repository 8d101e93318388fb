package models

import (
	"time"
)

// PDIPrediction is one served forecast, persisted as an audit row. The
// operational prediction cache lives in Redis; this table is the durable
// trail of what was served and by which artifact.
type PDIPrediction struct {
	ID       int `db:"id"`
	PlayerID int `db:"player_id"`

	// What was asked
	Season       string `db:"season"`
	TargetSeason string `db:"target_season"`
	YearsAhead   int    `db:"years_ahead"`

	// What was answered
	Estimate      float64 `db:"estimate"`
	IntervalLower float64 `db:"interval_lower"`
	IntervalUpper float64 `db:"interval_upper"`

	// Which artifact answered
	ModelName string  `db:"model_name"`
	ModelMAE  float64 `db:"model_mae"`

	CreatedAt time.Time `db:"created_at"`
}

// Interval returns the confidence bounds as a pair
func (p *PDIPrediction) Interval() (lower, upper float64) {
	return p.IntervalLower, p.IntervalUpper
}

// PredictionResult is the caller-facing forecast payload. It mirrors the
// persisted audit row minus database identity and is what the prediction
// service caches.
type PredictionResult struct {
	PlayerID      int       `json:"player_id"`
	Season        string    `json:"season"`
	TargetSeason  string    `json:"target_season"`
	YearsAhead    int       `json:"years_ahead"`
	Estimate      float64   `json:"estimate"`
	IntervalLower float64   `json:"interval_lower"`
	IntervalUpper float64   `json:"interval_upper"`
	ModelName     string    `json:"model_name"`
	ModelMAE      float64   `json:"model_mae"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// ToPrediction converts a served result to its audit row
func (r *PredictionResult) ToPrediction() *PDIPrediction {
	return &PDIPrediction{
		PlayerID:      r.PlayerID,
		Season:        r.Season,
		TargetSeason:  r.TargetSeason,
		YearsAhead:    r.YearsAhead,
		Estimate:      r.Estimate,
		IntervalLower: r.IntervalLower,
		IntervalUpper: r.IntervalUpper,
		ModelName:     r.ModelName,
		ModelMAE:      r.ModelMAE,
	}
}
