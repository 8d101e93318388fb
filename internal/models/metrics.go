package models

import (
	"database/sql"
	"time"
)

// PDI component weights. The overall score is a fixed blend of the three
// sub-scores and is always kept inside [MinPDI, MaxPDI].
const (
	WeightUniversal        = 0.40
	WeightZone             = 0.35
	WeightPositionSpecific = 0.25

	MinPDI = 30.0
	MaxPDI = 100.0
)

// MLMetrics holds the computed Player Development Index for one player in
// one season. Unique per (player_id, season).
type MLMetrics struct {
	ID       int    `db:"id"`
	PlayerID int    `db:"player_id"`
	Season   string `db:"season"`

	// Composite score and its weighted components
	PDIOverall          sql.NullFloat64 `db:"pdi_overall"`
	PDIUniversal        sql.NullFloat64 `db:"pdi_universal"`
	PDIZone             sql.NullFloat64 `db:"pdi_zone"`
	PDIPositionSpecific sql.NullFloat64 `db:"pdi_position_specific"`

	// Calculation metadata
	PositionAnalyzed sql.NullString `db:"position_analyzed"`
	ModelVersion     sql.NullString `db:"model_version"`
	LastCalculated   sql.NullTime   `db:"last_calculated"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ComponentBreakdown is the weighted decomposition of an overall PDI
type ComponentBreakdown struct {
	Overall      float64            `json:"overall"`
	Components   map[string]float64 `json:"components"`
	Contribution map[string]float64 `json:"contribution"`
}

// Breakdown returns the score decomposition with the fixed weights applied
func (m *MLMetrics) Breakdown() ComponentBreakdown {
	universal := m.PDIUniversal.Float64
	zone := m.PDIZone.Float64
	specific := m.PDIPositionSpecific.Float64

	return ComponentBreakdown{
		Overall: m.PDIOverall.Float64,
		Components: map[string]float64{
			"universal":         universal,
			"zone":              zone,
			"position_specific": specific,
		},
		Contribution: map[string]float64{
			"universal":         universal * WeightUniversal,
			"zone":              zone * WeightZone,
			"position_specific": specific * WeightPositionSpecific,
		},
	}
}

// IsStale reports whether the metrics are older than the recalculation
// window (7 days) or have never been calculated.
func (m *MLMetrics) IsStale(now time.Time) bool {
	if !m.LastCalculated.Valid {
		return true
	}
	return now.Sub(m.LastCalculated.Time) > 7*24*time.Hour
}

// ClampPDI bounds a score into the valid PDI domain
func ClampPDI(score float64) float64 {
	if score < MinPDI {
		return MinPDI
	}
	if score > MaxPDI {
		return MaxPDI
	}
	return score
}

// PlayerRanking is one row of a season leaderboard
type PlayerRanking struct {
	Rank       int     `json:"rank"`
	PlayerID   int     `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Position   string  `json:"position"`
	Team       string  `json:"team"`
	PDIOverall float64 `json:"pdi_overall"`
}

// PositionAverage aggregates PDI over one position group in one season
type PositionAverage struct {
	Position     string  `json:"position"`
	PlayerCount  int     `json:"player_count"`
	AvgOverall   float64 `json:"avg_overall"`
	AvgUniversal float64 `json:"avg_universal"`
	AvgZone      float64 `json:"avg_zone"`
	AvgSpecific  float64 `json:"avg_specific"`
}
