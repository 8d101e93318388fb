package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/sourcecache"
)

// Phase names in execution order
const (
	phaseBusinessUnderstanding = "business_understanding"
	phaseDataUnderstanding     = "data_understanding"
	phaseDataPreparation       = "data_preparation"
	phaseModeling              = "modeling"
	phaseEvaluation            = "evaluation"
	phaseDeployment            = "deployment"
)

// PhaseReport captures the outcome of one pipeline phase
type PhaseReport struct {
	Phase   string                 `json:"phase"`
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

// Report is the cumulative outcome of one pipeline run. Phase entries
// survive aborts, so a failed run still shows how far it got and why.
type Report struct {
	Season         string                 `json:"season"`
	Phases         []PhaseReport          `json:"phases"`
	Warnings       []string               `json:"warnings,omitempty"`
	FinalStats     map[string]interface{} `json:"final_stats,omitempty"`
	StartedAt      time.Time              `json:"started_at"`
	ElapsedSeconds float64                `json:"elapsed_seconds"`
}

func newReport(season string) *Report {
	return &Report{Season: season, StartedAt: time.Now().UTC()}
}

func (r *Report) add(phase string, success bool, message string, detail map[string]interface{}) {
	r.Phases = append(r.Phases, PhaseReport{
		Phase:   phase,
		Success: success,
		Message: message,
		Detail:  detail,
	})

	if success {
		log.Info().Str("season", r.Season).Str("phase", phase).Str("result", message).Msg("Pipeline phase completed")
	} else {
		log.Error().Str("season", r.Season).Str("phase", phase).Str("reason", message).Msg("Pipeline phase failed")
	}
}

func (r *Report) warn(message string) {
	r.Warnings = append(r.Warnings, message)
	log.Warn().Str("season", r.Season).Str("warning", message).Msg("Pipeline warning")
}

func (r *Report) finish() {
	r.ElapsedSeconds = round2(time.Since(r.StartedAt).Seconds())
}

// Phase returns the report entry for a named phase, nil when it never ran
func (r *Report) Phase(name string) *PhaseReport {
	for i := range r.Phases {
		if r.Phases[i].Phase == name {
			return &r.Phases[i]
		}
	}
	return nil
}

// LastPhase returns the most recent entry, nil before any phase ran
func (r *Report) LastPhase() *PhaseReport {
	if len(r.Phases) == 0 {
		return nil
	}
	return &r.Phases[len(r.Phases)-1]
}

// initialQuality scores the raw table before any cleaning: how dense the
// cells are and how unique the player identifiers look. Without an
// identifier column, uniqueness gets half credit rather than zero.
func initialQuality(t *sourcecache.Table) float64 {
	if len(t.Rows) == 0 || len(t.Header) == 0 {
		return 0
	}

	filled := 0
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
	}
	completeness := float64(filled) / float64(len(t.Rows)*len(t.Header))

	uniqueness := 0.5
	if idCol := t.ColumnIndex("Wyscout id"); idCol >= 0 {
		ids := make(map[string]struct{}, len(t.Rows))
		for _, row := range t.Rows {
			if idCol < len(row) {
				if id := strings.TrimSpace(row[idCol]); id != "" {
					ids[id] = struct{}{}
				}
			}
		}
		uniqueness = float64(len(ids)) / float64(len(t.Rows))
	}

	return round2((completeness*0.7 + uniqueness*0.3) * 100)
}

// finalQuality blends post-clean completeness and match success with the
// schema component. Normalization already fails hard on missing required
// columns, so by the time this runs the schema earns full credit.
func finalQuality(completeness, matchRate float64) float64 {
	return round2(completeness*0.4 + matchRate*0.4 + 100*0.2)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
