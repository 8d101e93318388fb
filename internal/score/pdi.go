package score

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/metrics"
	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/repository"
	"thaileague/pipeline/internal/transform"
)

// modelVersion is stamped on every computed metrics row.
const modelVersion = "1.1"

// neutralScore stands in for any sub-score whose inputs are absent.
const neutralScore = 50.0

// Development tier boundaries for league insight reporting.
const (
	TierElite      = "elite"
	TierStrong     = "strong"
	TierAverage    = "average"
	TierDeveloping = "developing"
	TierStruggling = "struggling"
)

// Engine computes the Player Development Index. The overall score blends
// three sub-scores with fixed weights: 40% universal, 35% zone, 25%
// position specific, clamped into [30,100].
type Engine struct {
	db        *repository.Database
	positions *transform.PositionTable
}

func NewEngine(db *repository.Database, positions *transform.PositionTable) *Engine {
	if positions == nil {
		positions = transform.NewPositionTable()
	}
	return &Engine{db: db, positions: positions}
}

// GetOrCompute returns the persisted score for one player-season, computing
// and persisting it first when missing, stale or forced.
func (e *Engine) GetOrCompute(ctx context.Context, playerID int, season string, force bool) (*models.MLMetrics, error) {
	player, err := e.db.Players.GetByID(ctx, playerID)
	if err != nil {
		metrics.RecordScore("failed")
		return nil, fmt.Errorf("failed to load player %d: %w", playerID, err)
	}
	if !player.IsProfessional {
		metrics.RecordScore("failed")
		return nil, fmt.Errorf("player %d is not professional", playerID)
	}

	existing, err := e.db.MLMetrics.Get(ctx, playerID, season)
	if err != nil {
		metrics.RecordScore("failed")
		return nil, fmt.Errorf("failed to load existing metrics: %w", err)
	}
	if existing != nil && !force && !existing.IsStale(time.Now()) {
		log.Debug().
			Int("player_id", playerID).
			Str("season", season).
			Msg("Reusing persisted PDI metrics")
		metrics.RecordScore("cached")
		return existing, nil
	}

	stats, err := e.db.Stats.GetByPlayerAndSeason(ctx, playerID, season)
	if err != nil {
		metrics.RecordScore("failed")
		return nil, fmt.Errorf("failed to load season stats: %w", err)
	}

	computed := e.Compute(stats)
	if err := e.db.MLMetrics.Upsert(ctx, computed); err != nil {
		metrics.RecordScore("failed")
		return nil, fmt.Errorf("failed to persist metrics: %w", err)
	}

	log.Info().
		Int("player_id", playerID).
		Str("season", season).
		Float64("pdi", computed.PDIOverall.Float64).
		Str("position", computed.PositionAnalyzed.String).
		Msg("Computed PDI metrics")
	metrics.RecordScore("computed")

	return computed, nil
}

// Compute derives the full metrics row from one season of cleaned stats.
// The same stats always yield the same scores.
func (e *Engine) Compute(stats *models.ProfessionalStats) *models.MLMetrics {
	role := roleFor(stats.PrimaryPosition.String)
	group := e.positions.Classify(stats.PrimaryPosition.String)

	universal := universalScore(stats)
	zone := zoneScore(stats, role)
	specific := specificScore(stats, role)

	overall := models.ClampPDI(universal*models.WeightUniversal +
		zone*models.WeightZone +
		specific*models.WeightPositionSpecific)

	return &models.MLMetrics{
		PlayerID:            stats.PlayerID,
		Season:              stats.Season,
		PDIOverall:          nullScore(round2(overall)),
		PDIUniversal:        nullScore(round2(universal)),
		PDIZone:             nullScore(round2(zone)),
		PDIPositionSpecific: nullScore(round2(specific)),
		PositionAnalyzed:    sql.NullString{String: group, Valid: true},
		ModelVersion:        sql.NullString{String: modelVersion, Valid: true},
		LastCalculated:      sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
}

// Rankings lists players of a season sorted by descending overall score.
// An empty position returns all groups.
func (e *Engine) Rankings(ctx context.Context, season, position string, limit int) ([]*models.PlayerRanking, error) {
	return e.db.MLMetrics.Rankings(ctx, season, position, limit)
}

// PositionAverages returns per-group means of the overall and sub-scores.
func (e *Engine) PositionAverages(ctx context.Context, season string) ([]*models.PositionAverage, error) {
	return e.db.MLMetrics.PositionAverages(ctx, season)
}

// Tier buckets an overall score into a development tier label.
func Tier(score float64) string {
	switch {
	case score >= 85:
		return TierElite
	case score >= 70:
		return TierStrong
	case score >= 55:
		return TierAverage
	case score >= 40:
		return TierDeveloping
	default:
		return TierStruggling
	}
}

// roleGroups reduces granular labels to the eight roles the zone weights
// and role formulas are defined for.
var roleGroups = map[string]string{
	"GK": "GK",

	"CB": "CB", "LCB": "CB", "RCB": "CB", "LCB3": "CB", "RCB3": "CB",
	"LB": "FB", "RB": "FB", "LB5": "FB", "RB5": "FB", "LWB": "FB", "RWB": "FB",

	"DMF": "DMF", "LDMF": "DMF", "RDMF": "DMF",
	"CMF": "CMF", "LCMF": "CMF", "RCMF": "CMF", "LCMF3": "CMF", "RCMF3": "CMF",
	"AMF": "AMF", "LAMF": "AMF", "RAMF": "AMF",

	"LW": "W", "RW": "W", "LWF": "W", "RWF": "W",
	"CF": "CF", "SS": "CF",
}

func roleFor(position string) string {
	if role, ok := roleGroups[strings.ToUpper(strings.TrimSpace(position))]; ok {
		return role
	}
	return "CMF"
}

type zoneWeights struct {
	defensive float64
	midfield  float64
	offensive float64
}

var roleZoneWeights = map[string]zoneWeights{
	"GK":  {defensive: 0.8, midfield: 0.2},
	"CB":  {defensive: 0.6, midfield: 0.4},
	"FB":  {defensive: 0.5, midfield: 0.3, offensive: 0.2},
	"DMF": {defensive: 0.4, midfield: 0.6},
	"CMF": {defensive: 0.2, midfield: 0.8},
	"AMF": {defensive: 0.1, midfield: 0.5, offensive: 0.4},
	"W":   {midfield: 0.3, offensive: 0.7},
	"CF":  {midfield: 0.2, offensive: 0.8},
}

type term struct {
	score  float64
	weight float64
}

func weightedAverage(terms []term) float64 {
	if len(terms) == 0 {
		return neutralScore
	}
	var sum, weight float64
	for _, t := range terms {
		sum += t.score * t.weight
		weight += t.weight
	}
	if weight == 0 {
		return neutralScore
	}
	return sum / weight
}

// universalScore covers cross-position fundamentals: pass accuracy, duels
// won, physical activity and discipline.
func universalScore(s *models.ProfessionalStats) float64 {
	var terms []term

	if v, ok := fVal(s.PassAccuracyPct); ok {
		terms = append(terms, term{capScore(v * 1.2), 0.30})
	}
	if v, ok := fVal(s.DuelsWonPct); ok {
		terms = append(terms, term{capScore(v * 1.5), 0.25})
	}
	if minutes, ok := iVal(s.MinutesPlayed); ok {
		if matches, ok := iVal(s.MatchesPlayed); ok {
			avgMinutes := minutes / matches
			terms = append(terms, term{capScore(avgMinutes / 90 * 100), 0.20})
		}
	}

	discipline := 100.0
	if yellows, ok := iVal(s.YellowCards); ok {
		if matches, ok := iVal(s.MatchesPlayed); ok {
			discipline = math.Max(0, 100-yellows/matches*50)
		}
	}
	terms = append(terms, term{discipline, 0.25})

	return weightedAverage(terms)
}

func zoneScore(s *models.ProfessionalStats, role string) float64 {
	weights, ok := roleZoneWeights[role]
	if !ok {
		weights = roleZoneWeights["CMF"]
	}

	return defensiveZone(s)*weights.defensive +
		midfieldZone(s)*weights.midfield +
		offensiveZone(s)*weights.offensive
}

func defensiveZone(s *models.ProfessionalStats) float64 {
	var terms []term
	if v, ok := fVal(s.DefensiveActionsPer90); ok {
		terms = append(terms, term{capScore(v * 4), 0.40})
	}
	if v, ok := fVal(s.DefensiveDuelsWonPct); ok {
		terms = append(terms, term{capScore(v * 1.3), 0.35})
	}
	if v, ok := fVal(s.AerialDuelsWonPct); ok {
		terms = append(terms, term{capScore(v * 1.2), 0.25})
	}
	return weightedAverage(terms)
}

func midfieldZone(s *models.ProfessionalStats) float64 {
	var terms []term
	if v, ok := fVal(s.PassesPer90); ok {
		terms = append(terms, term{capScore(v / 6), 0.30})
	}
	if v, ok := fVal(s.ProgressivePassesAccuracyPct); ok {
		terms = append(terms, term{capScore(v * 1.1), 0.35})
	}
	if v, ok := fVal(s.KeyPassesPer90); ok {
		terms = append(terms, term{capScore(v * 25), 0.35})
	}
	return weightedAverage(terms)
}

func offensiveZone(s *models.ProfessionalStats) float64 {
	var terms []term
	if v, ok := fVal(s.GoalsPer90); ok {
		terms = append(terms, term{capScore(v * 50), 0.40})
	}
	if v, ok := fVal(s.AssistsPer90); ok {
		terms = append(terms, term{capScore(v * 40), 0.30})
	}
	if v, ok := fVal(s.ExpectedGoals); ok {
		terms = append(terms, term{capScore(v * 20), 0.30})
	}
	return weightedAverage(terms)
}

func specificScore(s *models.ProfessionalStats, role string) float64 {
	switch role {
	case "GK":
		return defensiveZone(s)
	case "CB", "FB":
		return defenderSpecific(s)
	case "DMF", "CMF", "AMF":
		return midfielderSpecific(s, role)
	case "W", "CF":
		return forwardSpecific(s)
	}
	return neutralScore
}

func defenderSpecific(s *models.ProfessionalStats) float64 {
	var terms []term
	if v, ok := fVal(s.InterceptionsPer90); ok {
		terms = append(terms, term{capScore(v * 10), 0.40})
	}
	if v, ok := fVal(s.SlidingTacklesPer90); ok {
		terms = append(terms, term{capScore(v * 20), 0.30})
	}
	if v, ok := fVal(s.AerialDuelsWonPct); ok {
		terms = append(terms, term{capScore(v * 1.2), 0.30})
	}
	return weightedAverage(terms)
}

func midfielderSpecific(s *models.ProfessionalStats, role string) float64 {
	var terms []term
	switch role {
	case "DMF":
		if v, ok := fVal(s.DefensiveActionsPer90); ok {
			terms = append(terms, term{capScore(v * 4), 0.50})
		}
		if v, ok := fVal(s.PassesPer90); ok {
			terms = append(terms, term{capScore(v / 6), 0.50})
		}
	case "CMF":
		if v, ok := fVal(s.ProgressivePassesPer90); ok {
			terms = append(terms, term{capScore(v * 8), 0.60})
		}
		if v, ok := fVal(s.DuelsWonPct); ok {
			terms = append(terms, term{capScore(v * 1.3), 0.40})
		}
	case "AMF":
		if v, ok := fVal(s.KeyPassesPer90); ok {
			terms = append(terms, term{capScore(v * 25), 0.60})
		}
		if v, ok := fVal(s.ExpectedAssists); ok {
			terms = append(terms, term{capScore(v * 30), 0.40})
		}
	}
	return weightedAverage(terms)
}

func forwardSpecific(s *models.ProfessionalStats) float64 {
	var terms []term
	if v, ok := fVal(s.GoalConversionPct); ok {
		terms = append(terms, term{capScore(v * 2), 0.40})
	}
	if v, ok := fVal(s.TouchesInBoxPer90); ok {
		terms = append(terms, term{capScore(v * 8), 0.30})
	}
	if v, ok := fVal(s.ShotAssistsPer90); ok {
		terms = append(terms, term{capScore(v * 15), 0.30})
	}
	return weightedAverage(terms)
}

// fVal reads a nullable float, treating null and zero as absent.
func fVal(v sql.NullFloat64) (float64, bool) {
	return v.Float64, v.Valid && v.Float64 > 0
}

// iVal reads a nullable int as float, treating null and zero as absent.
func iVal(v sql.NullInt32) (float64, bool) {
	return float64(v.Int32), v.Valid && v.Int32 > 0
}

func capScore(v float64) float64 {
	return math.Min(100, v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nullScore(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
