package predict

import (
	"database/sql"

	"thaileague/pipeline/internal/models"
)

// FeatureVector flattens one stats row into the named numeric inputs the
// model artifacts score against. Keys follow the professional_stats column
// names so the training exporter and a live row agree without a mapping
// table. Null columns encode as zero, the same way they were encoded when
// the coefficients were fit.
func FeatureVector(stats *models.ProfessionalStats) map[string]float64 {
	f := make(map[string]float64, 51)

	f["age"] = nullInt(stats.Age)
	f["height"] = nullInt(stats.Height)
	f["weight"] = nullInt(stats.Weight)
	f["market_value"] = nullInt(stats.MarketValue)

	f["matches_played"] = nullInt(stats.MatchesPlayed)
	f["minutes_played"] = nullInt(stats.MinutesPlayed)

	f["goals"] = nullInt(stats.Goals)
	f["assists"] = nullInt(stats.Assists)
	f["shots"] = nullInt(stats.Shots)
	f["shots_per_90"] = nullFloat(stats.ShotsPer90)
	f["shots_on_target_pct"] = nullFloat(stats.ShotsOnTargetPct)
	f["goal_conversion_pct"] = nullFloat(stats.GoalConversionPct)
	f["goals_per_90"] = nullFloat(stats.GoalsPer90)
	f["assists_per_90"] = nullFloat(stats.AssistsPer90)
	f["touches_in_box_per_90"] = nullFloat(stats.TouchesInBoxPer90)
	f["shot_assists_per_90"] = nullFloat(stats.ShotAssistsPer90)

	f["defensive_actions_per_90"] = nullFloat(stats.DefensiveActionsPer90)
	f["defensive_duels_per_90"] = nullFloat(stats.DefensiveDuelsPer90)
	f["defensive_duels_won_pct"] = nullFloat(stats.DefensiveDuelsWonPct)
	f["aerial_duels_per_90"] = nullFloat(stats.AerialDuelsPer90)
	f["aerial_duels_won_pct"] = nullFloat(stats.AerialDuelsWonPct)
	f["sliding_tackles_per_90"] = nullFloat(stats.SlidingTacklesPer90)
	f["interceptions_per_90"] = nullFloat(stats.InterceptionsPer90)
	f["fouls_per_90"] = nullFloat(stats.FoulsPer90)

	f["passes_per_90"] = nullFloat(stats.PassesPer90)
	f["pass_accuracy_pct"] = nullFloat(stats.PassAccuracyPct)
	f["forward_passes_per_90"] = nullFloat(stats.ForwardPassesPer90)
	f["forward_passes_accuracy_pct"] = nullFloat(stats.ForwardPassesAccuracyPct)
	f["back_passes_per_90"] = nullFloat(stats.BackPassesPer90)
	f["back_passes_accuracy_pct"] = nullFloat(stats.BackPassesAccuracyPct)
	f["long_passes_per_90"] = nullFloat(stats.LongPassesPer90)
	f["long_passes_accuracy_pct"] = nullFloat(stats.LongPassesAccuracyPct)
	f["progressive_passes_per_90"] = nullFloat(stats.ProgressivePassesPer90)
	f["progressive_passes_accuracy_pct"] = nullFloat(stats.ProgressivePassesAccuracyPct)
	f["key_passes_per_90"] = nullFloat(stats.KeyPassesPer90)

	f["duels_per_90"] = nullFloat(stats.DuelsPer90)
	f["duels_won_pct"] = nullFloat(stats.DuelsWonPct)
	f["offensive_duels_per_90"] = nullFloat(stats.OffensiveDuelsPer90)
	f["offensive_duels_won_pct"] = nullFloat(stats.OffensiveDuelsWonPct)
	f["dribbles_per_90"] = nullFloat(stats.DribblesPer90)
	f["dribbles_success_pct"] = nullFloat(stats.DribblesSuccessPct)
	f["progressive_runs_per_90"] = nullFloat(stats.ProgressiveRunsPer90)

	f["expected_goals"] = nullFloat(stats.ExpectedGoals)
	f["expected_assists"] = nullFloat(stats.ExpectedAssists)
	f["xg_per_90"] = nullFloat(stats.XgPer90)
	f["xa_per_90"] = nullFloat(stats.XaPer90)

	f["yellow_cards"] = nullInt(stats.YellowCards)
	f["red_cards"] = nullInt(stats.RedCards)
	f["yellow_cards_per_90"] = nullFloat(stats.YellowCardsPer90)
	f["red_cards_per_90"] = nullFloat(stats.RedCardsPer90)
	f["fouls_suffered_per_90"] = nullFloat(stats.FoulsSufferedPer90)

	return f
}

// knownFeatures is the catalog artifacts are validated against at load time.
// Anything a trained artifact references must be derivable from a stats row.
var knownFeatures = FeatureVector(&models.ProfessionalStats{})

func nullInt(v sql.NullInt32) float64 {
	if !v.Valid {
		return 0
	}
	return float64(v.Int32)
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return 0
	}
	return v.Float64
}
