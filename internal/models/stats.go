package models

import (
	"database/sql"
	"time"
)

// ProfessionalStats represents one player's statistics for one season,
// normalized from the remote Wyscout export. Unique per (wyscout_id, season).
type ProfessionalStats struct {
	ID        int    `db:"id"`
	PlayerID  int    `db:"player_id"`
	WyscoutID int    `db:"wyscout_id"`
	Season    string `db:"season"`

	// Basic player information
	PlayerName          string         `db:"player_name"`
	FullName            string         `db:"full_name"`
	Team                string         `db:"team"`
	TeamWithinTimeframe sql.NullString `db:"team_within_timeframe"`
	TeamLogoURL         sql.NullString `db:"team_logo_url"`
	Competition         string         `db:"competition"`
	Age                 sql.NullInt32  `db:"age"`
	Birthday            sql.NullTime   `db:"birthday"`
	BirthCountry        sql.NullString `db:"birth_country"`
	PassportCountry     sql.NullString `db:"passport_country"`
	Height              sql.NullInt32  `db:"height"`
	Weight              sql.NullInt32  `db:"weight"`
	Foot                sql.NullString `db:"foot"`
	MarketValue         sql.NullInt32  `db:"market_value"`

	// Positional information
	PrimaryPosition   sql.NullString `db:"primary_position"`
	SecondaryPosition sql.NullString `db:"secondary_position"`
	ThirdPosition     sql.NullString `db:"third_position"`

	// Participation
	MatchesPlayed sql.NullInt32 `db:"matches_played"`
	MinutesPlayed sql.NullInt32 `db:"minutes_played"`

	// Offensive performance
	Goals             sql.NullInt32   `db:"goals"`
	Assists           sql.NullInt32   `db:"assists"`
	Shots             sql.NullInt32   `db:"shots"`
	ShotsPer90        sql.NullFloat64 `db:"shots_per_90"`
	ShotsOnTargetPct  sql.NullFloat64 `db:"shots_on_target_pct"`
	GoalConversionPct sql.NullFloat64 `db:"goal_conversion_pct"`
	GoalsPer90        sql.NullFloat64 `db:"goals_per_90"`
	AssistsPer90      sql.NullFloat64 `db:"assists_per_90"`
	TouchesInBoxPer90 sql.NullFloat64 `db:"touches_in_box_per_90"`
	ShotAssistsPer90  sql.NullFloat64 `db:"shot_assists_per_90"`

	// Defensive performance
	DefensiveActionsPer90 sql.NullFloat64 `db:"defensive_actions_per_90"`
	DefensiveDuelsPer90   sql.NullFloat64 `db:"defensive_duels_per_90"`
	DefensiveDuelsWonPct  sql.NullFloat64 `db:"defensive_duels_won_pct"`
	AerialDuelsPer90      sql.NullFloat64 `db:"aerial_duels_per_90"`
	AerialDuelsWonPct     sql.NullFloat64 `db:"aerial_duels_won_pct"`
	SlidingTacklesPer90   sql.NullFloat64 `db:"sliding_tackles_per_90"`
	InterceptionsPer90    sql.NullFloat64 `db:"interceptions_per_90"`
	FoulsPer90            sql.NullFloat64 `db:"fouls_per_90"`

	// Passing and distribution
	PassesPer90                  sql.NullFloat64 `db:"passes_per_90"`
	PassAccuracyPct              sql.NullFloat64 `db:"pass_accuracy_pct"`
	ForwardPassesPer90           sql.NullFloat64 `db:"forward_passes_per_90"`
	ForwardPassesAccuracyPct     sql.NullFloat64 `db:"forward_passes_accuracy_pct"`
	BackPassesPer90              sql.NullFloat64 `db:"back_passes_per_90"`
	BackPassesAccuracyPct        sql.NullFloat64 `db:"back_passes_accuracy_pct"`
	LongPassesPer90              sql.NullFloat64 `db:"long_passes_per_90"`
	LongPassesAccuracyPct        sql.NullFloat64 `db:"long_passes_accuracy_pct"`
	ProgressivePassesPer90       sql.NullFloat64 `db:"progressive_passes_per_90"`
	ProgressivePassesAccuracyPct sql.NullFloat64 `db:"progressive_passes_accuracy_pct"`
	KeyPassesPer90               sql.NullFloat64 `db:"key_passes_per_90"`

	// Duels and ball carrying
	DuelsPer90           sql.NullFloat64 `db:"duels_per_90"`
	DuelsWonPct          sql.NullFloat64 `db:"duels_won_pct"`
	OffensiveDuelsPer90  sql.NullFloat64 `db:"offensive_duels_per_90"`
	OffensiveDuelsWonPct sql.NullFloat64 `db:"offensive_duels_won_pct"`
	DribblesPer90        sql.NullFloat64 `db:"dribbles_per_90"`
	DribblesSuccessPct   sql.NullFloat64 `db:"dribbles_success_pct"`
	ProgressiveRunsPer90 sql.NullFloat64 `db:"progressive_runs_per_90"`

	// Advanced metrics
	ExpectedGoals   sql.NullFloat64 `db:"expected_goals"`
	ExpectedAssists sql.NullFloat64 `db:"expected_assists"`
	XgPer90         sql.NullFloat64 `db:"xg_per_90"`
	XaPer90         sql.NullFloat64 `db:"xa_per_90"`

	// Discipline
	YellowCards        sql.NullInt32   `db:"yellow_cards"`
	RedCards           sql.NullInt32   `db:"red_cards"`
	YellowCardsPer90   sql.NullFloat64 `db:"yellow_cards_per_90"`
	RedCardsPer90      sql.NullFloat64 `db:"red_cards_per_90"`
	FoulsSufferedPer90 sql.NullFloat64 `db:"fouls_suffered_per_90"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ProfessionalStatsInput is one cleaned season record produced by the
// feature normalizer, ready to bind to a registry player.
type ProfessionalStatsInput struct {
	WyscoutID int    `json:"wyscout_id"`
	Season    string `json:"season"`

	PlayerName          string     `json:"player_name"`
	FullName            string     `json:"full_name"`
	Team                string     `json:"team"`
	TeamWithinTimeframe *string    `json:"team_within_timeframe,omitempty"`
	TeamLogoURL         *string    `json:"team_logo_url,omitempty"`
	Competition         string     `json:"competition"`
	Age                 *int       `json:"age,omitempty"`
	Birthday            *time.Time `json:"birthday,omitempty"`
	BirthdayText        string     `json:"birthday_text,omitempty"`
	BirthCountry        *string    `json:"birth_country,omitempty"`
	PassportCountry     *string    `json:"passport_country,omitempty"`
	Height              *int       `json:"height,omitempty"`
	Weight              *int       `json:"weight,omitempty"`
	Foot                *string    `json:"foot,omitempty"`
	MarketValue         *int       `json:"market_value,omitempty"`

	PrimaryPosition   *string `json:"primary_position,omitempty"`
	SecondaryPosition *string `json:"secondary_position,omitempty"`
	ThirdPosition     *string `json:"third_position,omitempty"`

	MatchesPlayed *int `json:"matches_played,omitempty"`
	MinutesPlayed *int `json:"minutes_played,omitempty"`

	Goals             *int     `json:"goals,omitempty"`
	Assists           *int     `json:"assists,omitempty"`
	Shots             *int     `json:"shots,omitempty"`
	ShotsPer90        *float64 `json:"shots_per_90,omitempty"`
	ShotsOnTargetPct  *float64 `json:"shots_on_target_pct,omitempty"`
	GoalConversionPct *float64 `json:"goal_conversion_pct,omitempty"`
	GoalsPer90        *float64 `json:"goals_per_90,omitempty"`
	AssistsPer90      *float64 `json:"assists_per_90,omitempty"`
	TouchesInBoxPer90 *float64 `json:"touches_in_box_per_90,omitempty"`
	ShotAssistsPer90  *float64 `json:"shot_assists_per_90,omitempty"`

	DefensiveActionsPer90 *float64 `json:"defensive_actions_per_90,omitempty"`
	DefensiveDuelsPer90   *float64 `json:"defensive_duels_per_90,omitempty"`
	DefensiveDuelsWonPct  *float64 `json:"defensive_duels_won_pct,omitempty"`
	AerialDuelsPer90      *float64 `json:"aerial_duels_per_90,omitempty"`
	AerialDuelsWonPct     *float64 `json:"aerial_duels_won_pct,omitempty"`
	SlidingTacklesPer90   *float64 `json:"sliding_tackles_per_90,omitempty"`
	InterceptionsPer90    *float64 `json:"interceptions_per_90,omitempty"`
	FoulsPer90            *float64 `json:"fouls_per_90,omitempty"`

	PassesPer90                  *float64 `json:"passes_per_90,omitempty"`
	PassAccuracyPct              *float64 `json:"pass_accuracy_pct,omitempty"`
	ForwardPassesPer90           *float64 `json:"forward_passes_per_90,omitempty"`
	ForwardPassesAccuracyPct     *float64 `json:"forward_passes_accuracy_pct,omitempty"`
	BackPassesPer90              *float64 `json:"back_passes_per_90,omitempty"`
	BackPassesAccuracyPct        *float64 `json:"back_passes_accuracy_pct,omitempty"`
	LongPassesPer90              *float64 `json:"long_passes_per_90,omitempty"`
	LongPassesAccuracyPct        *float64 `json:"long_passes_accuracy_pct,omitempty"`
	ProgressivePassesPer90       *float64 `json:"progressive_passes_per_90,omitempty"`
	ProgressivePassesAccuracyPct *float64 `json:"progressive_passes_accuracy_pct,omitempty"`
	KeyPassesPer90               *float64 `json:"key_passes_per_90,omitempty"`

	DuelsPer90           *float64 `json:"duels_per_90,omitempty"`
	DuelsWonPct          *float64 `json:"duels_won_pct,omitempty"`
	OffensiveDuelsPer90  *float64 `json:"offensive_duels_per_90,omitempty"`
	OffensiveDuelsWonPct *float64 `json:"offensive_duels_won_pct,omitempty"`
	DribblesPer90        *float64 `json:"dribbles_per_90,omitempty"`
	DribblesSuccessPct   *float64 `json:"dribbles_success_pct,omitempty"`
	ProgressiveRunsPer90 *float64 `json:"progressive_runs_per_90,omitempty"`

	ExpectedGoals   *float64 `json:"expected_goals,omitempty"`
	ExpectedAssists *float64 `json:"expected_assists,omitempty"`
	XgPer90         *float64 `json:"xg_per_90,omitempty"`
	XaPer90         *float64 `json:"xa_per_90,omitempty"`

	YellowCards        *int     `json:"yellow_cards,omitempty"`
	RedCards           *int     `json:"red_cards,omitempty"`
	YellowCardsPer90   *float64 `json:"yellow_cards_per_90,omitempty"`
	RedCardsPer90      *float64 `json:"red_cards_per_90,omitempty"`
	FoulsSufferedPer90 *float64 `json:"fouls_suffered_per_90,omitempty"`
}

func nullStr(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt32 {
	if i == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*i), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ToStats converts a cleaned input record to the persisted model, bound to a
// registry player.
func (si *ProfessionalStatsInput) ToStats(playerID int) *ProfessionalStats {
	return &ProfessionalStats{
		PlayerID:  playerID,
		WyscoutID: si.WyscoutID,
		Season:    si.Season,

		PlayerName:          si.PlayerName,
		FullName:            si.FullName,
		Team:                si.Team,
		TeamWithinTimeframe: nullStr(si.TeamWithinTimeframe),
		TeamLogoURL:         nullStr(si.TeamLogoURL),
		Competition:         si.Competition,
		Age:                 nullInt(si.Age),
		Birthday:            nullTime(si.Birthday),
		BirthCountry:        nullStr(si.BirthCountry),
		PassportCountry:     nullStr(si.PassportCountry),
		Height:              nullInt(si.Height),
		Weight:              nullInt(si.Weight),
		Foot:                nullStr(si.Foot),
		MarketValue:         nullInt(si.MarketValue),

		PrimaryPosition:   nullStr(si.PrimaryPosition),
		SecondaryPosition: nullStr(si.SecondaryPosition),
		ThirdPosition:     nullStr(si.ThirdPosition),

		MatchesPlayed: nullInt(si.MatchesPlayed),
		MinutesPlayed: nullInt(si.MinutesPlayed),

		Goals:             nullInt(si.Goals),
		Assists:           nullInt(si.Assists),
		Shots:             nullInt(si.Shots),
		ShotsPer90:        nullFloat(si.ShotsPer90),
		ShotsOnTargetPct:  nullFloat(si.ShotsOnTargetPct),
		GoalConversionPct: nullFloat(si.GoalConversionPct),
		GoalsPer90:        nullFloat(si.GoalsPer90),
		AssistsPer90:      nullFloat(si.AssistsPer90),
		TouchesInBoxPer90: nullFloat(si.TouchesInBoxPer90),
		ShotAssistsPer90:  nullFloat(si.ShotAssistsPer90),

		DefensiveActionsPer90: nullFloat(si.DefensiveActionsPer90),
		DefensiveDuelsPer90:   nullFloat(si.DefensiveDuelsPer90),
		DefensiveDuelsWonPct:  nullFloat(si.DefensiveDuelsWonPct),
		AerialDuelsPer90:      nullFloat(si.AerialDuelsPer90),
		AerialDuelsWonPct:     nullFloat(si.AerialDuelsWonPct),
		SlidingTacklesPer90:   nullFloat(si.SlidingTacklesPer90),
		InterceptionsPer90:    nullFloat(si.InterceptionsPer90),
		FoulsPer90:            nullFloat(si.FoulsPer90),

		PassesPer90:                  nullFloat(si.PassesPer90),
		PassAccuracyPct:              nullFloat(si.PassAccuracyPct),
		ForwardPassesPer90:           nullFloat(si.ForwardPassesPer90),
		ForwardPassesAccuracyPct:     nullFloat(si.ForwardPassesAccuracyPct),
		BackPassesPer90:              nullFloat(si.BackPassesPer90),
		BackPassesAccuracyPct:        nullFloat(si.BackPassesAccuracyPct),
		LongPassesPer90:              nullFloat(si.LongPassesPer90),
		LongPassesAccuracyPct:        nullFloat(si.LongPassesAccuracyPct),
		ProgressivePassesPer90:       nullFloat(si.ProgressivePassesPer90),
		ProgressivePassesAccuracyPct: nullFloat(si.ProgressivePassesAccuracyPct),
		KeyPassesPer90:               nullFloat(si.KeyPassesPer90),

		DuelsPer90:           nullFloat(si.DuelsPer90),
		DuelsWonPct:          nullFloat(si.DuelsWonPct),
		OffensiveDuelsPer90:  nullFloat(si.OffensiveDuelsPer90),
		OffensiveDuelsWonPct: nullFloat(si.OffensiveDuelsWonPct),
		DribblesPer90:        nullFloat(si.DribblesPer90),
		DribblesSuccessPct:   nullFloat(si.DribblesSuccessPct),
		ProgressiveRunsPer90: nullFloat(si.ProgressiveRunsPer90),

		ExpectedGoals:   nullFloat(si.ExpectedGoals),
		ExpectedAssists: nullFloat(si.ExpectedAssists),
		XgPer90:         nullFloat(si.XgPer90),
		XaPer90:         nullFloat(si.XaPer90),

		YellowCards:        nullInt(si.YellowCards),
		RedCards:           nullInt(si.RedCards),
		YellowCardsPer90:   nullFloat(si.YellowCardsPer90),
		RedCardsPer90:      nullFloat(si.RedCardsPer90),
		FoulsSufferedPer90: nullFloat(si.FoulsSufferedPer90),
	}
}
