package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/models"
	"thaileague/pipeline/internal/sourcecache"
)

// ErrSchemaValidation is returned when the source table lacks columns the
// pipeline cannot run without.
var ErrSchemaValidation = errors.New("source schema is missing required columns")

// requiredColumns must all be present for a season export to be usable.
var requiredColumns = []string{"Full name", "Wyscout id", "Team", "Competition"}

// Report summarizes one normalization run.
type Report struct {
	Season           string       `json:"season"`
	TotalRows        int          `json:"total_rows"`
	CleanRecords     int          `json:"clean_records"`
	DroppedNoID      int          `json:"dropped_no_id"`
	CoercedCells     int          `json:"coerced_cells"`
	FilledCells      int          `json:"filled_cells"`
	TotalCells       int          `json:"total_cells"`
	OnLoan           int          `json:"on_loan"`
	UnknownPositions []string     `json:"unknown_positions,omitempty"`
	Distribution     []GroupShare `json:"distribution"`
}

// Completeness is the share of non-empty cells in the raw table, in percent.
func (r *Report) Completeness() float64 {
	if r.TotalCells == 0 {
		return 0
	}
	return float64(r.FilledCells) * 100 / float64(r.TotalCells)
}

// Normalizer coerces raw season tables into typed records. Each column
// family has a declared coercion: text defaults to "" on null, counting
// integers to 0, percentages clip to [0,100], per-90 rates to [0,50] and
// age to [16,45]. Rows without a usable wyscout id are dropped.
type Normalizer struct {
	positions *PositionTable
}

func NewNormalizer(positions *PositionTable) *Normalizer {
	if positions == nil {
		positions = NewPositionTable()
	}
	return &Normalizer{positions: positions}
}

// Positions exposes the table so callers can extend mappings at runtime.
func (n *Normalizer) Positions() *PositionTable {
	return n.positions
}

// NormalizeTable cleans every row of a season export. The returned report is
// always populated on success; on schema validation failure no records are
// produced.
func (n *Normalizer) NormalizeTable(table *sourcecache.Table, season string) ([]*models.ProfessionalStatsInput, *Report, error) {
	if missing := missingColumns(table); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrSchemaValidation, strings.Join(missing, ", "))
	}

	cols := resolveColumns(table)
	report := &Report{Season: season, TotalRows: len(table.Rows)}

	records := make([]*models.ProfessionalStatsInput, 0, len(table.Rows))
	for _, row := range table.Rows {
		report.TotalCells += len(table.Header)
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				report.FilledCells++
			}
		}

		scan := &rowScan{row: row, report: report}

		wyscoutID, ok := scan.wyscoutID(cols.wyscoutID)
		if !ok {
			report.DroppedNoID++
			continue
		}

		records = append(records, n.buildRecord(scan, cols, wyscoutID, season))

		if v, ok := scan.boolean(cols.onLoan); ok && v {
			report.OnLoan++
		}
	}

	report.CleanRecords = len(records)

	positions := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.PrimaryPosition != nil {
			positions = append(positions, *rec.PrimaryPosition)
		}
	}
	report.Distribution = n.positions.Distribution(positions)
	report.UnknownPositions = n.positions.Audit()

	log.Info().
		Str("season", season).
		Int("rows", report.TotalRows).
		Int("clean", report.CleanRecords).
		Int("dropped_no_id", report.DroppedNoID).
		Int("coerced_cells", report.CoercedCells).
		Msg("Normalized season table")

	return records, report, nil
}

func (n *Normalizer) buildRecord(s *rowScan, c columns, wyscoutID int, season string) *models.ProfessionalStatsInput {
	birthday, birthdayText := s.date(c.birthday)

	return &models.ProfessionalStatsInput{
		WyscoutID: wyscoutID,
		Season:    season,

		PlayerName:          s.text(c.player),
		FullName:            s.text(c.fullName),
		Team:                s.text(c.team),
		TeamWithinTimeframe: s.optText(c.teamTimeframe),
		TeamLogoURL:         s.optText(c.teamLogo),
		Competition:         s.text(c.competition),
		Age:                 s.age(c.age),
		Birthday:            birthday,
		BirthdayText:        birthdayText,
		BirthCountry:        s.optText(c.birthCountry),
		PassportCountry:     s.optText(c.passportCountry),
		Height:              s.count(c.height),
		Weight:              s.count(c.weight),
		Foot:                s.optText(c.foot),
		MarketValue:         s.count(c.marketValue),

		PrimaryPosition:   s.optText(c.primaryPos),
		SecondaryPosition: s.optText(c.secondaryPos),
		ThirdPosition:     s.optText(c.thirdPos),

		MatchesPlayed: s.count(c.matches),
		MinutesPlayed: s.count(c.minutes),

		Goals:             s.count(c.goals),
		Assists:           s.count(c.assists),
		Shots:             s.count(c.shots),
		ShotsPer90:        s.rate(c.shotsPer90),
		ShotsOnTargetPct:  s.pct(c.shotsOnTargetPct),
		GoalConversionPct: s.pct(c.goalConversionPct),
		GoalsPer90:        s.rate(c.goalsPer90),
		AssistsPer90:      s.rate(c.assistsPer90),
		TouchesInBoxPer90: s.rate(c.touchesInBoxPer90),
		ShotAssistsPer90:  s.rate(c.shotAssistsPer90),

		DefensiveActionsPer90: s.rate(c.defActionsPer90),
		DefensiveDuelsPer90:   s.rate(c.defDuelsPer90),
		DefensiveDuelsWonPct:  s.pct(c.defDuelsWonPct),
		AerialDuelsPer90:      s.rate(c.aerialDuelsPer90),
		AerialDuelsWonPct:     s.pct(c.aerialDuelsWonPct),
		SlidingTacklesPer90:   s.rate(c.slidingTacklesPer90),
		InterceptionsPer90:    s.rate(c.interceptionsPer90),
		FoulsPer90:            s.rate(c.foulsPer90),

		PassesPer90:                  s.rate(c.passesPer90),
		PassAccuracyPct:              s.pct(c.passAccuracyPct),
		ForwardPassesPer90:           s.rate(c.fwdPassesPer90),
		ForwardPassesAccuracyPct:     s.pct(c.fwdPassAccuracyPct),
		BackPassesPer90:              s.rate(c.backPassesPer90),
		BackPassesAccuracyPct:        s.pct(c.backPassAccuracyPct),
		LongPassesPer90:              s.rate(c.longPassesPer90),
		LongPassesAccuracyPct:        s.pct(c.longPassAccuracyPct),
		ProgressivePassesPer90:       s.rate(c.progPassesPer90),
		ProgressivePassesAccuracyPct: s.pct(c.progPassAccuracyPct),
		KeyPassesPer90:               s.rate(c.keyPassesPer90),

		DuelsPer90:           s.rate(c.duelsPer90),
		DuelsWonPct:          s.pct(c.duelsWonPct),
		OffensiveDuelsPer90:  s.rate(c.offDuelsPer90),
		OffensiveDuelsWonPct: s.pct(c.offDuelsWonPct),
		DribblesPer90:        s.rate(c.dribblesPer90),
		DribblesSuccessPct:   s.pct(c.dribblesSuccessPct),
		ProgressiveRunsPer90: s.rate(c.progRunsPer90),

		ExpectedGoals:   s.floatVal(c.xg),
		ExpectedAssists: s.floatVal(c.xa),
		XgPer90:         s.rate(c.xgPer90),
		XaPer90:         s.rate(c.xaPer90),

		YellowCards:        s.count(c.yellowCards),
		RedCards:           s.count(c.redCards),
		YellowCardsPer90:   s.rate(c.yellowPer90),
		RedCardsPer90:      s.rate(c.redPer90),
		FoulsSufferedPer90: s.rate(c.foulsSufferedPer90),
	}
}

func missingColumns(table *sourcecache.Table) []string {
	var missing []string
	for _, name := range requiredColumns {
		if table.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// columns holds the resolved index of every mapped header, -1 when absent.
type columns struct {
	player, fullName, wyscoutID                          int
	team, teamTimeframe, teamLogo, competition           int
	age, birthday, birthCountry, passportCountry         int
	height, weight, foot, marketValue                    int
	primaryPos, secondaryPos, thirdPos                   int
	matches, minutes                                     int
	goals, assists, shots                                int
	shotsPer90, shotsOnTargetPct, goalConversionPct      int
	goalsPer90, assistsPer90                             int
	touchesInBoxPer90, shotAssistsPer90                  int
	defActionsPer90, defDuelsPer90, defDuelsWonPct       int
	aerialDuelsPer90, aerialDuelsWonPct                  int
	slidingTacklesPer90, interceptionsPer90, foulsPer90  int
	passesPer90, passAccuracyPct                         int
	fwdPassesPer90, fwdPassAccuracyPct                   int
	backPassesPer90, backPassAccuracyPct                 int
	longPassesPer90, longPassAccuracyPct                 int
	progPassesPer90, progPassAccuracyPct, keyPassesPer90 int
	duelsPer90, duelsWonPct                              int
	offDuelsPer90, offDuelsWonPct                        int
	dribblesPer90, dribblesSuccessPct, progRunsPer90     int
	xg, xa, xgPer90, xaPer90                             int
	yellowCards, redCards, yellowPer90, redPer90         int
	foulsSufferedPer90                                   int
	onLoan                                               int
}

func resolveColumns(t *sourcecache.Table) columns {
	return columns{
		player:          t.ColumnIndex("Player"),
		fullName:        t.ColumnIndex("Full name"),
		wyscoutID:       t.ColumnIndex("Wyscout id"),
		team:            t.ColumnIndex("Team"),
		teamTimeframe:   t.ColumnIndex("Team within selected timeframe"),
		teamLogo:        t.ColumnIndex("Team logo"),
		competition:     t.ColumnIndex("Competition"),
		age:             t.ColumnIndex("Age"),
		birthday:        t.ColumnIndex("Birthday"),
		birthCountry:    t.ColumnIndex("Birth country"),
		passportCountry: t.ColumnIndex("Passport country"),
		height:          t.ColumnIndex("Height"),
		weight:          t.ColumnIndex("Weight"),
		foot:            t.ColumnIndex("Foot"),
		marketValue:     t.ColumnIndex("Market value"),

		primaryPos:   t.ColumnIndex("Primary position"),
		secondaryPos: t.ColumnIndex("Secondary position"),
		thirdPos:     t.ColumnIndex("Third position"),

		matches: t.ColumnIndex("Matches played"),
		minutes: t.ColumnIndex("Minutes played"),

		goals:             t.ColumnIndex("Goals"),
		assists:           t.ColumnIndex("Assists"),
		shots:             t.ColumnIndex("Shots"),
		shotsPer90:        t.ColumnIndex("Shots per 90"),
		shotsOnTargetPct:  t.ColumnIndex("Shots on target, %"),
		goalConversionPct: t.ColumnIndex("Goal conversion, %"),
		goalsPer90:        t.ColumnIndex("Goals per 90"),
		assistsPer90:      t.ColumnIndex("Assists per 90"),
		touchesInBoxPer90: t.ColumnIndex("Touches in box per 90"),
		shotAssistsPer90:  t.ColumnIndex("Shot assists per 90"),

		defActionsPer90:     t.ColumnIndex("Successful defensive actions per 90"),
		defDuelsPer90:       t.ColumnIndex("Defensive duels per 90"),
		defDuelsWonPct:      t.ColumnIndex("Defensive duels won, %"),
		aerialDuelsPer90:    t.ColumnIndex("Aerial duels per 90"),
		aerialDuelsWonPct:   t.ColumnIndex("Aerial duels won, %"),
		slidingTacklesPer90: t.ColumnIndex("Sliding tackles per 90"),
		interceptionsPer90:  t.ColumnIndex("Interceptions per 90"),
		foulsPer90:          t.ColumnIndex("Fouls per 90"),

		passesPer90:         t.ColumnIndex("Passes per 90"),
		passAccuracyPct:     t.ColumnIndex("Passes accuracy, %"),
		fwdPassesPer90:      t.ColumnIndex("Forward passes per 90"),
		fwdPassAccuracyPct:  t.ColumnIndex("Forward passes accuracy, %"),
		backPassesPer90:     t.ColumnIndex("Back passes per 90"),
		backPassAccuracyPct: t.ColumnIndex("Back passes accuracy, %"),
		longPassesPer90:     t.ColumnIndex("Long passes per 90"),
		longPassAccuracyPct: t.ColumnIndex("Long passes accuracy, %"),
		progPassesPer90:     t.ColumnIndex("Progressive passes per 90"),
		progPassAccuracyPct: t.ColumnIndex("Progressive passes accuracy, %"),
		keyPassesPer90:      t.ColumnIndex("Key passes per 90"),

		duelsPer90:         t.ColumnIndex("Duels per 90"),
		duelsWonPct:        t.ColumnIndex("Duels won, %"),
		offDuelsPer90:      t.ColumnIndex("Offensive duels per 90"),
		offDuelsWonPct:     t.ColumnIndex("Offensive duels won, %"),
		dribblesPer90:      t.ColumnIndex("Dribbles per 90"),
		dribblesSuccessPct: t.ColumnIndex("Successful dribbles, %"),
		progRunsPer90:      t.ColumnIndex("Progressive runs per 90"),

		xg:      t.ColumnIndex("xG"),
		xa:      t.ColumnIndex("xA"),
		xgPer90: t.ColumnIndex("xG per 90"),
		xaPer90: t.ColumnIndex("xA per 90"),

		yellowCards: t.ColumnIndex("Yellow cards"),
		redCards:    t.ColumnIndex("Red cards"),
		yellowPer90: t.ColumnIndex("Yellow cards per 90"),
		redPer90:    t.ColumnIndex("Red cards per 90"),

		foulsSufferedPer90: t.ColumnIndex("Fouls suffered per 90"),
		onLoan:             t.ColumnIndex("On loan"),
	}
}

// rowScan applies per-family coercions to one raw row, counting cells that
// failed to parse.
type rowScan struct {
	row    []string
	report *Report
}

func (s *rowScan) cell(idx int) (string, bool) {
	if idx < 0 || idx >= len(s.row) {
		return "", false
	}
	return strings.TrimSpace(s.row[idx]), true
}

// text defaults to "" and clears values the export writes for missing data.
func (s *rowScan) text(idx int) string {
	cell, ok := s.cell(idx)
	if !ok {
		return ""
	}
	switch cell {
	case "nan", "None", "0.0":
		return ""
	}
	return cell
}

func (s *rowScan) optText(idx int) *string {
	if idx < 0 {
		return nil
	}
	if v := s.text(idx); v != "" {
		return &v
	}
	return nil
}

func (s *rowScan) numeric(idx int) (float64, bool) {
	cell, ok := s.cell(idx)
	if !ok || cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(cell, "%"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		s.report.CoercedCells++
		return 0, false
	}
	return v, true
}

// count coerces integer counting fields, null and negatives become 0.
func (s *rowScan) count(idx int) *int {
	if idx < 0 {
		return nil
	}
	v, ok := s.numeric(idx)
	if !ok || v < 0 {
		v = 0
	}
	n := int(v)
	return &n
}

// pct clips percentages into [0,100], null becomes 0.
func (s *rowScan) pct(idx int) *float64 {
	if idx < 0 {
		return nil
	}
	v, _ := s.numeric(idx)
	v = clamp(v, 0, 100)
	return &v
}

// rate clips per-90 metrics into [0,50], null becomes 0.
func (s *rowScan) rate(idx int) *float64 {
	if idx < 0 {
		return nil
	}
	v, _ := s.numeric(idx)
	v = clamp(v, 0, 50)
	return &v
}

// floatVal coerces unbounded metrics, null becomes 0.
func (s *rowScan) floatVal(idx int) *float64 {
	if idx < 0 {
		return nil
	}
	v, _ := s.numeric(idx)
	return &v
}

// age clips into [16,45] and stays null when absent or unparsable.
func (s *rowScan) age(idx int) *int {
	if idx < 0 {
		return nil
	}
	v, ok := s.numeric(idx)
	if !ok {
		return nil
	}
	n := int(math.Round(clamp(v, 16, 45)))
	return &n
}

// boolean accepts the small literal set the export uses.
func (s *rowScan) boolean(idx int) (bool, bool) {
	cell, ok := s.cell(idx)
	if !ok || cell == "" {
		return false, false
	}
	switch strings.ToLower(cell) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	s.report.CoercedCells++
	return false, false
}

// date parses the export layouts; unparsable values keep their raw text.
func (s *rowScan) date(idx int) (*time.Time, string) {
	cell, ok := s.cell(idx)
	if !ok || cell == "" {
		return nil, ""
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, cell); err == nil {
			return &t, ""
		}
	}
	return nil, cell
}

// wyscoutID rejects rows without a usable positive identifier.
func (s *rowScan) wyscoutID(idx int) (int, bool) {
	if idx < 0 {
		return 0, false
	}
	v, ok := s.numeric(idx)
	if !ok || v <= 0 {
		return 0, false
	}
	return int(v), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
