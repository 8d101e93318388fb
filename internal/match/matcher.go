package match

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"thaileague/pipeline/internal/metrics"
	"thaileague/pipeline/internal/models"
)

// Match type labels, in decreasing order of certainty
const (
	MatchTypeWyscoutID = "wyscout_id"
	MatchTypeExactName = "exact_name"
	MatchTypeFuzzyName = "fuzzy_name"
)

// DefaultThreshold is the minimum fuzzy confidence accepted when the caller
// does not supply one.
const DefaultThreshold = 85

// Candidate is one registry player considered for a record, kept for audit
// when a record ends up ambiguous.
type Candidate struct {
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name"`
	Confidence int    `json:"confidence"`
}

// RecordMatch binds one season record to its resolution
type RecordMatch struct {
	WyscoutID  int    `json:"wyscout_id"`
	RecordName string `json:"record_name"`
	Season     string `json:"season"`

	Player     *models.Player `json:"-"`
	Confidence int            `json:"confidence"`
	MatchType  string         `json:"match_type,omitempty"`

	// Ambiguous records keep their contenders; nothing is auto-bound
	Candidates []Candidate `json:"candidates,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// Result buckets every record by how it resolved
type Result struct {
	Exact   []RecordMatch
	Fuzzy   []RecordMatch
	NoMatch []RecordMatch
	Skipped int
}

// Matched returns the successfully bound records, exact first
func (r *Result) Matched() []RecordMatch {
	out := make([]RecordMatch, 0, len(r.Exact)+len(r.Fuzzy))
	out = append(out, r.Exact...)
	out = append(out, r.Fuzzy...)
	return out
}

// Counts returns the bucket sizes as (exact, fuzzy, nomatch)
func (r *Result) Counts() (int, int, int) {
	return len(r.Exact), len(r.Fuzzy), len(r.NoMatch)
}

// Matcher reconciles external season records against the player registry
type Matcher struct {
	threshold int
}

// NewMatcher creates a matcher with the given fuzzy acceptance threshold on
// the 0-100 scale.
func NewMatcher(threshold int) (*Matcher, error) {
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("threshold must be between 0 and 100, got %d", threshold)
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}, nil
}

// registryIndex precomputes normalized registry names once per Match call
type registryIndex struct {
	byWyscoutID map[int]*models.Player
	names       []registryName
}

type registryName struct {
	player     *models.Player
	normalized string
}

func buildIndex(registry []*models.Player) *registryIndex {
	idx := &registryIndex{byWyscoutID: make(map[int]*models.Player)}

	for _, p := range registry {
		if p.HasExternalID() {
			idx.byWyscoutID[int(p.WyscoutID.Int32)] = p
		}
		for _, name := range p.SearchNames() {
			if n := Normalize(name); n != "" {
				idx.names = append(idx.names, registryName{player: p, normalized: n})
			}
		}
	}

	return idx
}

// Match resolves every record against the registry. Records bind by bound
// external ID first, then exact normalized name, then fuzzy similarity.
// Ambiguous fuzzy outcomes are never auto-bound; they land in NoMatch with
// their candidate list for review.
func (m *Matcher) Match(records []*models.ProfessionalStatsInput, registry []*models.Player) *Result {
	idx := buildIndex(registry)
	result := &Result{}

	for _, rec := range records {
		names := recordNames(rec)
		if len(names) == 0 {
			result.Skipped++
			continue
		}

		rm := RecordMatch{
			WyscoutID:  rec.WyscoutID,
			RecordName: rec.PlayerName,
			Season:     rec.Season,
		}

		// Confirmed external identifier wins outright
		if p, ok := idx.byWyscoutID[rec.WyscoutID]; ok {
			rm.Player = p
			rm.Confidence = 100
			rm.MatchType = MatchTypeWyscoutID
			result.Exact = append(result.Exact, rm)
			continue
		}

		if m.matchExactName(idx, names, &rm) {
			result.Exact = append(result.Exact, rm)
			continue
		}

		switch m.matchFuzzy(idx, names, &rm) {
		case 1:
			result.Fuzzy = append(result.Fuzzy, rm)
		default:
			result.NoMatch = append(result.NoMatch, rm)
		}
	}

	dedupeBySeason(&result.Exact)
	dedupeBySeason(&result.Fuzzy)

	metrics.RecordMatch("exact", len(result.Exact))
	metrics.RecordMatch("fuzzy", len(result.Fuzzy))
	metrics.RecordMatch("no_match", len(result.NoMatch))

	log.Info().
		Int("exact", len(result.Exact)).
		Int("fuzzy", len(result.Fuzzy)).
		Int("no_match", len(result.NoMatch)).
		Int("skipped", result.Skipped).
		Int("threshold", m.threshold).
		Msg("Identity matching finished")

	return result
}

// matchExactName binds when exactly one registry player shares a normalized
// name with the record. Several namesakes are ambiguous and fall through to
// fuzzy scoring, which will also find them all and refuse to pick.
func (m *Matcher) matchExactName(idx *registryIndex, names []string, rm *RecordMatch) bool {
	var found *models.Player
	for _, n := range names {
		for _, rn := range idx.names {
			if rn.normalized != n {
				continue
			}
			if found != nil && found.ID != rn.player.ID {
				return false
			}
			found = rn.player
		}
	}

	if found == nil {
		return false
	}

	rm.Player = found
	rm.Confidence = 100
	rm.MatchType = MatchTypeExactName
	return true
}

// matchFuzzy scores the record against every registry name and returns the
// number of distinct players at or above the threshold.
func (m *Matcher) matchFuzzy(idx *registryIndex, names []string, rm *RecordMatch) int {
	best := make(map[int]int) // player id -> best confidence
	players := make(map[int]*models.Player)

	for _, n := range names {
		for _, rn := range idx.names {
			conf := Similarity(n, rn.normalized)
			if conf < m.threshold {
				continue
			}
			if conf > best[rn.player.ID] {
				best[rn.player.ID] = conf
				players[rn.player.ID] = rn.player
			}
		}
	}

	switch len(best) {
	case 0:
		rm.Reason = "no candidate above threshold"
		return 0
	case 1:
		for id, conf := range best {
			rm.Player = players[id]
			rm.Confidence = conf
			rm.MatchType = MatchTypeFuzzyName
		}
		return 1
	default:
		for id, conf := range best {
			rm.Candidates = append(rm.Candidates, Candidate{
				PlayerID:   id,
				PlayerName: players[id].FullName,
				Confidence: conf,
			})
		}
		sort.Slice(rm.Candidates, func(i, j int) bool {
			return rm.Candidates[i].Confidence > rm.Candidates[j].Confidence
		})
		rm.Reason = fmt.Sprintf("ambiguous: %d candidates above threshold", len(rm.Candidates))
		return len(best)
	}
}

// dedupeBySeason keeps, per external identifier, only the chronologically
// latest season's entry, then re-sorts by descending confidence. Stable sort
// preserves first-seen order on ties.
func dedupeBySeason(matches *[]RecordMatch) {
	latest := make(map[int]string)
	for _, rm := range *matches {
		if rm.WyscoutID == 0 {
			continue
		}
		if rm.Season > latest[rm.WyscoutID] {
			latest[rm.WyscoutID] = rm.Season
		}
	}

	kept := (*matches)[:0]
	for _, rm := range *matches {
		if rm.WyscoutID != 0 && rm.Season != latest[rm.WyscoutID] {
			continue
		}
		kept = append(kept, rm)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	*matches = kept
}

func recordNames(rec *models.ProfessionalStatsInput) []string {
	var names []string
	if n := Normalize(rec.PlayerName); n != "" {
		names = append(names, n)
	}
	if n := Normalize(rec.FullName); n != "" && (len(names) == 0 || n != names[0]) {
		names = append(names, n)
	}
	return names
}
