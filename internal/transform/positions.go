package transform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Canonical position groups used by scoring and modeling.
const (
	GroupGK  = "GK"
	GroupDEF = "DEF"
	GroupMID = "MID"
	GroupFWD = "FWD"
)

type positionEntry struct {
	label string
	group string
}

// defaultPositions maps the granular Wyscout role labels seen in Thai League
// exports to the four canonical groups. Order matters: unknown labels are
// resolved by substring scan in table order.
var defaultPositions = []positionEntry{
	{"GK", GroupGK},

	{"CB", GroupDEF},
	{"LCB", GroupDEF},
	{"RCB", GroupDEF},
	{"LCB3", GroupDEF},
	{"RCB3", GroupDEF},
	{"LB", GroupDEF},
	{"RB", GroupDEF},
	{"LB5", GroupDEF},
	{"RB5", GroupDEF},
	{"LWB", GroupDEF},
	{"RWB", GroupDEF},

	{"DMF", GroupMID},
	{"LDMF", GroupMID},
	{"RDMF", GroupMID},
	{"CMF", GroupMID},
	{"LCMF", GroupMID},
	{"RCMF", GroupMID},
	{"LCMF3", GroupMID},
	{"RCMF3", GroupMID},
	{"AMF", GroupMID},
	{"LAMF", GroupMID},
	{"RAMF", GroupMID},

	{"LW", GroupFWD},
	{"RW", GroupFWD},
	{"LWF", GroupFWD},
	{"RWF", GroupFWD},
	{"CF", GroupFWD},
	{"SS", GroupFWD},
}

// ExpectedShare is the rough composition of a full league roster, in percent.
var ExpectedShare = map[string]float64{
	GroupGK:  8,
	GroupDEF: 35,
	GroupMID: 40,
	GroupFWD: 17,
}

// PositionTable classifies granular position labels into canonical groups.
// The mapping can be extended at runtime; every extension bumps the version.
type PositionTable struct {
	mu      sync.RWMutex
	exact   map[string]string
	ordered []positionEntry
	unknown map[string]int
	version int
}

func NewPositionTable() *PositionTable {
	t := &PositionTable{
		exact:   make(map[string]string, len(defaultPositions)),
		ordered: make([]positionEntry, len(defaultPositions)),
		unknown: make(map[string]int),
		version: 1,
	}
	copy(t.ordered, defaultPositions)
	for _, e := range defaultPositions {
		t.exact[e.label] = e.group
	}
	return t
}

// Classify maps a raw position label to one of the four canonical groups.
// Unmapped labels fall back to MID and are recorded for audit.
func (t *PositionTable) Classify(position string) string {
	label := strings.ToUpper(strings.TrimSpace(position))
	if label == "" {
		return GroupMID
	}

	t.mu.RLock()
	if group, ok := t.exact[label]; ok {
		t.mu.RUnlock()
		return group
	}
	// Substring scan both directions, for labels like "AMF (C)" or "CM".
	for _, e := range t.ordered {
		if strings.Contains(label, e.label) || strings.Contains(e.label, label) {
			t.mu.RUnlock()
			return e.group
		}
	}
	t.mu.RUnlock()

	t.mu.Lock()
	if t.unknown[label] == 0 {
		log.Warn().
			Str("position", label).
			Msg("Unmapped position label, defaulting to MID")
	}
	t.unknown[label]++
	t.mu.Unlock()

	return GroupMID
}

// Extend adds or overrides one label mapping and bumps the table version.
func (t *PositionTable) Extend(position, group string) error {
	switch group {
	case GroupGK, GroupDEF, GroupMID, GroupFWD:
	default:
		return fmt.Errorf("invalid position group %q", group)
	}

	label := strings.ToUpper(strings.TrimSpace(position))
	if label == "" {
		return fmt.Errorf("position label is empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.exact[label]; ok {
		if existing == group {
			return nil
		}
		for i := range t.ordered {
			if t.ordered[i].label == label {
				t.ordered[i].group = group
				break
			}
		}
	} else {
		t.ordered = append(t.ordered, positionEntry{label: label, group: group})
	}

	t.exact[label] = group
	t.version++
	delete(t.unknown, label)

	log.Info().
		Str("position", label).
		Str("group", group).
		Int("version", t.version).
		Msg("Position mapping extended")
	return nil
}

// Version starts at 1 and increments on every effective Extend call.
func (t *PositionTable) Version() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Size returns the number of mapped labels.
func (t *PositionTable) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.exact)
}

// Audit returns every label that fell through to the MID default, sorted.
func (t *PositionTable) Audit() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	labels := make([]string, 0, len(t.unknown))
	for label := range t.unknown {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// GroupShare is the observed and expected roster share of one position group.
type GroupShare struct {
	Group       string  `json:"group"`
	Count       int     `json:"count"`
	Pct         float64 `json:"pct"`
	ExpectedPct float64 `json:"expected_pct"`
}

// Distribution classifies every label and compares the group composition
// against the expected league-wide share.
func (t *PositionTable) Distribution(positions []string) []GroupShare {
	counts := make(map[string]int, 4)
	for _, p := range positions {
		counts[t.Classify(p)]++
	}

	out := make([]GroupShare, 0, 4)
	for _, group := range []string{GroupGK, GroupDEF, GroupMID, GroupFWD} {
		share := GroupShare{
			Group:       group,
			Count:       counts[group],
			ExpectedPct: ExpectedShare[group],
		}
		if len(positions) > 0 {
			share.Pct = float64(counts[group]) * 100 / float64(len(positions))
		}
		out = append(out, share)
	}
	return out
}
