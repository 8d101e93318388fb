package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionTable_ClassifyKnownLabels(t *testing.T) {
	table := NewPositionTable()

	tests := []struct {
		position string
		expected string
	}{
		{"GK", GroupGK},
		{"CB", GroupDEF},
		{"RCB3", GroupDEF},
		{"LWB", GroupDEF},
		{"DMF", GroupMID},
		{"LCMF", GroupMID},
		{"RAMF", GroupMID},
		{"LW", GroupFWD},
		{"CF", GroupFWD},
		{"SS", GroupFWD},
		{"cf", GroupFWD},
		{" rwb ", GroupDEF},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.Classify(tt.position))
		})
	}
}

func TestPositionTable_SubstringFallback(t *testing.T) {
	table := NewPositionTable()

	// Label contains a known one
	assert.Equal(t, GroupMID, table.Classify("AMF (C)"))
	assert.Equal(t, GroupGK, table.Classify("GK RESERVE"))

	// Label is contained in a known one
	assert.Equal(t, GroupMID, table.Classify("CM"))

	assert.Empty(t, table.Audit(), "fallback hits are not unknown labels")
}

func TestPositionTable_UnknownDefaultsToMID(t *testing.T) {
	table := NewPositionTable()

	assert.Equal(t, GroupMID, table.Classify("SWEEPER"))
	assert.Equal(t, GroupMID, table.Classify(""))
	assert.Equal(t, GroupMID, table.Classify("SWEEPER"))

	audit := table.Audit()
	assert.Equal(t, []string{"SWEEPER"}, audit, "blank labels are not audited")
}

func TestPositionTable_ExtendBumpsVersion(t *testing.T) {
	table := NewPositionTable()
	require.Equal(t, 1, table.Version())

	// Seen before the mapping exists, lands in the audit
	assert.Equal(t, GroupMID, table.Classify("SW"))
	assert.Contains(t, table.Audit(), "SW")

	require.NoError(t, table.Extend("SW", GroupDEF))
	assert.Equal(t, 2, table.Version())
	assert.Equal(t, GroupDEF, table.Classify("SW"))
	assert.NotContains(t, table.Audit(), "SW")

	// Re-adding the same mapping changes nothing
	require.NoError(t, table.Extend("sw", GroupDEF))
	assert.Equal(t, 2, table.Version())

	// Overriding to a different group bumps again
	require.NoError(t, table.Extend("SW", GroupMID))
	assert.Equal(t, 3, table.Version())
	assert.Equal(t, GroupMID, table.Classify("SW"))
}

func TestPositionTable_ExtendRejectsInvalid(t *testing.T) {
	table := NewPositionTable()

	err := table.Extend("SW", "GOALIE")
	assert.Error(t, err)

	err = table.Extend("   ", GroupDEF)
	assert.Error(t, err)

	assert.Equal(t, 1, table.Version())
}

func TestPositionTable_Distribution(t *testing.T) {
	table := NewPositionTable()

	positions := []string{
		"GK",
		"CB", "CB", "LB", "RB",
		"DMF", "CMF", "AMF", "LCMF",
		"CF",
	}

	shares := table.Distribution(positions)
	require.Len(t, shares, 4)

	assert.Equal(t, GroupGK, shares[0].Group)
	assert.Equal(t, 1, shares[0].Count)
	assert.InDelta(t, 10.0, shares[0].Pct, 0.001)
	assert.InDelta(t, 8.0, shares[0].ExpectedPct, 0.001)

	assert.Equal(t, GroupDEF, shares[1].Group)
	assert.Equal(t, 4, shares[1].Count)
	assert.InDelta(t, 40.0, shares[1].Pct, 0.001)

	assert.Equal(t, GroupMID, shares[2].Group)
	assert.Equal(t, 4, shares[2].Count)

	assert.Equal(t, GroupFWD, shares[3].Group)
	assert.Equal(t, 1, shares[3].Count)
	assert.InDelta(t, 17.0, shares[3].ExpectedPct, 0.001)
}

func TestPositionTable_DistributionEmpty(t *testing.T) {
	table := NewPositionTable()

	shares := table.Distribution(nil)
	require.Len(t, shares, 4)
	for _, share := range shares {
		assert.Zero(t, share.Count)
		assert.Zero(t, share.Pct)
	}
}
