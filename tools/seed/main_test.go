package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	settlement "cng-console/internal/settlement/domain"
)

func TestBuildStationIDs(t *testing.T) {
	require.Equal(t, []string{"cng-001", "cng-002"}, buildStationIDs("cng-", 2))
}

func TestBuildEditsOpening(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	edits := buildEdits(rng, []string{"a", "b"}, true)
	require.Len(t, edits, 8)
	require.Equal(t, settlement.FieldStartBalance, edits[0].Field)

	edits = buildEdits(rng, []string{"a", "b"}, false)
	require.Len(t, edits, 6)
	for _, edit := range edits {
		require.NotEqual(t, settlement.FieldStartBalance, edit.Field)
	}
}

func TestParseStartPeriod(t *testing.T) {
	period, err := parseStartPeriod("2024-11", 3)
	require.NoError(t, err)
	require.Equal(t, settlement.Period("2024-11"), period)

	_, err = parseStartPeriod("2024-13", 3)
	require.Error(t, err)
}
