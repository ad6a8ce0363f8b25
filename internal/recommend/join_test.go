package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scentbox/internal/model"
)

func ids(items []model.CatalogItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestRankCandidates_StableDescendingTopK(t *testing.T) {
	in := []model.Candidate{
		{InternalID: "1", Score: 0.3},
		{InternalID: "2", Score: 0.9},
		{InternalID: "3", Score: 0.5},
		{InternalID: "4", Score: 0.9},
		{InternalID: "5", Score: 0.1},
	}
	got := rankCandidates(in, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].InternalID)
	assert.Equal(t, "4", got[1].InternalID)
	assert.Equal(t, "3", got[2].InternalID)

	// Input is not mutated.
	assert.Equal(t, "1", in[0].InternalID)
}

func TestExternalIDs_SkipsEmptyAndRepeats(t *testing.T) {
	got, dropped := externalIDs([]model.Candidate{
		{InternalID: "1", ExternalID: " a "},
		{InternalID: "2", ExternalID: ""},
		{InternalID: "3", ExternalID: "a"},
		{InternalID: "4", ExternalID: "b"},
	})
	assert.Equal(t, []string{"a", "b"}, got)
	require.Len(t, dropped, 1)
	assert.Equal(t, JoinError{Reason: ReasonMissingExternalID, InternalID: "2"}, dropped[0])
}

func TestJoin_ExternalIDFirstThenInternalFallback(t *testing.T) {
	candidates := []model.Candidate{
		{InternalID: "i1", ExternalID: "e1", Score: 0.42},
		{InternalID: "i2", ExternalID: "e2", Score: 0.87},
	}
	items := []model.CatalogItem{
		{ID: "i1", ExternalID: "e1", Name: "by external"},
		// External id changed upstream; internal id still matches.
		{ID: "i2", ExternalID: "e2-renamed", Name: "by internal"},
	}

	report := Join(candidates, items)
	assert.Empty(t, report.Dropped)
	require.Len(t, report.Resolved, 2)
	assert.Equal(t, "i2", report.Resolved[0].ID)
	assert.Equal(t, 87, report.Resolved[0].MatchPercentage)
	assert.Equal(t, "i1", report.Resolved[1].ID)
	assert.Equal(t, 42, report.Resolved[1].MatchPercentage)
}

func TestJoin_DropsUnresolvableItem(t *testing.T) {
	candidates := []model.Candidate{
		{InternalID: "i1", ExternalID: "a", Score: 0.9},
		{InternalID: "i2", ExternalID: "b", Score: 0.7},
	}
	items := []model.CatalogItem{
		{ID: "i1", ExternalID: "a"},
		{ID: "i2", ExternalID: "b"},
		{ID: "i9", ExternalID: "x"},
	}

	report := Join(candidates, items)
	assert.Len(t, report.Resolved, len(items)-1)
	assert.Equal(t, []string{"i1", "i2"}, ids(report.Resolved))
	assert.Equal(t, []JoinError{{Reason: ReasonUnresolvedScore, InternalID: "i9", ExternalID: "x"}}, report.Dropped)
}

func TestJoin_DropsDuplicatesAndMissingIDs(t *testing.T) {
	candidates := []model.Candidate{{InternalID: "i1", ExternalID: "a", Score: 0.5}}
	items := []model.CatalogItem{
		{ID: "i1", ExternalID: "a"},
		{ID: "i1", ExternalID: "a"},
		{ID: "", ExternalID: "a"},
	}

	report := Join(candidates, items)
	assert.Equal(t, []string{"i1"}, ids(report.Resolved))
	require.Len(t, report.Dropped, 2)
	assert.Equal(t, ReasonDuplicate, report.Dropped[0].Reason)
	assert.Equal(t, ReasonMissingInternalID, report.Dropped[1].Reason)
}

func TestJoin_NormalizesIDs(t *testing.T) {
	// Decomposed and precomposed spellings of the same external id.
	candidates := []model.Candidate{{InternalID: "i1", ExternalID: "cafe\u0301", Score: 0.6}}
	items := []model.CatalogItem{{ID: " i1 ", ExternalID: "caf\u00e9"}}

	report := Join(candidates, items)
	require.Len(t, report.Resolved, 1)
	assert.Equal(t, "i1", report.Resolved[0].ID)
	assert.Equal(t, "caf\u00e9", report.Resolved[0].ExternalID)
}

func TestJoin_TiesKeepCatalogOrder(t *testing.T) {
	candidates := []model.Candidate{
		{InternalID: "i1", ExternalID: "a", Score: 0.5},
		{InternalID: "i2", ExternalID: "b", Score: 0.5},
		{InternalID: "i3", ExternalID: "c", Score: 0.8},
	}
	items := []model.CatalogItem{
		{ID: "i2", ExternalID: "b"},
		{ID: "i1", ExternalID: "a"},
		{ID: "i3", ExternalID: "c"},
	}
	assert.Equal(t, []string{"i3", "i2", "i1"}, ids(Join(candidates, items).Resolved))
}

func TestJoinError_Message(t *testing.T) {
	err := JoinError{Reason: ReasonDuplicate, InternalID: "i1", ExternalID: "a"}
	assert.Equal(t, `duplicate (internal="i1" external="a")`, err.Error())
}
