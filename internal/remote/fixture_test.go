package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scentbox/internal/model"
)

const fixtureYAML = `
candidates:
  - {internal_id: i-1, external_id: e-1, score: 0.9}
  - {internal_id: i-2, external_id: e-2, score: 0.5}
  - {internal_id: i-3, external_id: e-3, score: 0.2}
catalog:
  - {id: i-3, external_id: e-3, name: Oud, brand: B, price_per_unit: 9}
  - {id: i-1, external_id: e-1, name: Neroli, brand: A, price_per_unit: 1}
  - {id: i-2, external_id: e-2, name: Iris, brand: A, price_per_unit: 2}
`

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.Candidates, 3)
	assert.Len(t, f.Catalog, 3)
	assert.Equal(t, "e-1", f.Candidates[0].ExternalID)
}

func TestParseFixture_UnknownField(t *testing.T) {
	_, err := ParseFixture([]byte("candidatez: []\n"))
	assert.Error(t, err)
}

func TestFixtureClient_Recommendations(t *testing.T) {
	f, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	c := NewFixtureClient(*f)
	ctx := context.Background()

	all, err := c.FetchRecommendations(ctx, model.Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cheap, err := c.FetchRecommendations(ctx, model.Filters{MaxPrice: 5})
	require.NoError(t, err)
	assert.Len(t, cheap, 2)
}

func TestFixtureClient_CatalogKeepsFixtureOrder(t *testing.T) {
	f, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	c := NewFixtureClient(*f)

	items, err := c.FetchCatalogItemsByExternalIDs(context.Background(), []string{"e-1", "e-3"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "i-3", items[0].ID)
	assert.Equal(t, "i-1", items[1].ID)
}

func TestFixtureClient_Submissions(t *testing.T) {
	c := NewFixtureClient(Fixture{})
	answers := model.Answers{"a": model.Rating(2)}
	require.NoError(t, c.SubmitSurveyAnswers(context.Background(), Submission{Answers: answers}))

	answers["a"] = model.Rating(5)
	subs := c.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, model.Rating(2), subs[0].Answers["a"], "submission is a snapshot")

	ok, err := c.ProbeCredentialValidity(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixtureClient_SubmitStatus(t *testing.T) {
	invalid := false
	c := NewFixtureClient(Fixture{SubmitStatus: 403, CredentialValid: &invalid})

	err := c.SubmitSurveyAnswers(context.Background(), Submission{})
	assert.True(t, IsAuthFailure(err))

	ok, err := c.ProbeCredentialValidity(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
