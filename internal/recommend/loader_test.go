package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/remote"
)

// fakeClient serves a candidate list and catalog per category. A gate for a
// category blocks its catalog fetch until closed.
type fakeClient struct {
	mu         sync.Mutex
	candidates map[string][]model.Candidate
	catalog    []model.CatalogItem
	catalogErr error
	gates      map[string]chan struct{}
	lookups    [][]string
}

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func category(f model.Filters) string {
	if len(f.Categories) == 0 {
		return ""
	}
	return f.Categories[0]
}

func (f *fakeClient) FetchRecommendations(_ context.Context, filters model.Filters) ([]model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candidates[category(filters)], nil
}

func (f *fakeClient) FetchCatalogItemsByExternalIDs(_ context.Context, externalIDs []string) ([]model.CatalogItem, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, externalIDs)
	var gate chan struct{}
	if len(externalIDs) > 0 {
		gate = f.gates[externalIDs[0]]
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	var out []model.CatalogItem
	for _, item := range f.catalog {
		for _, id := range externalIDs {
			if item.ExternalID == id {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (f *fakeClient) SubmitSurveyAnswers(context.Context, remote.Submission) error { return nil }

func (f *fakeClient) ProbeCredentialValidity(context.Context) (bool, error) { return true, nil }

func abcd() *fakeClient {
	return &fakeClient{
		candidates: map[string][]model.Candidate{
			"": {
				{InternalID: "c", ExternalID: "c", Score: 0.5},
				{InternalID: "a", ExternalID: "a", Score: 0.9},
				{InternalID: "d", ExternalID: "d", Score: 0.3},
				{InternalID: "b", ExternalID: "b", Score: 0.7},
			},
		},
		catalog: []model.CatalogItem{
			{ID: "d", ExternalID: "d", PricePerUnit: 4},
			{ID: "c", ExternalID: "c", PricePerUnit: 3},
			{ID: "b", ExternalID: "b", PricePerUnit: 2},
			{ID: "a", ExternalID: "a", PricePerUnit: 1},
		},
	}
}

func TestLoad_RanksByMatchPercentage(t *testing.T) {
	l := New(abcd())
	res, err := l.Load(context.Background(), model.Filters{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Generation)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(res.Items))
	assert.Equal(t, []int{90, 70, 50, 30}, []int{
		res.Items[0].MatchPercentage, res.Items[1].MatchPercentage,
		res.Items[2].MatchPercentage, res.Items[3].MatchPercentage,
	})
	assert.Equal(t, res.Items, l.Pool())
	assert.Empty(t, l.LastError())
}

func TestLoad_TopKBoundsLookup(t *testing.T) {
	client := abcd()
	l := New(client, WithTopK(2))
	res, err := l.Load(context.Background(), model.Filters{})
	require.NoError(t, err)

	require.Len(t, client.lookups, 1)
	assert.Equal(t, []string{"a", "b"}, client.lookups[0])
	assert.Equal(t, []string{"a", "b"}, ids(res.Items))
}

func TestLoad_NoCandidatesIsAnError(t *testing.T) {
	l := New(&fakeClient{})
	_, err := l.Load(context.Background(), model.Filters{})

	require.Error(t, err)
	assert.True(t, IsNoCandidates(err))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, StageCandidates, le.Stage)
	assert.NotEmpty(t, l.LastError())
	assert.Empty(t, l.Pool())
}

func TestLoad_AllExternalIDsMissing(t *testing.T) {
	l := New(&fakeClient{candidates: map[string][]model.Candidate{
		"": {{InternalID: "i1", Score: 0.4}},
	}})
	_, err := l.Load(context.Background(), model.Filters{})
	assert.True(t, IsNoCandidates(err))
}

func TestLoad_ReportsDrops(t *testing.T) {
	client := abcd()
	client.candidates[""] = append(client.candidates[""], model.Candidate{InternalID: "z", Score: 0.99})
	client.catalog = append(client.catalog, model.CatalogItem{ID: "x", ExternalID: "a"})

	res, err := New(client).Load(context.Background(), model.Filters{})
	require.NoError(t, err)
	// "x" joins through candidate "a" by external id and ties with it.
	assert.Equal(t, []string{"a", "x", "b", "c", "d"}, ids(res.Items))
	require.Len(t, res.Report.Dropped, 1)
	assert.Equal(t, ReasonMissingExternalID, res.Report.Dropped[0].Reason)
	assert.Equal(t, "z", res.Report.Dropped[0].InternalID)
}

func TestLoad_ShapeErrorKeepsPreviousPool(t *testing.T) {
	client := abcd()
	l := New(client)
	_, err := l.Load(context.Background(), model.Filters{})
	require.NoError(t, err)

	client.catalogErr = &remote.ShapeError{Op: "catalog lookup", Message: "expected a list"}
	_, err = l.Load(context.Background(), model.Filters{})
	require.Error(t, err)
	assert.True(t, remote.IsShapeError(err))
	assert.Contains(t, l.LastError(), "expected a list")
	assert.Len(t, l.Pool(), 4)
	assert.Equal(t, int64(2), l.Generation())
}

func TestLoad_StaleCompletionIsDiscarded(t *testing.T) {
	client := abcd()
	client.candidates["slow"] = []model.Candidate{{InternalID: "s", ExternalID: "s", Score: 0.8}}
	client.catalog = append(client.catalog, model.CatalogItem{ID: "s", ExternalID: "s"})
	gate := make(chan struct{})
	client.gates = map[string]chan struct{}{"s": gate}
	l := New(client)

	type outcome struct {
		res Result
		err error
	}
	slow := make(chan outcome, 1)
	go func() {
		res, err := l.Load(context.Background(), model.Filters{Categories: []string{"slow"}})
		slow <- outcome{res, err}
	}()
	require.Eventually(t, func() bool { return l.gens.Current() == 1 }, timeout, tick)

	fast, err := l.Load(context.Background(), model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), fast.Generation)

	close(gate)
	got := <-slow
	assert.True(t, IsStale(got.err))
	assert.Equal(t, int64(1), got.res.Generation)

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(l.Pool()))
	assert.Equal(t, int64(2), l.Generation())
	assert.Empty(t, l.LastError())
}

func TestFindItemByID(t *testing.T) {
	client := abcd()
	client.catalog[0] = model.CatalogItem{ID: "d", ExternalID: "ext-d"}
	client.candidates[""][2] = model.Candidate{InternalID: "d", ExternalID: "ext-d", Score: 0.3}
	l := New(client)
	_, err := l.Load(context.Background(), model.Filters{})
	require.NoError(t, err)

	item, ok := l.FindItemByID("d")
	require.True(t, ok)
	assert.Equal(t, 30, item.MatchPercentage)

	item, ok = l.FindItemByID("ext-d")
	require.True(t, ok)
	assert.Equal(t, "d", item.ID)

	_, ok = l.FindItemByID("missing")
	assert.False(t, ok)
	_, ok = l.FindItemByID("")
	assert.False(t, ok)
}

func TestGenerations(t *testing.T) {
	var g Generations
	assert.Equal(t, int64(0), g.Current())
	assert.Equal(t, int64(1), g.Next())
	assert.Equal(t, int64(2), g.Next())
	assert.Equal(t, int64(2), g.Current())
}
