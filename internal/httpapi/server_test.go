package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/questionnaire"
	"github.com/roach88/scentbox/internal/recommend"
	"github.com/roach88/scentbox/internal/remote"
	"github.com/roach88/scentbox/internal/selection"
	"github.com/roach88/scentbox/internal/store"
	"github.com/roach88/scentbox/internal/survey"
	"github.com/roach88/scentbox/internal/testutil"
)

type testServer struct {
	handler   http.Handler
	client    *remote.FixtureClient
	survey    *survey.Engine
	selection *selection.Engine
}

func fixture() remote.Fixture {
	return remote.Fixture{
		Candidates: []model.Candidate{
			{InternalID: "a", ExternalID: "ext-a", Score: 0.9},
			{InternalID: "b", ExternalID: "ext-b", Score: 0.7},
			{InternalID: "c", ExternalID: "ext-c", Score: 0.5},
			{InternalID: "d", ExternalID: "ext-d", Score: 0.3},
			{InternalID: "e", ExternalID: "ext-e", Score: 0.2},
		},
		Catalog: []model.CatalogItem{
			{ID: "a", ExternalID: "ext-a", Name: "Neroli", PricePerUnit: 1},
			{ID: "b", ExternalID: "ext-b", Name: "Vetiver", PricePerUnit: 2},
			{ID: "c", ExternalID: "ext-c", Name: "Oud", PricePerUnit: 3},
			{ID: "d", ExternalID: "ext-d", Name: "Iris", PricePerUnit: 4},
			{ID: "e", ExternalID: "ext-e", Name: "Amber", PricePerUnit: 5},
		},
	}
}

func newTestServer(t *testing.T, f remote.Fixture) *testServer {
	t.Helper()
	client := remote.NewFixtureClient(f)
	clock := testutil.NewFakeClock(time.Time{})
	sv := survey.New(client,
		survey.WithStore(store.NewMemory()),
		survey.WithClock(clock.Now),
		survey.WithQuestionnaire(questionnaire.Default()),
		survey.WithKeyGenerator(testutil.NewSequenceGenerator("")),
	)
	sel := selection.New()
	srv := New(sv, recommend.New(client), sel)
	return &testServer{handler: srv.Routes(), client: client, survey: sv, selection: sel}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, Response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr.Code, resp
}

// data re-decodes the envelope payload into dst.
func data(t *testing.T, resp Response, dst any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func TestSurveyRoutes(t *testing.T) {
	ts := newTestServer(t, fixture())

	code, resp := ts.do(t, http.MethodPut, "/survey/answers/intensity", `4`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)

	code, resp = ts.do(t, http.MethodPut, "/survey/answers/family", `"woody"`)
	require.Equal(t, http.StatusOK, code)

	var status survey.Status
	data(t, resp, &status)
	assert.Equal(t, model.Answers{"intensity": model.Rating(4), "family": model.Choice("woody")}, status.Answers)
	assert.True(t, status.PendingUpload)

	code, resp = ts.do(t, http.MethodPut, "/survey/answers/intensity", `4.5`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_answer", resp.Error.Code)

	code, resp = ts.do(t, http.MethodPut, "/survey/answers/intensity", `9`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "answer_rejected", resp.Error.Code)

	code, resp = ts.do(t, http.MethodPost, "/survey/submit", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"submitted": false}, resp.Data)

	code, _ = ts.do(t, http.MethodDelete, "/survey", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, ts.survey.Snapshot().Answers)
}

func TestProgressRoutes(t *testing.T) {
	ts := newTestServer(t, fixture())

	code, resp := ts.do(t, http.MethodGet, "/survey/progress", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no_progress", resp.Error.Code)

	code, _ = ts.do(t, http.MethodPut, "/survey/progress", `{"last_question_key":"season"}`)
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodGet, "/survey/progress", "")
	require.Equal(t, http.StatusOK, code)
	var cp survey.Checkpoint
	data(t, resp, &cp)
	assert.Equal(t, "season", cp.LastQuestionKey)
	assert.Equal(t, 7, cp.TotalQuestions)

	code, resp = ts.do(t, http.MethodPut, "/survey/progress", `{"question":"season"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestAuthRoute_FeedsSubscriptionLoop(t *testing.T) {
	ts := newTestServer(t, fixture())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ts.survey.Run(ctx) }()

	code, _ := ts.do(t, http.MethodPut, "/survey/answers/intensity", `3`)
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodPut, "/auth", `{"authenticated":true}`)
	require.Equal(t, http.StatusAccepted, code)
	require.Eventually(t, func() bool { return len(ts.client.Submissions()) == 1 }, time.Second, 5*time.Millisecond)

	code, resp := ts.do(t, http.MethodPut, "/auth", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", resp.Error.Code)

	ts.survey.Stop()
	code, resp = ts.do(t, http.MethodPut, "/auth", `{"authenticated":false}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting_down", resp.Error.Code)
}

func TestRecommendations_ReseedSelection(t *testing.T) {
	ts := newTestServer(t, fixture())

	code, resp := ts.do(t, http.MethodPost, "/recommendations", "")
	require.Equal(t, http.StatusOK, code)
	var res recommend.Result
	data(t, resp, &res)
	require.Len(t, res.Items, 5)
	assert.Equal(t, "a", res.Items[0].ID)
	assert.Equal(t, 90, res.Items[0].MatchPercentage)

	code, resp = ts.do(t, http.MethodGet, "/selection", "")
	require.Equal(t, http.StatusOK, code)
	var view selectionView
	data(t, resp, &view)
	assert.Equal(t, []string{"a", "b", "c", "d"}, view.SelectedIDs)
	assert.Equal(t, 50, view.TotalPrice) // (1+2+3+4) * 5ml
	require.Len(t, view.Items, 4)
	assert.Equal(t, "Neroli", view.Items[0].Name)

	code, resp = ts.do(t, http.MethodGet, "/items/ext-c", "")
	require.Equal(t, http.StatusOK, code)
	var item model.CatalogItem
	data(t, resp, &item)
	assert.Equal(t, "Oud", item.Name)

	code, _ = ts.do(t, http.MethodGet, "/items/zzz", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRecommendations_OlderLoadDoesNotReseed(t *testing.T) {
	ts := newTestServer(t, fixture())
	newer := []model.CatalogItem{
		{ID: "x", ExternalID: "ext-x", PricePerUnit: 1, MatchPercentage: 99},
	}
	// A load with a later generation has already reached the selection.
	require.True(t, ts.selection.ApplyLoad(context.Background(), 7, newer))

	code, resp := ts.do(t, http.MethodPost, "/recommendations", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "stale_load", resp.Error.Code)
	assert.Equal(t, []string{"x"}, ts.selection.Selected())
}

func TestRecommendations_Errors(t *testing.T) {
	ts := newTestServer(t, remote.Fixture{})
	code, resp := ts.do(t, http.MethodPost, "/recommendations", `{"max_price": 3}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "no_candidates", resp.Error.Code)

	code, resp = ts.do(t, http.MethodPost, "/recommendations", `{"colour": "red"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestSelectionRoutes(t *testing.T) {
	ts := newTestServer(t, fixture())
	code, _ := ts.do(t, http.MethodPost, "/recommendations", "")
	require.Equal(t, http.StatusOK, code)

	var view selectionView

	code, resp := ts.do(t, http.MethodPost, "/selection/remove", `{"id":"b"}`)
	require.Equal(t, http.StatusOK, code)
	data(t, resp, &view)
	assert.Equal(t, []string{"a", "c", "d", "e"}, view.SelectedIDs)
	assert.Equal(t, []string{"b"}, view.ExcludedIDs)

	code, resp = ts.do(t, http.MethodPost, "/selection/swap", `{"old_id":"c","new_id":"b"}`)
	require.Equal(t, http.StatusOK, code)
	data(t, resp, &view)
	assert.Equal(t, []string{"a", "b", "d", "e"}, view.SelectedIDs)
	assert.Empty(t, view.ExcludedIDs)

	code, resp = ts.do(t, http.MethodPut, "/selection/unit", `{"unit":"10ml"}`)
	require.Equal(t, http.StatusOK, code)
	data(t, resp, &view)
	assert.Equal(t, 120, view.TotalPrice) // (1+2+4+5) * 10ml

	code, resp = ts.do(t, http.MethodPut, "/selection/count", `{"count":8}`)
	require.Equal(t, http.StatusOK, code)
	data(t, resp, &view)
	assert.Len(t, view.SelectedIDs, 5)

	code, resp = ts.do(t, http.MethodPut, "/selection/price", `{"min":2,"max":4}`)
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodPut, "/selection/count", `{"count":6}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_count", resp.Error.Code)

	code, resp = ts.do(t, http.MethodPut, "/selection/price", `{"min":5,"max":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_price_range", resp.Error.Code)

	code, resp = ts.do(t, http.MethodPut, "/selection/unit", `{"unit":"3ml"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = ts.do(t, http.MethodPost, "/selection/remove", `{"id":"zzz"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_selected", resp.Error.Code)

	code, resp = ts.do(t, http.MethodPost, "/selection/swap", `{"old_id":"a","new_id":"a"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "swap_rejected", resp.Error.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, fixture())
	code, resp := ts.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "error", resp.Status)

	code, resp = ts.do(t, http.MethodPatch, "/selection", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "method_not_allowed", resp.Error.Code)
}
