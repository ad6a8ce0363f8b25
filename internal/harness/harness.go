package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/questionnaire"
	"github.com/roach88/scentbox/internal/recommend"
	"github.com/roach88/scentbox/internal/remote"
	"github.com/roach88/scentbox/internal/selection"
	"github.com/roach88/scentbox/internal/store"
	"github.com/roach88/scentbox/internal/survey"
	"github.com/roach88/scentbox/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fake clock and deterministic idempotency keys.
type Harness struct {
	client    *remote.FixtureClient
	survey    *survey.Engine
	loader    *recommend.Loader
	selection *selection.Engine
	clock     *testutil.FakeClock
	logger    *slog.Logger
	seq       int64
}

// Run executes a scenario and returns the result.
//
// Each scenario runs over a fresh in-memory store for isolation.
// Execution errors (bad step arguments) are returned; behavioural
// mismatches are recorded in the result.
func Run(scenario *Scenario) (*Result, error) {
	h := newHarness(scenario)
	ctx := context.Background()

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		result.Trace = append(result.Trace, event)
		for _, msg := range checkExpect(i, step, event) {
			result.AddError(msg)
		}
		h.logger.Info("step completed", "step", i, "op", step.Op, "ok", event.OK, "error", event.Error)
	}

	result.Final = h.final()
	for _, msg := range EvaluateAssertions(result.Final, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(s *Scenario) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewFakeClock(time.Time{})
	kv := store.NewMemory()
	client := remote.NewFixtureClient(s.Fixture)

	opts := []selection.Option{selection.WithStore(kv), selection.WithLogger(logger)}
	if s.Selection.TargetCount != 0 {
		opts = append(opts, selection.WithTargetCount(s.Selection.TargetCount))
	}
	if s.Selection.UnitSize != "" {
		if u, err := model.ParseUnitSize(s.Selection.UnitSize); err == nil {
			opts = append(opts, selection.WithUnitSize(u))
		}
	}
	opts = append(opts, selection.WithPriceRange(model.PriceRange{Min: s.Selection.MinPrice, Max: s.Selection.MaxPrice}))

	return &Harness{
		client: client,
		survey: survey.New(client,
			survey.WithStore(kv),
			survey.WithClock(clock.Now),
			survey.WithQuestionnaire(questionnaire.Default()),
			survey.WithKeyGenerator(testutil.NewSequenceGenerator("scenario")),
			survey.WithLogger(logger),
		),
		loader:    recommend.New(client, recommend.WithLogger(logger)),
		selection: selection.New(opts...),
		clock:     clock,
		logger:    logger,
	}
}

// execute runs one step and records the resulting event.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	a := args(step.Args)
	var ok bool
	var errCode string

	switch step.Op {
	case OpLoad:
		filters := model.Filters{
			MinPrice:   a.float("min_price"),
			MaxPrice:   a.float("max_price"),
			Categories: a.strings("categories"),
		}
		res, err := h.loader.Load(ctx, filters)
		if err != nil {
			errCode = loadErrorCode(err)
		} else {
			ok = h.selection.ApplyLoad(ctx, res.Generation, res.Items)
			if !ok {
				errCode = "stale_load"
			}
		}
	case OpSetTargetCount:
		n, err := a.int("count")
		if err != nil {
			return TraceEvent{}, err
		}
		ok = h.selection.SetTargetCount(ctx, n)
	case OpSetPriceRange:
		ok = h.selection.SetPriceRange(ctx, model.PriceRange{Min: a.float("min"), Max: a.float("max")})
	case OpSetUnit:
		u, err := model.ParseUnitSize(a.string("unit"))
		ok = err == nil && h.selection.SetUnitSize(ctx, u)
	case OpRemove:
		ok = h.selection.Remove(ctx, a.string("id"))
	case OpSwap:
		ok = h.selection.Swap(ctx, a.string("old_id"), a.string("new_id"))
	case OpSetAnswer:
		v, err := a.answer("value")
		if err != nil {
			return TraceEvent{}, err
		}
		ok = h.survey.SetAnswer(ctx, a.string("key"), v)
	case OpSubmit:
		ok = h.survey.SubmitIfAuthenticated(ctx)
	case OpResetSurvey:
		h.survey.ResetSurvey(ctx)
		ok = true
	case OpAuth:
		b, err := a.bool("authenticated")
		if err != nil {
			return TraceEvent{}, err
		}
		ok = h.survey.ObserveNow(ctx, b)
	case OpAdvance:
		d, err := time.ParseDuration(a.string("duration"))
		if err != nil {
			return TraceEvent{}, fmt.Errorf("duration: %w", err)
		}
		h.clock.Advance(d)
		ok = true
	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	h.seq++
	return TraceEvent{
		Seq:         h.seq,
		Op:          step.Op,
		OK:          ok,
		Error:       errCode,
		Selected:    h.selection.Selected(),
		TotalPrice:  h.selection.TotalPrice(),
		Submissions: len(h.client.Submissions()),
	}, nil
}

func (h *Harness) final() FinalState {
	pool := h.loader.Pool()
	ids := make([]string, len(pool))
	for i, item := range pool {
		ids[i] = item.ID
	}
	return FinalState{
		Selected:    h.selection.Selected(),
		Excluded:    h.selection.Excluded(),
		Pool:        ids,
		TotalPrice:  h.selection.TotalPrice(),
		Submissions: len(h.client.Submissions()),
		Pending:     h.survey.Snapshot().PendingUpload,
	}
}

// loadErrorCode maps a load failure to the code recorded in the trace.
func loadErrorCode(err error) string {
	switch {
	case recommend.IsStale(err):
		return "stale_load"
	case recommend.IsNoCandidates(err):
		return "no_candidates"
	case remote.IsShapeError(err):
		return "bad_shape"
	case remote.IsAuthFailure(err):
		return "unauthorized"
	}
	return "load_failed"
}
