package survey

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/roach88/scentbox/internal/store"
)

// Checkpoint is the persisted survey progress.
type Checkpoint struct {
	LastQuestionKey string    `json:"last_question_key"`
	Timestamp       time.Time `json:"timestamp"`
	TotalQuestions  int       `json:"total_questions"`
	AnsweredCount   int       `json:"answered_count"`
}

// SaveProgress persists a checkpoint for the question the user is on.
// Returns false if key is empty or the store write failed.
func (e *Engine) SaveProgress(ctx context.Context, lastQuestionKey string) bool {
	lastQuestionKey = strings.TrimSpace(lastQuestionKey)
	if lastQuestionKey == "" {
		return false
	}

	e.mu.Lock()
	cp := Checkpoint{
		LastQuestionKey: lastQuestionKey,
		Timestamp:       e.now().UTC(),
		AnsweredCount:   len(e.answers),
	}
	e.mu.Unlock()
	if e.questions != nil {
		cp.TotalQuestions = e.questions.Total()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		e.logger.Error("encode progress", "error", err)
		return false
	}
	if err := e.kv.Set(ctx, store.KeySurveyProgress, string(data)); err != nil {
		e.logger.Error("persist progress", "error", err)
		return false
	}
	return true
}

// Progress returns the checkpoint if one exists and is within the
// freshness window.
func (e *Engine) Progress(ctx context.Context) (Checkpoint, bool) {
	raw, ok, err := e.kv.Get(ctx, store.KeySurveyProgress)
	if err != nil {
		e.logger.Error("read progress", "error", err)
		return Checkpoint{}, false
	}
	if !ok {
		return Checkpoint{}, false
	}

	var cp Checkpoint
	if err := json.Unmarshal([]byte(raw), &cp); err != nil || cp.LastQuestionKey == "" || cp.Timestamp.IsZero() {
		e.logger.Warn("ignoring corrupt progress checkpoint", "error", err)
		return Checkpoint{}, false
	}
	if e.now().Sub(cp.Timestamp) > e.freshness {
		return Checkpoint{}, false
	}
	return cp, true
}

// LastQuestionID returns the key of the last visited question if the
// checkpoint is fresh.
func (e *Engine) LastQuestionID(ctx context.Context) (string, bool) {
	cp, ok := e.Progress(ctx)
	if !ok {
		return "", false
	}
	return cp.LastQuestionKey, true
}
