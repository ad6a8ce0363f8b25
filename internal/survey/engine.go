package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/questionnaire"
	"github.com/roach88/scentbox/internal/remote"
	"github.com/roach88/scentbox/internal/store"
)

const (
	// DefaultDebounce is the minimum spacing between edge-triggered submissions.
	DefaultDebounce = 5 * time.Second

	// DefaultFreshness is how long a progress checkpoint stays resumable.
	DefaultFreshness = 7 * 24 * time.Hour
)

// Authenticator ends the user's session when the remote store rejects the
// credential.
type Authenticator interface {
	Logout(ctx context.Context)
}

// LogoutFunc adapts a function to Authenticator.
type LogoutFunc func(ctx context.Context)

// Logout implements Authenticator.
func (f LogoutFunc) Logout(ctx context.Context) { f(ctx) }

// Engine is the survey sync engine.
//
// Thread-safety: All exported methods are safe for concurrent use. Network
// calls are made without holding the state mutex.
type Engine struct {
	kv        store.KV
	client    remote.Client
	session   Authenticator
	questions *questionnaire.Questionnaire
	keys      KeyGenerator
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
	debounce  time.Duration
	freshness time.Duration

	// persistMu orders snapshot-then-write sequences so an older answer map
	// never overwrites a newer one in the store.
	persistMu sync.Mutex

	mu               sync.Mutex
	answers          model.Answers
	submitPhase      SubmitPhase
	authPhase        AuthPhase
	pending          bool
	lastSubmissionAt time.Time
	submittedHash    string

	queue *authQueue
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the persisted store. Defaults to an in-memory store.
func WithStore(kv store.KV) Option {
	return func(e *Engine) { e.kv = kv }
}

// WithAuthenticator sets the logout target for rejected credentials.
func WithAuthenticator(a Authenticator) Option {
	return func(e *Engine) { e.session = a }
}

// WithQuestionnaire enables answer validation against a questionnaire.
func WithQuestionnaire(q *questionnaire.Questionnaire) Option {
	return func(e *Engine) { e.questions = q }
}

// WithKeyGenerator sets the idempotency key source. Defaults to UUIDv7.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(e *Engine) { e.keys = g }
}

// WithClock sets the wall clock used for debounce and freshness.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithFreshness overrides DefaultFreshness.
func WithFreshness(d time.Duration) Option {
	return func(e *Engine) { e.freshness = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAuthenticated sets the initial authentication phase without treating
// it as an edge.
func WithAuthenticated(b bool) Option {
	return func(e *Engine) {
		if b {
			e.authPhase = Authenticated
		} else {
			e.authPhase = Unauthenticated
		}
	}
}

// New creates a survey engine that submits through client.
func New(client remote.Client, opts ...Option) *Engine {
	e := &Engine{
		client:    client,
		keys:      UUIDv7Generator{},
		now:       time.Now,
		logger:    slog.Default(),
		tracer:    otel.Tracer("github.com/roach88/scentbox/internal/survey"),
		debounce:  DefaultDebounce,
		freshness: DefaultFreshness,
		answers:   make(model.Answers),
		queue:     newAuthQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.kv == nil {
		e.kv = store.NewMemory()
	}
	if e.session == nil {
		e.session = LogoutFunc(func(context.Context) {})
	}
	return e
}

// SetAnswer records an answer and persists the map.
//
// If the user is not authenticated the pending-upload flag is set and
// persisted. Returns false, storing nothing, if the key is empty or the
// questionnaire rejects the value.
func (e *Engine) SetAnswer(ctx context.Context, key string, value model.AnswerValue) bool {
	key = norm.NFC.String(strings.TrimSpace(key))
	if key == "" || value == nil {
		return false
	}
	if e.questions != nil {
		if err := e.questions.Validate(key, value); err != nil {
			e.logger.Debug("answer rejected", "key", key, "error", err)
			return false
		}
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	e.answers[key] = value
	snapshot := e.answers.Clone()
	markPending := e.authPhase == Unauthenticated
	if markPending {
		e.pending = true
	}
	e.mu.Unlock()

	e.persistAnswers(ctx, snapshot)
	if markPending {
		e.persistPending(ctx, true)
	}
	return true
}

// SubmitIfAuthenticated uploads the current answer set if the user is
// authenticated and no attempt is in flight. Returns true only when the
// remote store confirmed the upload.
func (e *Engine) SubmitIfAuthenticated(ctx context.Context) bool {
	e.mu.Lock()
	switch {
	case e.submitPhase == Submitting:
		e.mu.Unlock()
		e.logger.Debug("submission already in flight")
		return false
	case e.authPhase != Authenticated:
		e.mu.Unlock()
		e.logger.Debug("submission skipped", "reason", "unauthenticated")
		return false
	case len(e.answers) == 0:
		e.mu.Unlock()
		e.logger.Debug("submission skipped", "reason", "no answers")
		return false
	}
	snapshot := e.answers.Clone()
	hash, err := model.AnswerSetHash(snapshot)
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("hash answers", "error", err)
		return false
	}
	if hash == e.submittedHash && !e.pending {
		e.mu.Unlock()
		e.logger.Debug("submission skipped", "reason", "already submitted", "hash", hash)
		return false
	}
	e.submitPhase, _ = tryAcquire(e.submitPhase)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.submitPhase = Idle
		e.mu.Unlock()
	}()

	ctx, span := e.tracer.Start(ctx, "survey.submit",
		trace.WithAttributes(
			attribute.Int("survey.answers", len(snapshot)),
			attribute.String("survey.hash", hash),
		))
	defer span.End()

	valid, err := e.client.ProbeCredentialValidity(ctx)
	if err != nil {
		e.fail(ctx, span, "probe credential", err)
		return false
	}
	if !valid {
		span.SetStatus(codes.Error, "credential invalid")
		e.logger.Warn("credential invalid, logging out")
		e.forceLogout(ctx)
		return false
	}

	e.mu.Lock()
	e.lastSubmissionAt = e.now()
	e.mu.Unlock()

	sub := remote.Submission{
		IdempotencyKey: e.keys.Generate(),
		Answers:        snapshot,
		AnswerSetHash:  hash,
	}
	span.SetAttributes(attribute.String("survey.idempotency_key", sub.IdempotencyKey))
	if err := e.client.SubmitSurveyAnswers(ctx, sub); err != nil {
		e.fail(ctx, span, "submit answers", err)
		return false
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	e.submittedHash = hash
	current, err := model.AnswerSetHash(e.answers)
	cleared := err == nil && current == hash && e.pending
	if cleared {
		e.pending = false
	}
	e.mu.Unlock()

	e.set(ctx, store.KeySurveySubmittedHash, hash)
	if cleared {
		e.persistPending(ctx, false)
	}
	e.logger.Info("survey submitted", "answers", len(snapshot), "hash", hash, "key", sub.IdempotencyKey)
	return true
}

// fail records a failed attempt. Auth failures force a logout; everything
// else leaves the pending flag for a later retry.
func (e *Engine) fail(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	if remote.IsAuthFailure(err) {
		e.logger.Warn("credential rejected, logging out", "op", op, "error", err)
		e.forceLogout(ctx)
		return
	}
	e.logger.Warn("submission failed", "op", op, "error", err, "transient", remote.IsTransient(err))
}

func (e *Engine) forceLogout(ctx context.Context) {
	e.mu.Lock()
	e.authPhase = Unauthenticated
	e.mu.Unlock()
	e.session.Logout(ctx)
}

// ResetSurvey clears answers, the pending flag, the submitted hash and the
// progress checkpoint.
func (e *Engine) ResetSurvey(ctx context.Context) {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	e.answers = make(model.Answers)
	e.pending = false
	e.submittedHash = ""
	e.mu.Unlock()

	for _, key := range []string{
		store.KeySurveyAnswers,
		store.KeyPendingUpload,
		store.KeySurveySubmittedHash,
		store.KeySurveyProgress,
	} {
		if err := e.kv.Remove(ctx, key); err != nil {
			e.logger.Error("reset survey", "key", key, "error", err)
		}
	}
}

// Restore loads persisted answers, the pending flag and the last confirmed
// hash. Corrupt values are logged and ignored; only store failures are
// returned.
func (e *Engine) Restore(ctx context.Context) error {
	answers := make(model.Answers)
	raw, ok, err := e.kv.Get(ctx, store.KeySurveyAnswers)
	if err != nil {
		return fmt.Errorf("restore answers: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			e.logger.Warn("discarding corrupt answers", "error", err)
			answers = make(model.Answers)
		}
	}

	pendingRaw, ok, err := e.kv.Get(ctx, store.KeyPendingUpload)
	if err != nil {
		return fmt.Errorf("restore pending flag: %w", err)
	}
	pending := ok && pendingRaw == "true"

	hash, _, err := e.kv.Get(ctx, store.KeySurveySubmittedHash)
	if err != nil {
		return fmt.Errorf("restore submitted hash: %w", err)
	}

	e.mu.Lock()
	e.answers = answers
	e.pending = pending
	e.submittedHash = hash
	e.mu.Unlock()

	e.logger.Debug("survey restored", "answers", len(answers), "pending", pending)
	return nil
}

// Status is a read-only view of the engine for the UI.
type Status struct {
	Answers          model.Answers `json:"answers"`
	Authenticated    bool          `json:"authenticated"`
	Submitting       bool          `json:"submitting"`
	PendingUpload    bool          `json:"pending_upload"`
	SubmittedHash    string        `json:"submitted_hash,omitempty"`
	LastSubmissionAt *time.Time    `json:"last_submission_at,omitempty"`
}

// Snapshot returns a copy of the current answers and sync state.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Answers:       e.answers.Clone(),
		Authenticated: e.authPhase == Authenticated,
		Submitting:    e.submitPhase == Submitting,
		PendingUpload: e.pending,
		SubmittedHash: e.submittedHash,
	}
	if !e.lastSubmissionAt.IsZero() {
		t := e.lastSubmissionAt
		s.LastSubmissionAt = &t
	}
	return s
}

func (e *Engine) persistAnswers(ctx context.Context, answers model.Answers) {
	data, err := json.Marshal(answers)
	if err != nil {
		e.logger.Error("encode answers", "error", err)
		return
	}
	e.set(ctx, store.KeySurveyAnswers, string(data))
}

func (e *Engine) persistPending(ctx context.Context, pending bool) {
	if pending {
		e.set(ctx, store.KeyPendingUpload, "true")
		return
	}
	if err := e.kv.Remove(ctx, store.KeyPendingUpload); err != nil {
		e.logger.Error("clear pending flag", "error", err)
	}
}

func (e *Engine) set(ctx context.Context, key, value string) {
	if err := e.kv.Set(ctx, key, value); err != nil {
		if errors.Is(err, context.Canceled) {
			e.logger.Debug("persist canceled", "key", key)
			return
		}
		e.logger.Error("persist", "key", key, "error", err)
	}
}
