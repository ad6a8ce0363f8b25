// Package remote defines the network client the engines consume and its
// implementations.
//
// The engines only see the Client interface. HTTPClient talks JSON to the
// remote store; FixtureClient serves a YAML fixture for offline runs and
// tests.
package remote

import (
	"context"

	"github.com/roach88/scentbox/internal/model"
)

// Submission is one survey upload attempt.
type Submission struct {
	// IdempotencyKey is unique per attempt and lets the remote store
	// collapse retried deliveries of the same attempt.
	IdempotencyKey string `json:"-"`

	// Answers is a snapshot taken when the attempt started.
	Answers model.Answers `json:"answers"`

	// AnswerSetHash identifies the answer set across attempts.
	AnswerSetHash string `json:"answer_set_hash"`
}

// Client is the remote store as seen by the engines.
//
// Implementations return *StatusError for non-2xx responses and *ShapeError
// for payloads that do not have the expected structure.
type Client interface {
	FetchRecommendations(ctx context.Context, filters model.Filters) ([]model.Candidate, error)
	FetchCatalogItemsByExternalIDs(ctx context.Context, externalIDs []string) ([]model.CatalogItem, error)
	SubmitSurveyAnswers(ctx context.Context, sub Submission) error
	ProbeCredentialValidity(ctx context.Context) (bool, error)
}
