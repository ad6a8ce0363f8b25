package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/roach88/scentbox/internal/model"
)

const (
	defaultTimeout    = 8 * time.Second
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 512
)

// HTTPClient talks JSON to the remote store.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	now     func() time.Time

	mu    sync.RWMutex
	token string
}

var _ Client = (*HTTPClient)(nil)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.http = c
	}
}

// WithNow overrides the clock used for local token expiry checks.
func WithNow(now func() time.Time) HTTPOption {
	return func(h *HTTPClient) {
		h.now = now
	}
}

// NewHTTPClient creates a client for baseURL authenticating with a bearer token.
func NewHTTPClient(baseURL, token string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
		token:   strings.TrimSpace(token),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after a login.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *HTTPClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type recommendationsPayload struct {
	Recommendations json.RawMessage `json:"recommendations"`
}

// FetchRecommendations implements Client.
func (c *HTTPClient) FetchRecommendations(ctx context.Context, filters model.Filters) ([]model.Candidate, error) {
	const op = "fetch recommendations"

	q := url.Values{}
	if filters.MinPrice > 0 {
		q.Set("min_price", strconv.FormatFloat(filters.MinPrice, 'f', -1, 64))
	}
	if filters.MaxPrice > 0 {
		q.Set("max_price", strconv.FormatFloat(filters.MaxPrice, 'f', -1, 64))
	}
	for _, cat := range filters.Categories {
		q.Add("category", cat)
	}

	var payload recommendationsPayload
	if err := c.do(ctx, op, http.MethodGet, "/recommendations", q, nil, "", &payload); err != nil {
		return nil, err
	}
	if !isJSONArray(payload.Recommendations) {
		return nil, &ShapeError{Op: op, Message: "recommendations is not a list"}
	}

	var candidates []model.Candidate
	if err := json.Unmarshal(payload.Recommendations, &candidates); err != nil {
		return nil, &ShapeError{Op: op, Message: err.Error()}
	}
	return candidates, nil
}

// FetchCatalogItemsByExternalIDs implements Client. All ids go in one request.
func (c *HTTPClient) FetchCatalogItemsByExternalIDs(ctx context.Context, externalIDs []string) ([]model.CatalogItem, error) {
	const op = "fetch catalog items"

	body := map[string][]string{"external_ids": externalIDs}
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodPost, "/catalog/lookup", nil, body, "", &raw); err != nil {
		return nil, err
	}
	if !isJSONArray(raw) {
		return nil, &ShapeError{Op: op, Message: "catalog response is not a list"}
	}

	var items []model.CatalogItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ShapeError{Op: op, Message: err.Error()}
	}
	return items, nil
}

// SubmitSurveyAnswers implements Client.
func (c *HTTPClient) SubmitSurveyAnswers(ctx context.Context, sub Submission) error {
	return c.do(ctx, "submit answers", http.MethodPost, "/survey/answers", nil, sub, sub.IdempotencyKey, nil)
}

// ProbeCredentialValidity implements Client.
//
// A JWT whose exp claim has passed is reported invalid without a round trip.
// Opaque tokens always go to the remote probe.
func (c *HTTPClient) ProbeCredentialValidity(ctx context.Context) (bool, error) {
	token := c.currentToken()
	if token == "" {
		return false, nil
	}
	if expired, ok := c.jwtExpired(token); ok && expired {
		return false, nil
	}

	err := c.do(ctx, "probe credential", http.MethodGet, "/auth/probe", nil, nil, "", nil)
	if IsAuthFailure(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// jwtExpired reports (expired, isJWT). Signatures are not verified here; the
// remote store does that.
func (c *HTTPClient) jwtExpired(token string) (bool, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, false
	}
	if _, ok := claims["exp"]; !ok {
		return false, true
	}
	return !claims.VerifyExpiresAt(c.now().Unix(), true), true
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body any, idempotencyKey string, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%s: remote base URL is not configured", op)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, Code: resp.StatusCode, Body: drainError(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ShapeError{Op: op, Message: err.Error()}
	}
	return nil
}

func drainError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
