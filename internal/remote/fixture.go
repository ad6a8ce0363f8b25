package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scentbox/internal/model"
)

// Fixture is the YAML document served by FixtureClient.
type Fixture struct {
	// CredentialValid is the answer to ProbeCredentialValidity.
	// Defaults to true when omitted.
	CredentialValid *bool `yaml:"credential_valid,omitempty"`

	// SubmitStatus, when non-zero, makes every submission fail with that status.
	SubmitStatus int `yaml:"submit_status,omitempty"`

	Candidates []model.Candidate   `yaml:"candidates"`
	Catalog    []model.CatalogItem `yaml:"catalog"`
}

// FixtureClient serves recommendations and catalog data from a Fixture and
// records submissions. Safe for concurrent use.
type FixtureClient struct {
	mu          sync.Mutex
	fixture     Fixture
	submissions []Submission
}

var _ Client = (*FixtureClient)(nil)

// LoadFixture reads a fixture file with strict field checking.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture document, rejecting unknown fields.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}
	return &f, nil
}

// NewFixtureClient serves f.
func NewFixtureClient(f Fixture) *FixtureClient {
	return &FixtureClient{fixture: f}
}

// FetchRecommendations returns every fixture candidate. Price filters are
// applied against the fixture catalog when a candidate can be resolved there.
func (c *FixtureClient) FetchRecommendations(ctx context.Context, filters model.Filters) ([]model.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byExternal := make(map[string]model.CatalogItem, len(c.fixture.Catalog))
	for _, item := range c.fixture.Catalog {
		byExternal[item.ExternalID] = item
	}

	out := make([]model.Candidate, 0, len(c.fixture.Candidates))
	for _, cand := range c.fixture.Candidates {
		if item, ok := byExternal[cand.ExternalID]; ok {
			if filters.MinPrice > 0 && item.PricePerUnit < filters.MinPrice {
				continue
			}
			if filters.MaxPrice > 0 && item.PricePerUnit > filters.MaxPrice {
				continue
			}
		}
		out = append(out, cand)
	}
	return out, nil
}

// FetchCatalogItemsByExternalIDs returns matching items in fixture order,
// not request order.
func (c *FixtureClient) FetchCatalogItemsByExternalIDs(ctx context.Context, externalIDs []string) ([]model.CatalogItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []model.CatalogItem{}
	for _, item := range c.fixture.Catalog {
		if slices.Contains(externalIDs, item.ExternalID) {
			out = append(out, item)
		}
	}
	return out, nil
}

// SubmitSurveyAnswers records sub, or fails with the configured status.
func (c *FixtureClient) SubmitSurveyAnswers(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fixture.SubmitStatus != 0 {
		return &StatusError{Op: "submit answers", Code: c.fixture.SubmitStatus}
	}
	sub.Answers = sub.Answers.Clone()
	c.submissions = append(c.submissions, sub)
	return nil
}

// ProbeCredentialValidity implements Client.
func (c *FixtureClient) ProbeCredentialValidity(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fixture.CredentialValid == nil {
		return true, nil
	}
	return *c.fixture.CredentialValid, nil
}

// Submissions returns the recorded submissions in order.
func (c *FixtureClient) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.submissions)
}
