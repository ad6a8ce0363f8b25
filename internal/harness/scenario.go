package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/remote"
	"github.com/roach88/scentbox/internal/selection"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Selection holds the initial box settings.
	Selection SelectionSetup `yaml:"selection,omitempty"`

	// Fixture is what the remote store serves.
	Fixture remote.Fixture `yaml:"fixture"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// SelectionSetup configures the selection engine before the first step.
// Zero values keep the engine defaults.
type SelectionSetup struct {
	TargetCount int     `yaml:"target_count,omitempty"`
	UnitSize    string  `yaml:"unit_size,omitempty"`
	MinPrice    float64 `yaml:"min_price,omitempty"`
	MaxPrice    float64 `yaml:"max_price,omitempty"`
}

// Step is one operation.
type Step struct {
	// Op is the operation name (see package documentation).
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect optionally checks the step outcome.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a step outcome. Unset fields are not checked.
type Expect struct {
	OK       *bool    `yaml:"ok,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Selected []string `yaml:"selected,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs is the expected id list (selected, excluded, pool).
	IDs []string `yaml:"ids,omitempty"`

	// Value is the expected total price (total_price).
	Value int `yaml:"value,omitempty"`

	// Count is the expected number of submissions (submissions).
	Count int `yaml:"count,omitempty"`

	// Pending is the expected pending-upload flag (pending).
	Pending *bool `yaml:"pending,omitempty"`
}

// Assertion type constants.
const (
	AssertSelected    = "selected"
	AssertExcluded    = "excluded"
	AssertPool        = "pool"
	AssertTotalPrice  = "total_price"
	AssertSubmissions = "submissions"
	AssertPending     = "pending"
)

// Operation names.
const (
	OpLoad           = "load"
	OpSetTargetCount = "set_target_count"
	OpSetPriceRange  = "set_price_range"
	OpSetUnit        = "set_unit"
	OpRemove         = "remove"
	OpSwap           = "swap"
	OpSetAnswer      = "set_answer"
	OpSubmit         = "submit"
	OpResetSurvey    = "reset_survey"
	OpAuth           = "auth"
	OpAdvance        = "advance"
)

var knownOps = map[string]bool{
	OpLoad: true, OpSetTargetCount: true, OpSetPriceRange: true, OpSetUnit: true,
	OpRemove: true, OpSwap: true, OpSetAnswer: true, OpSubmit: true,
	OpResetSurvey: true, OpAuth: true, OpAdvance: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if n := s.Selection.TargetCount; n != 0 && !selection.ValidTargetCount(n) {
		return fmt.Errorf("selection.target_count must be 4 or 8, got %d", n)
	}
	if s.Selection.UnitSize != "" {
		if _, err := model.ParseUnitSize(s.Selection.UnitSize); err != nil {
			return fmt.Errorf("selection.unit_size: %w", err)
		}
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSelected, AssertExcluded, AssertPool, AssertTotalPrice:
	case AssertSubmissions:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for submissions", index)
		}
	case AssertPending:
		if a.Pending == nil {
			return fmt.Errorf("assertions[%d]: pending is required for pending", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
