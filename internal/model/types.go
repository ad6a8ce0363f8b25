package model

import (
	"fmt"
	"math"
	"strings"
)

// Candidate is a scored reference to a catalog item produced by the remote
// recommendation feed. InternalID and ExternalID belong to different
// identifier spaces.
type Candidate struct {
	InternalID string  `json:"internal_id" yaml:"internal_id"`
	ExternalID string  `json:"external_id" yaml:"external_id"`
	Score      float64 `json:"score" yaml:"score"`
}

// CatalogItem is a fully-detailed product record.
// ID is the internal id; ExternalID is kept for cross-referencing.
// MatchPercentage is only set once the item has been joined with a candidate.
type CatalogItem struct {
	ID              string            `json:"id" yaml:"id"`
	ExternalID      string            `json:"external_id" yaml:"external_id"`
	Name            string            `json:"name" yaml:"name"`
	Brand           string            `json:"brand" yaml:"brand"`
	ImageURL        string            `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	PricePerUnit    float64           `json:"price_per_unit" yaml:"price_per_unit"`
	Attributes      map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	MatchPercentage int               `json:"match_percentage" yaml:"-"`
}

// MatchPercentageFor converts a [0,1] score into a 0-100 integer percentage.
// Scores outside [0,1] are clamped.
func MatchPercentageFor(score float64) int {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		score = 1
	}
	return int(math.Round(score * 100))
}

// Filters narrows the recommendation feed.
type Filters struct {
	MinPrice   float64  `json:"min_price,omitempty"`
	MaxPrice   float64  `json:"max_price,omitempty"` // 0 means unbounded
	Categories []string `json:"categories,omitempty"`
}

// PriceRange bounds the per-unit price of selected items.
// A Max of zero or less means unbounded.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Unbounded returns a range that accepts every price.
func Unbounded() PriceRange {
	return PriceRange{}
}

// Contains reports whether price lies within the range (inclusive).
func (r PriceRange) Contains(price float64) bool {
	if price < r.Min {
		return false
	}
	if r.Max > 0 && price > r.Max {
		return false
	}
	return true
}

func (r PriceRange) String() string {
	if r.Max <= 0 {
		return fmt.Sprintf("[%g,inf]", r.Min)
	}
	return fmt.Sprintf("[%g,%g]", r.Min, r.Max)
}

// UnitSize is the sample size of every item in a box, in millilitres.
type UnitSize int

// Supported unit sizes.
const (
	Unit2ML  UnitSize = 2
	Unit5ML  UnitSize = 5
	Unit10ML UnitSize = 10
)

// ValidUnitSizes lists the unit sizes in ascending order.
var ValidUnitSizes = []UnitSize{Unit2ML, Unit5ML, Unit10ML}

// Millilitres returns the size as a multiplier for per-unit prices.
func (u UnitSize) Millilitres() int {
	return int(u)
}

// Valid reports whether u is one of ValidUnitSizes.
func (u UnitSize) Valid() bool {
	for _, v := range ValidUnitSizes {
		if u == v {
			return true
		}
	}
	return false
}

func (u UnitSize) String() string {
	return fmt.Sprintf("%dml", int(u))
}

// ParseUnitSize accepts "5", "5ml" or "5ML".
func ParseUnitSize(s string) (UnitSize, error) {
	trimmed := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "ml")
	var n int
	if _, err := fmt.Sscanf(trimmed, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid unit size %q", s)
	}
	u := UnitSize(n)
	if !u.Valid() {
		return 0, fmt.Errorf("unsupported unit size %q: must be one of %v", s, ValidUnitSizes)
	}
	return u, nil
}
