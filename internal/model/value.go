package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AnswerValue is a sealed interface for survey answer values.
// Only Rating and Choice implement it.
type AnswerValue interface {
	answerValue()
}

// Rating is an integer rating answer (1-5) or NoAnswer.
type Rating int

func (Rating) answerValue() {}

// Rating bounds and the "skipped" sentinel.
const (
	MinRating Rating = 1
	MaxRating Rating = 5
	NoAnswer  Rating = -1
)

// Valid reports whether r is in range or is the NoAnswer sentinel.
func (r Rating) Valid() bool {
	return r == NoAnswer || (r >= MinRating && r <= MaxRating)
}

// Choice is a categorical answer value.
type Choice string

func (Choice) answerValue() {}

// Answers maps question keys to answer values.
// Use SortedKeys() for deterministic iteration.
type Answers map[string]AnswerValue

// Clone returns a shallow copy. AnswerValues are immutable so this is a full copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in canonical order.
func (a Answers) SortedKeys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Equal reports whether both maps hold the same answers.
func (a Answers) Equal(b Answers) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// UnmarshalJSON implements json.Unmarshaler for Answers.
// Integers decode to Rating, strings to Choice. Anything else is rejected.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = make(Answers, len(raw))
	for k, v := range raw {
		val, err := UnmarshalAnswerValue(v)
		if err != nil {
			return fmt.Errorf("answer %q: %w", k, err)
		}
		(*a)[k] = val
	}
	return nil
}

// UnmarshalAnswerValue decodes a single JSON value into an AnswerValue.
// Floats, null, booleans, arrays and objects are rejected.
func UnmarshalAnswerValue(data []byte) (AnswerValue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Choice(s), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	n, ok := raw.(json.Number)
	if !ok {
		return nil, fmt.Errorf("answer must be an integer rating or a string choice, got %s", string(data))
	}
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return nil, fmt.Errorf("floats are not valid answers: %s", s)
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("rating out of range: %s", s)
	}
	return Rating(i), nil
}

// ParseAnswerValue interprets a command-line or form value.
// Anything that parses as an integer is a Rating; everything else is a Choice.
func ParseAnswerValue(s string) AnswerValue {
	s = strings.TrimSpace(s)
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err == nil && fmt.Sprint(i) == s {
		return Rating(i)
	}
	return Choice(s)
}
