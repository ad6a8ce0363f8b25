package harness

import (
	"fmt"

	"github.com/roach88/scentbox/internal/model"
)

// args reads typed values out of a YAML-decoded argument map.
type args map[string]any

func (a args) string(key string) string {
	if s, ok := a[key].(string); ok {
		return s
	}
	return ""
}

// float accepts YAML ints and floats. Missing keys are zero.
func (a args) float(key string) float64 {
	switch v := a[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

func (a args) int(key string) (int, error) {
	v, ok := a[key].(int)
	if !ok {
		return 0, fmt.Errorf("%s: expected an integer, got %T", key, a[key])
	}
	return v, nil
}

func (a args) bool(key string) (bool, error) {
	v, ok := a[key].(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected a boolean, got %T", key, a[key])
	}
	return v, nil
}

func (a args) strings(key string) []string {
	list, ok := a[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// answer converts an integer to a Rating and a string to a Choice.
func (a args) answer(key string) (model.AnswerValue, error) {
	switch v := a[key].(type) {
	case int:
		return model.Rating(v), nil
	case string:
		return model.Choice(v), nil
	}
	return nil, fmt.Errorf("%s: expected an integer rating or a string choice, got %T", key, a[key])
}
