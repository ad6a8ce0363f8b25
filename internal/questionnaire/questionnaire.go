// Package questionnaire loads survey definitions written in CUE and checks
// answer values against them.
//
// A definition is a CUE document with a top-level questions list. It is
// unified with an embedded schema before decoding, so structural mistakes
// (unknown kind, empty key) are reported with CUE positions.
package questionnaire

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/scentbox/internal/model"
)

//go:embed schema.cue
var schemaCUE string

//go:embed default.cue
var defaultCUE []byte

// Kind distinguishes rating from categorical questions.
type Kind string

const (
	KindRating Kind = "rating"
	KindChoice Kind = "choice"
)

// Question is one survey question.
type Question struct {
	Key      string   `json:"key"`
	Kind     Kind     `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// Questionnaire is an ordered, validated set of questions.
type Questionnaire struct {
	questions []Question
	byKey     map[string]int
}

// LoadError is returned when a definition cannot be compiled or decoded.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the embedded questionnaire.
func Default() *Questionnaire {
	q, err := Parse("default.cue", defaultCUE)
	if err != nil {
		panic(fmt.Sprintf("embedded questionnaire is invalid: %v", err))
	}
	return q
}

// Load reads and parses a questionnaire file.
func Load(path string) (*Questionnaire, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questionnaire: %w", err)
	}
	return Parse(path, src)
}

// Parse compiles src against the questionnaire schema.
func Parse(filename string, src []byte) (*Questionnaire, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var questions []Question
	if err := v.LookupPath(cue.ParsePath("questions")).Decode(&questions); err != nil {
		return nil, formatCUEError(err)
	}

	return New(questions)
}

// New builds a questionnaire from already-decoded questions.
func New(questions []Question) (*Questionnaire, error) {
	q := &Questionnaire{
		questions: make([]Question, 0, len(questions)),
		byKey:     make(map[string]int, len(questions)),
	}
	for i, question := range questions {
		if question.Key == "" {
			return nil, &LoadError{Field: fmt.Sprintf("questions[%d].key", i), Message: "key is required"}
		}
		if _, dup := q.byKey[question.Key]; dup {
			return nil, &LoadError{Field: fmt.Sprintf("questions[%d].key", i), Message: fmt.Sprintf("duplicate key %q", question.Key)}
		}
		switch question.Kind {
		case KindRating:
			if len(question.Options) > 0 {
				return nil, &LoadError{Field: fmt.Sprintf("questions[%d].options", i), Message: "rating questions take no options"}
			}
		case KindChoice:
			if len(question.Options) == 0 {
				return nil, &LoadError{Field: fmt.Sprintf("questions[%d].options", i), Message: "choice questions need at least one option"}
			}
		default:
			return nil, &LoadError{Field: fmt.Sprintf("questions[%d].kind", i), Message: fmt.Sprintf("unknown kind %q", question.Kind)}
		}
		q.byKey[question.Key] = len(q.questions)
		q.questions = append(q.questions, question)
	}
	return q, nil
}

// Questions returns the questions in declaration order.
func (q *Questionnaire) Questions() []Question {
	return slices.Clone(q.questions)
}

// Total returns the number of questions.
func (q *Questionnaire) Total() int {
	return len(q.questions)
}

// Lookup returns the question for key.
func (q *Questionnaire) Lookup(key string) (Question, bool) {
	i, ok := q.byKey[key]
	if !ok {
		return Question{}, false
	}
	return q.questions[i], true
}

// Validate checks that value is an acceptable answer to the question key.
func (q *Questionnaire) Validate(key string, value model.AnswerValue) error {
	question, ok := q.Lookup(key)
	if !ok {
		return fmt.Errorf("unknown question %q", key)
	}
	switch question.Kind {
	case KindRating:
		r, ok := value.(model.Rating)
		if !ok {
			return fmt.Errorf("question %q expects a rating, got %T", key, value)
		}
		if !r.Valid() {
			return fmt.Errorf("question %q: rating %d out of range (1-5, or -1 for no answer)", key, r)
		}
	case KindChoice:
		c, ok := value.(model.Choice)
		if !ok {
			return fmt.Errorf("question %q expects one of %v, got %T", key, question.Options, value)
		}
		if !slices.Contains(question.Options, string(c)) {
			return fmt.Errorf("question %q: %q is not one of %v", key, c, question.Options)
		}
	}
	return nil
}

// Missing returns required questions that have no answer, in order.
func (q *Questionnaire) Missing(answers model.Answers) []string {
	var missing []string
	for _, question := range q.questions {
		if !question.Required {
			continue
		}
		if v, ok := answers[question.Key]; !ok || v == model.NoAnswer {
			missing = append(missing, question.Key)
		}
	}
	return missing
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
