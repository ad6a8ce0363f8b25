package questionnaire

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scentbox/internal/model"
)

func TestDefault(t *testing.T) {
	q := Default()
	assert.Equal(t, 7, q.Total())

	family, ok := q.Lookup("family")
	require.True(t, ok)
	assert.Equal(t, KindChoice, family.Kind)
	assert.True(t, family.Required)
	assert.Contains(t, family.Options, "woody")

	sweetness, ok := q.Lookup("sweetness")
	require.True(t, ok)
	assert.Equal(t, KindRating, sweetness.Kind)
	assert.False(t, sweetness.Required)
}

func TestValidate(t *testing.T) {
	q := Default()

	tests := []struct {
		name    string
		key     string
		value   model.AnswerValue
		wantErr bool
	}{
		{"rating in range", "intensity", model.Rating(3), false},
		{"rating skipped", "intensity", model.NoAnswer, false},
		{"rating out of range", "intensity", model.Rating(9), true},
		{"rating given choice", "intensity", model.Choice("high"), true},
		{"choice listed", "family", model.Choice("woody"), false},
		{"choice unlisted", "family", model.Choice("aquatic"), true},
		{"choice given rating", "family", model.Rating(2), true},
		{"unknown key", "colour", model.Rating(2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := q.Validate(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	q := Default()
	assert.Equal(t, []string{"intensity", "family"}, q.Missing(model.Answers{}))
	assert.Equal(t, []string{"intensity"}, q.Missing(model.Answers{"intensity": model.NoAnswer, "family": model.Choice("fresh")}))
	assert.Empty(t, q.Missing(model.Answers{"intensity": model.Rating(2), "family": model.Choice("fresh")}))
}

func TestLoad_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.cue")
	src := `questions: [
	{key: "mood", kind: "choice", options: ["calm", "bold"]},
	{key: "warmth", kind: "rating"},
]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	q, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Total())
	assert.Equal(t, "mood", q.Questions()[0].Key)
}

func TestParse_RejectsUnknownKind(t *testing.T) {
	_, err := Parse("bad.cue", []byte(`questions: [{key: "x", kind: "slider"}]`))
	require.Error(t, err)
}

func TestParse_RejectsSyntaxError(t *testing.T) {
	_, err := Parse("bad.cue", []byte(`questions: [{key: `))
	require.Error(t, err)

	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		assert.True(t, loadErr.Pos.IsValid())
	}
}

func TestNew_Constraints(t *testing.T) {
	_, err := New([]Question{{Key: "a", Kind: KindChoice}})
	assert.Error(t, err, "choice without options")

	_, err = New([]Question{{Key: "a", Kind: KindRating, Options: []string{"x"}}})
	assert.Error(t, err, "rating with options")

	_, err = New([]Question{{Key: "a", Kind: KindRating}, {Key: "a", Kind: KindRating}})
	assert.Error(t, err, "duplicate key")

	_, err = New([]Question{{Kind: KindRating}})
	assert.Error(t, err, "empty key")
}
