package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerSetHash_OrderIndependent(t *testing.T) {
	a := Answers{}
	a["x"] = Rating(1)
	a["y"] = Choice("amber")

	b := Answers{}
	b["y"] = Choice("amber")
	b["x"] = Rating(1)

	assert.Equal(t, MustAnswerSetHash(a), MustAnswerSetHash(b))
}

func TestAnswerSetHash_DistinguishesValues(t *testing.T) {
	base := MustAnswerSetHash(Answers{"x": Rating(1)})
	assert.NotEqual(t, base, MustAnswerSetHash(Answers{"x": Rating(2)}))
	assert.NotEqual(t, base, MustAnswerSetHash(Answers{"x": Choice("1")}))
	assert.NotEqual(t, base, MustAnswerSetHash(Answers{"x": Rating(1), "y": NoAnswer}))
}

func TestAnswerSetHash_Format(t *testing.T) {
	h, err := AnswerSetHash(Answers{})
	require.NoError(t, err)
	assert.Len(t, h, 64)
}

func TestAnswerSetHash_RejectsNilValue(t *testing.T) {
	_, err := AnswerSetHash(Answers{"x": nil})
	assert.Error(t, err)
}
