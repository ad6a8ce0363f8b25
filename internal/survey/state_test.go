package survey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextAuth(t *testing.T) {
	tests := []struct {
		name     string
		cur      AuthPhase
		observed bool
		want     AuthPhase
		edge     Edge
	}{
		{"login", Unauthenticated, true, Authenticated, EdgeLogin},
		{"logout", Authenticated, false, Unauthenticated, EdgeLogout},
		{"repeat true", Authenticated, true, Authenticated, EdgeNone},
		{"repeat false", Unauthenticated, false, Unauthenticated, EdgeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, edge := nextAuth(tt.cur, tt.observed)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.edge, edge)
		})
	}
}

func TestShouldSubmitOnEdge(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	base := edgeInput{Edge: EdgeLogin, HasAnswers: true, Now: now, Debounce: 5 * time.Second}

	tests := []struct {
		name   string
		mutate func(*edgeInput)
		want   bool
	}{
		{"login with answers, never submitted", func(*edgeInput) {}, true},
		{"no edge", func(in *edgeInput) { in.Edge = EdgeNone }, false},
		{"empty map", func(in *edgeInput) { in.HasAnswers = false }, false},
		{"logout without pending", func(in *edgeInput) { in.Edge = EdgeLogout }, false},
		{"logout with pending", func(in *edgeInput) { in.Edge = EdgeLogout; in.Pending = true }, true},
		{"inside debounce", func(in *edgeInput) { in.LastSubmissionAt = now.Add(-3 * time.Second) }, false},
		{"exactly at debounce", func(in *edgeInput) { in.LastSubmissionAt = now.Add(-5 * time.Second) }, false},
		{"past debounce", func(in *edgeInput) { in.LastSubmissionAt = now.Add(-6 * time.Second) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			assert.Equal(t, tt.want, shouldSubmitOnEdge(in))
		})
	}
}

func TestTryAcquire(t *testing.T) {
	p, ok := tryAcquire(Idle)
	assert.True(t, ok)
	assert.Equal(t, Submitting, p)

	p, ok = tryAcquire(p)
	assert.False(t, ok)
	assert.Equal(t, Submitting, p)
}

func TestPhaseStrings(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "login", EdgeLogin.String())
}

func TestAuthQueue_FIFOAndClose(t *testing.T) {
	q := newAuthQueue()
	assert.True(t, q.Enqueue(true))
	assert.True(t, q.Enqueue(false))
	assert.Equal(t, 2, q.Len())

	v, ok := q.TryDequeue()
	assert.True(t, ok)
	assert.True(t, v)
	v, ok = q.TryDequeue()
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = q.TryDequeue()
	assert.False(t, ok)

	q.Close()
	assert.False(t, q.Enqueue(true))
	_, open := <-q.Wait()
	assert.False(t, open)
}
