package survey

import "time"

// SubmitPhase is the submission lock state.
type SubmitPhase int

const (
	Idle SubmitPhase = iota
	Submitting
)

func (p SubmitPhase) String() string {
	if p == Submitting {
		return "submitting"
	}
	return "idle"
}

// AuthPhase is the last observed authentication state.
type AuthPhase int

const (
	Unauthenticated AuthPhase = iota
	Authenticated
)

func (p AuthPhase) String() string {
	if p == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Edge is the kind of authentication transition an observation caused.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeLogin
	EdgeLogout
)

func (e Edge) String() string {
	switch e {
	case EdgeLogin:
		return "login"
	case EdgeLogout:
		return "logout"
	}
	return "none"
}

// nextAuth applies an observation to the current phase.
func nextAuth(cur AuthPhase, isAuthenticated bool) (AuthPhase, Edge) {
	switch {
	case isAuthenticated && cur == Unauthenticated:
		return Authenticated, EdgeLogin
	case !isAuthenticated && cur == Authenticated:
		return Unauthenticated, EdgeLogout
	}
	return cur, EdgeNone
}

// edgeInput is everything shouldSubmitOnEdge looks at.
type edgeInput struct {
	Edge             Edge
	HasAnswers       bool
	Pending          bool
	LastSubmissionAt time.Time // zero if never submitted
	Now              time.Time
	Debounce         time.Duration
}

// shouldSubmitOnEdge decides whether an edge schedules a submission.
//
// A transition with a non-empty map schedules one if it is a login edge or
// an upload is pending, and only if more than Debounce has elapsed since the
// last submission.
func shouldSubmitOnEdge(in edgeInput) bool {
	if in.Edge == EdgeNone || !in.HasAnswers {
		return false
	}
	if in.Edge != EdgeLogin && !in.Pending {
		return false
	}
	if !in.LastSubmissionAt.IsZero() && in.Now.Sub(in.LastSubmissionAt) <= in.Debounce {
		return false
	}
	return true
}

// tryAcquire takes the submission lock if it is free.
func tryAcquire(p SubmitPhase) (SubmitPhase, bool) {
	if p == Submitting {
		return p, false
	}
	return Submitting, true
}
