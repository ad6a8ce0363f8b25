package recommend

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCandidates means the load produced nothing to rank. An empty
	// recommendation set is an error: selection cannot work without a pool.
	ErrNoCandidates = errors.New("no recommendations available")

	// ErrStaleLoad means a newer load committed first and this result was
	// discarded.
	ErrStaleLoad = errors.New("superseded by a newer load")
)

// Stage names the step of a load that failed.
type Stage string

const (
	StageCandidates Stage = "fetch candidates"
	StageCatalog    Stage = "fetch catalog"
	StageJoin       Stage = "join"
	StageCommit     Stage = "commit"
)

// LoadError is a failed load. Err is either a sentinel from this package or
// the client error (*remote.StatusError, *remote.ShapeError).
type LoadError struct {
	Stage      Stage
	Generation int64
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %d: %s: %v", e.Generation, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsNoCandidates reports whether err is an empty-feed failure.
func IsNoCandidates(err error) bool {
	return errors.Is(err, ErrNoCandidates)
}

// IsStale reports whether err is a discarded superseded load.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleLoad)
}
