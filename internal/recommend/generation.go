package recommend

import "sync/atomic"

// Generations issues monotonic load generations.
//
// Every Load takes the next generation before any network call. Generation
// order is issue order, so comparing generations at completion tells a
// superseded load from a current one regardless of completion order.
//
// Thread-safety: safe for concurrent use (atomic operations).
type Generations struct {
	seq atomic.Int64
}

// Next returns the next generation.
func (g *Generations) Next() int64 {
	return g.seq.Add(1)
}

// Current returns the last issued generation without incrementing.
func (g *Generations) Current() int64 {
	return g.seq.Load()
}
