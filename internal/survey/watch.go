package survey

import "context"

// Observe enqueues an authentication observation. Safe to call from any
// goroutine; Run applies observations in order. Returns false after Stop.
func (e *Engine) Observe(isAuthenticated bool) bool {
	return e.queue.Enqueue(isAuthenticated)
}

// Run is the single consumer of authentication observations.
// It blocks until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	for {
		for {
			v, ok := e.queue.TryDequeue()
			if !ok {
				break
			}
			e.ObserveNow(ctx, v)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, open := <-e.queue.Wait():
			if !open {
				// Drain what was enqueued before Close.
				for {
					v, ok := e.queue.TryDequeue()
					if !ok {
						return nil
					}
					e.ObserveNow(ctx, v)
				}
			}
		}
	}
}

// Stop closes the observation queue. Run returns once it has drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// ObserveNow applies one observation synchronously and reports whether it
// led to a confirmed submission.
func (e *Engine) ObserveNow(ctx context.Context, isAuthenticated bool) bool {
	e.mu.Lock()
	next, edge := nextAuth(e.authPhase, isAuthenticated)
	e.authPhase = next
	submit := shouldSubmitOnEdge(edgeInput{
		Edge:             edge,
		HasAnswers:       len(e.answers) > 0,
		Pending:          e.pending,
		LastSubmissionAt: e.lastSubmissionAt,
		Now:              e.now(),
		Debounce:         e.debounce,
	})
	e.mu.Unlock()

	if edge == EdgeNone {
		return false
	}
	e.logger.Debug("auth edge", "edge", edge.String(), "submit", submit)
	if !submit {
		return false
	}
	return e.SubmitIfAuthenticated(ctx)
}
