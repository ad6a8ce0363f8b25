package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Op          string   `json:"op"`
	OK          bool     `json:"ok"`
	Error       string   `json:"error,omitempty"`
	Selected    []string `json:"selected"`
	TotalPrice  int      `json:"total_price"`
	Submissions int      `json:"submissions"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the state the assertions were evaluated against.
	Final FinalState `json:"final"`
}

// FinalState is the observable state after the last step.
type FinalState struct {
	Selected    []string `json:"selected"`
	Excluded    []string `json:"excluded"`
	Pool        []string `json:"pool"`
	TotalPrice  int      `json:"total_price"`
	Submissions int      `json:"submissions"`
	Pending     bool     `json:"pending"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
