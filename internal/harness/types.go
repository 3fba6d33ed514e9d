package harness

import (
	"github.com/roach88/envelope/internal/ir"
	"github.com/roach88/envelope/internal/store"
)

// Step phases.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// StepTrace records what one batch planned and wrote.
type StepTrace struct {
	Phase    string             `json:"phase"`
	Step     int                `json:"step"`
	Strategy string             `json:"strategy,omitempty"`
	Planned  []ir.PlannedRecord `json:"planned"`
	Written  store.Result       `json:"written"`

	// Error is the code of the error the batch failed with, if any.
	Error string `json:"error,omitempty"`
}

// Counts returns the number of planned records per operation type.
func (s StepTrace) Counts() map[ir.OperationType]int {
	counts := make(map[ir.OperationType]int)
	for _, pr := range s.Planned {
		counts[pr.Operation()]++
	}
	return counts
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one entry per setup and flow step, in execution order.
	Trace []StepTrace `json:"trace"`

	// Errors contains failed expectation and assertion messages.
	Errors []string `json:"errors,omitempty"`

	// State is the stored dataset after the flow, in write order.
	State []ir.Record `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []StepTrace{},
		Errors: []string{},
		State:  []ir.Record{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step to the trace.
func (r *Result) AddStep(s StepTrace) {
	r.Trace = append(r.Trace, s)
}

// FlowSteps returns the flow entries of the trace.
func (r *Result) FlowSteps() []StepTrace {
	var out []StepTrace
	for _, s := range r.Trace {
		if s.Phase == PhaseFlow {
			out = append(out, s)
		}
	}
	return out
}
