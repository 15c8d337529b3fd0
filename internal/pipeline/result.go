package pipeline

import (
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StepResult is the record of one executed step. It is not modified after
// the engine folds it into a RunResult.
type StepResult struct {
	Name      string
	Type      types.StepType
	Model     string
	Success   bool
	Output    types.Payload
	Cost      float64
	Duration  time.Duration
	StartedAt time.Time
	Err       *Error
	Metadata  map[string]any
}

// RunResult is the record of a whole chain execution. Steps are kept in
// declaration order regardless of completion order.
type RunResult struct {
	ID            string
	Pipeline      string
	Status        Status
	Success       bool
	Steps         []*StepResult
	TotalCost     float64
	TotalDuration time.Duration
	StartedAt     time.Time
	FailedStep    string
	Err           *Error

	output types.Payload
}

// Step returns the result recorded under name.
func (r *RunResult) Step(name string) (*StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Names returns the recorded step names in order.
func (r *RunResult) Names() []string {
	out := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Name
	}
	return out
}

// Output is the combined output of the last batch that produced one.
func (r *RunResult) Output() types.Payload { return r.output }

// Cancelled reports whether the run was halted by cancellation or deadline.
func (r *RunResult) Cancelled() bool {
	return r.Err != nil && r.Err.Kind == KindCancellation
}

func (r *RunResult) add(s *StepResult) {
	r.Steps = append(r.Steps, s)
	if s.Cost > 0 {
		r.TotalCost += s.Cost
	}
}

func (r *RunResult) halt(step string, err *Error) {
	r.Status = StatusFailed
	r.Success = false
	r.FailedStep = step
	r.Err = err
}
