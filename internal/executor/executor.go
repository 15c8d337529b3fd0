package executor

import (
	"context"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Executor runs a single pipeline step.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Request carries all inputs for a step execution.
type Request struct {
	Step      types.Step
	Input     types.Payload
	Workspace *Workspace
}

// Result holds the output of a step execution. Cost is the amount already
// incurred; executors that fail after a billed call report it alongside the
// error through a non-nil Result.
type Result struct {
	Output   types.Payload
	Cost     float64
	Duration time.Duration
	Metadata map[string]any
}
