package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/executor"
	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// DefaultMaxConcurrency bounds parallel batches when the engine has no limit
// configured.
const DefaultMaxConcurrency = 4

// Engine executes chains. An Engine holds no per-run state and may run
// several chains concurrently.
type Engine struct {
	// MaxConcurrency caps concurrently running members of a parallel batch.
	MaxConcurrency int
	// Policy is PolicyStrict (default) or PolicyBestEffort.
	Policy string
	// Timeout is an optional overall deadline, checked between batches.
	Timeout time.Duration
	// Events receives lifecycle events; nil disables them.
	Events Sink
}

// Run executes chain against the initial input. The returned RunResult is
// complete even when a step fails or the context is cancelled; the error is
// non-nil only when the run could not start.
func (e *Engine) Run(ctx context.Context, chain *Chain, input types.Payload, ws *executor.Workspace) (*RunResult, error) {
	if chain == nil || chain.Len() == 0 {
		return nil, validationErr("", "", "empty chain")
	}
	switch e.Policy {
	case "", PolicyStrict, PolicyBestEffort:
	default:
		return nil, validationErr("", "", "unknown failure policy %q", e.Policy)
	}
	if input.IsZero() {
		return nil, validationErr(chain.steps[0].Name, "", "no initial input")
	}
	if err := compatible(input.Type, chain.InputType()); err != nil {
		return nil, validationErr(chain.steps[0].Name, "", "initial input: %s", err)
	}

	rr := &RunResult{
		ID:       uuid.NewString(),
		Pipeline: chain.Name(),
		Status:   StatusPending,
	}
	if ws != nil && ws.RunID != "" {
		rr.ID = ws.RunID
	}

	n := newNotifier(e.Events)
	defer n.close()

	start := time.Now()
	var deadline time.Time
	if e.Timeout > 0 {
		deadline = start.Add(e.Timeout)
	}
	rr.StartedAt = start
	rr.Status = StatusRunning
	logger := vlog.FromContext(ctx).With("run", rr.ID)
	logger.Info("run started", "pipeline", rr.Pipeline, "steps", chain.Len(), "batches", len(chain.batches))

	current := input
	for _, b := range chain.batches {
		if err := boundaryErr(ctx, deadline); err != nil {
			rr.halt("", err)
			break
		}

		n.emit(Event{Kind: EventBatchStart, Batch: b.Index, Group: b.Group, Steps: b.Steps})
		results := e.runBatch(ctx, chain, b, current, ws, n)
		for _, r := range results {
			if r != nil {
				rr.add(r)
			}
		}
		n.emit(Event{Kind: EventBatchComplete, Batch: b.Index, Group: b.Group, Steps: b.Steps})

		if step, err := e.haltFor(ctx, b, results); err != nil {
			rr.halt(step, err)
			break
		}
		current = combine(b, results)
		rr.output = current
	}

	rr.TotalDuration = time.Since(start)
	if rr.Status == StatusRunning {
		rr.Status = StatusCompleted
		rr.Success = true
		logger.Info("run completed", "cost", rr.TotalCost, "duration", rr.TotalDuration)
	} else {
		logger.Warn("run failed", "step", rr.FailedStep, "err", rr.Err, "cost", rr.TotalCost)
	}
	n.emit(Event{Kind: EventChainComplete, Run: rr})
	return rr, nil
}

// boundaryErr reports a cancellation or an exceeded deadline before a batch.
func boundaryErr(ctx context.Context, deadline time.Time) *Error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindCancellation, Err: err}
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		return &Error{Kind: KindCancellation, Msg: "run deadline exceeded", Err: context.DeadlineExceeded}
	}
	return nil
}

// runBatch executes every member of b and returns results in declaration
// order. Members that never started are left nil.
func (e *Engine) runBatch(ctx context.Context, chain *Chain, b Batch, in types.Payload, ws *executor.Workspace, n *notifier) []*StepResult {
	results := make([]*StepResult, len(b.Steps))
	if !b.Parallel() {
		results[0] = e.runStep(ctx, chain, b.Steps[0], in, ws)
		n.emit(Event{Kind: EventStepComplete, Batch: b.Index, Group: b.Group, Result: results[0]})
		return results
	}

	limit := e.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	if limit > len(b.Steps) {
		limit = len(b.Steps)
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, step := range b.Steps {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			r := e.runStep(ctx, chain, step, in, ws)
			results[i] = r
			n.emit(Event{Kind: EventStepComplete, Batch: b.Index, Group: b.Group, Result: r})
			return nil
		})
	}
	g.Wait()
	return results
}

// runStep resolves the input for one step, invokes its executor and folds
// every outcome, including panics, into a StepResult.
func (e *Engine) runStep(ctx context.Context, chain *Chain, step types.Step, in types.Payload, ws *executor.Workspace) *StepResult {
	start := time.Now()
	sr := &StepResult{
		Name:      step.Name,
		Type:      step.Type,
		Model:     step.Model,
		StartedAt: start,
	}

	input, perr := resolveInput(step, in)
	if perr != nil {
		sr.Err = perr
		sr.Duration = time.Since(start)
		return sr
	}

	vlog.Debug("step started", "step", step.Name, "type", step.Type, "model", step.Model)
	res, err := invoke(ctx, chain.executor(step), &executor.Request{Step: step, Input: input, Workspace: ws})
	sr.Duration = time.Since(start)
	if res != nil {
		if res.Cost > 0 {
			sr.Cost = res.Cost
		}
		sr.Metadata = res.Metadata
	}

	switch {
	case err != nil:
		kind := KindExecutorFailure
		if ctx.Err() != nil {
			kind = KindCancellation
		}
		sr.Err = &Error{Kind: kind, Step: step.Name, Err: err}
	case res == nil:
		sr.Err = &Error{Kind: KindExecutorFailure, Step: step.Name, Msg: "executor returned no result"}
	case res.Output.Type != step.OutputType:
		sr.Err = &Error{
			Kind: KindPropagation,
			Step: step.Name,
			Msg:  fmt.Sprintf("executor produced %q, step declares %s", res.Output.Type, step.OutputType),
		}
	default:
		sr.Success = true
		sr.Output = res.Output
	}

	if sr.Success {
		vlog.Debug("step completed", "step", step.Name, "cost", sr.Cost, "duration", sr.Duration)
	} else {
		vlog.Warn("step failed", "step", step.Name, "err", sr.Err, "cost", sr.Cost)
	}
	return sr
}

// invoke calls exec, converting a panic into an error.
func invoke(ctx context.Context, exec executor.Executor, req *executor.Request) (res *executor.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			vlog.Error("executor panicked", "step", req.Step.Name, "panic", r, "stack", string(debug.Stack()))
			res, err = nil, fmt.Errorf("executor panicked: %v", r)
		}
	}()
	return exec.Execute(ctx, req)
}

// haltFor decides whether the chain stops after batch b. It returns the name
// of the halting step (possibly empty) and the run error.
func (e *Engine) haltFor(ctx context.Context, b Batch, results []*StepResult) (string, *Error) {
	var failed []*StepResult
	missing := false
	for _, r := range results {
		switch {
		case r == nil:
			missing = true
		case !r.Success:
			failed = append(failed, r)
		}
	}

	if ctx.Err() != nil && (missing || len(failed) > 0) {
		step := ""
		if len(failed) > 0 {
			step = failed[0].Name
		}
		return step, &Error{Kind: KindCancellation, Step: step, Err: ctx.Err()}
	}
	if len(failed) == 0 {
		return "", nil
	}

	first := failed[0]
	// A failed sequential step leaves nothing to propagate, so it halts under
	// either policy.
	if !b.Parallel() || e.Policy != PolicyBestEffort {
		return first.Name, first.Err
	}
	if len(failed) == len(b.Steps) {
		return first.Name, first.Err
	}
	for _, r := range failed {
		if s, _ := stepByName(b, r.Name); s.BoolParam(types.ParamRequired, false) {
			return r.Name, r.Err
		}
	}
	vlog.Warn("continuing past failed steps", "batch", b.Index, "group", b.Group, "failed", len(failed))
	return "", nil
}

func stepByName(b Batch, name string) (types.Step, bool) {
	for _, s := range b.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return types.Step{}, false
}
