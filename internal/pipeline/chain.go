package pipeline

import (
	"fmt"
	"strings"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/executor"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Batch is one or more consecutive steps executed together. Members of a
// parallel batch share the same upstream input.
type Batch struct {
	Index int
	Group string
	Steps []types.Step
}

// Parallel reports whether the batch fans out to more than one step.
func (b Batch) Parallel() bool { return len(b.Steps) > 1 }

// InputType is the input type shared by every member.
func (b Batch) InputType() types.MediaType { return b.Steps[0].InputType }

// OutputType is the type of the batch's combined output. Parallel batches
// always fan in to a list.
func (b Batch) OutputType() types.MediaType {
	if !b.Parallel() {
		return b.Steps[0].OutputType
	}
	return types.ListOf(b.Steps[0].OutputType.Elem())
}

// Names returns the member step names in declaration order.
func (b Batch) Names() []string {
	out := make([]string, len(b.Steps))
	for i, s := range b.Steps {
		out[i] = s.Name
	}
	return out
}

// Chain is a validated, immutable sequence of steps grouped into batches.
// Executors are resolved once at build time.
type Chain struct {
	name    string
	steps   []types.Step
	batches []Batch
	execs   []executor.Executor
}

// Name is the pipeline name the chain was built from, if any.
func (c *Chain) Name() string { return c.name }

// Len returns the number of steps.
func (c *Chain) Len() int { return len(c.steps) }

// Steps returns the steps in declaration order.
func (c *Chain) Steps() []types.Step {
	out := make([]types.Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// Batches returns the execution batches in order.
func (c *Chain) Batches() []Batch {
	out := make([]Batch, len(c.batches))
	copy(out, c.batches)
	return out
}

// Step looks up a step by name.
func (c *Chain) Step(name string) (types.Step, bool) {
	for _, s := range c.steps {
		if s.Name == name {
			return s, true
		}
	}
	return types.Step{}, false
}

// InputType is the type the chain's initial input must satisfy.
func (c *Chain) InputType() types.MediaType { return c.batches[0].InputType() }

// OutputType is the type of the final batch's combined output.
func (c *Chain) OutputType() types.MediaType { return c.batches[len(c.batches)-1].OutputType() }

func (c *Chain) executor(s types.Step) executor.Executor { return c.execs[s.Index] }

// BuildPipeline builds the chain for a parsed pipeline document.
func BuildPipeline(p *Pipeline, reg *executor.Registry) (*Chain, error) {
	c, err := Build(p.Steps, reg)
	if err != nil {
		return nil, err
	}
	c.name = p.Name
	return c, nil
}

// Build validates step specifications against the registry and the step type
// table and computes parallel batches. It has no side effects.
func Build(specs []types.StepSpec, reg *executor.Registry) (*Chain, error) {
	if len(specs) == 0 {
		return nil, validationErr("", "", "pipeline has no steps")
	}
	if reg == nil {
		return nil, validationErr("", "", "no executor registry")
	}

	c := &Chain{}
	seen := map[string]bool{}
	for i, spec := range specs {
		step, exec, err := describe(i, spec, reg)
		if err != nil {
			return nil, err
		}
		if seen[step.Name] {
			return nil, validationErr(step.Name, "", "duplicate step name")
		}
		seen[step.Name] = true
		c.steps = append(c.steps, step)
		c.execs = append(c.execs, exec)
	}

	batches, err := batchSteps(c.steps)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(batches); i++ {
		if err := checkBoundary(batches[i-1], batches[i]); err != nil {
			return nil, err
		}
	}
	c.batches = batches
	return c, nil
}

// describe turns one spec into a step descriptor and resolves its executor.
func describe(i int, spec types.StepSpec, reg *executor.Registry) (types.Step, executor.Executor, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return types.Step{}, nil, validationErr(fmt.Sprintf("#%d", i+1), "", "step has no name")
	}
	if spec.Type == "" {
		return types.Step{}, nil, validationErr(name, "", "step has no type")
	}

	exec, ok := reg.Lookup(spec.Type)
	if !ok {
		return types.Step{}, nil, &Error{Kind: KindUnknownStepType, Step: name, Msg: fmt.Sprintf("unknown step type %q", spec.Type)}
	}
	in, out, ok := types.Signature(spec.Type)
	if !ok {
		return types.Step{}, nil, &Error{Kind: KindUnknownStepType, Step: name, Msg: fmt.Sprintf("step type %q has no type signature", spec.Type)}
	}

	var err error
	if in, err = override(name, "input_type", in, spec.InputType); err != nil {
		return types.Step{}, nil, err
	}
	if out, err = override(name, "output_type", out, spec.OutputType); err != nil {
		return types.Step{}, nil, err
	}

	params := types.CopyParams(spec.Params)
	step := types.Step{
		Index:      i,
		Name:       name,
		Type:       spec.Type,
		Model:      spec.Model,
		Params:     params,
		InputType:  in,
		OutputType: out,
	}
	step.Group = strings.TrimSpace(step.StringParam(types.ParamParallelGroup, ""))
	return step, exec, nil
}

// override applies an explicitly declared type. Declarations may change the
// shape (single or list) but never the element type of the table entry.
func override(step, field string, table, declared types.MediaType) (types.MediaType, error) {
	if declared == "" {
		return table, nil
	}
	if !declared.Valid() {
		return "", validationErr(step, "", "%s %q is not a media type", field, declared)
	}
	if declared.Elem() != table.Elem() {
		return "", validationErr(step, "", "%s %s conflicts with step type (%s)", field, declared, table)
	}
	return declared, nil
}

// batchSteps groups maximal runs of equal non-empty parallel_group tags.
func batchSteps(steps []types.Step) ([]Batch, error) {
	var batches []Batch
	closed := map[string]string{}
	for _, s := range steps {
		if n := len(batches); n > 0 && s.Group != "" && batches[n-1].Group == s.Group {
			b := &batches[n-1]
			first := b.Steps[0]
			if s.InputType != first.InputType {
				return nil, validationErr(first.Name, s.Name, "parallel_group %q members take different inputs (%s, %s)", s.Group, first.InputType, s.InputType)
			}
			if s.OutputType.Elem() != first.OutputType.Elem() {
				return nil, validationErr(first.Name, s.Name, "parallel_group %q members produce different outputs (%s, %s)", s.Group, first.OutputType, s.OutputType)
			}
			b.Steps = append(b.Steps, s)
			continue
		}
		if s.Group != "" {
			if prev, ok := closed[s.Group]; ok {
				return nil, validationErr(prev, s.Name, "parallel_group %q is split by other steps", s.Group)
			}
		}
		if n := len(batches); n > 0 && batches[n-1].Group != "" {
			last := batches[n-1]
			closed[last.Group] = last.Steps[len(last.Steps)-1].Name
		}
		batches = append(batches, Batch{Index: len(batches), Group: s.Group, Steps: []types.Step{s}})
	}

	for _, b := range batches {
		if b.Parallel() && b.OutputType() == "" {
			return nil, validationErr(b.Steps[0].Name, "", "parallel_group %q produces %s, which cannot be collected into a list", b.Group, b.Steps[0].OutputType)
		}
	}
	return batches, nil
}

// checkBoundary validates that prev's combined output can feed next.
func checkBoundary(prev, next Batch) error {
	producer := prev.Steps[len(prev.Steps)-1]
	for _, s := range next.Steps {
		if err := compatible(prev.OutputType(), s.InputType); err != nil {
			return validationErr(producer.Name, s.Name, "%s", err)
		}
	}
	return nil
}

// compatible applies the propagation rule to a producer/consumer type pair.
func compatible(out, in types.MediaType) error {
	switch {
	case out == in:
		return nil
	case !out.IsList() && in.IsList() && in.Elem() == out:
		return nil
	case out.IsList() && !in.IsList() && out.Elem() == in:
		return fmt.Errorf("list output %s cannot feed single input %s", out, in)
	default:
		return fmt.Errorf("output %s does not match input %s", out, in)
	}
}
