package pipeline

import (
	"fmt"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// resolveInput derives a step's input from the current upstream output.
// Lists pass unchanged into list inputs, single items pass unchanged into
// either shape (executors coerce), and a list never feeds a single input.
func resolveInput(step types.Step, current types.Payload) (types.Payload, *Error) {
	if current.IsZero() {
		return types.Payload{}, &Error{Kind: KindPropagation, Step: step.Name, Msg: "no upstream output"}
	}
	if current.IsList() {
		if !step.InputType.IsList() {
			return types.Payload{}, &Error{
				Kind: KindPropagation,
				Step: step.Name,
				Msg:  fmt.Sprintf("list output %s cannot feed single input %s", current.Type, step.InputType),
			}
		}
		if current.Type.Elem() != step.InputType.Elem() {
			return types.Payload{}, &Error{
				Kind: KindPropagation,
				Step: step.Name,
				Msg:  fmt.Sprintf("output %s does not match input %s", current.Type, step.InputType),
			}
		}
		return current, nil
	}
	if current.Type != step.InputType.Elem() {
		return types.Payload{}, &Error{
			Kind: KindPropagation,
			Step: step.Name,
			Msg:  fmt.Sprintf("output %s does not match input %s", current.Type, step.InputType),
		}
	}
	return current, nil
}

// combine fans in a batch's results in declaration order. Failed or missing
// members are skipped; list outputs are flattened in place.
func combine(b Batch, results []*StepResult) types.Payload {
	if !b.Parallel() {
		if r := results[0]; r != nil && r.Success {
			return r.Output
		}
		return types.Payload{}
	}
	var refs []string
	for _, r := range results {
		if r == nil || !r.Success {
			continue
		}
		if r.Output.IsList() {
			refs = append(refs, r.Output.Refs...)
		} else {
			refs = append(refs, r.Output.Ref)
		}
	}
	return types.List(b.OutputType(), refs)
}
