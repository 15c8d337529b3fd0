package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

func TestResolveInput(t *testing.T) {
	videoStep := types.Step{Name: "v", InputType: types.MediaImage}
	concatStep := types.Step{Name: "c", InputType: types.MediaVideoList}

	clips := types.List(types.MediaVideo, []string{"a.mp4", "b.mp4"})
	got, err := resolveInput(concatStep, clips)
	require.Nil(t, err)
	assert.Equal(t, clips, got)

	one := types.Single(types.MediaVideo, "a.mp4")
	got, err = resolveInput(concatStep, one)
	require.Nil(t, err)
	assert.Equal(t, one, got, "single items pass unchanged into list inputs")

	_, err = resolveInput(videoStep, types.List(types.MediaImage, []string{"x.png"}))
	require.NotNil(t, err)
	assert.Equal(t, KindPropagation, err.Kind)

	_, err = resolveInput(videoStep, types.Text("hello"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrPropagation)

	_, err = resolveInput(concatStep, types.List(types.MediaImage, []string{"x.png"}))
	require.NotNil(t, err)

	_, err = resolveInput(videoStep, types.Payload{})
	require.NotNil(t, err)
}

func TestCombine(t *testing.T) {
	b := Batch{Steps: []types.Step{
		{Name: "a", OutputType: types.MediaImage},
		{Name: "b", OutputType: types.MediaImageList},
		{Name: "c", OutputType: types.MediaImage},
	}}
	results := []*StepResult{
		{Name: "a", Success: true, Output: types.Single(types.MediaImage, "a.png")},
		{Name: "b", Success: true, Output: types.List(types.MediaImage, []string{"b1.png", "b2.png"})},
		{Name: "c", Success: true, Output: types.Single(types.MediaImage, "c.png")},
	}
	assert.Equal(t, types.List(types.MediaImage, []string{"a.png", "b1.png", "b2.png", "c.png"}), combine(b, results))

	results[1] = &StepResult{Name: "b"}
	results[2] = nil
	assert.Equal(t, []string{"a.png"}, combine(b, results).Refs)

	single := Batch{Steps: b.Steps[:1]}
	assert.Equal(t, types.Single(types.MediaImage, "a.png"), combine(single, results[:1]))
}

func TestErrorFormatting(t *testing.T) {
	e := &Error{Kind: KindValidation, Step: "a", Other: "b", Msg: "mismatch"}
	assert.Equal(t, `steps "a" -> "b": mismatch`, e.Error())

	e = &Error{Kind: KindExecutorFailure, Step: "a", Err: assert.AnError}
	assert.Equal(t, `step "a": step failed: `+assert.AnError.Error(), e.Error())
	assert.ErrorIs(t, e, ErrExecutorFailure)
	assert.ErrorIs(t, e, assert.AnError)
	assert.Equal(t, KindExecutorFailure, KindOf(e))
	assert.Equal(t, "executor_failure", e.Kind.String())
	assert.False(t, IsCancellation(e))
}
