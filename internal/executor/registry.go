package executor

import (
	"fmt"
	"sort"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Registry maps step types to executors. It is filled once per session and
// read-only afterwards.
type Registry struct {
	executors map[types.StepType]Executor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: map[types.StepType]Executor{}}
}

// Register binds exec to t. Each step type may be registered once.
func (r *Registry) Register(t types.StepType, exec Executor) error {
	if exec == nil {
		return fmt.Errorf("nil executor for step type %q", t)
	}
	if _, ok := r.executors[t]; ok {
		return fmt.Errorf("step type %q already registered", t)
	}
	r.executors[t] = exec
	return nil
}

// Lookup returns the executor for t.
func (r *Registry) Lookup(t types.StepType) (Executor, bool) {
	exec, ok := r.executors[t]
	return exec, ok
}

// Types returns the registered step types, sorted.
func (r *Registry) Types() []types.StepType {
	out := make([]types.StepType, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// providerBacked lists the step types served by GenerateExecutor.
var providerBacked = []types.StepType{
	types.TextToText,
	types.TextToImage,
	types.ImageToImage,
	types.TextToVideo,
	types.ImageToVideo,
	types.VideoToVideo,
	types.TextToSpeech,
	types.Transcribe,
}

// Deps are the collaborators needed to build the default registry.
type Deps struct {
	Generate *GenerateExecutor
	FFmpeg   string
}

// DefaultRegistry registers one executor per known step type.
func DefaultRegistry(d Deps) (*Registry, error) {
	r := NewRegistry()
	for _, t := range providerBacked {
		if err := r.Register(t, d.Generate); err != nil {
			return nil, err
		}
	}
	if err := r.Register(types.ConcatVideos, &ConcatExecutor{Command: d.FFmpeg}); err != nil {
		return nil, err
	}
	if err := r.Register(types.SplitImage, &SplitImageExecutor{}); err != nil {
		return nil, err
	}
	return r, nil
}
