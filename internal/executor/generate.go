package executor

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/cost"
	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/models"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/provider"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// GenerateExecutor serves every provider-backed step type. The model id is
// resolved against the catalog on each call, the named provider is invoked,
// and returned artifacts are copied into the run's output directory.
type GenerateExecutor struct {
	Models    models.Resolver
	Providers *provider.Registry
	// Timeout bounds one provider call; zero means no executor-imposed limit.
	Timeout time.Duration
}

// params that steer the executor and are not forwarded to providers.
var localParams = map[string]bool{
	types.ParamParallelGroup:  true,
	types.ParamOutputFilename: true,
	types.ParamRequired:       true,
	"timeout":                 true,
}

func (e *GenerateExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()
	step := req.Step

	meta, err := e.Models.Resolve(step.Model)
	if err != nil {
		return nil, err
	}
	if !meta.Supports(step.Type) {
		return nil, fmt.Errorf("model %q does not support %s", meta.ID, step.Type)
	}
	p, err := e.Providers.Get(meta.Provider)
	if err != nil {
		return nil, err
	}

	preq := provider.Request{
		Model:    meta.ID,
		Endpoint: meta.Endpoint,
		Kind:     step.Type,
		Output:   step.OutputType,
		Prompt:   promptFor(req),
		Params:   map[string]any{},
	}
	for k, v := range step.Params {
		if !localParams[k] && k != "prompt" {
			preq.Params[k] = v
		}
	}
	if req.Input.Type != types.MediaText {
		preq.Inputs = req.Input.Items()
	}

	callCtx := ctx
	timeout := e.Timeout
	if v := step.StringParam("timeout", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	vlog.Debug("invoking provider", "step", step.Name, "model", meta.ID, "provider", meta.Provider)
	resp, err := p.Invoke(callCtx, preq)
	if err != nil {
		err = fmt.Errorf("%s via %s: %w", meta.ID, meta.Provider, err)
		if resp == nil {
			return nil, err
		}
		// Billed without usable output.
		return &Result{Cost: callCost(meta, step, resp), Duration: time.Since(start)}, err
	}

	res := &Result{
		Cost: callCost(meta, step, resp),
		Metadata: map[string]any{
			"model":         meta.ID,
			"provider":      meta.Provider,
			"deterministic": resp.Raw["seed"] != nil,
		},
	}
	if seed, ok := resp.Raw["seed"]; ok {
		res.Metadata["seed"] = seed
		if req.Workspace != nil {
			req.Workspace.Set(SeedKey(step.Name), seed)
		}
	}

	out, err := e.collect(ctx, req, resp)
	if err != nil {
		// The provider call already happened; keep its cost on the result.
		res.Duration = time.Since(start)
		return res, err
	}
	res.Output = out
	res.Duration = time.Since(start)
	return res, nil
}

// collect turns a provider response into the step's declared output shape,
// saving artifacts under the run's output directory.
func (e *GenerateExecutor) collect(ctx context.Context, req *Request, resp *provider.Response) (types.Payload, error) {
	step := req.Step
	if step.OutputType == types.MediaText {
		if resp.Text == "" {
			return types.Payload{}, fmt.Errorf("provider returned no text")
		}
		return types.Text(resp.Text), nil
	}
	if len(resp.Artifacts) == 0 {
		return types.Payload{}, fmt.Errorf("provider returned no artifacts")
	}

	refs := resp.Artifacts
	if !step.OutputType.IsList() && len(refs) > 1 {
		vlog.Debug("keeping first artifact", "step", step.Name, "returned", len(refs))
		refs = refs[:1]
	}

	saved := make([]string, 0, len(refs))
	for i, ref := range refs {
		if req.Workspace == nil || req.Workspace.Store == nil {
			saved = append(saved, ref)
			continue
		}
		key := OutputKey(step, artifactExt(ref, step.OutputType), i)
		p, err := req.Workspace.Store.Save(ctx, ref, key)
		if err != nil {
			return types.Payload{}, err
		}
		saved = append(saved, p)
	}

	if step.OutputType.IsList() {
		return types.List(step.OutputType, saved), nil
	}
	return types.Single(step.OutputType, saved[0]), nil
}

// promptFor picks the prompt: explicit param, then text input, then the
// run's initial text.
func promptFor(req *Request) string {
	if p := req.Step.StringParam("prompt", ""); p != "" {
		return p
	}
	if req.Input.Type == types.MediaText {
		return req.Input.Ref
	}
	if req.Workspace != nil {
		return req.Workspace.InitialText()
	}
	return ""
}

// callCost prefers provider-reported cost and falls back to catalog pricing.
func callCost(meta models.ModelMetadata, step types.Step, resp *provider.Response) float64 {
	if resp.HasCost {
		return resp.Cost
	}
	q := cost.Quantity{
		Seconds: resp.Seconds,
		Images:  len(resp.Artifacts),
	}
	if q.Seconds == 0 {
		q.Seconds = step.FloatParam("duration", 0)
	}
	if tokens, ok := resp.Raw["completion_tokens"].(int); ok {
		q.Tokens = tokens
	}
	c := cost.Estimate(meta.Pricing, q)
	if c == 0 {
		vlog.Warn("could not determine cost for step", "step", step.Name, "model", meta.ID)
	}
	return c
}

var defaultExt = map[types.MediaType]string{
	types.MediaImage: ".png",
	types.MediaVideo: ".mp4",
	types.MediaAudio: ".mp3",
}

func artifactExt(ref string, t types.MediaType) string {
	p := ref
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if ext == "" {
		ext = filepath.Ext(p)
	}
	if ext == "" || len(ext) > 6 {
		return defaultExt[t.Elem()]
	}
	return ext
}
