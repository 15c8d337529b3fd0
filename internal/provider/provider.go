// Package provider contains the generation back-ends invoked by step executors.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// ErrUnknownProvider is returned when a model names a provider that was never
// registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Request is a normalized generation call.
type Request struct {
	Model    string
	Endpoint string
	Kind     types.StepType
	Output   types.MediaType
	Prompt   string
	Inputs   []string
	Params   map[string]any
}

// Response is what a provider hands back for one call.
type Response struct {
	Artifacts []string
	Text      string
	Cost      float64
	HasCost   bool
	Seconds   float64
	Raw       map[string]any
}

// Provider invokes one external generation service. When a call was billed
// but produced no usable output, Invoke returns the Response carrying the
// cost together with the error.
type Provider interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Registry maps provider names to instances. It is constructed per session
// and passed to executors explicitly.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds p under name, replacing any previous registration.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
