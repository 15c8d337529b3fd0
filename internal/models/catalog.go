// Package models is the catalog of named generation models and their pricing.
package models

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/cost"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// ErrUnknownModel is returned by Resolve for ids missing from the catalog.
var ErrUnknownModel = errors.New("unknown model")

// ModelMetadata describes one model: which provider serves it, where, and at
// what price.
type ModelMetadata struct {
	ID           string           `yaml:"id" json:"id"`
	Provider     string           `yaml:"provider" json:"provider"`
	Endpoint     string           `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	StepTypes    []types.StepType `yaml:"step_types,omitempty" json:"step_types,omitempty"`
	Pricing      cost.Pricing     `yaml:"pricing" json:"pricing"`
	Capabilities []string         `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// Supports reports whether the model declares the given step type. Models that
// declare no step types are accepted for any.
func (m ModelMetadata) Supports(t types.StepType) bool {
	if len(m.StepTypes) == 0 {
		return true
	}
	for _, st := range m.StepTypes {
		if st == t {
			return true
		}
	}
	return false
}

// HasCapability reports whether the model lists the capability flag.
func (m ModelMetadata) HasCapability(c string) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Resolver looks up model metadata by id.
type Resolver interface {
	Resolve(id string) (ModelMetadata, error)
}

// Catalog is an in-memory model registry. It is read-only after loading.
type Catalog struct {
	models map[string]ModelMetadata
}

type catalogFile struct {
	Models []ModelMetadata `yaml:"models"`
}

// Parse decodes a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{models: map[string]ModelMetadata{}}
	if err := c.merge(data); err != nil {
		return nil, err
	}
	return c, nil
}

// MergeFile overlays models from a YAML file; entries with an existing id
// replace the previous definition.
func (c *Catalog) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading model catalog %s: %w", path, err)
	}
	return c.merge(data)
}

func (c *Catalog) merge(data []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing model catalog: %w", err)
	}
	for _, m := range f.Models {
		if m.ID == "" {
			return fmt.Errorf("model catalog entry without id")
		}
		if m.Provider == "" {
			return fmt.Errorf("model %q has no provider", m.ID)
		}
		c.models[m.ID] = m
	}
	return nil
}

// Resolve returns the metadata for id.
func (c *Catalog) Resolve(id string) (ModelMetadata, error) {
	m, ok := c.models[id]
	if !ok {
		return ModelMetadata{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return m, nil
}

// List returns all models sorted by id.
func (c *Catalog) List() []ModelMetadata {
	out := make([]ModelMetadata, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
