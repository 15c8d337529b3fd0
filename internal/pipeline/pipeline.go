package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Failure policies.
const (
	PolicyStrict     = "strict"
	PolicyBestEffort = "best_effort"
)

// Settings are chain-level overrides carried by a pipeline document.
// Zero values defer to the loaded configuration.
type Settings struct {
	OutputDir      string `yaml:"output_dir,omitempty"`
	MaxConcurrency int    `yaml:"max_concurrency,omitempty"`
	FailurePolicy  string `yaml:"failure_policy,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`
}

// Pipeline represents a named sequence of steps.
type Pipeline struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Settings    Settings         `yaml:"settings,omitempty"`
	Steps       []types.StepSpec `yaml:"steps"`
}

// Parse decodes a pipeline from YAML bytes.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing pipeline: %w", err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("pipeline must have a name")
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("pipeline %q has no steps", p.Name)
	}
	switch p.Settings.FailurePolicy {
	case "", PolicyStrict, PolicyBestEffort:
	default:
		return nil, fmt.Errorf("pipeline %q: unknown failure_policy %q", p.Name, p.Settings.FailurePolicy)
	}
	return &p, nil
}

// ParseFile reads and parses a pipeline YAML file.
func ParseFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file %s: %w", path, err)
	}
	return Parse(data)
}

// Loader resolves pipelines by name or path. Embedded supplies built-in
// pipelines and may be nil.
type Loader struct {
	ProjectDir string
	UserDir    string
	Embedded   func(name string) ([]byte, error)
}

// Load resolves a pipeline: an existing file path first, then the project
// override, the user override and finally the embedded default.
func (l *Loader) Load(name string) (*Pipeline, error) {
	if filepath.Ext(name) == ".yaml" || filepath.Ext(name) == ".yml" {
		if _, err := os.Stat(name); err == nil {
			return ParseFile(name)
		}
	}

	for _, dir := range []string{l.ProjectDir, l.UserDir} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, "pipelines", name+".yaml")
		if _, err := os.Stat(path); err == nil {
			return ParseFile(path)
		}
	}

	if l.Embedded != nil {
		if data, err := l.Embedded(name); err == nil {
			return Parse(data)
		}
	}
	return nil, fmt.Errorf("pipeline %q not found", name)
}
