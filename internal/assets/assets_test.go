package assets_test

import (
	"testing"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/assets"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/executor"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/models"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
	"gopkg.in/yaml.v3"
)

func TestPipelineNames(t *testing.T) {
	names, err := assets.PipelineNames()
	if err != nil {
		t.Fatalf("PipelineNames error: %v", err)
	}
	want := map[string]bool{"text-to-video": false, "image-to-video": false, "storyboard": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, found := range want {
		if !found {
			t.Errorf("embedded pipeline %q missing from %v", n, names)
		}
	}
}

func TestUnknownPipeline(t *testing.T) {
	if _, err := assets.Pipeline("nope"); err == nil {
		t.Error("expected error for unknown pipeline")
	}
}

// Every embedded pipeline must build against the default registry and the
// default model catalog.
func TestEmbeddedPipelinesBuild(t *testing.T) {
	catalog, err := models.Parse(assets.Models())
	if err != nil {
		t.Fatalf("parsing embedded models: %v", err)
	}
	reg, err := executor.DefaultRegistry(executor.Deps{
		Generate: &executor.GenerateExecutor{Models: catalog},
		FFmpeg:   "ffmpeg",
	})
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	names, _ := assets.PipelineNames()
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			data, err := assets.Pipeline(name)
			if err != nil {
				t.Fatal(err)
			}
			p, err := pipeline.Parse(data)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if p.Name != name {
				t.Errorf("pipeline name %q does not match file name %q", p.Name, name)
			}
			chain, err := pipeline.BuildPipeline(p, reg)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			for _, s := range chain.Steps() {
				if s.Model == "" {
					continue
				}
				m, err := catalog.Resolve(s.Model)
				if err != nil {
					t.Errorf("step %q: %v", s.Name, err)
					continue
				}
				if !m.Supports(s.Type) {
					t.Errorf("step %q: model %q does not support %s", s.Name, s.Model, s.Type)
				}
			}
		})
	}
}

func TestStoryboardFansIn(t *testing.T) {
	data, err := assets.Pipeline("storyboard")
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	reg, _ := executor.DefaultRegistry(executor.Deps{Generate: &executor.GenerateExecutor{}, FFmpeg: "ffmpeg"})
	chain, err := pipeline.BuildPipeline(p, reg)
	if err != nil {
		t.Fatal(err)
	}
	batches := chain.Batches()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if !batches[0].Parallel() || batches[0].OutputType() != types.MediaVideoList {
		t.Errorf("first batch should fan out to video_list, got %s", batches[0].OutputType())
	}
	if chain.OutputType() != types.MediaVideo {
		t.Errorf("expected video output, got %s", chain.OutputType())
	}
}

func TestConfigTemplateIsYAML(t *testing.T) {
	var m map[string]any
	if err := yaml.Unmarshal(assets.ConfigTemplate(), &m); err != nil {
		t.Fatalf("config template must be valid YAML: %v", err)
	}
	if m["default_pipeline"] != "text-to-video" {
		t.Errorf("unexpected default_pipeline %v", m["default_pipeline"])
	}
}
