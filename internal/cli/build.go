package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/assets"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/config"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/executor"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/models"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/provider"
)

// Provider names used by the model catalog.
const (
	providerFal        = "fal"
	providerOpenRouter = "openrouter"
)

func newLoader() *pipeline.Loader {
	return &pipeline.Loader{
		ProjectDir: config.ProjectDir(),
		UserDir:    config.UserDir(),
		Embedded:   assets.Pipeline,
	}
}

// loadCatalog reads the embedded catalog and merges the configured
// models_file on top.
func loadCatalog(cfg *config.Config) (*models.Catalog, error) {
	catalog, err := models.Parse(assets.Models())
	if err != nil {
		return nil, err
	}
	if cfg.ModelsFile != "" {
		if err := catalog.MergeFile(cfg.ModelsFile); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// buildProviders wires the configured back-ends. When syntheticDir is set
// every provider name in the catalog is served by the offline Synthetic
// provider instead.
func buildProviders(cfg *config.Config, catalog *models.Catalog, syntheticDir string) *provider.Registry {
	reg := provider.NewRegistry()
	if syntheticDir != "" {
		syn := &provider.Synthetic{Dir: syntheticDir}
		reg.Register(providerFal, syn)
		reg.Register(providerOpenRouter, syn)
		for _, m := range catalog.List() {
			reg.Register(m.Provider, syn)
		}
		return reg
	}
	reg.Register(providerFal, &provider.HTTPProvider{
		BaseURL:     cfg.Provider.Endpoint,
		APIKey:      cfg.APIKey(),
		HTTPClient:  &http.Client{Timeout: cfg.ProviderTimeout()},
		MaxAttempts: uint(cfg.Provider.MaxAttempts),
	})
	reg.Register(providerOpenRouter, &provider.ChatProvider{
		Endpoint: cfg.Chat.Endpoint,
		APIKey:   cfg.ChatAPIKey(),
		Timeout:  cfg.ChatTimeout(),
	})
	return reg
}

func buildRegistry(cfg *config.Config, catalog *models.Catalog, providers *provider.Registry) (*executor.Registry, error) {
	return executor.DefaultRegistry(executor.Deps{
		Generate: &executor.GenerateExecutor{
			Models:    catalog,
			Providers: providers,
			Timeout:   cfg.StepTimeoutDuration(),
		},
		FFmpeg: cfg.Tools.FFmpeg,
	})
}

// generateTypes are the step types served by a model.
var generateTypes = func() map[string]bool {
	reg, _ := executor.DefaultRegistry(executor.Deps{Generate: &executor.GenerateExecutor{}})
	out := map[string]bool{}
	for _, t := range reg.Types() {
		exec, _ := reg.Lookup(t)
		if _, ok := exec.(*executor.GenerateExecutor); ok {
			out[string(t)] = true
		}
	}
	return out
}()

// checkModels verifies that every model-backed step names a catalog model
// supporting its step type.
func checkModels(chain *pipeline.Chain, catalog models.Resolver) error {
	var errs []error
	for _, s := range chain.Steps() {
		if !generateTypes[string(s.Type)] {
			continue
		}
		if s.Model == "" {
			errs = append(errs, fmt.Errorf("step %q: %s steps need a model", s.Name, s.Type))
			continue
		}
		m, err := catalog.Resolve(s.Model)
		if err != nil {
			errs = append(errs, fmt.Errorf("step %q: %w", s.Name, err))
			continue
		}
		if !m.Supports(s.Type) {
			errs = append(errs, fmt.Errorf("step %q: model %q does not support %s", s.Name, m.ID, s.Type))
		}
	}
	return errors.Join(errs...)
}
