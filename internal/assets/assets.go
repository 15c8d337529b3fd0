// Package assets provides the embedded default pipelines, model catalog and
// configuration template.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed pipelines/*.yaml
var pipelinesFS embed.FS

//go:embed models.yaml
var modelsYAML []byte

//go:embed config.yaml
var configYAML []byte

// Pipeline returns the embedded pipeline document with the given name.
// Project and user overrides are resolved by pipeline.Loader before this.
func Pipeline(name string) ([]byte, error) {
	data, err := pipelinesFS.ReadFile(path.Join("pipelines", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("pipeline %q not found", name)
	}
	return data, nil
}

// PipelineNames lists the embedded pipelines, sorted.
func PipelineNames() ([]string, error) {
	entries, err := fs.ReadDir(pipelinesFS, "pipelines")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Models returns the default model catalog.
func Models() []byte {
	return modelsYAML
}

// ConfigTemplate returns the commented config written by `vagent init`.
func ConfigTemplate() []byte {
	return configYAML
}
