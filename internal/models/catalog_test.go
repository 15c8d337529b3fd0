package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/cost"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

const testCatalog = `
models:
  - id: flux-dev
    provider: fal
    endpoint: fal-ai/flux/dev
    step_types: [text_to_image]
    pricing: {unit: per_image, amount: 0.025}
  - id: kling-2.1
    provider: fal
    step_types: [image_to_video]
    pricing: {unit: per_second, amount: 0.05}
    capabilities: [seed]
`

func TestParseAndResolve(t *testing.T) {
	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	m, err := c.Resolve("flux-dev")
	require.NoError(t, err)
	assert.Equal(t, "fal", m.Provider)
	assert.Equal(t, cost.PerImage, m.Pricing.Unit)
	assert.True(t, m.Supports(types.TextToImage))
	assert.False(t, m.Supports(types.ImageToVideo))

	_, err = c.Resolve("nope")
	assert.True(t, errors.Is(err, ErrUnknownModel))

	ids := []string{}
	for _, m := range c.List() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"flux-dev", "kling-2.1"}, ids)
}

func TestCapabilities(t *testing.T) {
	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)
	m, _ := c.Resolve("kling-2.1")
	assert.True(t, m.HasCapability("seed"))
	assert.False(t, m.HasCapability("audio"))
}

func TestParseRejectsIncompleteEntries(t *testing.T) {
	_, err := Parse([]byte("models:\n  - provider: fal\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("models:\n  - id: x\n"))
	assert.Error(t, err)
}

func TestMergeFileOverrides(t *testing.T) {
	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models.yaml")
	override := "models:\n  - id: flux-dev\n    provider: replicate\n    pricing: {unit: per_call, amount: 0.01}\n"
	require.NoError(t, os.WriteFile(path, []byte(override), 0644))
	require.NoError(t, c.MergeFile(path))

	m, err := c.Resolve("flux-dev")
	require.NoError(t, err)
	assert.Equal(t, "replicate", m.Provider)
	assert.True(t, m.Supports(types.ImageToVideo), "no declared step types accepts all")
	assert.Len(t, c.List(), 2)
}
