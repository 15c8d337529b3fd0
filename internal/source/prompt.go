package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// PromptSource uses a user-provided prompt as the initial text input.
type PromptSource struct {
	Prompt string
}

func (s *PromptSource) Fetch(ctx context.Context) (*Input, error) {
	prompt := strings.TrimSpace(s.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt is empty")
	}
	return &Input{
		Title:   shortTitle(prompt),
		Slug:    slugFromTitle(prompt),
		Ref:     "prompt",
		Payload: types.Text(prompt),
	}, nil
}
