package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

var extTypes = map[string]types.MediaType{
	".txt":  types.MediaText,
	".md":   types.MediaText,
	".png":  types.MediaImage,
	".jpg":  types.MediaImage,
	".jpeg": types.MediaImage,
	".webp": types.MediaImage,
	".mp4":  types.MediaVideo,
	".mov":  types.MediaVideo,
	".webm": types.MediaVideo,
	".mp3":  types.MediaAudio,
	".wav":  types.MediaAudio,
	".m4a":  types.MediaAudio,
}

// MediaTypeOf infers the media type of a file from its extension.
func MediaTypeOf(path string) (types.MediaType, bool) {
	t, ok := extTypes[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// FileSource reads a local file as the initial input. Text files become a
// text payload; media files are passed by path. Prompt, when set, is attached
// to media inputs for steps that need a text prompt alongside them.
type FileSource struct {
	Path   string
	Prompt string
}

func (s *FileSource) Fetch(ctx context.Context) (*Input, error) {
	t, ok := MediaTypeOf(s.Path)
	if !ok {
		return nil, fmt.Errorf("unsupported input file type %q", filepath.Ext(s.Path))
	}
	base := strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))

	if t == types.MediaText {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("reading input file %s: %w", s.Path, err)
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			return nil, fmt.Errorf("input file %s is empty", s.Path)
		}
		title := extractTitle(content)
		slug := slugFromTitle(title)
		if slug == "input" {
			slug = slugFromTitle(base)
		}
		return &Input{Title: shortTitle(title), Slug: slug, Ref: s.Path, Payload: types.Text(content)}, nil
	}

	abs, err := filepath.Abs(s.Path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}
	p := types.Single(t, abs)
	title := base
	if prompt := strings.TrimSpace(s.Prompt); prompt != "" {
		p.Metadata = map[string]any{"prompt": prompt}
		title = prompt
	}
	return &Input{Title: shortTitle(title), Slug: slugFromTitle(title), Ref: s.Path, Payload: p}, nil
}

// extractTitle returns the first non-empty line, stripping leading "#".
func extractTitle(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "#")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "input"
}
