package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"# My Title\n\nbody", "My Title"},
		{"## Second Level\nbody", "Second Level"},
		{"\n\n# After Blank\n", "After Blank"},
		{"No heading\nbody", "No heading"},
		{"", "input"},
	}
	for _, tt := range tests {
		got := extractTitle(tt.input)
		if got != tt.want {
			t.Errorf("extractTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSlugFromTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"A Fox In The Snow", "a-fox-in-the-snow"},
		{"Scene #42!", "scene-42"},
		{"  leading spaces  ", "leading-spaces"},
		{"", "input"},
	}
	for _, tt := range tests {
		got := slugFromTitle(tt.input)
		if got != tt.want {
			t.Errorf("slugFromTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPromptSourceFetch(t *testing.T) {
	in, err := (&PromptSource{Prompt: "  a red fox running through snow  "}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Payload.Type != types.MediaText || in.Payload.Ref != "a red fox running through snow" {
		t.Errorf("unexpected payload: %+v", in.Payload)
	}
	if in.Slug != "a-red-fox-running-through-snow" {
		t.Errorf("unexpected slug %q", in.Slug)
	}

	long := strings.Repeat("x", 80)
	in, _ = (&PromptSource{Prompt: long}).Fetch(context.Background())
	if !strings.HasSuffix(in.Title, "...") {
		t.Errorf("long title should be shortened, got %q", in.Title)
	}

	if _, err := (&PromptSource{Prompt: "   "}).Fetch(context.Background()); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestFileSourceText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.md")
	if err := os.WriteFile(path, []byte("# Winter Promo\n\nSnowy hills at dawn.\n"), 0644); err != nil {
		t.Fatal(err)
	}

	in, err := (&FileSource{Path: path}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Payload.Type != types.MediaText {
		t.Errorf("expected text payload, got %s", in.Payload.Type)
	}
	if !strings.Contains(in.Payload.Ref, "Snowy hills") {
		t.Errorf("payload missing body: %q", in.Payload.Ref)
	}
	if in.Slug != "winter-promo" {
		t.Errorf("unexpected slug %q", in.Slug)
	}
}

func TestFileSourceMedia(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Hero Shot.PNG")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	in, err := (&FileSource{Path: path, Prompt: "slow dolly zoom"}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Payload.Type != types.MediaImage || in.Payload.Ref != path {
		t.Errorf("unexpected payload: %+v", in.Payload)
	}
	if in.Payload.Metadata["prompt"] != "slow dolly zoom" {
		t.Errorf("prompt not attached: %+v", in.Payload.Metadata)
	}
	if in.Slug != "slow-dolly-zoom" {
		t.Errorf("unexpected slug %q", in.Slug)
	}
}

func TestFileSourceErrors(t *testing.T) {
	if _, err := (&FileSource{Path: "notes.docx"}).Fetch(context.Background()); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := (&FileSource{Path: filepath.Join(t.TempDir(), "missing.mp4")}).Fetch(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
