package source

import (
	"context"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Input is the normalized initial input passed to a pipeline run.
type Input struct {
	Title   string
	Slug    string
	Ref     string // file path, or "prompt"
	Payload types.Payload
}

// Source fetches input from an external source and normalizes it.
type Source interface {
	Fetch(ctx context.Context) (*Input, error)
}

// slugFromTitle converts a title to a short lowercase slug.
func slugFromTitle(title string) string {
	var sb []byte
	for i := 0; i < len(title); i++ {
		c := title[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			sb = append(sb, c)
		} else if c >= 'A' && c <= 'Z' {
			sb = append(sb, c+32) // to lower
		} else if len(sb) > 0 && sb[len(sb)-1] != '-' {
			sb = append(sb, '-')
		}
	}
	// trim trailing dash
	for len(sb) > 0 && sb[len(sb)-1] == '-' {
		sb = sb[:len(sb)-1]
	}
	s := string(sb)
	if len(s) > 40 {
		s = s[:40]
		for len(s) > 0 && s[len(s)-1] == '-' {
			s = s[:len(s)-1]
		}
	}
	if s == "" {
		return "input"
	}
	return s
}

func shortTitle(s string) string {
	if r := []rune(s); len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return s
}
