package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// ConcatExecutor joins a list of videos into one with ffmpeg's concat demuxer.
type ConcatExecutor struct {
	// Command is the ffmpeg binary; empty means "ffmpeg" on PATH.
	Command string
}

func (e *ConcatExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	clips := req.Input.Items()
	if len(clips) == 0 {
		return nil, fmt.Errorf("concat: no input videos for step %q", req.Step.Name)
	}
	if req.Workspace == nil || req.Workspace.Store == nil {
		return nil, fmt.Errorf("concat: step %q has no output directory", req.Step.Name)
	}

	key := OutputKey(req.Step, ".mp4", 0)
	if len(clips) == 1 {
		out, err := req.Workspace.Store.Save(ctx, clips[0], key)
		if err != nil {
			return nil, err
		}
		return &Result{
			Output:   types.Single(types.MediaVideo, out),
			Duration: time.Since(start),
			Metadata: map[string]any{"clips": 1, "deterministic": true},
		}, nil
	}

	listPath, err := req.Workspace.TempPath(req.Step, "concat.txt")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(listPath, []byte(concatList(clips)), 0644); err != nil {
		return nil, fmt.Errorf("writing concat list: %w", err)
	}
	out, err := req.Workspace.Store.Path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	cmdName := e.Command
	if cmdName == "" {
		cmdName = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, cmdName,
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", out)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg concat failed: %w\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	return &Result{
		Output:   types.Single(types.MediaVideo, out),
		Duration: time.Since(start),
		Metadata: map[string]any{"clips": len(clips), "deterministic": true},
	}, nil
}

// concatList renders the ffmpeg concat demuxer file for clips.
func concatList(clips []string) string {
	var sb strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			abs = c
		}
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		sb.WriteString("'\n")
	}
	return sb.String()
}
