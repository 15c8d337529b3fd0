package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

func newTestDisplay(buf *bytes.Buffer) *Display {
	return &Display{w: buf, title: "test"}
}

func TestStepStart_ContainsModel(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	d.StepStart("storyboard", "fal-ai/flux/dev")
	out := buf.String()
	if !strings.Contains(out, "fal-ai/flux/dev") {
		t.Errorf("StepStart output missing model: %q", out)
	}
	if !strings.Contains(out, "storyboard") {
		t.Errorf("StepStart output missing step name: %q", out)
	}
}

func TestStepDone_ContainsModel(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	d.StepDone("animate", "fal-ai/kling-video", "animate.mp4", 0.0012, 3*time.Second, "")
	out := buf.String()
	if !strings.Contains(out, "fal-ai/kling-video") {
		t.Errorf("StepDone output missing model: %q", out)
	}
	if !strings.Contains(out, "$0.0012") {
		t.Errorf("StepDone output missing cost: %q", out)
	}
}

func TestStepDone_ZeroCostShowsDash(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	d.StepDone("final", "concat_videos", "", 0, time.Second, "")
	out := buf.String()
	if !strings.Contains(out, "—") {
		t.Errorf("StepDone expected dash for zero cost, got: %q", out)
	}
}

func TestStepDone_ArtifactPreview(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	content := "line1\nline2\nline3\n"
	d.StepDone("script", "model", "42 chars", 0, time.Second, content)
	out := buf.String()
	for _, line := range []string{"line1", "line2", "line3"} {
		if !strings.Contains(out, line) {
			t.Errorf("StepDone preview missing %q: %q", line, out)
		}
	}
	if !strings.Contains(out, "│") {
		t.Errorf("StepDone preview missing │ prefix: %q", out)
	}
}

func TestStepDone_ArtifactPreviewTruncated(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	// Build 15-line content; only first 10 should appear, then truncation note.
	var lines []string
	for i := 1; i <= 15; i++ {
		lines = append(lines, fmt.Sprintf("line%d", i))
	}
	d.StepDone("script", "model", "90 chars", 0, time.Second, strings.Join(lines, "\n"))
	out := buf.String()
	if !strings.Contains(out, "5 more lines") {
		t.Errorf("StepDone should show truncation note, got: %q", out)
	}
	if strings.Contains(out, "line15") {
		t.Errorf("StepDone should not show line15: %q", out)
	}
}

func TestStepFailed_ContainsModel(t *testing.T) {
	var buf bytes.Buffer
	d := newTestDisplay(&buf)
	d.StepFailed("voice", "elevenlabs/tts", errors.New("timed out"))
	out := buf.String()
	if !strings.Contains(out, "elevenlabs/tts") {
		t.Errorf("StepFailed output missing model: %q", out)
	}
	if !strings.Contains(out, "timed out") {
		t.Errorf("StepFailed output missing error: %q", out)
	}
}

func TestTruncateModel_ShortName(t *testing.T) {
	got := truncateModel("fal-ai/flux/schnell")
	if got != "fal-ai/flux/schnell" {
		t.Errorf("expected no truncation, got %q", got)
	}
}

func TestTruncateModel_LongName(t *testing.T) {
	long := "some-provider/some-very-long-model-name-v1.2.3-beta"
	got := truncateModel(long)
	if len([]rune(got)) > modelColumnWidth {
		t.Errorf("truncateModel did not truncate: len=%d, got %q", len([]rune(got)), got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated model should end with ellipsis, got %q", got)
	}
}

func TestTruncateModel_ExactWidth(t *testing.T) {
	// A model name exactly at modelColumnWidth should not be truncated.
	exact := strings.Repeat("a", modelColumnWidth)
	got := truncateModel(exact)
	if got != exact {
		t.Errorf("exact-width model should not be truncated, got %q", got)
	}
}

func TestSanitizeModel_StripsANSI(t *testing.T) {
	input := "\x1b[31mmalicious\x1b[0m"
	got := sanitizeModel(input)
	if strings.Contains(got, "\x1b") {
		t.Errorf("sanitizeModel did not strip ANSI: %q", got)
	}
	if got != "malicious" {
		t.Errorf("expected 'malicious', got %q", got)
	}
}

func TestSanitizeModel_StripsControlChars(t *testing.T) {
	input := "model\x00name\x1f"
	got := sanitizeModel(input)
	if strings.Contains(got, "\x00") || strings.Contains(got, "\x1f") {
		t.Errorf("sanitizeModel did not strip control chars: %q", got)
	}
}

func TestTruncateModel_Unicode(t *testing.T) {
	// Unicode model name with multi-byte runes (CJK characters).
	cjk := strings.Repeat("模", 35) // 35 CJK chars, should be truncated
	got := truncateModel(cjk)
	if len([]rune(got)) > modelColumnWidth {
		t.Errorf("unicode truncation failed: len=%d", len([]rune(got)))
	}
}

func TestHandle_StepEvents(t *testing.T) {
	var buf bytes.Buffer
	d := &Display{w: &buf, title: "test", verbose: true}

	d.Handle(Event{Kind: EventBatchStart, Group: "shots", Steps: []types.Step{{Name: "a"}, {Name: "b"}}})
	d.Handle(Event{Kind: EventStepComplete, Result: &StepResult{
		Name: "a", Model: "fal-ai/flux/dev", Success: true,
		Output: types.List(types.MediaImage, []string{"x.png", "y.png"}), Cost: 0.05,
	}})
	d.Handle(Event{Kind: EventStepComplete, Result: &StepResult{
		Name: "b", Type: types.SplitImage,
		Err: &Error{Kind: KindExecutorFailure, Step: "b", Msg: "bad tile"},
	}})

	out := buf.String()
	for _, want := range []string{`parallel "shots": a, b`, "2 image_list", "$0.0500", "split_image", "bad tile"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestHandle_ChainComplete(t *testing.T) {
	tests := []struct {
		name string
		run  *RunResult
		want string
	}{
		{"success", &RunResult{Success: true, TotalCost: 1.5}, "Done  $1.5000"},
		{"cancelled", &RunResult{Err: &Error{Kind: KindCancellation}, TotalCost: 0.25}, "Cancelled  $0.2500"},
		{"failed", &RunResult{Err: &Error{Kind: KindExecutorFailure, Step: "x", Msg: "boom"}}, `Failed: step "x": boom`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			d := newTestDisplay(&buf)
			d.Handle(Event{Kind: EventChainComplete, Run: tt.run})
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q missing %q", buf.String(), tt.want)
			}
		})
	}
}

func TestOutputDetail(t *testing.T) {
	if got := outputDetail(types.Text("héllo")); got != "5 chars" {
		t.Errorf("text detail = %q", got)
	}
	if got := outputDetail(types.Single(types.MediaVideo, "/no/such/clip.mp4")); got != "clip.mp4" {
		t.Errorf("missing file detail = %q", got)
	}
}
