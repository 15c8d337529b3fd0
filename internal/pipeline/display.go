package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Display handles terminal progress output for a run. It implements Sink.
type Display struct {
	w       io.Writer
	title   string
	verbose bool
	stop    chan struct{}
	done    chan struct{}
}

// NewDisplay creates a display that writes to stdout.
func NewDisplay(title string, verbose bool) *Display {
	return &Display{w: os.Stdout, title: title, verbose: verbose}
}

// modelColumnWidth is the fixed display width reserved for the model column.
var modelColumnWidth = 30

// ansiEscapeRe matches ANSI terminal escape sequences and C0/DEL control characters.
var ansiEscapeRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|[\x00-\x1f\x7f]`)

// sanitizeModel strips ANSI escape sequences and control characters from a model name.
func sanitizeModel(name string) string {
	return ansiEscapeRe.ReplaceAllString(name, "")
}

// truncateModel sanitizes and truncates model to fit within modelColumnWidth runes,
// appending an ellipsis if truncation occurs.
func truncateModel(model string) string {
	model = sanitizeModel(model)
	if utf8.RuneCountInString(model) <= modelColumnWidth {
		return model
	}
	runes := []rune(model)
	return string(runes[:modelColumnWidth-1]) + "…"
}

func modelLabel(s types.Step) string {
	if s.Model != "" {
		return s.Model
	}
	return string(s.Type)
}

// Handle renders one lifecycle event.
func (d *Display) Handle(ev Event) {
	switch ev.Kind {
	case EventBatchStart:
		if len(ev.Steps) == 1 {
			d.StepStart(ev.Steps[0].Name, modelLabel(ev.Steps[0]))
			return
		}
		fmt.Fprintf(d.w, "⏳ parallel %q: %s\n", ev.Group, strings.Join(Batch{Steps: ev.Steps}.Names(), ", "))
	case EventStepComplete:
		r := ev.Result
		model := r.Model
		if model == "" {
			model = string(r.Type)
		}
		if r.Success {
			d.StepDone(r.Name, model, outputDetail(r.Output), r.Cost, r.Duration, textPreview(r.Output))
		} else {
			d.StepFailed(r.Name, model, r.Err)
		}
	case EventChainComplete:
		switch {
		case ev.Run.Success:
			d.Summary(ev.Run.TotalCost, ev.Run.TotalDuration)
		case ev.Run.Cancelled():
			d.Cancelled(ev.Run.TotalCost, ev.Run.TotalDuration)
		default:
			d.Failed(ev.Run.Err)
		}
	}
}

// outputDetail summarizes a step output for the detail column.
func outputDetail(p types.Payload) string {
	switch {
	case p.Type == types.MediaText:
		return fmt.Sprintf("%d chars", utf8.RuneCountInString(p.Ref))
	case p.IsList():
		return fmt.Sprintf("%d %s", len(p.Refs), p.Type)
	case p.Ref == "":
		return ""
	}
	name := filepath.Base(p.Ref)
	if fi, err := os.Stat(p.Ref); err == nil {
		return fmt.Sprintf("%s (%s)", name, humanize.Bytes(uint64(fi.Size())))
	}
	return name
}

func textPreview(p types.Payload) string {
	if p.Type == types.MediaText {
		return p.Ref
	}
	return ""
}

// Header prints the run header.
func (d *Display) Header() {
	fmt.Fprintf(d.w, "\n🎬 vagent — %s\n", d.title)
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
}

// StepStart prints a step-in-progress line and starts an elapsed time ticker.
// In non-verbose mode, the line is updated in place every second with elapsed time.
// In verbose mode, a plain line is printed.
func (d *Display) StepStart(name, model string) {
	model = truncateModel(model)
	if d.verbose {
		fmt.Fprintf(d.w, "⏳ %-12s %-30s running...\n", name, model)
		return
	}
	// Print without trailing newline so the ticker can overwrite in place.
	fmt.Fprintf(d.w, "⏳ %-12s %-30s running...", name, model)

	stop := make(chan struct{})
	done := make(chan struct{})
	d.stop = stop
	d.done = done
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(d.w, "\r⏳ %-12s %-30s running... %.0fs",
					name, model, time.Since(start).Seconds())
			}
		}
	}()
}

// stopTicker stops the elapsed time goroutine and waits for it to finish.
func (d *Display) stopTicker() {
	if d.stop != nil {
		close(d.stop)
		<-d.done
		d.stop = nil
		d.done = nil
	}
}

// maxPreviewLines is the default number of text lines shown after step completion.
const maxPreviewLines = 10

// StepDone prints a completed step line, overwriting the running line in non-verbose mode.
// textContent, when non-empty, is shown as a preview (first maxPreviewLines lines).
func (d *Display) StepDone(name, model, detail string, cost float64, duration time.Duration, textContent string) {
	d.stopTicker()
	model = truncateModel(model)
	costStr := "—"
	if cost > 0 {
		costStr = fmt.Sprintf("$%.4f", cost)
	}
	prefix := "\r"
	if d.verbose {
		prefix = ""
	}
	fmt.Fprintf(d.w, "%s✅ %-12s %-30s %-28s %-10s %.1fs\n",
		prefix, name, model, detail, costStr, duration.Seconds())

	if textContent != "" {
		lines := strings.Split(textContent, "\n")
		// Drop the trailing empty element that Split adds for a newline-terminated string.
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		previewLines := lines
		truncated := false
		if len(lines) > maxPreviewLines {
			previewLines = lines[:maxPreviewLines]
			truncated = true
		}
		for _, l := range previewLines {
			fmt.Fprintf(d.w, "  │ %s\n", l)
		}
		if truncated {
			fmt.Fprintf(d.w, "  │ ... (%d more lines)\n", len(lines)-maxPreviewLines)
		}
	}
}

// StepFailed prints a failed step line, overwriting the running line in non-verbose mode.
func (d *Display) StepFailed(name, model string, err error) {
	d.stopTicker()
	model = truncateModel(model)
	prefix := "\r"
	if d.verbose {
		prefix = ""
	}
	fmt.Fprintf(d.w, "%s❌ %-12s %-30s %s\n", prefix, name, model, errText(err))
}

// Summary prints the final run summary.
func (d *Display) Summary(totalCost float64, totalDuration time.Duration) {
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
	fmt.Fprintf(d.w, "✅ Done  $%.4f  %.0fs\n", totalCost, totalDuration.Seconds())
	fmt.Fprintln(d.w)
}

// Cancelled prints the summary of an interrupted run.
func (d *Display) Cancelled(totalCost float64, totalDuration time.Duration) {
	d.stopTicker()
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
	fmt.Fprintf(d.w, "⏹  Cancelled  $%.4f spent  %.0fs\n\n", totalCost, totalDuration.Seconds())
}

// Failed prints a failure summary.
func (d *Display) Failed(err error) {
	d.stopTicker()
	fmt.Fprintln(d.w, strings.Repeat("─", 76))
	fmt.Fprintf(d.w, "❌ Failed: %s\n\n", errText(err))
}

// errText renders err, treating a typed nil *Error as absent.
func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	if pe, ok := err.(*Error); ok && pe == nil {
		return "unknown error"
	}
	return err.Error()
}
