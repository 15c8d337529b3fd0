package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Run represents a single pipeline execution on disk.
type Run struct {
	ID   string
	Dir  string
	Meta Meta
}

// Meta holds metadata about a run, persisted to meta.json.
type Meta struct {
	RunID      string         `json:"run_id,omitempty"`
	Pipeline   string         `json:"pipeline"`
	Input      string         `json:"input,omitempty"`
	OutputDir  string         `json:"output_dir,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Status     string         `json:"status"` // "running" | "completed" | "failed" | "cancelled"
	Steps      []StepRecord   `json:"steps"`
	TotalCost  float64        `json:"total_cost"`
	DurationMS int64          `json:"duration_ms"`
	FailedStep string         `json:"failed_step,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  string         `json:"error_kind,omitempty"`
	Output     []string       `json:"output,omitempty"`
	Seeds      map[string]any `json:"seeds,omitempty"`
}

// StepRecord records the outcome of a single step.
type StepRecord struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Model      string   `json:"model,omitempty"`
	Status     string   `json:"status"` // "completed" | "failed"
	Cost       float64  `json:"cost"`
	DurationMS int64    `json:"duration_ms"`
	Output     []string `json:"output,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// New creates a new run directory under <baseDir>/runs/.
func New(baseDir, pipelineName, slug string) (*Run, error) {
	now := time.Now()
	ms := now.UnixMilli() % 1000
	id := fmt.Sprintf("%s-%03d-%s",
		now.Format("20060102-150405"),
		ms,
		sanitizeSlug(slug),
	)

	runsDir := filepath.Join(baseDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating runs dir: %w", err)
	}

	dir := filepath.Join(runsDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}

	r := &Run{
		ID:  id,
		Dir: dir,
		Meta: Meta{
			Pipeline:  pipelineName,
			StartedAt: now,
			Status:    "running",
		},
	}

	if err := r.SaveMeta(); err != nil {
		return nil, err
	}

	if err := updateLatestLink(runsDir, id); err != nil {
		return nil, err
	}

	return r, nil
}

// SaveMeta writes meta.json to the run directory.
func (r *Run) SaveMeta() error {
	data, err := json.MarshalIndent(r.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	return os.WriteFile(r.FilePath("meta.json"), data, 0644)
}

// Record copies a finished run result into the metadata and saves it.
func (r *Run) Record(res *pipeline.RunResult) error {
	m := &r.Meta
	m.RunID = res.ID
	if res.Pipeline != "" {
		m.Pipeline = res.Pipeline
	}
	finished := res.StartedAt.Add(res.TotalDuration)
	if res.StartedAt.IsZero() {
		finished = time.Now()
	}
	m.FinishedAt = &finished
	m.Status = Status(res)
	m.TotalCost = res.TotalCost
	m.DurationMS = res.TotalDuration.Milliseconds()
	m.FailedStep = res.FailedStep
	m.Error, m.ErrorKind = "", ""
	if res.Err != nil {
		m.Error = res.Err.Error()
		m.ErrorKind = res.Err.Kind.String()
	}
	m.Output = refs(res.Output())

	m.Steps = m.Steps[:0]
	for _, s := range res.Steps {
		rec := StepRecord{
			Name:       s.Name,
			Type:       string(s.Type),
			Model:      s.Model,
			Status:     "completed",
			Cost:       s.Cost,
			DurationMS: s.Duration.Milliseconds(),
		}
		if s.Success {
			rec.Output = refs(s.Output)
		} else {
			rec.Status = "failed"
			if s.Err != nil {
				rec.Error = s.Err.Error()
			}
		}
		m.Steps = append(m.Steps, rec)
	}
	return r.SaveMeta()
}

// Status maps a run result onto the persisted status string.
func Status(res *pipeline.RunResult) string {
	switch {
	case res.Success:
		return "completed"
	case res.Cancelled():
		return "cancelled"
	}
	return "failed"
}

// refs lists the file references of a payload. Text bodies are not stored.
func refs(p types.Payload) []string {
	if p.Type == types.MediaText {
		return nil
	}
	return p.Items()
}

// FilePath returns the path to a file within this run directory.
func (r *Run) FilePath(name string) string {
	return filepath.Join(r.Dir, name)
}

// updateLatestLink atomically updates the "latest" symlink.
func updateLatestLink(runsDir, id string) error {
	latestPath := filepath.Join(runsDir, "latest")
	tmpPath := latestPath + ".tmp"

	// Remove any stale tmp link
	os.Remove(tmpPath)

	if err := os.Symlink(id, tmpPath); err != nil {
		return fmt.Errorf("creating temp symlink: %w", err)
	}
	if err := os.Rename(tmpPath, latestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("updating latest symlink: %w", err)
	}
	return nil
}

var nonAlphanumRe = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeSlug converts a string to a URL-friendly slug.
func sanitizeSlug(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = s[:40]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "run"
	}
	return s
}
