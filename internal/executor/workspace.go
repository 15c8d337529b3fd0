package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/storage"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// Workspace is the chain-scoped context shared by every step of one run.
// The fixed fields are set before the run starts and only read afterwards;
// shared metadata goes through Set/Get.
type Workspace struct {
	RunID     string
	OutputDir string
	TempDir   string
	Initial   types.Payload
	Store     *storage.FileStore

	mu   sync.RWMutex
	meta map[string]any
}

// NewWorkspace prepares the output and temp directories for a run.
func NewWorkspace(runID, outputDir string, initial types.Payload) (*Workspace, error) {
	store, err := storage.NewFileStore(outputDir, nil)
	if err != nil {
		return nil, err
	}
	tmp := filepath.Join(outputDir, ".tmp")
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	return &Workspace{
		RunID:     runID,
		OutputDir: outputDir,
		TempDir:   tmp,
		Initial:   initial,
		Store:     store,
		meta:      map[string]any{},
	}, nil
}

// Set records a shared metadata value.
func (w *Workspace) Set(key string, v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.meta == nil {
		w.meta = map[string]any{}
	}
	w.meta[key] = v
}

// Get reads a shared metadata value.
func (w *Workspace) Get(key string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.meta[key]
	return v, ok
}

// SeedKey is the shared metadata key under which a step's provider seed is
// recorded.
func SeedKey(step string) string { return "seed/" + step }

// InitialText returns the run's initial input when it is text, or the
// prompt attached to a media input.
func (w *Workspace) InitialText() string {
	if w.Initial.Type == types.MediaText {
		return w.Initial.Ref
	}
	if p, ok := w.Initial.Metadata["prompt"].(string); ok {
		return p
	}
	return ""
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// OutputKey returns the storage key for a step artifact. The step's
// output_filename parameter wins when set; otherwise the name is derived from
// the step name. index > 0 distinguishes multiple artifacts of one step.
func OutputKey(step types.Step, ext string, index int) string {
	name := step.StringParam(types.ParamOutputFilename, "")
	if name == "" {
		name = strings.Trim(unsafeNameRe.ReplaceAllString(step.Name, "-"), "-")
		if name == "" {
			name = fmt.Sprintf("step-%d", step.Index)
		}
		name += ext
	}
	if index > 0 {
		e := filepath.Ext(name)
		name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, e), index, e)
	}
	return name
}

// TempPath returns a path in the run's temp namespace, unique per step,
// creating the step's temp directory.
func (w *Workspace) TempPath(step types.Step, name string) (string, error) {
	dir := filepath.Join(w.TempDir, strings.Trim(unsafeNameRe.ReplaceAllString(step.Name, "-"), "-"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating temp dir for step %q: %w", step.Name, err)
	}
	return filepath.Join(dir, name), nil
}
