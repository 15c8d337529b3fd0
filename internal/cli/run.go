package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/config"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/executor"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/history"
	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/run"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/source"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

type runOptions struct {
	prompt         string
	input          string
	outputDir      string
	maxConcurrency int
	bestEffort     bool
	timeout        string
	dryRun         bool
	verbose        bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [pipeline]",
	Short: "Run a pipeline on a prompt or input file",
	Long: `Run a pipeline by name or YAML path. Names are resolved from
.vagent/pipelines/, ~/.vagent/pipelines/ and the built-in pipelines.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return runPipeline(cmd.Context(), name, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.prompt, "prompt", "", "Text prompt used as the initial input")
	f.StringVarP(&runOpts.input, "input", "i", "", "Input file (text, image, video or audio)")
	f.StringVar(&runOpts.outputDir, "output-dir", "", "Directory for generated artifacts")
	f.IntVar(&runOpts.maxConcurrency, "max-concurrency", 0, "Maximum concurrently running steps of a parallel group")
	f.BoolVar(&runOpts.bestEffort, "best-effort", false, "Continue past failed members of a parallel group")
	f.StringVar(&runOpts.timeout, "timeout", "", "Overall run deadline, e.g. 20m")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "Use placeholder artifacts instead of calling providers")
	f.BoolVarP(&runOpts.verbose, "verbose", "v", false, "Debug logging and full text output")
}

func inputSource(opts runOptions) (source.Source, error) {
	switch {
	case opts.input != "":
		return &source.FileSource{Path: opts.input, Prompt: opts.prompt}, nil
	case opts.prompt != "":
		return &source.PromptSource{Prompt: opts.prompt}, nil
	}
	return nil, fmt.Errorf("either --prompt or --input is required")
}

// engineFor resolves execution settings: flags, then the pipeline's own
// settings, then the loaded configuration.
func engineFor(cfg *config.Config, ppl *pipeline.Pipeline, opts runOptions) (*pipeline.Engine, error) {
	e := &pipeline.Engine{
		MaxConcurrency: cfg.MaxConcurrency,
		Policy:         cfg.FailurePolicy,
	}
	if ppl.Settings.MaxConcurrency > 0 {
		e.MaxConcurrency = ppl.Settings.MaxConcurrency
	}
	if opts.maxConcurrency > 0 {
		e.MaxConcurrency = opts.maxConcurrency
	}
	if ppl.Settings.FailurePolicy != "" {
		e.Policy = ppl.Settings.FailurePolicy
	}
	if opts.bestEffort {
		e.Policy = pipeline.PolicyBestEffort
	}

	e.Timeout = cfg.RunTimeout()
	timeout := opts.timeout
	if timeout == "" {
		timeout = ppl.Settings.Timeout
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
		e.Timeout = d
	}
	return e, nil
}

func outputDirFor(cfg *config.Config, ppl *pipeline.Pipeline, opts runOptions, r *run.Run) string {
	for _, dir := range []string{opts.outputDir, ppl.Settings.OutputDir, cfg.OutputDir} {
		if dir != "" {
			return dir
		}
	}
	return filepath.Join(r.Dir, "output")
}

func runPipeline(ctx context.Context, name string, opts runOptions) error {
	s, err := setup(ctx, opts.verbose)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cfg := s.ctx, s.cfg

	if name == "" {
		name = cfg.DefaultPipeline
	}
	src, err := inputSource(opts)
	if err != nil {
		return err
	}
	input, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching input: %w", err)
	}

	ppl, err := newLoader().Load(name)
	if err != nil {
		return fmt.Errorf("loading pipeline %q: %w", name, err)
	}
	engine, err := engineFor(cfg, ppl, opts)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	r, err := run.New(config.Dir, ppl.Name, input.Slug)
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	syntheticDir := ""
	if opts.dryRun {
		syntheticDir = filepath.Join(r.Dir, "synthetic")
	}
	reg, err := buildRegistry(cfg, catalog, buildProviders(cfg, catalog, syntheticDir))
	if err != nil {
		return err
	}
	chain, err := pipeline.BuildPipeline(ppl, reg)
	if err != nil {
		return err
	}
	if err := checkModels(chain, catalog); err != nil {
		return err
	}

	outDir := outputDirFor(cfg, ppl, opts, r)
	ws, err := executor.NewWorkspace(r.ID, outDir, input.Payload)
	if err != nil {
		return err
	}
	r.Meta.Input = input.Ref
	r.Meta.OutputDir = outDir
	if err := r.SaveMeta(); err != nil {
		vlog.Warn("could not save run metadata", "run", r.ID, "err", err)
	}

	disp := pipeline.NewDisplay(input.Title, opts.verbose)
	disp.Header()
	engine.Events = disp

	res, err := engine.Run(ctx, chain, input.Payload, ws)
	if err != nil {
		return err
	}
	record(ctx, cfg, r, ws, res)

	if res.Cancelled() {
		return ErrCancelled
	}
	if !res.Success {
		return fmt.Errorf("pipeline %q failed at step %q: %w", ppl.Name, res.FailedStep, res.Err)
	}
	if out := res.Output(); len(out.Items()) > 0 && out.Type != types.MediaText {
		fmt.Printf("\nOutput: %s\n", strings.Join(out.Items(), ", "))
	}
	fmt.Printf("Run: %s\n", r.Dir)
	return nil
}

// record persists the run result to meta.json and the history index. The
// run context may already be cancelled, so writes use a detached context.
func record(ctx context.Context, cfg *config.Config, r *run.Run, ws *executor.Workspace, res *pipeline.RunResult) {
	for _, s := range res.Steps {
		if seed, ok := ws.Get(executor.SeedKey(s.Name)); ok {
			if r.Meta.Seeds == nil {
				r.Meta.Seeds = map[string]any{}
			}
			r.Meta.Seeds[s.Name] = seed
		}
	}
	if err := r.Record(res); err != nil {
		vlog.Warn("could not save run metadata", "run", r.ID, "err", err)
	}

	db, err := history.Open(cfg.HistoryDB)
	if err != nil {
		vlog.Warn("could not open run history", "path", cfg.HistoryDB, "err", err)
		return
	}
	defer db.Close()
	ctx = context.WithoutCancel(ctx)
	if err := db.Insert(ctx, history.SummaryOf(res, run.Status(res), r.Dir)); err != nil {
		vlog.Warn("could not record run history", "run", r.ID, "err", err)
	}
}
