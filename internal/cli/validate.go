package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate [pipeline]",
	Short: "Check a pipeline without running it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	name := s.cfg.DefaultPipeline
	if len(args) == 1 {
		name = args[0]
	}
	ppl, err := newLoader().Load(name)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(s.cfg)
	if err != nil {
		return err
	}
	reg, err := buildRegistry(s.cfg, catalog, buildProviders(s.cfg, catalog, ""))
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
	printChain(cmd.OutOrStdout(), chain)
	return nil
}

// printChain lists batches with their resolved types.
func printChain(w io.Writer, chain *pipeline.Chain) {
	fmt.Fprintf(w, "✅ %s: %d steps, %d batches, %s → %s\n\n",
		chain.Name(), chain.Len(), len(chain.Batches()), chain.InputType(), chain.OutputType())
	for _, b := range chain.Batches() {
		if b.Parallel() {
			fmt.Fprintf(w, "%2d. parallel %q [%s] %s → %s\n",
				b.Index+1, b.Group, strings.Join(b.Names(), ", "), b.InputType(), b.OutputType())
			continue
		}
		s := b.Steps[0]
		model := s.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%2d. %-20s %-16s %-40s %s → %s\n",
			b.Index+1, s.Name, s.Type, model, s.InputType, s.OutputType)
	}
}
