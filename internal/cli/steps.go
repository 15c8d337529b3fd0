package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List step types and their input/output types",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-16s %-12s %s\n", "Type", "Input", "Output")
		for _, t := range types.KnownStepTypes() {
			in, out, _ := types.Signature(t)
			kind := ""
			if !generateTypes[string(t)] {
				kind = "  (local)"
			}
			fmt.Fprintf(w, "%-16s %-12s %s%s\n", t, in, out, kind)
		}
	},
}
