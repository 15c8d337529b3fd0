package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List catalog models and their pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer s.Close()

		catalog, err := loadCatalog(s.cfg)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-50s %-11s %-18s %s\n", "Model", "Provider", "Price", "Step types")
		for _, m := range catalog.List() {
			steps := make([]string, 0, len(m.StepTypes))
			for _, t := range m.StepTypes {
				steps = append(steps, string(t))
			}
			price := fmt.Sprintf("$%g/%s", m.Pricing.Amount, strings.TrimPrefix(string(m.Pricing.Unit), "per_"))
			fmt.Fprintf(w, "%-50s %-11s %-18s %s\n", m.ID, m.Provider, price, strings.Join(steps, ", "))
		}
		return nil
	},
}
