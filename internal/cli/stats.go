package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/history"
)

var statsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cost and run statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 20, "Number of recent runs to list")
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.Close()

	db, err := history.Open(s.cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer db.Close()
	return printStats(s.ctx, cmd.OutOrStdout(), db, statsLimit)
}

func printStats(ctx context.Context, w io.Writer, db *history.DB, limit int) error {
	totals, err := db.Totals(ctx)
	if err != nil {
		return fmt.Errorf("reading run history: %w", err)
	}
	if totals.Runs == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintf(w, "Runs: %d total, %d completed, %d failed, %d cancelled\n",
		totals.Runs, totals.Completed, totals.Failed, totals.Cancelled)
	fmt.Fprintf(w, "Total cost: $%.4f\n", totals.Cost)
	fmt.Fprintf(w, "Average cost: $%.4f\n", totals.Cost/float64(totals.Runs))
	fmt.Fprintf(w, "Total time: %s\n", totals.Duration.Round(time.Second))

	per, err := db.ByPipeline(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-24s %6s %10s\n", "Pipeline", "Runs", "Cost")
	for _, p := range per {
		fmt.Fprintf(w, "%-24s %6d $%9.4f\n", p.Pipeline, p.Runs, p.Cost)
	}

	runs, err := db.List(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-40s %-10s %-10s %-16s %s\n", "Run ID", "Status", "Cost", "Started", "Pipeline")
	fmt.Fprintln(w, strings.Repeat("─", 96))
	for _, r := range runs {
		fmt.Fprintf(w, "%-40s %-10s $%-9.4f %-16s %s\n",
			r.RunID, r.Status, r.TotalCost, humanize.Time(r.StartedAt), r.Pipeline)
	}
	return nil
}
