package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/davecoulter/KNmodel/sim/report"
	"github.com/davecoulter/KNmodel/sim/store"
)

// reportCmd re-reports a stored run
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a run stored with `run --db`",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		runID, _ := cmd.Flags().GetInt64("run-id")
		htmlPath, _ := cmd.Flags().GetString("html")
		list, _ := cmd.Flags().GetBool("list")
		if dbPath == "" {
			return fmt.Errorf("--db is required")
		}

		db, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if list {
			return listRuns(cmd.Context(), db, cmd.OutOrStdout())
		}
		return reportRun(cmd.Context(), db, runID, htmlPath, cmd.OutOrStdout())
	},
}

func listRuns(ctx context.Context, db *store.Store, w io.Writer) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%6s  %-25s %12s %8s\n", "id", "created", "seed", "trials")
	for _, r := range runs {
		fmt.Fprintf(w, "%6d  %-25s %12d %8d\n", r.ID, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), r.Seed, r.Trials)
	}
	return nil
}

// reportRun prints the summary of run id, or of the newest run when id is 0.
func reportRun(ctx context.Context, db *store.Store, id int64, htmlPath string, w io.Writer) error {
	if id == 0 {
		runs, err := db.ListRuns(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("database has no runs")
		}
		id = runs[0].ID
	}
	run, err := db.LoadRun(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Run %d (seed %d, stored %s)\n", run.ID, run.Seed, run.CreatedAt.Format("2006-01-02 15:04:05"))
	if err := report.Summarize(run.Result).WriteText(w); err != nil {
		return err
	}
	if htmlPath != "" {
		cfg := report.DefaultChartConfig()
		mass := run.Config.Population.Mass
		cfg.Title = fmt.Sprintf("Masses %s; %g -- %g", mass.Distribution, mass.Key1, mass.Key2)
		return writeFileWith(htmlPath, func(f io.Writer) error { return report.RenderHTML(f, run.Result, cfg) })
	}
	return nil
}

func init() {
	reportCmd.Flags().String("db", "", "SQLite database written by `run --db`")
	reportCmd.Flags().Int64("run-id", 0, "Run to report (0 = newest)")
	reportCmd.Flags().String("html", "", "Write the HTML report to this file")
	reportCmd.Flags().Bool("list", false, "List stored runs instead of reporting one")
	rootCmd.AddCommand(reportCmd)
}
