package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"slicer/internal/store"
	"slicer/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	GroupID: "validation",
	Short:   "Show past validation runs",
	Long: `List validation runs recorded in the history database.

Every validate and watch run is recorded (unless --no-history was given),
so history answers "when did this artifact last pass?".

Example usage:
  slicer history
  slicer history --artifact artifacts/acme-slice-map.json
  slicer history --failed --limit 10`,
	Run: func(cmd *cobra.Command, args []string) {
		artifactPath, _ := cmd.Flags().GetString("artifact")
		onlyFailed, _ := cmd.Flags().GetBool("failed")
		limit, _ := cmd.Flags().GetInt("limit")

		history := openHistory(cmd)
		defer history.Close()

		runs, err := history.ListRuns(store.ListRunsFilter{
			ArtifactPath: artifactPath,
			OnlyInvalid:  onlyFailed,
			Limit:        limit,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return
		}

		for _, run := range runs {
			status := ui.RenderPass("PASS")
			if !run.Valid {
				status = ui.RenderFail("FAIL")
			}
			fmt.Printf("%s  %s  %s  %s (%s, %d violations, %d warnings)\n",
				ui.RenderMuted(run.CreatedAt.Local().Format(time.DateTime)),
				status,
				ui.RenderAccent(run.ID[:8]),
				run.ArtifactPath,
				run.SchemaName,
				len(run.Violations),
				len(run.Warnings),
			)
		}
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run in full",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		history := openHistory(cmd)
		defer history.Close()

		run, err := resolveRun(history, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}

		fmt.Printf("Run:      %s\n", ui.RenderAccent(run.ID))
		fmt.Printf("Artifact: %s\n", run.ArtifactPath)
		fmt.Printf("Schema:   %s\n", run.SchemaName)
		fmt.Printf("Recorded: %s\n", run.CreatedAt.Local().Format(time.DateTime))
		printResult(run.ArtifactPath, run.SchemaName, run.Result(), false)
	},
}

// openHistory opens the configured history database or exits.
func openHistory(cmd *cobra.Command) *store.Store {
	cfg, err := loadProjectConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOError)
	}
	history, err := store.Open(cfg.HistoryDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOError)
	}
	return history
}

// resolveRun finds a run by full id, or by unique prefix so the short ids
// printed by the list are usable.
func resolveRun(history *store.Store, id string) (*store.Run, error) {
	run, err := history.GetRun(id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	runs, err := history.ListRuns(store.ListRunsFilter{})
	if err != nil {
		return nil, err
	}
	var match *store.Run
	for _, candidate := range runs {
		if len(id) > 0 && len(candidate.ID) >= len(id) && candidate.ID[:len(id)] == id {
			if match != nil {
				return nil, fmt.Errorf("run id %q is ambiguous", id)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no run with id %q", id)
	}
	return match, nil
}

func init() {
	historyCmd.Flags().String("artifact", "", "only runs for this artifact path")
	historyCmd.Flags().Bool("failed", false, "only failed runs")
	historyCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")

	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
