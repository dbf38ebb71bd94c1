package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyPurge time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past runs or show one run's roster",
	Long: `Without arguments, lists the most recent runs.
With a run ID, shows that run's status and roster.

Use --purge to delete runs older than the given age (e.g. --purge 720h).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	historyCmd.Flags().DurationVar(&historyPurge, "purge", 0, "Delete runs that started longer ago than this")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	s, err := newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	db, err := s.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if historyPurge > 0 {
		n, err := db.PurgeOldRuns(historyPurge)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d run(s) older than %s\n", n, historyPurge)
		return nil
	}

	if len(args) == 1 {
		run, err := db.GetRun(args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if run == nil {
			return fmt.Errorf("run %q not found", args[0])
		}
		roster, err := db.GetRoster(run.ID)
		if err != nil {
			return fmt.Errorf("get roster: %w", err)
		}
		fmt.Fprintln(out, renderStoredRoster(run, roster))
		return nil
	}

	limit := historyLimit
	if limit <= 0 {
		limit = -1
	}
	runs, err := db.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet. Run 'crewforge run <task>' to start.")
		return nil
	}
	fmt.Fprintln(out, renderRuns(runs))
	return nil
}
