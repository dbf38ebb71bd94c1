package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crewforge/internal/state"
)

var planSaveSpecs string

var planCmd = &cobra.Command{
	Use:   "plan [task]",
	Short: "Design and print a team without running it",
	Long: `Classify the task, design the roster and create the agents, then print
the team. No conversation is run and nothing is recorded in history.

Execution agents still get a workspace directory.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planSaveSpecs, "save-specs", "", "Write the roster specs to this JSON file (e.g. "+state.DefaultExportFile+")")
}

func runPlan(cmd *cobra.Command, args []string) error {
	task := taskFromArgs(args)

	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return planTask(ctx, cmd, s, task, planSaveSpecs)
}

// planTask builds and prints one team. Shared by plan and interactive.
func planTask(ctx context.Context, cmd *cobra.Command, s *session, task, saveSpecs string) error {
	out := cmd.OutOrStdout()

	setup, err := s.newRun()
	if err != nil {
		return err
	}

	team, err := setup.builder.Build(ctx, task)
	if err != nil {
		return fmt.Errorf("build team: %w", err)
	}
	if team.SpecErr != nil {
		printStatus(out, "⚠", fmt.Sprintf("using fallback roster: %v", team.SpecErr), color.FgYellow)
	}
	fmt.Fprintln(out, renderTeam(team))

	if saveSpecs != "" {
		if err := state.ExportSpecs(saveSpecs, team.Specs); err != nil {
			printStatus(os.Stderr, "⚠", fmt.Sprintf("save specs: %v", err), color.FgYellow)
		} else {
			printStatus(out, "✓", "Saved roster to "+saveSpecs, color.FgGreen)
		}
	}
	return nil
}
