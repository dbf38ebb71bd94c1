package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crewforge/internal/api"
	"github.com/ShayCichocki/crewforge/internal/orchestrator"
	"github.com/ShayCichocki/crewforge/internal/state"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

var (
	runFirstMessage string
	runMaxRounds    int
	runSaveSpecs    string
	runNoHistory    bool
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Build a team for a task and run its conversation",
	Long: `Build a team for a task and run the group conversation.

The task is classified, a roster is designed by the model (or the fallback
roster is used), agents are created and the conversation runs round-robin
until the round budget is spent or an agent replies TERMINATE.

Each run is recorded in the history database unless --no-history is set.
With no task, a default research task is used.`,
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVar(&runFirstMessage, "first-message", "", "Opening message (%s is replaced by the task)")
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "Override the team's round budget")
	runCmd.Flags().StringVar(&runSaveSpecs, "save-specs", "", "Write the roster specs to this JSON file (e.g. "+state.DefaultExportFile+")")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not record the run in the history database")
}

func runTask(cmd *cobra.Command, args []string) error {
	task := taskFromArgs(args)
	out := cmd.OutOrStdout()

	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt, shutting down...")
			cancel()
		case <-baseCtx.Done():
		}
	}()

	// Operator kill/pause files
	ctx := baseCtx
	notifs, err := api.NewNotificationManager(s.signalsStateDir())
	if err != nil {
		// Signal files are optional
		s.logger.Log("[run] signal files unavailable: %v", err)
		notifs = nil
	} else {
		defer notifs.Close()
		notifs.ClearSignals()
		var stopOnKill context.CancelFunc
		ctx, stopOnKill = notifs.CancelOnKill(baseCtx)
		defer stopOnKill()
	}

	setup, err := s.newRun()
	if err != nil {
		return err
	}
	rc := setup.rc
	s.logger.Log("[run] %s task=%q", rc.ID, task)

	var history *state.DB
	if !runNoHistory {
		history, err = s.openHistory()
		if err != nil {
			// History is optional
			printStatus(os.Stderr, "⚠", fmt.Sprintf("history unavailable: %v", err), color.FgYellow)
		} else {
			defer history.Close()
			rec := &state.RunRecord{
				ID:        rc.ID,
				Task:      task,
				Tier:      orchestrator.Classify(task),
				Status:    state.RunRunning,
				StartedAt: rc.StartedAt,
			}
			if err := history.RecordRun(rec); err != nil {
				s.logger.Log("[run] record run: %v", err)
				history = nil
			}
		}
	}
	finish := func(runErr error) error {
		if history != nil {
			if err := history.FinishRun(rc.ID, runStatusFor(runErr), runErr); err != nil {
				s.logger.Log("[run] finish run: %v", err)
			}
		}
		return runErr
	}

	fmt.Fprintf(out, "Building team for: %s\n\n", task)
	team, err := setup.builder.Build(ctx, task)
	if err != nil {
		return finish(fmt.Errorf("build team: %w", err))
	}
	if team.SpecErr != nil {
		printStatus(out, "⚠", fmt.Sprintf("using fallback roster: %v", team.SpecErr), color.FgYellow)
	}
	fmt.Fprintln(out, renderTeam(team))
	fmt.Fprintln(out)

	if runSaveSpecs != "" {
		if err := state.ExportSpecs(runSaveSpecs, team.Specs); err != nil {
			printStatus(os.Stderr, "⚠", fmt.Sprintf("save specs: %v", err), color.FgYellow)
		} else {
			printStatus(out, "✓", "Saved roster to "+runSaveSpecs, color.FgGreen)
		}
	}

	if history != nil {
		if err := history.UpdateRunTeam(rc.ID, team.Source, team.Rounds); err != nil {
			s.logger.Log("[run] update run: %v", err)
		}
		if err := history.SaveRoster(rc.ID, rosterRecords(rc.ID, team)); err != nil {
			s.logger.Log("[run] save roster: %v", err)
		}
	}

	chat := team.GroupChat(s.logger)
	if runMaxRounds > 0 {
		chat.MaxRounds = runMaxRounds
	} else if s.cfg.Conversation.MaxRounds > 0 {
		chat.MaxRounds = s.cfg.Conversation.MaxRounds
	}
	if notifs != nil {
		chat.Pauser = notifs
	}
	chat.OnMessage = func(m models.Message) {
		fmt.Fprintln(out, formatMessage(m))
	}

	first := s.cfg.FirstMessage(task)
	if runFirstMessage != "" {
		s.cfg.Conversation.FirstMessage = runFirstMessage
		first = s.cfg.FirstMessage(task)
	}

	transcript, err := chat.Run(ctx, first)
	if !s.cfg.Workspace.Keep {
		if cerr := rc.Workspaces.Cleanup(); cerr != nil {
			s.logger.Log("[run] workspace cleanup: %v", cerr)
		}
	}
	if err != nil {
		return finish(fmt.Errorf("conversation: %w", err))
	}

	printStatus(out, "✓", fmt.Sprintf("Conversation finished (%s) after %d messages, %d failed turns",
		transcript.StopReason, len(transcript.Messages), transcript.Failures), color.FgGreen)
	if s.cfg.Workspace.Keep {
		if dirs, err := rc.Workspaces.List(); err == nil && len(dirs) > 0 {
			fmt.Fprintf(out, "Workspaces kept under %s\n", rc.Workspaces.RunDir())
		}
	}
	return finish(nil)
}

// runStatusFor maps a run error to its history status.
func runStatusFor(err error) state.RunStatus {
	switch {
	case err == nil:
		return state.RunCompleted
	case errors.Is(err, context.Canceled):
		return state.RunCanceled
	default:
		return state.RunFailed
	}
}

// rosterRecords converts a team into history rows.
func rosterRecords(runID string, team *orchestrator.Team) []state.RosterRecord {
	records := make([]state.RosterRecord, len(team.Agents))
	for i, a := range team.Agents {
		var caps []string
		if i < len(team.Specs) {
			caps = team.Specs[i].Capabilities
		}
		records[i] = state.RosterRecord{
			RunID:        runID,
			Position:     i,
			Name:         a.Name(),
			Role:         a.Role(),
			Kind:         a.Kind(),
			Capabilities: caps,
			Instructions: a.Instructions(),
			Workspace:    a.Workspace(),
		}
	}
	return records
}
