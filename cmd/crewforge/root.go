package main

import (
	"os"

	"github.com/spf13/cobra"
)

// defaultTask is used when run, plan or classify get no task argument.
const defaultTask = "Find a paper on arxiv by programming, and analyze its application in some domain."

var (
	flagVerbose bool
	flagAccount string
)

var rootCmd = &cobra.Command{
	Use:   "crewforge",
	Short: "Adaptive multi-agent team builder",
	Long: `Crewforge turns a task description into a team of cooperating agents.

The task is classified into a complexity tier, a model designs the
specialist roster (with a fixed fallback roster when it cannot), agents
that need to run code get their own workspace, and the team then works
through a round-robin group conversation.

Every model call goes through an adaptive rate limiter and a retry policy
that tells throttling apart from quota exhaustion.

Operator control while a run is in progress:
  crewforge signal pause    hold the conversation between turns
  crewforge signal resume   continue a paused conversation
  crewforge signal kill     stop the run`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Mirror the debug log to stderr")
	rootCmd.PersistentFlags().StringVar(&flagAccount, "account", "", "Account type for rate limits: paid or free (default from config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(signalCmd)
	rootCmd.AddCommand(versionCmd)
}
