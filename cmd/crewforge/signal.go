package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crewforge/internal/api"
)

var signalCmd = &cobra.Command{
	Use:       "signal <pause|resume|kill>",
	Short:     "Pause, resume or stop a running conversation",
	Long:      `Drop an operator signal file that a running 'crewforge run' watches.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"pause", "resume", "kill"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		nm, err := api.NewNotificationManager(s.signalsStateDir())
		if err != nil {
			return fmt.Errorf("open signals directory: %w", err)
		}
		defer nm.Close()

		switch args[0] {
		case "pause":
			err = nm.SendPause()
		case "kill":
			err = nm.SendKill()
		case "resume":
			nm.ClearSignals()
		default:
			return fmt.Errorf("unknown signal %q: use pause, resume or kill", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s\n", args[0], nm.SignalsDir())
		return nil
	},
}
