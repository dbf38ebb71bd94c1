package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crewforge/internal/retry"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Plan teams for tasks typed at a prompt",
	Long: `Read tasks line by line and print the team planned for each.

Rosters the model designed are cached for the session, so entering the same
task again reuses the roster without another model call.
Type "exit" or "quit" (or send EOF) to leave.`,
	Args: cobra.NoArgs,
	RunE: runInteractive,
}

func runInteractive(cmd *cobra.Command, args []string) error {
	s, err := newSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, color.CyanString("task> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		err := planTask(ctx, cmd, s, line, "")
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, retry.ErrQuotaExceeded):
			return err
		default:
			printStatus(os.Stderr, "✗", err.Error(), color.FgRed)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
