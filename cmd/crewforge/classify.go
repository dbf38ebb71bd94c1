package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crewforge/internal/orchestrator"
	"github.com/ShayCichocki/crewforge/internal/orchestrator/policy"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [task]",
	Short: "Show the complexity tier and team size for a task",
	Long: `Classify a task without calling the model.

Prints the tier, the word count, the keyword that matched (if any), the
maximum number of specialists and the round budget a full roster would get.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Fprint(cmd.OutOrStdout(), describeClassification(taskFromArgs(args), s.policy))
		return nil
	},
}

// describeClassification renders the classifier result with team sizing.
func describeClassification(task string, pol *policy.Config) string {
	sel := orchestrator.ClassifyWithDetails(task)
	tp := pol.ForTier(sel.Tier)

	teamSize := tp.MaxAgents
	if tp.AppendCoordination {
		teamSize += len(pol.Coordination)
	}

	keyword := sel.MatchedKeyword
	if keyword == "" {
		keyword = "(none)"
	}

	return fmt.Sprintf(
		"Tier:            %s\nReason:          %s\nWord count:      %d\nMatched keyword: %s\nMax agents:      %d\nCoordination:    %t\nRound budget:    %d (full roster of %d)\n",
		sel.Tier, sel.Reason, sel.WordCount, keyword, tp.MaxAgents, tp.AppendCoordination, pol.RoundsFor(teamSize), teamSize,
	)
}
