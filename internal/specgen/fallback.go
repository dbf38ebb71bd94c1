package specgen

import (
	"fmt"

	"github.com/ShayCichocki/crewforge/internal/orchestrator/policy"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// FallbackRoster returns the fixed roster used when the model's roster is
// unusable. It is deterministic, never empty, and never longer than maxAgents.
// Lower tiers get a primary and a support agent; higher tiers get a primary,
// a research agent and an execution-capable agent.
func FallbackRoster(task string, tier models.ComplexityTier, maxAgents int, pol *policy.Config) []models.AgentSpec {
	if pol == nil {
		pol = policy.Default()
	}
	if maxAgents < 1 {
		maxAgents = 1
	}

	primary := models.AgentSpec{
		Name:         "PrimaryAgent",
		Role:         "Lead",
		Instructions: fmt.Sprintf("You are the primary agent responsible for: %s. You should lead the effort and coordinate with other agents.", task),
		Capabilities: []string{"planning", "analysis", "writing"},
	}

	var roster []models.AgentSpec
	if pol.UsesExtendedFallback(tier) {
		roster = []models.AgentSpec{
			primary,
			{
				Name:         "ResearchAgent",
				Role:         "Research",
				Instructions: fmt.Sprintf("You gather information and supporting evidence for: %s. Cite sources and flag uncertainty.", task),
				Capabilities: []string{"research", "analysis"},
			},
			{
				Name:           "ExecutorAgent",
				Role:           "Implementation",
				Instructions:   fmt.Sprintf("You execute code and handle practical implementation for: %s", task),
				Capabilities:   []string{"coding", "execution"},
				NeedsExecution: true,
			},
		}
	} else {
		roster = []models.AgentSpec{
			primary,
			{
				Name:         "SupportAgent",
				Role:         "Support",
				Instructions: fmt.Sprintf("You are a support agent helping with: %s. Provide assistance, analysis, and additional perspectives.", task),
				Capabilities: []string{"analysis", "review"},
			},
		}
	}

	if len(roster) > maxAgents {
		roster = roster[:maxAgents]
	}
	return roster
}
