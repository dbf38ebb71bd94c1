package specgen

import (
	"fmt"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// systemPrompt frames the model as a team designer that only answers in JSON.
const systemPrompt = `You are an expert at analyzing tasks and designing multi-agent systems.

When given a task, you must respond with ONLY a JSON object that defines the agents needed.
DO NOT include any text outside the JSON object.`

const designPrompt = `Analyze this task and design a team of specialized agents to complete it.

TASK: %s

The task was classified as %s complexity. Design at most %d agents.

Respond with a JSON object in exactly this format:
{
  "agents": [
    {
      "name": "AgentName",
      "role": "Brief role description",
      "instructions": "Detailed instructions for the agent",
      "capabilities": ["capability1", "capability2"],
      "needs_execution": false
    }
  ]
}

Rules:
- Every agent needs a distinct name made of letters and digits only
- Give each agent a distinct role and expertise; avoid overlap
- Include diverse capabilities such as research, coding, analysis, writing, coordination
- Set needs_execution to true only for agents that must write and run code
- Do not add a project manager or reviewer; coordination is handled separately

Respond with ONLY the JSON object.`

// BuildPrompt returns the user prompt asking the model for a roster.
func BuildPrompt(task string, tier models.ComplexityTier, maxAgents int) string {
	return fmt.Sprintf(designPrompt, task, tier, maxAgents)
}
