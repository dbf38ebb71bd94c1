package agent

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// collaborationFooter closes every agent's instructions.
const collaborationFooter = "Work collaboratively with other agents to complete the overall task. Be proactive, thorough, and provide high-quality output."

// ComposeInstructions builds the full system prompt for an agent in a fixed
// order: task context, role, the spec's own instructions, capabilities, and
// the collaboration footer. The capabilities section is omitted when empty.
func ComposeInstructions(spec models.AgentSpec, task string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TASK CONTEXT: %s\n\n", strings.TrimSpace(task))
	fmt.Fprintf(&b, "ROLE: %s\n\n", spec.Role)
	b.WriteString(strings.TrimSpace(spec.Instructions))
	b.WriteString("\n\n")

	if len(spec.Capabilities) > 0 {
		b.WriteString("Your capabilities include:\n")
		for _, c := range spec.Capabilities {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString(collaborationFooter)
	return b.String()
}
