package models

import "strings"

// AgentKind distinguishes agents that only converse from agents that also
// run code in a workspace.
type AgentKind string

const (
	// AgentKindDialogue agents reply through the model only.
	AgentKindDialogue AgentKind = "dialogue"
	// AgentKindExecution agents run code blocks in a private workspace.
	AgentKindExecution AgentKind = "execution"
)

// Valid returns true if the kind is a known value.
func (k AgentKind) Valid() bool {
	return k == AgentKindDialogue || k == AgentKindExecution
}

// AgentSpec is the declarative description of one agent before it is built.
type AgentSpec struct {
	// Name identifies the agent in the conversation. Unique within a roster.
	Name string `json:"name"`
	// Role is a short description of the agent's responsibility.
	Role string `json:"role"`
	// Instructions is the agent's base system prompt.
	Instructions string `json:"instructions"`
	// Capabilities are free-form labels such as "research" or "coding".
	Capabilities []string `json:"capabilities,omitempty"`
	// NeedsExecution marks agents that must be able to run code.
	NeedsExecution bool `json:"needs_execution"`
}

// Kind returns the agent kind this spec materializes into.
func (s AgentSpec) Kind() AgentKind {
	if s.NeedsExecution {
		return AgentKindExecution
	}
	return AgentKindDialogue
}

// executionCapabilities are capability labels that imply code execution.
var executionCapabilities = []string{
	"coding",
	"programming",
	"development",
	"scripting",
	"execution",
}

// ImpliesExecution returns true if any capability is a coding-type label.
func ImpliesExecution(capabilities []string) bool {
	for _, c := range capabilities {
		lower := strings.ToLower(strings.TrimSpace(c))
		for _, ec := range executionCapabilities {
			if lower == ec {
				return true
			}
		}
	}
	return false
}

// SpecSource records where a roster came from.
type SpecSource string

const (
	SpecSourceModel    SpecSource = "model"
	SpecSourceFallback SpecSource = "fallback"
	SpecSourceCache    SpecSource = "cache"
)
