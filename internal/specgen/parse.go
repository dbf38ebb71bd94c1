package specgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// ErrValidation is wrapped by every ParseResponse failure.
var ErrValidation = errors.New("spec validation failed")

// rawSpec is the JSON structure returned by the model for a single agent.
type rawSpec struct {
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Instructions  string   `json:"instructions"`
	SystemMessage string   `json:"system_message"`
	Capabilities  []string `json:"capabilities"`
	// NeedsExecution is a pointer so an absent field can be inferred from
	// the capabilities.
	NeedsExecution *bool `json:"needs_execution"`
}

type rawRoster struct {
	Agents []rawSpec `json:"agents"`
}

// ParseResponse extracts the text between the first '{' and the last '}'
// and decodes it as an {"agents": [...]} roster. Every entry needs a name,
// role and instructions. Duplicate names are not checked here.
func ParseResponse(response string) ([]models.AgentSpec, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 200 {
			preview = preview[:200] + "... (truncated)"
		}
		return nil, fmt.Errorf("%w: no JSON object found in response (got %d chars): %q", ErrValidation, len(response), preview)
	}

	var roster rawRoster
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &roster); err != nil {
		return nil, fmt.Errorf("%w: unmarshal JSON: %v", ErrValidation, err)
	}

	if len(roster.Agents) == 0 {
		return nil, fmt.Errorf("%w: empty agent list returned", ErrValidation)
	}

	specs := make([]models.AgentSpec, 0, len(roster.Agents))
	for i, raw := range roster.Agents {
		spec, err := raw.toSpec()
		if err != nil {
			return nil, fmt.Errorf("%w: agent %d: %v", ErrValidation, i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (r rawSpec) toSpec() (models.AgentSpec, error) {
	name := strings.TrimSpace(r.Name)
	role := strings.TrimSpace(r.Role)
	instructions := strings.TrimSpace(r.Instructions)
	if instructions == "" {
		instructions = strings.TrimSpace(r.SystemMessage)
	}

	switch {
	case name == "":
		return models.AgentSpec{}, errors.New("missing name")
	case role == "":
		return models.AgentSpec{}, fmt.Errorf("%s: missing role", name)
	case instructions == "":
		return models.AgentSpec{}, fmt.Errorf("%s: missing instructions", name)
	}

	var caps []string
	for _, c := range r.Capabilities {
		if c = strings.TrimSpace(c); c != "" {
			caps = append(caps, c)
		}
	}

	needsExecution := models.ImpliesExecution(caps)
	if r.NeedsExecution != nil {
		needsExecution = *r.NeedsExecution
	}

	return models.AgentSpec{
		Name:           name,
		Role:           role,
		Instructions:   instructions,
		Capabilities:   caps,
		NeedsExecution: needsExecution,
	}, nil
}

// resolveDuplicates keeps the first spec for each name (case-insensitive)
// and swaps every later duplicate for the next unused replacement. Duplicates
// with no replacement left are dropped.
func resolveDuplicates(specs, replacements []models.AgentSpec) ([]models.AgentSpec, []string) {
	taken := make(map[string]bool, len(specs))
	for _, s := range specs {
		taken[strings.ToLower(s.Name)] = true
	}

	seen := make(map[string]bool, len(specs))
	out := make([]models.AgentSpec, 0, len(specs))
	var rejected []string
	next := 0

	for _, s := range specs {
		key := strings.ToLower(s.Name)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
			continue
		}

		rejected = append(rejected, s.Name)
		for next < len(replacements) && taken[strings.ToLower(replacements[next].Name)] {
			next++
		}
		if next == len(replacements) {
			continue
		}
		r := replacements[next]
		next++
		taken[strings.ToLower(r.Name)] = true
		seen[strings.ToLower(r.Name)] = true
		out = append(out, r)
	}
	return out, rejected
}
