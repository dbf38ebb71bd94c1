// Package policy defines the configurable team sizing parameters.
// Tier limits, round budgets and coordination agents live here rather than
// in the builder so they can be tuned from a YAML file and in tests.
package policy

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// Config contains all team sizing policy parameters.
type Config struct {
	// Per-tier limits.
	Simple     TierPolicy `yaml:"simple"`
	Medium     TierPolicy `yaml:"medium"`
	Complex    TierPolicy `yaml:"complex"`
	Enterprise TierPolicy `yaml:"enterprise"`

	// Rounds controls the conversation length budget.
	Rounds RoundsPolicy `yaml:"rounds"`

	// Coordination agents appended for tiers with AppendCoordination set.
	Coordination []CoordinatorPolicy `yaml:"coordination"`

	// ExtendedFallbackFrom is the lowest tier that gets the three-agent
	// fallback roster (primary, research, executor).
	ExtendedFallbackFrom models.ComplexityTier `yaml:"extended_fallback_from"`
}

// TierPolicy controls roster size for one tier.
type TierPolicy struct {
	// MaxAgents caps the number of generated specialists.
	MaxAgents int `yaml:"max_agents"`
	// AppendCoordination adds the coordination agents after the specialists.
	AppendCoordination bool `yaml:"append_coordination"`
}

// RoundsPolicy computes the conversation round budget as
// clamp(teamSize*PerAgent, Min, Max).
type RoundsPolicy struct {
	PerAgent int `yaml:"per_agent"`
	Min      int `yaml:"min"`
	Max      int `yaml:"max"`
}

// CoordinatorPolicy describes a dialogue-only coordination agent.
type CoordinatorPolicy struct {
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	Instructions string `yaml:"instructions"`
}

// Default returns the default policy configuration.
func Default() *Config {
	return &Config{
		Simple:     TierPolicy{MaxAgents: 2},
		Medium:     TierPolicy{MaxAgents: 3},
		Complex:    TierPolicy{MaxAgents: 5},
		Enterprise: TierPolicy{MaxAgents: 7, AppendCoordination: true},
		Rounds: RoundsPolicy{
			PerAgent: 4,
			Min:      10,
			Max:      30,
		},
		Coordination:         defaultCoordination(),
		ExtendedFallbackFrom: models.TierComplex,
	}
}

func defaultCoordination() []CoordinatorPolicy {
	return []CoordinatorPolicy{
		{
			Name: "ProjectManager",
			Role: "Project coordination",
			Instructions: `Coordinate the work of all agents.
- Break the objective into steps and assign them to the right specialist
- Keep the team focused on the main objective
- Synthesize results from different agents and make final decisions
- Reply TERMINATE once the task is complete`,
		},
		{
			Name: "QualityReviewer",
			Role: "Quality assurance",
			Instructions: `Review every deliverable before it is accepted.
- Check outputs against the task requirements
- Point out gaps, errors and unverified claims
- Ask the responsible agent for fixes until the result is acceptable`,
		},
	}
}

// ForTier returns the policy for tier. Unknown tiers get the simple policy.
func (c *Config) ForTier(tier models.ComplexityTier) TierPolicy {
	switch tier {
	case models.TierMedium:
		return c.Medium
	case models.TierComplex:
		return c.Complex
	case models.TierEnterprise:
		return c.Enterprise
	default:
		return c.Simple
	}
}

// RoundsFor returns the round budget for a roster of teamSize agents.
func (c *Config) RoundsFor(teamSize int) int {
	rounds := teamSize * c.Rounds.PerAgent
	if rounds < c.Rounds.Min {
		return c.Rounds.Min
	}
	if rounds > c.Rounds.Max {
		return c.Rounds.Max
	}
	return rounds
}

// UsesExtendedFallback reports whether tier gets the three-agent fallback.
func (c *Config) UsesExtendedFallback(tier models.ComplexityTier) bool {
	return tier.Rank() >= c.ExtendedFallbackFrom.Rank()
}

// Validate checks that policy values are within acceptable ranges,
// replacing invalid ones with defaults.
func (c *Config) Validate() error {
	d := Default()
	fix := func(tp *TierPolicy, def TierPolicy) {
		if tp.MaxAgents < 1 {
			tp.MaxAgents = def.MaxAgents
		}
	}
	fix(&c.Simple, d.Simple)
	fix(&c.Medium, d.Medium)
	fix(&c.Complex, d.Complex)
	fix(&c.Enterprise, d.Enterprise)

	if c.Rounds.PerAgent < 1 {
		c.Rounds.PerAgent = d.Rounds.PerAgent
	}
	if c.Rounds.Min < 1 {
		c.Rounds.Min = d.Rounds.Min
	}
	if c.Rounds.Max < c.Rounds.Min {
		c.Rounds.Max = max(c.Rounds.Min, d.Rounds.Max)
	}
	if !c.ExtendedFallbackFrom.Valid() {
		c.ExtendedFallbackFrom = d.ExtendedFallbackFrom
	}

	seen := make(map[string]bool)
	for _, cp := range c.Coordination {
		if cp.Name == "" || cp.Role == "" {
			return fmt.Errorf("coordination agent needs a name and role: %+v", cp)
		}
		if seen[cp.Name] {
			return fmt.Errorf("duplicate coordination agent %q", cp.Name)
		}
		seen[cp.Name] = true
	}
	return nil
}

// LoadFile overlays the YAML file at path on the defaults.
// An empty path returns the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate policy file %s: %w", path, err)
	}
	return cfg, nil
}
