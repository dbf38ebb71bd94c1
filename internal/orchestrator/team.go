package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/crewforge/internal/agent"
	"github.com/ShayCichocki/crewforge/internal/conversation"
	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/internal/retry"
	"github.com/ShayCichocki/crewforge/internal/specgen"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

var (
	// ErrEmptyTask is returned by Build for blank task text.
	ErrEmptyTask = errors.New("task text is empty")
	// ErrEmptyRoster is returned when no agent could be materialized.
	ErrEmptyRoster = errors.New("no agents could be materialized")
)

// SpecGenerator produces the specialist specs for a task.
type SpecGenerator interface {
	Generate(ctx context.Context, task string, tier models.ComplexityTier, maxAgents int) specgen.Result
}

// Materializer turns specs into agents.
type Materializer interface {
	Materialize(spec models.AgentSpec, task string) (agent.Agent, error)
	MaterializeAll(specs []models.AgentSpec, task string) []agent.Agent
}

// Team is an assembled roster ready to converse.
type Team struct {
	ID        string
	Task      string
	Tier      models.ComplexityTier
	Selection TierSelection
	Agents    []agent.Agent
	// Specs mirrors Agents one to one, coordination agents included.
	Specs  []models.AgentSpec
	Source models.SpecSource
	// SpecErr is why the fallback roster was used, if it was.
	SpecErr error
	Rounds  int
}

// GroupChat returns a conversation over the team's agents with the team's
// round budget.
func (t *Team) GroupChat(logger logging.Logger) *conversation.GroupChat {
	participants := make([]conversation.Participant, len(t.Agents))
	for i, a := range t.Agents {
		participants[i] = a
	}
	return &conversation.GroupChat{
		Agents:    participants,
		MaxRounds: t.Rounds,
		Logger:    logger,
	}
}

// TeamBuilder assembles a team for a task within one run.
type TeamBuilder struct {
	rc      *RunContext
	specs   SpecGenerator
	factory Materializer
}

// NewTeamBuilder creates a TeamBuilder.
func NewTeamBuilder(rc *RunContext, specs SpecGenerator, factory Materializer) *TeamBuilder {
	return &TeamBuilder{rc: rc, specs: specs, factory: factory}
}

// Build classifies the task, generates and materializes specialists, adds
// coordination agents when the tier calls for them and sets the round budget.
// Spec generation problems fall back to a fixed roster; only an exceeded
// quota or a cancelled context stop the build.
func (b *TeamBuilder) Build(ctx context.Context, task string) (*Team, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, ErrEmptyTask
	}
	logger := b.rc.Logger
	pol := b.rc.Policy

	sel := ClassifyWithDetails(task)
	tierPolicy := pol.ForTier(sel.Tier)
	logger.Log("[team] tier=%s (%s), max agents %d", sel.Tier, sel.Reason, tierPolicy.MaxAgents)

	res := b.specs.Generate(ctx, task, sel.Tier, tierPolicy.MaxAgents)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Err != nil {
		if errors.Is(res.Err, retry.ErrQuotaExceeded) || errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("generate agent specs: %w", res.Err)
		}
		logger.Log("[team] using %s roster: %v", res.Source, res.Err)
	}

	team := &Team{
		ID:        b.rc.ID,
		Task:      task,
		Tier:      sel.Tier,
		Selection: sel,
		Source:    res.Source,
		SpecErr:   res.Err,
	}

	agents := b.factory.MaterializeAll(res.Specs, task)
	team.Agents = agents
	team.Specs = specsFor(agents, res.Specs)

	if tierPolicy.AppendCoordination {
		for _, c := range pol.Coordination {
			spec := models.AgentSpec{
				Name:         c.Name,
				Role:         c.Role,
				Instructions: c.Instructions,
				Capabilities: []string{"coordination"},
			}
			a, err := b.factory.Materialize(spec, task)
			if err != nil {
				logger.Log("[team] skipping coordinator %s: %v", c.Name, err)
				continue
			}
			team.Agents = append(team.Agents, a)
			team.Specs = append(team.Specs, spec)
		}
	}

	if len(team.Agents) == 0 {
		return nil, ErrEmptyRoster
	}

	team.Rounds = pol.RoundsFor(len(team.Agents))
	logger.Log("[team] %d agents (%s specs), %d rounds", len(team.Agents), team.Source, team.Rounds)
	return team, nil
}

// specsFor returns the spec behind each agent, matched by name.
func specsFor(agents []agent.Agent, specs []models.AgentSpec) []models.AgentSpec {
	byName := make(map[string]models.AgentSpec, len(specs))
	for _, s := range specs {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if _, ok := byName[key]; !ok {
			byName[key] = s
		}
	}
	out := make([]models.AgentSpec, 0, len(agents))
	for _, a := range agents {
		s := byName[strings.ToLower(a.Name())]
		s.Name = a.Name()
		out = append(out, s)
	}
	return out
}
