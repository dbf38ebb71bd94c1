package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ShayCichocki/crewforge/internal/api"
	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

var (
	// ErrMaterialization wraps every reason a spec could not become an agent.
	ErrMaterialization = errors.New("agent materialization failed")
	// ErrNameCollision indicates an agent with that name already exists in the team.
	ErrNameCollision = errors.New("agent name collision")
)

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger handed to the factory and its agents.
func WithFactoryLogger(l logging.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// WithAgentParams sets the model parameters agents reply with.
// The system prompt is always the agent's composed instructions.
func WithAgentParams(p api.Params) FactoryOption {
	return func(f *Factory) { f.params = p }
}

// WithCodeExecutor sets how execution agents run code.
func WithCodeExecutor(c *CodeExecutor) FactoryOption {
	return func(f *Factory) { f.code = c }
}

// Factory materializes agent specs into agents for a single team.
// Names are unique per Factory.
type Factory struct {
	model      api.Model
	exec       Executor
	workspaces WorkspaceProvider
	code       *CodeExecutor
	params     api.Params
	logger     logging.Logger

	mu    sync.Mutex
	names map[string]bool
}

// NewFactory creates a Factory. workspaces may be nil when no spec needs
// execution; such specs then fail to materialize.
func NewFactory(model api.Model, exec Executor, workspaces WorkspaceProvider, opts ...FactoryOption) *Factory {
	f := &Factory{
		model:      model,
		exec:       exec,
		workspaces: workspaces,
		logger:     logging.NopLogger(),
		names:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.code == nil {
		f.code = NewCodeExecutor(nil, 0)
	}
	return f
}

// Materialize builds one agent. Specs that need execution become an
// ExecutionAgent bound to a fresh workspace; all others become a DialogueAgent.
// Every failure wraps ErrMaterialization.
func (f *Factory) Materialize(spec models.AgentSpec, task string) (Agent, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty agent name", ErrMaterialization)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(name)
	if f.names[key] {
		return nil, fmt.Errorf("%w: %s: %w", ErrMaterialization, name, ErrNameCollision)
	}

	b := base{
		name:         name,
		role:         spec.Role,
		instructions: ComposeInstructions(spec, task),
		model:        f.model,
		exec:         f.exec,
		params:       f.params,
		logger:       f.logger,
	}

	var a Agent
	if spec.Kind() == models.AgentKindExecution {
		if f.workspaces == nil {
			return nil, fmt.Errorf("%w: %s: no workspace provider", ErrMaterialization, name)
		}
		dir, err := f.workspaces.Create(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMaterialization, name, err)
		}
		a = &ExecutionAgent{base: b, workspace: dir, code: f.code}
		f.logger.Log("[factory] %s: execution agent in %s", name, dir)
	} else {
		a = &DialogueAgent{base: b}
		f.logger.Log("[factory] %s: dialogue agent", name)
	}

	f.names[key] = true
	return a, nil
}

// MaterializeAll builds agents for specs in order, logging and skipping any
// that fail.
func (f *Factory) MaterializeAll(specs []models.AgentSpec, task string) []Agent {
	agents := make([]Agent, 0, len(specs))
	for _, spec := range specs {
		a, err := f.Materialize(spec, task)
		if err != nil {
			f.logger.Log("[factory] skipping agent: %v", err)
			continue
		}
		agents = append(agents, a)
	}
	return agents
}
