// Package specgen asks the model to design an agent roster for a task and
// falls back to a fixed roster when the answer is unusable.
package specgen

import (
	"context"
	"errors"

	"github.com/ShayCichocki/crewforge/internal/api"
	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/internal/orchestrator/policy"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// Executor runs a model call under the retry and rate-limit policy.
type Executor interface {
	Execute(ctx context.Context, call func(context.Context) error) error
}

// Result is a generated roster and where it came from.
type Result struct {
	Specs  []models.AgentSpec
	Source models.SpecSource
	// Err is why the fallback roster was used. Nil for model and cache results.
	Err error
}

// Option configures a Generator.
type Option func(*Generator)

// WithCache reuses rosters for identical requests.
func WithCache(c *SpecCache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithParams sets the model parameters for the design request.
func WithParams(p api.Params) Option {
	return func(g *Generator) { g.params = p }
}

// Generator produces validated agent specs for a task.
type Generator struct {
	model  api.Model
	exec   Executor
	policy *policy.Config
	params api.Params
	cache  *SpecCache
	logger logging.Logger
}

// New creates a Generator.
func New(model api.Model, exec Executor, pol *policy.Config, opts ...Option) *Generator {
	if pol == nil {
		pol = policy.Default()
	}
	g := &Generator{
		model:  model,
		exec:   exec,
		policy: pol,
		params: api.Params{Temperature: api.Float(0.2)},
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.params.System = systemPrompt
	return g
}

// Generate issues one design request and returns at most maxAgents specs.
// It never fails: any error yields the fallback roster with Result.Err set.
func (g *Generator) Generate(ctx context.Context, task string, tier models.ComplexityTier, maxAgents int) Result {
	if maxAgents < 1 {
		maxAgents = 1
	}

	if specs, ok := g.cache.Get(task, tier, maxAgents); ok {
		g.logger.Log("[specgen] reusing cached roster of %d agents", len(specs))
		return Result{Specs: specs, Source: models.SpecSourceCache}
	}

	fallback := FallbackRoster(task, tier, maxAgents, g.policy)

	var response string
	prompt := BuildPrompt(task, tier, maxAgents)
	err := g.exec.Execute(ctx, func(ctx context.Context) error {
		out, err := g.model.Invoke(ctx, prompt, g.params)
		if err != nil {
			return err
		}
		response = out
		return nil
	})
	if err != nil {
		g.logger.Log("[specgen] design request failed, using fallback roster: %v", err)
		return Result{Specs: fallback, Source: models.SpecSourceFallback, Err: err}
	}

	specs, err := ParseResponse(response)
	if err != nil {
		g.logger.Log("[specgen] %v; using fallback roster", err)
		return Result{Specs: fallback, Source: models.SpecSourceFallback, Err: err}
	}

	specs, rejected := resolveDuplicates(specs, fallback)
	for _, name := range rejected {
		g.logger.Log("[specgen] duplicate agent name %q rejected", name)
	}

	if len(specs) > maxAgents {
		g.logger.Log("[specgen] model proposed %d agents, keeping first %d", len(specs), maxAgents)
		specs = specs[:maxAgents]
	}

	g.cache.Set(task, tier, maxAgents, specs)
	g.logger.Log("[specgen] model designed %d agents", len(specs))
	return Result{Specs: specs, Source: models.SpecSourceModel}
}

// IsValidationError reports whether a Result.Err came from parsing the
// model's answer rather than from the call itself.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
