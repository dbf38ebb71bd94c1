package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ShayCichocki/crewforge/internal/agent"
	"github.com/ShayCichocki/crewforge/internal/api"
	"github.com/ShayCichocki/crewforge/internal/retry"
	"github.com/ShayCichocki/crewforge/internal/specgen"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// passthrough runs the call once.
type passthrough struct{}

func (passthrough) Execute(ctx context.Context, call func(context.Context) error) error {
	return call(ctx)
}

func rosterJSON(n int) string {
	var entries []string
	for i := 1; i <= n; i++ {
		entries = append(entries, fmt.Sprintf(`{"name": "Specialist%d", "role": "Role %d", "instructions": "Do part %d.", "capabilities": ["analysis"]}`, i, i, i))
	}
	return `{"agents": [` + strings.Join(entries, ",") + `]}`
}

func newTestBuilder(t *testing.T, response string, callErr error) *TeamBuilder {
	t.Helper()
	rc, err := NewRunContext(RunOptions{ID: "run-test", WorkspaceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewRunContext() error = %v", err)
	}
	model := api.ModelFunc(func(ctx context.Context, prompt string, params api.Params) (string, error) {
		if callErr != nil {
			return "", callErr
		}
		return response, nil
	})
	gen := specgen.New(model, passthrough{}, rc.Policy)
	factory := agent.NewFactory(model, passthrough{}, rc.Workspaces)
	return NewTeamBuilder(rc, gen, factory)
}

func TestTeamBuilder_SimpleTask(t *testing.T) {
	b := newTestBuilder(t, rosterJSON(2), nil)

	team, err := b.Build(context.Background(), "Summarize a research topic")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if team.Tier != models.TierSimple {
		t.Errorf("Tier = %s, want simple", team.Tier)
	}
	if len(team.Agents) != 2 || len(team.Specs) != 2 {
		t.Errorf("agents = %d, specs = %d, want 2", len(team.Agents), len(team.Specs))
	}
	if team.Rounds != 10 {
		t.Errorf("Rounds = %d, want 10", team.Rounds)
	}
	if team.Source != models.SpecSourceModel || team.ID != "run-test" {
		t.Errorf("Source = %s, ID = %s", team.Source, team.ID)
	}
}

func TestTeamBuilder_EnterpriseTask(t *testing.T) {
	b := newTestBuilder(t, rosterJSON(8), nil)
	task := "Design an enterprise knowledge platform. " + strings.Repeat("lorem ", 115)
	if n := len(strings.Fields(task)); n != 120 {
		t.Fatalf("task has %d words, want 120", n)
	}

	team, err := b.Build(context.Background(), task)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if team.Tier != models.TierEnterprise {
		t.Errorf("Tier = %s, want enterprise", team.Tier)
	}
	if len(team.Agents) != 9 {
		t.Fatalf("agents = %d, want 7 specialists + 2 coordinators", len(team.Agents))
	}
	if team.Agents[7].Name() != "ProjectManager" || team.Agents[8].Name() != "QualityReviewer" {
		t.Errorf("coordinators = %s, %s", team.Agents[7].Name(), team.Agents[8].Name())
	}
	for _, a := range team.Agents[7:] {
		if a.Kind() != models.AgentKindDialogue {
			t.Errorf("%s should be dialogue-only", a.Name())
		}
	}
	if team.Rounds != 30 {
		t.Errorf("Rounds = %d, want 30", team.Rounds)
	}
	for i, s := range team.Specs {
		if s.Name != team.Agents[i].Name() {
			t.Errorf("Specs[%d] = %s, Agents[%d] = %s", i, s.Name, i, team.Agents[i].Name())
		}
	}
}

func TestTeamBuilder_FallbackRoster(t *testing.T) {
	b := newTestBuilder(t, "Sorry, I can't produce JSON today.", nil)

	team, err := b.Build(context.Background(), "Build a CLI that converts CSV to JSON")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if team.Tier != models.TierComplex || team.Source != models.SpecSourceFallback {
		t.Errorf("Tier = %s, Source = %s", team.Tier, team.Source)
	}
	if !specgen.IsValidationError(team.SpecErr) {
		t.Errorf("SpecErr = %v, want validation error", team.SpecErr)
	}
	if len(team.Agents) != 3 || team.Agents[2].Kind() != models.AgentKindExecution {
		t.Errorf("fallback team = %d agents", len(team.Agents))
	}
	if team.Rounds != 12 {
		t.Errorf("Rounds = %d, want 12", team.Rounds)
	}
}

func TestTeamBuilder_TransientFailureFallsBack(t *testing.T) {
	b := newTestBuilder(t, "", errors.New("503 upstream unavailable"))

	team, err := b.Build(context.Background(), "Summarize a research topic")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if team.Source != models.SpecSourceFallback || len(team.Agents) != 2 {
		t.Errorf("Source = %s, agents = %d", team.Source, len(team.Agents))
	}
}

func TestTeamBuilder_QuotaIsFatal(t *testing.T) {
	quota := &retry.CallError{Kind: retry.KindQuotaExceeded, Attempts: 1, Err: errors.New("insufficient_quota")}
	b := newTestBuilder(t, "", quota)

	_, err := b.Build(context.Background(), "Summarize a research topic")
	if !errors.Is(err, retry.ErrQuotaExceeded) {
		t.Errorf("Build() error = %v, want ErrQuotaExceeded", err)
	}
}

func TestTeamBuilder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newTestBuilder(t, "", context.Canceled)

	_, err := b.Build(ctx, "Summarize a research topic")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestTeamBuilder_EmptyTask(t *testing.T) {
	b := newTestBuilder(t, rosterJSON(2), nil)
	if _, err := b.Build(context.Background(), "   "); !errors.Is(err, ErrEmptyTask) {
		t.Errorf("Build() error = %v, want ErrEmptyTask", err)
	}
}

// emptyGenerator returns no specs at all.
type emptyGenerator struct{}

func (emptyGenerator) Generate(ctx context.Context, task string, tier models.ComplexityTier, maxAgents int) specgen.Result {
	return specgen.Result{Source: models.SpecSourceModel}
}

func TestTeamBuilder_EmptyRoster(t *testing.T) {
	rc, err := NewRunContext(RunOptions{WorkspaceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewRunContext() error = %v", err)
	}
	factory := agent.NewFactory(nil, passthrough{}, rc.Workspaces)
	b := NewTeamBuilder(rc, emptyGenerator{}, factory)

	if _, err := b.Build(context.Background(), "Summarize a research topic"); !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("Build() error = %v, want ErrEmptyRoster", err)
	}
}

func TestTeam_GroupChat(t *testing.T) {
	b := newTestBuilder(t, rosterJSON(2), nil)
	team, err := b.Build(context.Background(), "Summarize a research topic")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	chat := team.GroupChat(nil)
	if len(chat.Agents) != 2 || chat.MaxRounds != team.Rounds {
		t.Errorf("chat agents = %d, max rounds = %d", len(chat.Agents), chat.MaxRounds)
	}

	tr, err := chat.Run(context.Background(), "Team, let's work together.")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(tr.Messages) != team.Rounds {
		t.Errorf("messages = %d, want %d", len(tr.Messages), team.Rounds)
	}
}
