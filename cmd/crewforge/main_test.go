package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/crewforge/internal/orchestrator/policy"
	"github.com/ShayCichocki/crewforge/internal/retry"
	"github.com/ShayCichocki/crewforge/internal/state"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

func TestTaskFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, defaultTask},
		{"blank arg", []string{"  "}, defaultTask},
		{"single arg", []string{"Build a CLI"}, "Build a CLI"},
		{"split args", []string{"Build", "a", "CLI"}, "Build a CLI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taskFromArgs(tt.args); got != tt.want {
				t.Errorf("taskFromArgs(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestRunStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want state.RunStatus
	}{
		{"success", nil, state.RunCompleted},
		{"cancelled", fmt.Errorf("conversation: %w", context.Canceled), state.RunCanceled},
		{"quota", fmt.Errorf("build team: %w", retry.ErrQuotaExceeded), state.RunFailed},
		{"other", errors.New("boom"), state.RunFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runStatusFor(tt.err); got != tt.want {
				t.Errorf("runStatusFor(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestDescribeClassification(t *testing.T) {
	pol := policy.Default()

	got := describeClassification("Summarize a research topic", pol)
	for _, want := range []string{"Tier:            simple", "Max agents:      2", "Round budget:    10"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	long := "Design an enterprise knowledge platform. " + strings.Repeat("lorem ", 115)
	got = describeClassification(long, pol)
	for _, want := range []string{"Tier:            enterprise", "Max agents:      7", "Coordination:    true", "Round budget:    30 (full roster of 9)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestDisplayValue(t *testing.T) {
	if got := displayValue("provider.api_key", "sk-ant-REDACTED"); got != "sk-ant-...mnop" {
		t.Errorf("api key not masked: %q", got)
	}
	if got := displayValue("provider.api_key", ""); got != "(not set)" {
		t.Errorf("empty api key = %q", got)
	}
	if got := displayValue("account.type", "free"); got != "free" {
		t.Errorf("plain value = %q", got)
	}
	if got := displayValue("policy.file", ""); got != "(not set)" {
		t.Errorf("empty value = %q", got)
	}
}

func TestRosterRows(t *testing.T) {
	specs := []models.AgentSpec{
		{Name: "Coder", Role: "Developer", Capabilities: []string{"coding", "testing"}},
		{Name: "Critic", Role: "Reviewer"},
	}
	kinds := []models.AgentKind{models.AgentKindExecution, models.AgentKindDialogue}
	workspaces := []string{"/tmp/ws/coder", ""}

	rows := rosterRows(specs, kinds, workspaces)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want0 := []string{"1", "Coder", "Developer", "execution", "coding, testing", "/tmp/ws/coder"}
	for i, cell := range want0 {
		if rows[0][i] != cell {
			t.Errorf("row 0 col %d = %q, want %q", i, rows[0][i], cell)
		}
	}
	if rows[1][4] != "-" || rows[1][5] != "-" {
		t.Errorf("empty cells should render as '-', got %q", rows[1])
	}
}

func TestRenderRuns(t *testing.T) {
	runs := []state.RunRecord{
		{ID: "run-1", Task: "Summarize a research topic", Tier: models.TierSimple, Status: state.RunCompleted, Rounds: 10, StartedAt: time.Now()},
		{ID: "run-2", Task: strings.Repeat("very long task ", 10), Tier: models.TierComplex, Status: state.RunFailed, StartedAt: time.Now()},
	}
	out := renderRuns(runs)
	for _, want := range []string{"run-1", "run-2", "completed", "failed", "Summarize a research topic", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Errorf("truncate should collapse whitespace, got %q", got)
	}
	if got := truncate("abcdefghijkl", 10); got != "abcdefg..." {
		t.Errorf("truncate long = %q", got)
	}
}

func TestFormatMessage(t *testing.T) {
	got := formatMessage(models.Message{Speaker: "Primary_Specialist", Content: "hello"})
	if !strings.Contains(got, "Primary_Specialist") || !strings.Contains(got, "hello") {
		t.Errorf("unexpected message rendering %q", got)
	}
	failed := formatMessage(models.Message{Speaker: "Coder", Content: "timeout", Failed: true})
	if !strings.Contains(failed, "(no reply)") {
		t.Errorf("failed message should be marked, got %q", failed)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(buf.String(), "crewforge version ") {
		t.Errorf("unexpected version output %q", buf.String())
	}
}
