// Package agent turns validated agent specs into runnable conversation
// participants.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ShayCichocki/crewforge/internal/api"
	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// Executor runs a model call under the retry and rate-limit policy.
type Executor interface {
	Execute(ctx context.Context, call func(context.Context) error) error
}

// Agent is a named participant in a group conversation.
type Agent interface {
	Name() string
	Role() string
	Kind() models.AgentKind
	// Instructions is the composed system prompt.
	Instructions() string
	// Workspace is the agent's working directory, empty for dialogue agents.
	Workspace() string
	// Reply produces the agent's next message given the conversation so far.
	Reply(ctx context.Context, transcript []models.Message) (string, error)
}

// Verify agent types implement Agent at compile time.
var (
	_ Agent = (*DialogueAgent)(nil)
	_ Agent = (*ExecutionAgent)(nil)
)

// base holds what every agent needs to talk to the model.
type base struct {
	name         string
	role         string
	instructions string
	model        api.Model
	exec         Executor
	params       api.Params
	logger       logging.Logger
}

func (b *base) Name() string         { return b.name }
func (b *base) Role() string         { return b.role }
func (b *base) Instructions() string { return b.instructions }

// modelReply sends the rendered transcript to the model through the executor.
func (b *base) modelReply(ctx context.Context, transcript []models.Message) (string, error) {
	prompt := RenderTranscript(b.name, transcript)
	params := b.params
	params.System = b.instructions

	var reply string
	err := b.exec.Execute(ctx, func(ctx context.Context) error {
		out, err := b.model.Invoke(ctx, prompt, params)
		if err != nil {
			return err
		}
		reply = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s reply: %w", b.name, err)
	}
	return strings.TrimSpace(reply), nil
}

// DialogueAgent answers every turn with a model call.
type DialogueAgent struct {
	base
}

// Kind returns models.AgentKindDialogue.
func (a *DialogueAgent) Kind() models.AgentKind { return models.AgentKindDialogue }

// Workspace returns "".
func (a *DialogueAgent) Workspace() string { return "" }

// Reply asks the model for the next message.
func (a *DialogueAgent) Reply(ctx context.Context, transcript []models.Message) (string, error) {
	return a.modelReply(ctx, transcript)
}

// ExecutionAgent runs code proposed by other agents inside its workspace.
type ExecutionAgent struct {
	base
	workspace string
	code      *CodeExecutor

	mu      sync.Mutex
	snippet int
}

// Kind returns models.AgentKindExecution.
func (a *ExecutionAgent) Kind() models.AgentKind { return models.AgentKindExecution }

// Workspace returns the agent's working directory.
func (a *ExecutionAgent) Workspace() string { return a.workspace }

// Reply runs the code blocks in the latest message from another speaker and
// reports the results. With nothing to run it replies through the model.
func (a *ExecutionAgent) Reply(ctx context.Context, transcript []models.Message) (string, error) {
	latest, ok := latestFromOthers(a.name, transcript)
	if !ok {
		return a.modelReply(ctx, transcript)
	}
	blocks := ExtractCodeBlocks(latest.Content)
	if len(blocks) == 0 {
		return a.modelReply(ctx, transcript)
	}

	a.logger.Log("[agent] %s running %d code block(s) from %s", a.name, len(blocks), latest.Speaker)
	results := make([]ExecResult, 0, len(blocks))
	for _, block := range blocks {
		res, err := a.code.Run(ctx, a.workspace, a.nextSnippet(), block)
		if err != nil {
			return "", fmt.Errorf("%s execute: %w", a.name, err)
		}
		a.logger.Log("[agent] %s %s exit=%d timed_out=%v", a.name, res.File, res.ExitCode, res.TimedOut)
		results = append(results, res)
	}
	return FormatResults(results), nil
}

func (a *ExecutionAgent) nextSnippet() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snippet++
	return a.snippet
}

func latestFromOthers(self string, transcript []models.Message) (models.Message, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		m := transcript[i]
		if m.Speaker != self && !m.Failed {
			return m, true
		}
	}
	return models.Message{}, false
}

// RenderTranscript turns the conversation into a single prompt for speaker.
func RenderTranscript(speaker string, transcript []models.Message) string {
	var b strings.Builder
	if len(transcript) == 0 {
		fmt.Fprintf(&b, "You are %s. The conversation has not started yet.\n\n", speaker)
	} else {
		fmt.Fprintf(&b, "You are %s in a group conversation. Messages so far:\n\n", speaker)
		for _, m := range transcript {
			if m.Failed {
				continue
			}
			fmt.Fprintf(&b, "[%s]: %s\n\n", m.Speaker, m.Content)
		}
	}
	fmt.Fprintf(&b, "Reply as %s with your next contribution.", speaker)
	return b.String()
}
