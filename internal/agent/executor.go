package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ShayCichocki/crewforge/internal/exec"
)

const (
	// DefaultExecTimeout bounds a single code block's run time.
	DefaultExecTimeout = 120 * time.Second
	maxOutputLen       = 30000
)

// CodeBlock is a fenced block of runnable code found in a message.
type CodeBlock struct {
	// Language is "bash" or "python".
	Language string
	Code     string
}

var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

// ExtractCodeBlocks returns the runnable fenced blocks in text, in order.
// bash, sh and shell map to "bash"; python and py map to "python". Blocks in
// any other language or with no language tag are ignored.
func ExtractCodeBlocks(text string) []CodeBlock {
	var blocks []CodeBlock
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		lang := normalizeLanguage(m[1])
		if lang == "" || strings.TrimSpace(m[2]) == "" {
			continue
		}
		blocks = append(blocks, CodeBlock{Language: lang, Code: m[2]})
	}
	return blocks
}

func normalizeLanguage(tag string) string {
	switch strings.ToLower(tag) {
	case "bash", "sh", "shell":
		return "bash"
	case "python", "py", "python3":
		return "python"
	default:
		return ""
	}
}

// ExecResult is the outcome of running one code block.
type ExecResult struct {
	Block    CodeBlock
	File     string
	ExitCode int
	Output   string
	TimedOut bool
}

// CodeExecutor writes code blocks into a workspace and runs them.
type CodeExecutor struct {
	runner  exec.CommandRunner
	timeout time.Duration
	python  string
}

// NewCodeExecutor creates a CodeExecutor. A nil runner uses the os/exec
// runner; a non-positive timeout uses DefaultExecTimeout.
func NewCodeExecutor(runner exec.CommandRunner, timeout time.Duration) *CodeExecutor {
	if runner == nil {
		runner = exec.NewRunner()
	}
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	return &CodeExecutor{runner: runner, timeout: timeout, python: "python3"}
}

// Run writes block to snippet_<index> in workDir and executes it there.
// A non-zero exit or a timeout is reported in the result, not as an error.
// Errors are reserved for write failures and cancellation of ctx.
func (e *CodeExecutor) Run(ctx context.Context, workDir string, index int, block CodeBlock) (ExecResult, error) {
	interpreter, ext := "bash", "sh"
	if block.Language == "python" {
		interpreter, ext = e.python, "py"
	}

	file := fmt.Sprintf("snippet_%03d.%s", index, ext)
	if err := os.WriteFile(filepath.Join(workDir, file), []byte(block.Code), 0644); err != nil {
		return ExecResult{}, fmt.Errorf("write code block: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	output, err := e.runner.Run(runCtx, workDir, interpreter, file)
	if ctx.Err() != nil {
		return ExecResult{}, ctx.Err()
	}

	result := ExecResult{
		Block:    block,
		File:     file,
		ExitCode: exec.ExitCode(err),
		Output:   string(output),
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.Output = fmt.Sprintf("Command timed out after %v:\n%s", e.timeout, result.Output)
	} else if err != nil && result.ExitCode == -1 {
		result.Output = fmt.Sprintf("%s\nError: %v", result.Output, err)
	}

	if len(result.Output) > maxOutputLen {
		result.Output = result.Output[:maxOutputLen] + "\n... (output truncated)"
	}
	return result, nil
}

// FormatResults renders execution results as a conversation reply.
func FormatResults(results []ExecResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		status := "execution succeeded"
		switch {
		case r.TimedOut:
			status = "execution timed out"
		case r.ExitCode != 0:
			status = "execution failed"
		}
		fmt.Fprintf(&b, "exitcode: %d (%s) [%s %s]\nCode output:\n%s", r.ExitCode, status, r.Block.Language, r.File, strings.TrimRight(r.Output, "\n"))
	}
	return b.String()
}
