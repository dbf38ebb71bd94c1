// Package logging provides the run-scoped debug logger shared by crewforge components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger is the minimal logging surface components depend on.
type Logger interface {
	Log(format string, args ...interface{})
}

// DebugLogger writes timestamped lines to a log file and, optionally, mirrors
// them to a second writer such as stderr. A zero or nil DebugLogger is a no-op.
type DebugLogger struct {
	mu     sync.Mutex
	file   *os.File
	mirror io.Writer
	now    func() time.Time
}

var _ Logger = (*DebugLogger)(nil)

// NewDebugLogger creates a logger writing to the specified path.
// If the path is empty, returns a no-op logger.
// Creates parent directories if they don't exist.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Log("=== crewforge run log started at %s ===", time.Now().Format(time.RFC3339))

	return logger, nil
}

// DefaultLogPath returns the log location under the user's state directory.
func DefaultLogPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".crewforge", "logs", "crewforge.log")
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "crewforge", "crewforge.log")
}

// NopLogger returns a no-op logger for testing or when logging is disabled.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// NewWriterLogger returns a logger that only writes to w. Used for verbose
// console output and in tests.
func NewWriterLogger(w io.Writer) *DebugLogger {
	return &DebugLogger{mirror: w}
}

// SetMirror additionally copies every line to w. Passing nil disables mirroring.
func (l *DebugLogger) SetMirror(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = w
}

// Log writes a timestamped message.
// If the logger is nil or has no outputs, this is a no-op.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil && l.mirror == nil {
		return
	}

	now := time.Now
	if l.now != nil {
		now = l.now
	}
	line := fmt.Sprintf("[%s] %s\n", now().Format("15:04:05.000"), fmt.Sprintf(format, args...))

	if l.file != nil {
		l.file.WriteString(line)
		l.file.Sync()
	}
	if l.mirror != nil {
		io.WriteString(l.mirror, line)
	}
}

// Close closes the log file.
// Safe to call on nil logger or logger without file.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.file.Close()
	l.file = nil
	return err
}
