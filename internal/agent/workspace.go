package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrWorkspaceCollision is returned when two agent names map to the same
// workspace directory within one run.
var ErrWorkspaceCollision = errors.New("workspace collision")

// WorkspaceProvider defines the interface for per-agent workspace management.
// This interface allows substituting workspace creation in tests.
type WorkspaceProvider interface {
	// Create creates the workspace directory for the named agent.
	Create(agentName string) (string, error)
	// List returns the workspace directories of the current run.
	List() ([]string, error)
	// Remove removes a single workspace directory.
	Remove(path string) error
	// RunDir returns the directory holding this run's workspaces.
	RunDir() string
}

// Verify WorkspaceManager implements WorkspaceProvider at compile time.
var _ WorkspaceProvider = (*WorkspaceManager)(nil)

// WorkspaceManager hands out isolated working directories to execution
// agents under <base>/<run-id>/<slug(name)>.
type WorkspaceManager struct {
	baseDir string
	runID   string
	claimed map[string]string // dir -> agent name
	mu      sync.Mutex
}

// NewWorkspaceManager creates a WorkspaceManager.
// baseDir defaults to ~/.cache/crewforge/workspaces; runID defaults to a new UUID.
func NewWorkspaceManager(baseDir, runID string) (*WorkspaceManager, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".cache", "crewforge", "workspaces")
	}
	if runID == "" {
		runID = uuid.New().String()
	}

	if err := os.MkdirAll(filepath.Join(baseDir, runID), 0755); err != nil {
		return nil, fmt.Errorf("create workspace base directory: %w", err)
	}

	return &WorkspaceManager{
		baseDir: baseDir,
		runID:   runID,
		claimed: make(map[string]string),
	}, nil
}

// Create creates the workspace for agentName. The path is a pure function
// of the run and the name, so a second agent whose name slugs to the same
// directory gets ErrWorkspaceCollision.
func (m *WorkspaceManager) Create(agentName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.pathFor(agentName)
	if owner, ok := m.claimed[path]; ok {
		return "", fmt.Errorf("%w: %q and %q both map to %s", ErrWorkspaceCollision, owner, agentName, path)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	m.claimed[path] = agentName
	return path, nil
}

// List returns the workspace directories under this run, sorted.
func (m *WorkspaceManager) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.RunDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workspace directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			paths = append(paths, filepath.Join(m.RunDir(), entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Remove deletes a workspace. Paths outside this run are refused.
func (m *WorkspaceManager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rel, err := filepath.Rel(m.RunDir(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("remove workspace: %s is not inside %s", path, m.RunDir())
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	delete(m.claimed, path)
	return nil
}

// Cleanup removes the whole run directory.
func (m *WorkspaceManager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.RunDir()); err != nil {
		return fmt.Errorf("remove run workspaces: %w", err)
	}
	m.claimed = make(map[string]string)
	return nil
}

// RunDir returns <base>/<run-id>.
func (m *WorkspaceManager) RunDir() string {
	return filepath.Join(m.baseDir, m.runID)
}

// RunID returns the run identifier.
func (m *WorkspaceManager) RunID() string {
	return m.runID
}

func (m *WorkspaceManager) pathFor(agentName string) string {
	return filepath.Join(m.RunDir(), Slug(agentName))
}

// Slug lowercases name and collapses every run of characters other than
// ASCII letters and digits into a single '-'.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "agent"
	}
	return s
}
