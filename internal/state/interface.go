package state

import (
	"io"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// RunStore handles run-related persistence operations.
type RunStore interface {
	RecordRun(r *RunRecord) error
	FinishRun(id string, status RunStatus, runErr error) error
	UpdateRunTeam(id string, source models.SpecSource, rounds int) error
	GetRun(id string) (*RunRecord, error)
	ListRuns(limit int) ([]RunRecord, error)
}

// RosterStore handles roster persistence operations.
type RosterStore interface {
	SaveRoster(runID string, agents []RosterRecord) error
	GetRoster(runID string) ([]RosterRecord, error)
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// HistoryStore defines the interface for run-history persistence.
// It composes focused sub-interfaces so the CLI does not depend on the
// concrete SQLite implementation.
type HistoryStore interface {
	io.Closer
	Migrator
	RunStore
	RosterStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ HistoryStore = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ RunStore     = (*DB)(nil)
	_ RosterStore  = (*DB)(nil)
)
