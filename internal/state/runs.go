package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// RunRecord is one row of run history.
type RunRecord struct {
	ID         string                `json:"id"`
	Task       string                `json:"task"`
	Tier       models.ComplexityTier `json:"tier"`
	Source     models.SpecSource     `json:"source"`
	Rounds     int                   `json:"rounds"`
	Status     RunStatus             `json:"status"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
}

// RosterRecord is one agent of a run's roster.
type RosterRecord struct {
	RunID        string           `json:"run_id"`
	Position     int              `json:"position"`
	Name         string           `json:"name"`
	Role         string           `json:"role"`
	Kind         models.AgentKind `json:"kind"`
	Capabilities []string         `json:"capabilities"`
	Instructions string           `json:"instructions"`
	Workspace    string           `json:"workspace,omitempty"`
}

// Run CRUD operations

// RecordRun inserts a new run. An empty status is stored as running.
func (db *DB) RecordRun(r *RunRecord) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO runs (id, task, tier, source, rounds, status, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Task, string(r.Tier), string(r.Source), r.Rounds, string(r.Status), r.Error, formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// FinishRun sets the final status of a run. runErr may be nil.
func (db *DB) FinishRun(id string, status RunStatus, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	result, err := db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(status), msg, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", id)
	}
	return nil
}

// UpdateRunTeam stores the roster source and round budget once the team is built.
func (db *DB) UpdateRunTeam(id string, source models.SpecSource, rounds int) error {
	_, err := db.Exec(`UPDATE runs SET source = ?, rounds = ? WHERE id = ?`, string(source), rounds, id)
	if err != nil {
		return fmt.Errorf("update run team: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil, nil when no run matches.
func (db *DB) GetRun(id string) (*RunRecord, error) {
	row := db.QueryRow(`
		SELECT id, task, tier, source, rounds, status, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns all runs.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT id, task, tier, source, rounds, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var r RunRecord
	var startedAt string
	var finishedAt sql.NullString
	if err := row.Scan(&r.ID, &r.Task, &r.Tier, &r.Source, &r.Rounds, &r.Status, &r.Error, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

// Roster operations

// SaveRoster replaces the stored roster for runID.
func (db *DB) SaveRoster(runID string, agents []RosterRecord) error {
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM roster_agents WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear roster: %w", err)
		}
		for i, a := range agents {
			caps, err := json.Marshal(nonNil(a.Capabilities))
			if err != nil {
				return fmt.Errorf("marshal capabilities: %w", err)
			}
			_, err = tx.Exec(`
				INSERT INTO roster_agents (run_id, position, name, role, kind, capabilities, instructions, workspace)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, runID, i, a.Name, a.Role, string(a.Kind), string(caps), a.Instructions, a.Workspace)
			if err != nil {
				return fmt.Errorf("save roster agent %s: %w", a.Name, err)
			}
		}
		return nil
	})
}

// GetRoster returns the roster of a run in position order.
func (db *DB) GetRoster(runID string) ([]RosterRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, position, name, role, kind, capabilities, instructions, workspace
		FROM roster_agents WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	defer rows.Close()

	var roster []RosterRecord
	for rows.Next() {
		var a RosterRecord
		var caps string
		if err := rows.Scan(&a.RunID, &a.Position, &a.Name, &a.Role, &a.Kind, &caps, &a.Instructions, &a.Workspace); err != nil {
			return nil, fmt.Errorf("scan roster agent: %w", err)
		}
		if err := json.Unmarshal([]byte(caps), &a.Capabilities); err != nil {
			return nil, fmt.Errorf("unmarshal capabilities: %w", err)
		}
		roster = append(roster, a)
	}
	return roster, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
