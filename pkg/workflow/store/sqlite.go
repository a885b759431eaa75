package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/workflow"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	run_id        TEXT PRIMARY KEY,
	workflow_name TEXT NOT NULL,
	node_index    INTEGER NOT NULL,
	value         TEXT,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_workflow ON checkpoints(workflow_name);
`

// SQLite is a checkpoint store backed by a SQLite database file. Runs
// survive process restarts; a resumed process loads the checkpoint and
// continues from the recorded stage.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed store at path.
// Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent runs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(checkpointSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init checkpoint schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Save upserts the run's checkpoint.
func (s *SQLite) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	if cp == nil || cp.RunID == "" {
		return &errors.ValidationError{
			Field:   "checkpoint",
			Message: "checkpoint must have a run ID",
		}
	}

	value, err := json.Marshal(cp.Value)
	if err != nil {
		return fmt.Errorf("encode checkpoint value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, workflow_name, node_index, value, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			workflow_name = excluded.workflow_name,
			node_index    = excluded.node_index,
			value         = excluded.value,
			created_at    = excluded.created_at`,
		cp.RunID, cp.WorkflowName, cp.NodeIndex, string(value),
		cp.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint for a run.
func (s *SQLite) Load(ctx context.Context, runID string) (*workflow.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workflow_name, node_index, value, created_at
		FROM checkpoints WHERE run_id = ?`, runID)

	var (
		cp        workflow.Checkpoint
		value     string
		createdAt string
	)
	cp.RunID = runID
	err := row.Scan(&cp.WorkflowName, &cp.NodeIndex, &value, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "checkpoint", ID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if value != "" {
		if err := json.Unmarshal([]byte(value), &cp.Value); err != nil {
			return nil, fmt.Errorf("decode checkpoint value: %w", err)
		}
	}
	if cp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("decode checkpoint timestamp: %w", err)
	}
	return &cp, nil
}

// Delete removes a run's checkpoint.
func (s *SQLite) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// List returns stored run IDs, newest first.
func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM checkpoints ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list checkpoints: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
