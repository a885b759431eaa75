// Package store persists workflow checkpoints so interrupted runs can
// be resumed. Implementations are safe for concurrent use.
package store

import (
	"context"

	"github.com/stepflow/stepflow/pkg/workflow"
)

// Store persists checkpoints keyed by run ID. Save overwrites any
// previous checkpoint for the same run, so a store holds only the
// latest position of each run.
type Store interface {
	// Save persists a checkpoint, replacing any earlier one for the run.
	Save(ctx context.Context, cp *workflow.Checkpoint) error

	// Load returns the latest checkpoint for a run. Missing runs yield
	// a NotFoundError.
	Load(ctx context.Context, runID string) (*workflow.Checkpoint, error)

	// Delete removes a run's checkpoint. Deleting a missing run is not
	// an error.
	Delete(ctx context.Context, runID string) error

	// List returns the run IDs with a stored checkpoint.
	List(ctx context.Context) ([]string, error)

	// Close releases the store's resources.
	Close() error
}

// CheckpointFunc adapts a Store into the runner's checkpoint hook.
func CheckpointFunc(s Store) workflow.CheckpointFunc {
	return func(ctx context.Context, cp *workflow.Checkpoint) error {
		return s.Save(ctx, cp)
	}
}
