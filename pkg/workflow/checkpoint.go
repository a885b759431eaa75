package workflow

import (
	"context"
	"time"
)

// Checkpoint records run progress after a stage completes. NodeIndex is
// the index of the next stage to run and Value is the validated output
// of the last completed stage (the workflow input when NodeIndex is
// zero). A run resumed from a checkpoint replays nothing before
// NodeIndex; a parallel group interrupted mid-flight restarts whole.
type Checkpoint struct {
	RunID        string    `json:"run_id"`
	WorkflowName string    `json:"workflow_name"`
	NodeIndex    int       `json:"node_index"`
	Value        any       `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckpointFunc persists a checkpoint. The runner calls it after input
// validation and after each completed stage; an error aborts the run.
type CheckpointFunc func(ctx context.Context, cp *Checkpoint) error
