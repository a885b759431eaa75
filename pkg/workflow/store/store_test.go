package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/workflow"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_SaveLoad(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cp := &workflow.Checkpoint{
				RunID:        "run-1",
				WorkflowName: "etl",
				NodeIndex:    2,
				Value:        map[string]any{"rows": 42.0},
				CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
			}
			require.NoError(t, s.Save(ctx, cp))

			got, err := s.Load(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, "run-1", got.RunID)
			assert.Equal(t, "etl", got.WorkflowName)
			assert.Equal(t, 2, got.NodeIndex)
			assert.Equal(t, map[string]any{"rows": 42.0}, got.Value)
			assert.Equal(t, cp.CreatedAt, got.CreatedAt)
		})
	}
}

func TestStore_SaveReplacesEarlier(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, &workflow.Checkpoint{
				RunID: "run-1", WorkflowName: "etl", NodeIndex: 1, CreatedAt: time.Now(),
			}))
			require.NoError(t, s.Save(ctx, &workflow.Checkpoint{
				RunID: "run-1", WorkflowName: "etl", NodeIndex: 2, CreatedAt: time.Now(),
			}))

			got, err := s.Load(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, 2, got.NodeIndex)

			ids, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"run-1"}, ids)
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), "ghost")
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err))
		})
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, &workflow.Checkpoint{
				RunID: "run-1", WorkflowName: "etl", CreatedAt: time.Now(),
			}))
			require.NoError(t, s.Delete(ctx, "run-1"))

			_, err := s.Load(ctx, "run-1")
			assert.True(t, errors.IsNotFound(err))

			// Deleting a missing run is not an error.
			assert.NoError(t, s.Delete(ctx, "run-1"))
		})
	}
}

func TestStore_SaveValidation(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Save(context.Background(), &workflow.Checkpoint{})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestCheckpointFunc_ResumeAfterInterruption(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var attempts atomic.Int32
	wf := workflow.New("resumable", nil).
		Then(workflow.MustStep("first", func(ctx context.Context, v any) (any, error) {
			return "first done", nil
		}, nil)).
		Then(workflow.MustStep("second", func(ctx context.Context, v any) (any, error) {
			// Fails on the first attempt, as if the process died here.
			if attempts.Add(1) == 1 {
				return nil, fmt.Errorf("process interrupted")
			}
			return fmt.Sprintf("second saw %v", v), nil
		}, nil))

	r := workflow.NewRunner(workflow.WithCheckpointFunc(CheckpointFunc(s)))

	_, err := r.Run(ctx, wf, "input")
	require.Error(t, err)

	// The store holds the position after the first stage.
	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	cp, err := s.Load(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, cp.NodeIndex)
	assert.Equal(t, "first done", cp.Value)

	// Resume picks up where the run stopped.
	out, err := r.Resume(ctx, wf, cp)
	require.NoError(t, err)
	assert.Equal(t, "second saw first done", out)
}
