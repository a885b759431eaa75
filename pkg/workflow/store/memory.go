package store

import (
	"context"
	"sort"
	"sync"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/workflow"
)

// Memory is an in-process checkpoint store, suitable for tests and
// single-process deployments.
type Memory struct {
	mu          sync.RWMutex
	checkpoints map[string]workflow.Checkpoint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		checkpoints: make(map[string]workflow.Checkpoint),
	}
}

// Save stores a copy of cp, replacing any earlier checkpoint for the run.
func (m *Memory) Save(_ context.Context, cp *workflow.Checkpoint) error {
	if cp == nil || cp.RunID == "" {
		return &errors.ValidationError{
			Field:   "checkpoint",
			Message: "checkpoint must have a run ID",
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[cp.RunID] = *cp
	return nil
}

// Load returns the latest checkpoint for a run.
func (m *Memory) Load(_ context.Context, runID string) (*workflow.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[runID]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "checkpoint", ID: runID}
	}
	out := cp
	return &out, nil
}

// Delete removes a run's checkpoint.
func (m *Memory) Delete(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, runID)
	return nil
}

// List returns stored run IDs in sorted order.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.checkpoints))
	for id := range m.checkpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
