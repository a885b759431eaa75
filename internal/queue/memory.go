package queue

import (
	"context"
	"sync"
)

// Memory is an in-process Broker implementation. Suitable for tests and
// single-process deployments where the worker pool runs alongside the
// submitter.
type Memory struct {
	mu      sync.Mutex
	tasks   []*TaskMessage
	results map[string]chan *ResultMessage
	signal  chan struct{}
	done    chan struct{}
	closed  bool
}

// NewMemory creates a new in-memory broker.
func NewMemory() *Memory {
	return &Memory{
		results: make(map[string]chan *ResultMessage),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Submit adds a task to the queue and registers a result slot for it.
func (m *Memory) Submit(ctx context.Context, msg *TaskMessage) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.tasks = append(m.tasks, msg)
	m.results[msg.ID] = make(chan *ResultMessage, 1)
	m.mu.Unlock()

	// Wake one waiting worker.
	select {
	case m.signal <- struct{}{}:
	default:
	}

	return nil
}

// NextTask removes and returns the next task, blocking until one is
// available, the context is done, or the broker is closed.
func (m *Memory) NextTask(ctx context.Context) (*TaskMessage, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}
		if len(m.tasks) > 0 {
			msg := m.tasks[0]
			m.tasks = m.tasks[1:]
			if len(m.tasks) > 0 {
				// More work queued: keep the signal set for the
				// next waiter.
				select {
				case m.signal <- struct{}{}:
				default:
				}
			}
			m.mu.Unlock()
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.signal:
		case <-m.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Complete delivers a result to the submitter awaiting it.
func (m *Memory) Complete(ctx context.Context, res *ResultMessage) error {
	m.mu.Lock()
	ch, ok := m.results[res.TaskID]
	if ok {
		delete(m.results, res.TaskID)
	}
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		// Submitter gave up; drop the result.
		return nil
	}

	ch <- res
	return nil
}

// AwaitResult blocks until the task's result arrives.
func (m *Memory) AwaitResult(ctx context.Context, taskID string) (*ResultMessage, error) {
	m.mu.Lock()
	ch, ok := m.results[taskID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrClosed
	}

	select {
	case res := <-ch:
		return res, nil
	case <-m.done:
		return nil, ErrClosed
	case <-ctx.Done():
		// Unregister so a late Complete does not block on a dead slot.
		m.mu.Lock()
		delete(m.results, taskID)
		m.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Close shuts the broker down. Pending waiters are released with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}
