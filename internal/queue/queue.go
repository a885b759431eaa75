// Package queue provides task queue transports for distributed step
// execution. A Broker carries task messages from submitters to workers
// and result messages back.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned by broker operations after Close.
var ErrClosed = errors.New("queue is closed")

// TaskMessage is a unit of work submitted to the queue. The payload is
// the JSON-encoded input value; the task is addressed by registered name.
type TaskMessage struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ResultMessage carries a task outcome back to the submitter. Exactly one
// of Payload and Err is meaningful.
type ResultMessage struct {
	TaskID  string          `json:"task_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Err     string          `json:"error,omitempty"`
}

// Broker is the transport contract between task submitters and workers.
//
// Submitter side: Submit enqueues a task, AwaitResult blocks until the
// task's result arrives or ctx is done.
//
// Worker side: NextTask blocks until a task is available, Complete
// delivers the task's result.
type Broker interface {
	Submit(ctx context.Context, msg *TaskMessage) error
	AwaitResult(ctx context.Context, taskID string) (*ResultMessage, error)
	NextTask(ctx context.Context) (*TaskMessage, error)
	Complete(ctx context.Context, res *ResultMessage) error
	Close() error
}
