package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stepflow/stepflow/internal/queue"
	"github.com/stepflow/stepflow/pkg/errors"
)

// QueueExecutor dispatches tasks through a broker to worker processes.
// Steps must carry a task name registered in the workers' registries;
// function values do not cross the queue.
type QueueExecutor struct {
	broker  queue.Broker
	timeout time.Duration
}

// QueueOption configures a QueueExecutor.
type QueueOption func(*QueueExecutor)

// WithResultTimeout bounds how long a single task may take end to end.
// Zero means wait until ctx is done.
func WithResultTimeout(d time.Duration) QueueOption {
	return func(e *QueueExecutor) { e.timeout = d }
}

// NewQueueExecutor creates an executor that submits tasks to broker and
// awaits their results.
func NewQueueExecutor(broker queue.Broker, opts ...QueueOption) *QueueExecutor {
	e := &QueueExecutor{broker: broker}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteTask serializes the input, submits the task by name, and blocks
// until a worker reports the result.
func (e *QueueExecutor) ExecuteTask(ctx context.Context, t Task) (any, error) {
	if t.Name == "" {
		return nil, &errors.ExecutionError{
			Step:    t.StepID,
			Message: "step has no task name for queue dispatch",
		}
	}

	payload, err := json.Marshal(t.Input)
	if err != nil {
		return nil, &errors.ExecutionError{Step: t.StepID, Cause: err}
	}

	msg := &queue.TaskMessage{
		ID:         uuid.NewString(),
		Name:       t.Name,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	if err := e.broker.Submit(ctx, msg); err != nil {
		return nil, &errors.ExecutionError{Step: t.StepID, Cause: err}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	res, err := e.broker.AwaitResult(ctx, msg.ID)
	if err != nil {
		return nil, &errors.ExecutionError{Step: t.StepID, Cause: err}
	}
	if res.Err != "" {
		return nil, &errors.ExecutionError{Step: t.StepID, Message: res.Err}
	}

	var out any
	if len(res.Payload) > 0 {
		if err := json.Unmarshal(res.Payload, &out); err != nil {
			return nil, &errors.ExecutionError{Step: t.StepID, Cause: err}
		}
	}
	return out, nil
}
