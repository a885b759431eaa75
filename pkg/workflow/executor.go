package workflow

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/task"
)

// DefaultConcurrency bounds in-process parallel execution when no
// explicit limit is configured.
const DefaultConcurrency = 8

// Task is one unit of work handed to an executor. The runner builds a
// Task per step invocation; executors decide where and how it runs.
type Task struct {
	// StepID is the ID of the step being executed.
	StepID string

	// StepName is the human-readable step name.
	StepName string

	// Name is the registry name for queue dispatch. Empty for
	// local-only steps.
	Name string

	// Fn is the step function with the uniform signature. Queue-backed
	// executors ignore it and dispatch by Name instead.
	Fn task.Func

	// Input is the validated input value.
	Input any
}

// Executor runs tasks on behalf of the runner. Implementations decide
// the execution substrate: in-process goroutines, a task queue with
// remote workers, or a decorator around another executor.
type Executor interface {
	// ExecuteTask runs one task to completion and returns its output.
	// It must respect ctx cancellation.
	ExecuteTask(ctx context.Context, t Task) (any, error)
}

// LocalExecutor runs tasks in-process, bounding concurrency with a
// semaphore. The zero value is not usable; construct with
// NewLocalExecutor.
type LocalExecutor struct {
	sem chan struct{}
}

// LocalOption configures a LocalExecutor.
type LocalOption func(*LocalExecutor)

// WithConcurrencyLimit bounds how many tasks may run at once. Values
// below one fall back to DefaultConcurrency.
func WithConcurrencyLimit(n int) LocalOption {
	return func(e *LocalExecutor) {
		if n > 0 {
			e.sem = make(chan struct{}, n)
		}
	}
}

// NewLocalExecutor creates an in-process executor.
func NewLocalExecutor(opts ...LocalOption) *LocalExecutor {
	e := &LocalExecutor{
		sem: make(chan struct{}, DefaultConcurrency),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteTask acquires a semaphore slot and invokes the task function.
func (e *LocalExecutor) ExecuteTask(ctx context.Context, t Task) (any, error) {
	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if t.Fn == nil {
		return nil, &errors.ExecutionError{
			Step:    t.StepID,
			Message: "task has no function",
		}
	}

	out, err := t.Fn(ctx, t.Input)
	if err != nil {
		return nil, asExecutionError(t.StepID, err)
	}
	return out, nil
}

// LoggingExecutor decorates another executor with per-task debug logs.
type LoggingExecutor struct {
	next   Executor
	logger *slog.Logger
}

// NewLoggingExecutor wraps next with task-level logging.
func NewLoggingExecutor(next Executor, logger *slog.Logger) *LoggingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExecutor{next: next, logger: logger}
}

// ExecuteTask logs around the wrapped executor.
func (e *LoggingExecutor) ExecuteTask(ctx context.Context, t Task) (any, error) {
	start := time.Now()
	e.logger.DebugContext(ctx, "task started", "step_id", t.StepID)

	out, err := e.next.ExecuteTask(ctx, t)

	elapsed := time.Since(start)
	if err != nil {
		e.logger.WarnContext(ctx, "task failed",
			"step_id", t.StepID,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return nil, err
	}
	e.logger.DebugContext(ctx, "task completed",
		"step_id", t.StepID,
		"duration_ms", elapsed.Milliseconds())
	return out, nil
}

// RateLimitedExecutor decorates another executor with a token-bucket
// limit on task starts. Useful when steps call external services with
// request quotas.
type RateLimitedExecutor struct {
	next    Executor
	limiter *rate.Limiter
}

// NewRateLimitedExecutor wraps next, allowing at most r task starts per
// second with bursts of b.
func NewRateLimitedExecutor(next Executor, r rate.Limit, b int) *RateLimitedExecutor {
	return &RateLimitedExecutor{
		next:    next,
		limiter: rate.NewLimiter(r, b),
	}
}

// ExecuteTask waits for a token, then delegates.
func (e *RateLimitedExecutor) ExecuteTask(ctx context.Context, t Task) (any, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.ExecuteTask(ctx, t)
}
