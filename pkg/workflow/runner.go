package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stepflow/stepflow/internal/log"
	"github.com/stepflow/stepflow/internal/metrics"
	"github.com/stepflow/stepflow/pkg/errors"
)

const tracerName = "github.com/stepflow/stepflow/pkg/workflow"

// Runner executes workflows. A single Runner may run many workflows
// concurrently; per-run state lives on the stack of each call.
type Runner struct {
	executor   Executor
	logger     *slog.Logger
	checkpoint CheckpointFunc
	tracer     trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExecutor sets the execution substrate. Defaults to a
// LocalExecutor with DefaultConcurrency.
func WithExecutor(e Executor) RunnerOption {
	return func(r *Runner) { r.executor = e }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithCheckpointFunc enables checkpointing. The function is called
// after input validation and after each completed stage.
func WithCheckpointFunc(fn CheckpointFunc) RunnerOption {
	return func(r *Runner) { r.checkpoint = fn }
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		executor: NewLocalExecutor(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// emitter receives lifecycle events during a run.
type emitter func(Event)

// Run executes the workflow to completion and returns the final output.
// It blocks until the run finishes or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, wf *Workflow, input any) (any, error) {
	return r.run(ctx, wf, input, 0, func(Event) {})
}

// RunWithEvents executes the workflow and streams lifecycle events on
// the returned channel. Events arrive in order; the channel is closed
// after exactly one terminal event (workflow.completed or
// workflow.failed). The channel is buffered for the whole plan, so the
// run never blocks on a slow consumer.
func (r *Runner) RunWithEvents(ctx context.Context, wf *Workflow, input any) (<-chan Event, error) {
	if err := wf.validate(); err != nil {
		return nil, err
	}

	events := make(chan Event, eventCapacity(wf.plan()))
	go func() {
		defer close(events)
		r.run(ctx, wf, input, 0, func(e Event) { events <- e })
	}()
	return events, nil
}

// Resume continues a run from a checkpoint, skipping stages before
// cp.NodeIndex. The checkpoint's value becomes the input of the first
// stage executed. The resumed run keeps the checkpoint's run ID.
func (r *Runner) Resume(ctx context.Context, wf *Workflow, cp *Checkpoint) (any, error) {
	return r.resume(ctx, wf, cp, func(Event) {})
}

// ResumeWithEvents is Resume with a streaming event channel, with the
// same delivery guarantees as RunWithEvents.
func (r *Runner) ResumeWithEvents(ctx context.Context, wf *Workflow, cp *Checkpoint) (<-chan Event, error) {
	if err := checkResumable(wf, cp); err != nil {
		return nil, err
	}

	events := make(chan Event, eventCapacity(wf.plan()))
	go func() {
		defer close(events)
		r.runFrom(ctx, wf, cp.Value, cp.NodeIndex, cp.RunID, func(e Event) { events <- e })
	}()
	return events, nil
}

func (r *Runner) resume(ctx context.Context, wf *Workflow, cp *Checkpoint, emit emitter) (any, error) {
	if err := checkResumable(wf, cp); err != nil {
		return nil, err
	}
	return r.runFrom(ctx, wf, cp.Value, cp.NodeIndex, cp.RunID, emit)
}

// checkResumable verifies the plan is runnable and the checkpoint points
// inside it.
func checkResumable(wf *Workflow, cp *Checkpoint) error {
	if cp == nil {
		return &errors.ValidationError{
			Field:   "checkpoint",
			Message: "checkpoint cannot be nil",
		}
	}
	if err := wf.validate(); err != nil {
		return err
	}
	if cp.NodeIndex < 0 || cp.NodeIndex > wf.Len() {
		return &errors.ValidationError{
			Field:   "checkpoint.node_index",
			Message: "checkpoint does not match the workflow plan",
		}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, wf *Workflow, input any, from int, emit emitter) (any, error) {
	if err := wf.validate(); err != nil {
		return nil, err
	}
	return r.runFrom(ctx, wf, input, from, uuid.NewString(), emit)
}

// runFrom is the shared run loop. Resumed runs enter with from > 0 and
// skip the initial input validation, since the checkpointed value was
// validated when it was produced.
func (r *Runner) runFrom(ctx context.Context, wf *Workflow, input any, from int, runID string, emit emitter) (any, error) {
	logger := log.WithRunContext(r.logger, runID, wf.Name)
	plan := wf.plan()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.name", wf.Name),
			attribute.String("workflow.run_id", runID),
			attribute.Int("workflow.stages", len(plan)),
		))
	defer span.End()

	value := input
	if from == 0 {
		validated, err := r.validateWorkflowInput(wf, input)
		if err != nil {
			logger.Warn("workflow input rejected", "error", err)
			span.SetStatus(codes.Error, err.Error())
			emit(r.event(EventWorkflowFailed, wf.Name, runID, withErr(err)))
			return nil, err
		}
		value = validated
	}

	if err := r.saveCheckpoint(ctx, wf, runID, from, value); err != nil {
		span.SetStatus(codes.Error, err.Error())
		emit(r.event(EventWorkflowFailed, wf.Name, runID, withErr(err)))
		return nil, err
	}

	metrics.RecordRunStarted(wf.Name)
	logger.Info("workflow started", log.EventKey, string(EventWorkflowStarted))
	emit(r.event(EventWorkflowStarted, wf.Name, runID))

	for i := from; i < len(plan); i++ {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(span, logger, emit, wf, runID, start, err)
		}

		node := plan[i]
		var (
			out any
			err error
		)
		if node.step != nil {
			out, err = r.runStep(ctx, logger, emit, wf, runID, node.step, value)
		} else {
			out, err = r.runGroup(ctx, logger, emit, wf, runID, node.group, value)
		}
		if err != nil {
			return nil, r.fail(span, logger, emit, wf, runID, start, err)
		}

		value = out
		if err := r.saveCheckpoint(ctx, wf, runID, i+1, value); err != nil {
			return nil, r.fail(span, logger, emit, wf, runID, start, err)
		}
	}

	elapsed := time.Since(start)
	metrics.RecordRunFinished(wf.Name, string(StateCompleted), elapsed)
	logger.Info("workflow completed",
		log.EventKey, string(EventWorkflowCompleted),
		log.DurationKey, elapsed.Milliseconds())
	span.SetStatus(codes.Ok, "")
	emit(r.event(EventWorkflowCompleted, wf.Name, runID, withValue(value), withDuration(elapsed)))
	return value, nil
}

// fail records the terminal failure once: metrics, log, span status, and
// the workflow.failed event.
func (r *Runner) fail(span trace.Span, logger *slog.Logger, emit emitter, wf *Workflow, runID string, start time.Time, err error) error {
	elapsed := time.Since(start)
	metrics.RecordRunFinished(wf.Name, string(StateFailed), elapsed)
	logger.Warn("workflow failed",
		log.EventKey, string(EventWorkflowFailed),
		log.DurationKey, elapsed.Milliseconds(),
		"error", err)
	span.SetStatus(codes.Error, err.Error())
	emit(r.event(EventWorkflowFailed, wf.Name, runID, withErr(err), withDuration(elapsed)))
	return err
}

// runStep executes one single-step stage.
func (r *Runner) runStep(ctx context.Context, logger *slog.Logger, emit emitter, wf *Workflow, runID string, s *Step, input any) (any, error) {
	emit(r.stepEvent(EventStepStarted, wf.Name, runID, s))
	logger = log.WithStepContext(logger, s.ID)
	logger.Debug("step started")
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("step.id", s.ID),
			attribute.String("step.name", s.Name),
		))
	defer span.End()

	out, err := r.executeStep(ctx, s, input)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordStep(wf.Name, s.ID, "failed", elapsed)
		logger.Warn("step failed",
			log.DurationKey, elapsed.Milliseconds(),
			"error", err)
		span.SetStatus(codes.Error, err.Error())
		emit(r.stepEvent(EventStepFailed, wf.Name, runID, s, withErr(err)))
		return nil, errors.NewStepExecutionError(s.ID, err)
	}

	metrics.RecordStep(wf.Name, s.ID, "completed", elapsed)
	logger.Debug("step completed",
		log.DurationKey, elapsed.Milliseconds())
	emit(r.stepEvent(EventStepCompleted, wf.Name, runID, s, withValue(out), withDuration(elapsed)))
	return out, nil
}

// executeStep validates the input, hands the function to the executor,
// and validates the output.
func (r *Runner) executeStep(ctx context.Context, s *Step, input any) (any, error) {
	validated, err := s.ValidateInput(input)
	if err != nil {
		return nil, err
	}

	out, err := r.executor.ExecuteTask(ctx, Task{
		StepID:   s.ID,
		StepName: s.Name,
		Name:     s.TaskName(),
		Fn:       s.Func(),
		Input:    validated,
	})
	if err != nil {
		return nil, err
	}

	return s.ValidateOutput(out)
}

// groupResult carries one parallel member's outcome back to the
// coordinating goroutine.
type groupResult struct {
	out     any
	err     error
	elapsed time.Duration
}

// runGroup executes a parallel group. All members receive the same
// input; the group fails fast on the first member error, cancelling the
// rest. The group output is the slice of member outputs in declared
// order. Step events for members are emitted in declared order so the
// stream stays deterministic.
func (r *Runner) runGroup(ctx context.Context, logger *slog.Logger, emit emitter, wf *Workflow, runID string, group []*Step, input any) (any, error) {
	for _, s := range group {
		emit(r.stepEvent(EventStepStarted, wf.Name, runID, s))
		logger.Debug("step started", log.StepIDKey, s.ID)
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		firstID  string
	)
	results := make([]groupResult, len(group))

	for i, s := range group {
		wg.Add(1)
		go func(i int, s *Step) {
			defer wg.Done()
			start := time.Now()
			out, err := r.executeStep(gctx, s, input)
			results[i] = groupResult{out: out, err: err, elapsed: time.Since(start)}
			if err != nil {
				once.Do(func() {
					firstErr = err
					firstID = s.ID
					cancel()
				})
			}
		}(i, s)
	}
	wg.Wait()

	// Emit member outcomes in declared order regardless of finish order.
	for i, s := range group {
		res := results[i]
		if res.err != nil {
			metrics.RecordStep(wf.Name, s.ID, "failed", res.elapsed)
			logger.Warn("step failed",
				log.StepIDKey, s.ID,
				log.DurationKey, res.elapsed.Milliseconds(),
				"error", res.err)
			emit(r.stepEvent(EventStepFailed, wf.Name, runID, s, withErr(res.err)))
			continue
		}
		metrics.RecordStep(wf.Name, s.ID, "completed", res.elapsed)
		logger.Debug("step completed",
			log.StepIDKey, s.ID,
			log.DurationKey, res.elapsed.Milliseconds())
		emit(r.stepEvent(EventStepCompleted, wf.Name, runID, s, withValue(res.out), withDuration(res.elapsed)))
	}

	if firstErr != nil {
		return nil, errors.NewStepExecutionError(firstID, firstErr)
	}

	outputs := make([]any, len(group))
	for i := range results {
		outputs[i] = results[i].out
	}
	return outputs, nil
}

func (r *Runner) validateWorkflowInput(wf *Workflow, input any) (any, error) {
	if wf.InputShape == nil {
		return input, nil
	}
	return wf.InputShape.Validate(input)
}

func (r *Runner) saveCheckpoint(ctx context.Context, wf *Workflow, runID string, index int, value any) error {
	if r.checkpoint == nil {
		return nil
	}
	return r.checkpoint(ctx, &Checkpoint{
		RunID:        runID,
		WorkflowName: wf.Name,
		NodeIndex:    index,
		Value:        value,
		CreatedAt:    time.Now().UTC(),
	})
}

// event option helpers

type eventOption func(*Event)

func withValue(v any) eventOption   { return func(e *Event) { e.Value = v } }
func withErr(err error) eventOption { return func(e *Event) { e.Err = err } }

func withDuration(d time.Duration) eventOption {
	return func(e *Event) { e.Duration = d }
}

func (r *Runner) event(t EventType, workflow, runID string, opts ...eventOption) Event {
	e := Event{
		Type:         t,
		Timestamp:    time.Now(),
		WorkflowName: workflow,
		RunID:        runID,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (r *Runner) stepEvent(t EventType, workflow, runID string, s *Step, opts ...eventOption) Event {
	e := r.event(t, workflow, runID, opts...)
	e.StepID = s.ID
	e.StepName = s.Name
	return e
}

// eventCapacity sizes an event channel so a full run, including the
// terminal event, fits without blocking: start/finish per step plus
// start/terminal for the workflow itself.
func eventCapacity(plan []planNode) int {
	n := 2
	for _, node := range plan {
		if node.step != nil {
			n += 2
			continue
		}
		n += 2 * len(node.group)
	}
	return n
}
