package workflow

import "time"

// EventType identifies a lifecycle event.
type EventType string

const (
	// EventWorkflowStarted is emitted once, after the initial input
	// validates, before any step runs.
	EventWorkflowStarted EventType = "workflow.started"

	// EventWorkflowCompleted is emitted when every stage succeeded. It
	// carries the final output and total duration, and is terminal.
	EventWorkflowCompleted EventType = "workflow.completed"

	// EventWorkflowFailed is emitted when the run aborts for any
	// reason. It carries the error and is terminal.
	EventWorkflowFailed EventType = "workflow.failed"

	// EventStepStarted is emitted before a step's input is validated.
	EventStepStarted EventType = "step.started"

	// EventStepCompleted is emitted after a step's output validates. It
	// carries the output and the step duration.
	EventStepCompleted EventType = "step.completed"

	// EventStepFailed is emitted when a step fails validation or
	// execution. It carries the error.
	EventStepFailed EventType = "step.failed"
)

// Event is one observation of run progress. Events for a run are
// delivered in order, and exactly one terminal event ends the stream.
type Event struct {
	// Type is the event kind.
	Type EventType `json:"type"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// WorkflowName is the name of the workflow being run.
	WorkflowName string `json:"workflow_name"`

	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// StepID identifies the step for step-scoped events, empty for
	// workflow-scoped events.
	StepID string `json:"step_id,omitempty"`

	// StepName is the human-readable step name for step-scoped events.
	StepName string `json:"step_name,omitempty"`

	// Duration is the elapsed time for completed events: step duration
	// on step.completed, total run duration on workflow.completed.
	Duration time.Duration `json:"duration,omitempty"`

	// Value is the validated output on step.completed and
	// workflow.completed events.
	Value any `json:"value,omitempty"`

	// Err is the failure on step.failed and workflow.failed events.
	Err error `json:"-"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventWorkflowCompleted || e.Type == EventWorkflowFailed
}
