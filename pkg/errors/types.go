// Package errors defines the error taxonomy shared across the engine.
package errors

import (
	"fmt"
)

// ValidationError represents invalid configuration or builder misuse.
// Shape validation failures use schema.ValidationError instead; this type
// covers workflow-level constraint violations (empty plans, duplicate
// registrations, malformed definitions).
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// SignatureError indicates a step function does not match the required
// shape. It is raised once, at step construction, and is never retried.
type SignatureError struct {
	// Step is the name of the step being constructed
	Step string

	// Reason describes how the function signature is invalid
	Reason string
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid step function for %q: %s", e.Step, e.Reason)
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "task", "checkpoint")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ExecutionError represents a failed task execution: the step function
// returned an error, or a remote dispatch through a task queue failed.
type ExecutionError struct {
	// Step is the ID of the step whose execution failed
	Step string

	// Message describes the failure when no local cause is available
	// (e.g., an error string reported by a remote worker)
	Message string

	// Cause is the underlying error, when execution failed locally
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("task %s failed: %v", e.Step, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("task %s failed: %s", e.Step, e.Message)
	default:
		return fmt.Sprintf("task %s failed", e.Step)
	}
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// StepExecutionError wraps any error that aborted a run, identifying the
// failing step. For parallel groups the step is the first failing member.
type StepExecutionError struct {
	StepID string
	Cause  error
}

// Error implements the error interface.
func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}

// NewStepExecutionError creates a StepExecutionError.
func NewStepExecutionError(stepID string, cause error) *StepExecutionError {
	return &StepExecutionError{
		StepID: stepID,
		Cause:  cause,
	}
}
