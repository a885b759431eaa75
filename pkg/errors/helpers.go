package errors

import (
	stderrors "errors"
)

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

// IsSignature reports whether err is or wraps a SignatureError.
func IsSignature(err error) bool {
	var se *SignatureError
	return stderrors.As(err, &se)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return stderrors.As(err, &nfe)
}

// IsExecution reports whether err is or wraps an ExecutionError.
func IsExecution(err error) bool {
	var ee *ExecutionError
	return stderrors.As(err, &ee)
}

// FailingStep returns the ID of the step that aborted a run, if err
// carries one.
func FailingStep(err error) (string, bool) {
	var se *StepExecutionError
	if stderrors.As(err, &se) {
		return se.StepID, true
	}
	return "", false
}
