package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "with field",
			err:  &ValidationError{Field: "steps", Message: "plan is empty"},
			want: "validation failed on steps: plan is empty",
		},
		{
			name: "without field",
			err:  &ValidationError{Message: "plan is empty"},
			want: "validation failed: plan is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSignatureError_Error(t *testing.T) {
	err := &SignatureError{Step: "greet", Reason: "function must accept exactly one input parameter"}
	assert.Equal(t, `invalid step function for "greet": function must accept exactly one input parameter`, err.Error())
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := &ExecutionError{Step: "fetch", Cause: cause}

	assert.Equal(t, "task fetch failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestExecutionError_RemoteMessage(t *testing.T) {
	err := &ExecutionError{Step: "fetch", Message: "worker timed out"}
	assert.Equal(t, "task fetch failed: worker timed out", err.Error())
	assert.Nil(t, stderrors.Unwrap(err))
}

func TestStepExecutionError(t *testing.T) {
	cause := &ExecutionError{Step: "fetch", Message: "boom"}
	err := NewStepExecutionError("fetch", cause)

	assert.Equal(t, "step fetch failed: task fetch failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	var ee *ExecutionError
	require.True(t, stderrors.As(err, &ee))
	assert.Equal(t, "fetch", ee.Step)
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("run aborted: %w", &ValidationError{Message: "bad"})
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsValidation(stderrors.New("plain")))

	assert.True(t, IsSignature(&SignatureError{Step: "s", Reason: "r"}))
	assert.True(t, IsNotFound(&NotFoundError{Resource: "task", ID: "x"}))
	assert.True(t, IsExecution(NewStepExecutionError("s", &ExecutionError{Step: "s"})))

	id, ok := FailingStep(fmt.Errorf("outer: %w", NewStepExecutionError("fetch", stderrors.New("boom"))))
	require.True(t, ok)
	assert.Equal(t, "fetch", id)

	_, ok = FailingStep(stderrors.New("boom"))
	assert.False(t, ok)
}
