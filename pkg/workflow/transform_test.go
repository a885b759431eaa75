package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepflow/stepflow/pkg/errors"
)

func TestNewTransformStep(t *testing.T) {
	s, err := NewTransformStep("pick name", "{name: .user.name}")
	require.NoError(t, err)
	assert.Equal(t, "pick_name", s.ID)

	out, err := s.Execute(context.Background(), map[string]any{
		"user": map[string]any{"name": "ada", "age": 36},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada"}, out)
}

func TestNewTransformStep_InvalidExpression(t *testing.T) {
	_, err := NewTransformStep("broken", "{unclosed")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestTransformStep_InWorkflow(t *testing.T) {
	produce := MustStep("produce", func(ctx context.Context, v any) (any, error) {
		return map[string]any{"items": []any{1.0, 2.0, 3.0}}, nil
	}, nil)
	sum := MustTransformStep("sum items", ".items | add")

	wf := New("totals", nil).Then(produce).Then(sum)

	out, err := NewRunner().Run(context.Background(), wf, nil)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out)
}

func TestTransformStep_RuntimeError(t *testing.T) {
	s := MustTransformStep("divide", ".a / .b")

	_, err := s.Execute(context.Background(), map[string]any{"a": 1.0, "b": 0.0})
	require.Error(t, err)
	assert.True(t, errors.IsExecution(err))
}
