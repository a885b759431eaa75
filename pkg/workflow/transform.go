package workflow

import (
	"context"

	"github.com/stepflow/stepflow/internal/jq"
	"github.com/stepflow/stepflow/pkg/errors"
)

// NewTransformStep creates a step that applies a jq expression to its
// input. Transform steps are handy for reshaping data between typed
// steps without writing a function:
//
//	pick, _ := workflow.NewTransformStep("pick name", "{name: .user.name}")
func NewTransformStep(name, expression string, opts ...StepOption) (*Step, error) {
	t, err := jq.New(expression)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "expression",
			Message:    err.Error(),
			Suggestion: "check the jq expression syntax",
		}
	}

	fn := func(ctx context.Context, input any) (any, error) {
		return t.Apply(ctx, input)
	}
	return NewStep(name, fn, nil, opts...)
}

// MustTransformStep is like NewTransformStep but panics on error.
func MustTransformStep(name, expression string, opts ...StepOption) *Step {
	s, err := NewTransformStep(name, expression, opts...)
	if err != nil {
		panic(err)
	}
	return s
}
