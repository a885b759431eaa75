package workflow

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/task"
	"github.com/stepflow/stepflow/pkg/workflow/schema"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Step is a single unit of work with declared input and output shapes.
// Steps are immutable once constructed and may be shared across
// workflows.
type Step struct {
	// Name is the human-readable step name.
	Name string

	// ID identifies the step within a workflow. Defaults to the name
	// lowercased with spaces replaced by underscores.
	ID string

	// Description says what the step does.
	Description string

	// InputShape validates values entering the step. Nil means the raw
	// value is passed through unvalidated.
	InputShape schema.Shape

	// OutputShape validates the function's return value. Nil disables
	// output validation.
	OutputShape schema.Shape

	fn       task.Func
	taskName string
}

// StepOption configures a Step at construction.
type StepOption func(*Step)

// WithID overrides the derived step ID.
func WithID(id string) StepOption {
	return func(s *Step) { s.ID = id }
}

// WithDescription sets the step description.
func WithDescription(description string) StepOption {
	return func(s *Step) { s.Description = description }
}

// WithOutputShape declares the step's output shape.
func WithOutputShape(shape schema.Shape) StepOption {
	return func(s *Step) { s.OutputShape = shape }
}

// WithTaskName sets the registry name used when the step is dispatched
// through a queue-backed executor. Steps built from a Definition get
// this automatically.
func WithTaskName(name string) StepOption {
	return func(s *Step) { s.taskName = name }
}

// NewStep wraps a function as a workflow step. fn must have the form
//
//	func(ctx context.Context, input X) (Y, error)
//
// for any types X and Y; anything else fails with a SignatureError. The
// signature is checked once, here, not on every call. The input value is
// validated against input before each invocation; a nil input shape
// passes the raw value through.
func NewStep(name string, fn any, input schema.Shape, opts ...StepOption) (*Step, error) {
	if name == "" {
		return nil, &errors.ValidationError{
			Field:   "name",
			Message: "step name cannot be empty",
		}
	}

	invoker, err := newInvoker(name, fn)
	if err != nil {
		return nil, err
	}

	s := &Step{
		Name:       name,
		ID:         deriveID(name),
		InputShape: input,
		fn:         invoker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustStep is like NewStep but panics on error. Intended for
// package-level step declarations.
func MustStep(name string, fn any, input schema.Shape, opts ...StepOption) *Step {
	s, err := NewStep(name, fn, input, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Execute validates the input, invokes the step function exactly once,
// and validates the output. Function failures are wrapped in an
// ExecutionError; shape failures surface as schema.ValidationError.
func (s *Step) Execute(ctx context.Context, input any) (any, error) {
	validated, err := s.ValidateInput(input)
	if err != nil {
		return nil, err
	}

	output, err := s.fn(ctx, validated)
	if err != nil {
		return nil, asExecutionError(s.ID, err)
	}

	return s.ValidateOutput(output)
}

// ValidateInput checks a value against the step's input shape. A nil
// shape passes the value through unchanged.
func (s *Step) ValidateInput(input any) (any, error) {
	if s.InputShape == nil {
		return input, nil
	}
	return s.InputShape.Validate(input)
}

// ValidateOutput checks a value against the step's output shape. A nil
// shape passes the value through unchanged.
func (s *Step) ValidateOutput(output any) (any, error) {
	if s.OutputShape == nil {
		return output, nil
	}
	return s.OutputShape.Validate(output)
}

// Func returns the step's invoker with the uniform task signature.
func (s *Step) Func() task.Func {
	return s.fn
}

// TaskName returns the registry name for queue dispatch, empty if the
// step is local-only.
func (s *Step) TaskName() string {
	return s.taskName
}

// newInvoker validates fn's signature and wraps it with the uniform
// task.Func contract.
func newInvoker(stepName string, fn any) (task.Func, error) {
	// Fast path: already the uniform signature.
	switch f := fn.(type) {
	case task.Func:
		return f, nil
	case func(context.Context, any) (any, error):
		return f, nil
	case nil:
		return nil, &errors.SignatureError{Step: stepName, Reason: "function cannot be nil"}
	}

	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, &errors.SignatureError{
			Step:   stepName,
			Reason: fmt.Sprintf("expected a function, got %T", fn),
		}
	}
	if t.IsVariadic() {
		return nil, &errors.SignatureError{Step: stepName, Reason: "function cannot be variadic"}
	}
	if t.NumIn() != 2 || t.In(0) != ctxType {
		return nil, &errors.SignatureError{
			Step:   stepName,
			Reason: "function must accept (context.Context, input) and nothing else",
		}
	}
	if t.NumOut() != 2 || t.Out(1) != errType {
		return nil, &errors.SignatureError{
			Step:   stepName,
			Reason: "function must return (output, error)",
		}
	}

	v := reflect.ValueOf(fn)
	inType := t.In(1)

	return func(ctx context.Context, input any) (any, error) {
		var in reflect.Value
		switch {
		case input == nil:
			in = reflect.Zero(inType)
		case reflect.TypeOf(input).AssignableTo(inType):
			in = reflect.ValueOf(input)
		case reflect.TypeOf(input).ConvertibleTo(inType):
			in = reflect.ValueOf(input).Convert(inType)
		default:
			return nil, schema.NewValidationError("$", "type",
				fmt.Sprintf("value of type %T is not assignable to %s", input, inType))
		}

		out := v.Call([]reflect.Value{reflect.ValueOf(ctx), in})
		var err error
		if !out[1].IsNil() {
			err = out[1].Interface().(error)
		}
		return out[0].Interface(), err
	}, nil
}

// asExecutionError wraps err unless it already carries execution context.
func asExecutionError(stepID string, err error) error {
	if ee, ok := err.(*errors.ExecutionError); ok {
		return ee
	}
	return &errors.ExecutionError{Step: stepID, Cause: err}
}

// deriveID turns a step name into a stable identifier.
func deriveID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
