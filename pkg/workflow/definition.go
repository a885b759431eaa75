package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/task"
	"github.com/stepflow/stepflow/pkg/workflow/schema"
)

// Definition is the YAML representation of a workflow. Task steps refer
// to functions by registered name, so a definition plus a registry is
// enough to build a runnable workflow:
//
//	name: enrich-user
//	input:
//	  type: object
//	  required: [user_id]
//	steps:
//	  - task: fetch_user
//	  - parallel:
//	      - task: fetch_orders
//	      - task: fetch_reviews
//	  - jq: "{orders: .[0], reviews: .[1]}"
type Definition struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Input       map[string]any `yaml:"input,omitempty"`
	Steps       []StepSpec     `yaml:"steps"`
}

// StepSpec is one entry in a definition's step list. Exactly one of
// Task, JQ, and Parallel must be set.
type StepSpec struct {
	// Task names a function in the registry.
	Task string `yaml:"task,omitempty"`

	// JQ is a jq expression for a transform step.
	JQ string `yaml:"jq,omitempty"`

	// Parallel lists member specs to run concurrently. Members may not
	// nest further groups.
	Parallel []StepSpec `yaml:"parallel,omitempty"`

	// Name overrides the derived step name.
	Name string `yaml:"name,omitempty"`

	// Input declares the step's input shape.
	Input map[string]any `yaml:"input,omitempty"`

	// Output declares the step's output shape.
	Output map[string]any `yaml:"output,omitempty"`

	// Expect is a boolean expression the step's output must satisfy,
	// checked after the output shape. The value is bound to "value",
	// e.g. `value.count >= 0`.
	Expect string `yaml:"expect,omitempty"`
}

// ParseDefinition decodes a YAML workflow definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ValidationError{
			Field:   "definition",
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}
	return &def, nil
}

// LoadDefinition reads and decodes a YAML workflow definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return ParseDefinition(data)
}

// Validate checks the definition's structure without resolving task
// names: the definition must be named, have steps, and every step must
// set exactly one of task, jq, and parallel. Groups may not nest.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{
			Field:   "name",
			Message: "definition has no name",
		}
	}
	if len(d.Steps) == 0 {
		return &errors.ValidationError{
			Field:   "steps",
			Message: "definition has no steps",
		}
	}

	for i, spec := range d.Steps {
		if len(spec.Parallel) > 0 {
			if spec.Task != "" || spec.JQ != "" {
				return specError(i, "parallel cannot be combined with task or jq")
			}
			for j, member := range spec.Parallel {
				if len(member.Parallel) > 0 {
					return specError(i, fmt.Sprintf("parallel[%d]: groups cannot nest", j))
				}
				if err := member.check(); err != nil {
					return err
				}
			}
			continue
		}
		if err := spec.check(); err != nil {
			return err
		}
	}
	return nil
}

// check enforces the exactly-one rule for a non-parallel spec.
func (s *StepSpec) check() error {
	switch {
	case s.Task != "" && s.JQ != "":
		return &errors.ValidationError{
			Field:   "steps",
			Message: fmt.Sprintf("step %q sets both task and jq", s.Task),
		}
	case s.Task == "" && s.JQ == "":
		return &errors.ValidationError{
			Field:      "steps",
			Message:    "step must set one of task, jq, or parallel",
			Suggestion: "add a task name or jq expression",
		}
	}
	return nil
}

// Build resolves the definition against a task registry and returns a
// runnable workflow. Every task step keeps its registry name, so the
// built workflow works with queue-backed executors unchanged.
func (d *Definition) Build(reg *task.Registry) (*Workflow, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var input schema.Shape
	if len(d.Input) > 0 {
		input = schema.FromDef(d.Input)
	}

	wf := New(d.Name, input, WithWorkflowDescription(d.Description))
	for _, spec := range d.Steps {
		if len(spec.Parallel) > 0 {
			members := make([]*Step, 0, len(spec.Parallel))
			for _, member := range spec.Parallel {
				s, err := member.build(reg)
				if err != nil {
					return nil, err
				}
				members = append(members, s)
			}
			wf.Parallel(members...)
			continue
		}

		s, err := spec.build(reg)
		if err != nil {
			return nil, err
		}
		wf.Then(s)
	}

	if err := wf.validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// build turns a non-parallel spec into a step. Structural errors were
// already caught by Validate.
func (s *StepSpec) build(reg *task.Registry) (*Step, error) {
	switch {
	case s.Task != "":
		fn, err := reg.Lookup(s.Task)
		if err != nil {
			return nil, err
		}
		name := s.Name
		if name == "" {
			name = s.Task
		}
		output, err := s.outputShape()
		if err != nil {
			return nil, err
		}
		return NewStep(name, fn, s.inputShape(),
			WithTaskName(s.Task),
			WithOutputShape(output))

	case s.JQ != "":
		name := s.Name
		if name == "" {
			name = s.JQ
		}
		output, err := s.outputShape()
		if err != nil {
			return nil, err
		}
		return NewTransformStep(name, s.JQ,
			WithOutputShape(output))

	default:
		return nil, &errors.ValidationError{
			Field:      "steps",
			Message:    "step must set one of task, jq, or parallel",
			Suggestion: "add a task name or jq expression",
		}
	}
}

func (s *StepSpec) inputShape() schema.Shape {
	if len(s.Input) == 0 {
		return nil
	}
	return schema.FromDef(s.Input)
}

// outputShape combines the declared output shape and the expect
// constraint, in that order.
func (s *StepSpec) outputShape() (schema.Shape, error) {
	var shapes []schema.Shape
	if len(s.Output) > 0 {
		shapes = append(shapes, schema.FromDef(s.Output))
	}
	if s.Expect != "" {
		cond, err := schema.Expr(s.Expect)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, cond)
	}

	switch len(shapes) {
	case 0:
		return nil, nil
	case 1:
		return shapes[0], nil
	default:
		return schema.All(shapes...), nil
	}
}

func specError(index int, msg string) error {
	return &errors.ValidationError{
		Field:   fmt.Sprintf("steps[%d]", index),
		Message: msg,
	}
}
