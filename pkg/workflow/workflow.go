package workflow

import (
	"fmt"

	"github.com/stepflow/stepflow/pkg/errors"
	"github.com/stepflow/stepflow/pkg/workflow/schema"
)

// planNode is one stage of a workflow plan: either a single step or a
// parallel group, distinguished by the parallel flag.
type planNode struct {
	step     *Step
	group    []*Step
	parallel bool
}

// Workflow is an ordered plan of steps and parallel groups. The zero
// value is not usable; construct with New. Builder methods return the
// receiver so plans read as chains:
//
//	wf := workflow.New("etl", inputShape).
//		Then(extract).
//		Parallel(enrichA, enrichB).
//		Then(load)
type Workflow struct {
	// Name identifies the workflow in events, logs, and metrics.
	Name string

	// Description says what the workflow does.
	Description string

	// InputShape validates the initial input before any step runs. Nil
	// passes the raw value through.
	InputShape schema.Shape

	nodes []planNode
}

// WorkflowOption configures a Workflow at construction.
type WorkflowOption func(*Workflow)

// WithWorkflowDescription sets the workflow description.
func WithWorkflowDescription(description string) WorkflowOption {
	return func(w *Workflow) { w.Description = description }
}

// New creates an empty workflow with the given name and input shape.
func New(name string, input schema.Shape, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		Name:       name,
		InputShape: input,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Then appends a single step. The step receives the output of the
// previous stage, or the workflow input if it is first.
func (w *Workflow) Then(s *Step) *Workflow {
	w.nodes = append(w.nodes, planNode{step: s})
	return w
}

// AddStep is an alias for Then.
func (w *Workflow) AddStep(s *Step) *Workflow {
	return w.Then(s)
}

// Parallel appends a group of steps that all receive the same input and
// run concurrently. The group's output is a slice of member outputs in
// declared order.
func (w *Workflow) Parallel(steps ...*Step) *Workflow {
	w.nodes = append(w.nodes, planNode{group: steps, parallel: true})
	return w
}

// AddParallelSteps is an alias for Parallel.
func (w *Workflow) AddParallelSteps(steps ...*Step) *Workflow {
	return w.Parallel(steps...)
}

// Len returns the number of stages in the plan.
func (w *Workflow) Len() int {
	return len(w.nodes)
}

// StepIDs returns the IDs of all steps in plan order, with parallel
// group members in declared order.
func (w *Workflow) StepIDs() []string {
	var ids []string
	for _, n := range w.nodes {
		if n.step != nil {
			ids = append(ids, n.step.ID)
			continue
		}
		for _, s := range n.group {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// plan returns a snapshot of the node list so concurrent runs are not
// affected by later builder calls.
func (w *Workflow) plan() []planNode {
	nodes := make([]planNode, len(w.nodes))
	copy(nodes, w.nodes)
	return nodes
}

// validate checks the plan is runnable: at least one stage, no nil
// steps, no empty groups, and unique step IDs.
func (w *Workflow) validate() error {
	if w.Name == "" {
		return &errors.ValidationError{
			Field:   "name",
			Message: "workflow name cannot be empty",
		}
	}
	if len(w.nodes) == 0 {
		return &errors.ValidationError{
			Field:      "steps",
			Message:    "workflow has no steps",
			Suggestion: "add at least one step with Then or Parallel",
		}
	}

	seen := make(map[string]bool)
	check := func(s *Step, where string) error {
		if s == nil {
			return &errors.ValidationError{
				Field:   where,
				Message: "step cannot be nil",
			}
		}
		if seen[s.ID] {
			return &errors.ValidationError{
				Field:      where,
				Message:    fmt.Sprintf("duplicate step ID %q", s.ID),
				Suggestion: "give the step a distinct ID with WithID",
			}
		}
		seen[s.ID] = true
		return nil
	}

	for i, n := range w.nodes {
		if !n.parallel {
			if err := check(n.step, fmt.Sprintf("steps[%d]", i)); err != nil {
				return err
			}
			continue
		}
		if len(n.group) == 0 {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("steps[%d]", i),
				Message: "parallel group cannot be empty",
			}
		}
		for j, s := range n.group {
			if err := check(s, fmt.Sprintf("steps[%d][%d]", i, j)); err != nil {
				return err
			}
		}
	}
	return nil
}
