// Package task defines the unit-of-work function contract and the name
// registry used to address functions across process boundaries. A task
// queue cannot serialize closures, so distributed execution dispatches by
// registered name and workers resolve the function locally.
package task

import (
	"context"
	"sort"
	"sync"

	"github.com/stepflow/stepflow/pkg/errors"
)

// Func is the uniform step function contract: one input value in, one
// output value out. Implementations must honor ctx cancellation and be
// safe for concurrent invocation.
type Func func(ctx context.Context, input any) (any, error)

// Registry maps task names to functions. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]Func),
	}
}

// Register adds a task function under the given name.
// Registering a duplicate name is an error.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return &errors.ValidationError{
			Field:   "name",
			Message: "task name cannot be empty",
		}
	}
	if fn == nil {
		return &errors.ValidationError{
			Field:   "fn",
			Message: "task function cannot be nil",
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "task " + name + " is already registered",
			Suggestion: "use a unique name per task function",
		}
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level task registration.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "task", ID: name}
	}
	return fn, nil
}

// MustLookup is like Lookup but panics if the task is not registered.
func (r *Registry) MustLookup(name string) Func {
	fn, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return fn
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
