package main

import (
	"context"
	"time"

	"github.com/stepflow/stepflow/pkg/task"
)

// builtinRegistry holds the tasks available without embedding the
// library: enough to exercise definitions end to end. Programs with
// their own steps embed the engine and register tasks directly.
func builtinRegistry() *task.Registry {
	reg := task.NewRegistry()

	reg.MustRegister("echo", func(ctx context.Context, input any) (any, error) {
		return input, nil
	})

	reg.MustRegister("sleep", func(ctx context.Context, input any) (any, error) {
		ms, _ := input.(float64)
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return input, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	return reg
}
