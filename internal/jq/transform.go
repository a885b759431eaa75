// Package jq provides shared jq expression execution utilities.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

// DefaultTimeout is the default execution time limit for jq expressions.
const DefaultTimeout = 1 * time.Second

// Transform is a compiled jq expression that can be applied to values.
// Compilation happens once, at construction; Apply is safe for concurrent
// use.
type Transform struct {
	src     string
	code    *gojq.Code
	timeout time.Duration
}

// Option configures a Transform.
type Option func(*Transform)

// WithTimeout overrides the per-application time limit.
func WithTimeout(d time.Duration) Option {
	return func(t *Transform) { t.timeout = d }
}

// New parses and compiles a jq expression.
func New(expression string, opts ...Option) (*Transform, error) {
	if expression == "" {
		return nil, fmt.Errorf("jq expression cannot be empty")
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}

	t := &Transform{
		src:     expression,
		code:    code,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Source returns the original jq expression.
func (t *Transform) Source() string {
	return t.src
}

// Apply runs the expression against the given value. A single result is
// returned directly, multiple results as an array, no results as nil.
func (t *Transform) Apply(ctx context.Context, value any) (any, error) {
	input, err := normalize(value)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	iter := t.code.RunWithContext(execCtx, input)

	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq %q: %w", t.src, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// normalize coerces arbitrary Go values into the JSON-compatible forms
// gojq accepts (nil, bool, float64, string, []any, map[string]any).
func normalize(value any) (any, error) {
	switch value.(type) {
	case nil, bool, string, float64, int, []any, map[string]any:
		return value, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value of type %T is not jq-compatible: %w", value, err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("value of type %T is not jq-compatible: %w", value, err)
	}
	return out, nil
}
