package schema

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprShape validates values against a compiled boolean expression.
// The candidate value is bound to the identifier "value".
type exprShape struct {
	src  string
	prog *vm.Program
}

// Expr creates a Shape whose constraint is a boolean expression, e.g.
// Expr(`value.age >= 0 && value.age < 150`). The expression is compiled
// eagerly; a syntax error fails construction.
func Expr(condition string) (Shape, error) {
	prog, err := expr.Compile(condition,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, NewValidationError("$", "expr", fmt.Sprintf("failed to compile expression: %v", err))
	}
	return &exprShape{src: condition, prog: prog}, nil
}

// MustExpr is like Expr but panics on a compile error. Intended for
// package-level shape declarations.
func MustExpr(condition string) Shape {
	s, err := Expr(condition)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate evaluates the expression against the value.
func (s *exprShape) Validate(value any) (any, error) {
	coerced, err := Normalize(value)
	if err != nil {
		return nil, err
	}

	result, err := expr.Run(s.prog, map[string]any{"value": coerced})
	if err != nil {
		return nil, NewValidationError("$", "expr", fmt.Sprintf("expression evaluation failed: %v", err))
	}

	ok, isBool := result.(bool)
	if !isBool {
		return nil, NewValidationError("$", "expr", fmt.Sprintf("expression must return boolean, got %T", result))
	}
	if !ok {
		return nil, NewValidationError("$", "expr", fmt.Sprintf("value does not satisfy %q", s.src))
	}

	return coerced, nil
}
