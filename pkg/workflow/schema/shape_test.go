package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectShape(t *testing.T) {
	shape := Object(map[string]Def{
		"name": {"type": "string"},
		"age":  {"type": "integer"},
	}, "name", "age")

	t.Run("conforming value returned unchanged", func(t *testing.T) {
		in := map[string]any{"name": "Alice", "age": 30}
		out, err := shape.Validate(in)
		require.NoError(t, err)
		// Idempotence: no re-coercion, same map comes back.
		same, ok := out.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, in, same)

		again, err := shape.Validate(out)
		require.NoError(t, err)
		assert.Equal(t, out, again)
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := shape.Validate(map[string]any{"name": "Alice"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "required", ve.Keyword)
	})

	t.Run("struct coerced to object", func(t *testing.T) {
		type user struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}
		out, err := shape.Validate(user{Name: "Bob", Age: 25})
		require.NoError(t, err)
		m, ok := out.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Bob", m["name"])
		assert.Equal(t, float64(25), m["age"])
	})
}

func TestScalarShapes(t *testing.T) {
	_, err := String().Validate("ok")
	assert.NoError(t, err)

	_, err = Integer().Validate(7)
	assert.NoError(t, err)

	_, err = Boolean().Validate(1)
	assert.Error(t, err)

	out, err := Any().Validate("anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", out)
}

func TestArrayShape(t *testing.T) {
	shape := Array(Def{"type": "integer"})

	out, err := shape.Validate([]any{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, out)

	// Typed slices are coerced through JSON.
	out, err = shape.Validate([]int{10, 15})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(10), float64(15)}, out)

	_, err = shape.Validate([]any{1, "x"})
	assert.Error(t, err)
}

func TestFromDef(t *testing.T) {
	shape := FromDef(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"greeting": map[string]any{"type": "string"},
		},
		"required": []any{"greeting"},
	})

	_, err := shape.Validate(map[string]any{"greeting": "Hello Alice!"})
	assert.NoError(t, err)

	_, err = shape.Validate(map[string]any{})
	assert.Error(t, err)

	// nil definition accepts anything
	out, err := FromDef(nil).Validate(42)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestAllShape(t *testing.T) {
	shape := All(
		Object(map[string]Def{"count": {"type": "integer"}}, "count"),
		MustExpr(`value.count > 0`),
	)

	out, err := shape.Validate(map[string]any{"count": 3})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 3}, out)

	_, err = shape.Validate(map[string]any{"count": 0})
	assert.Error(t, err)

	_, err = shape.Validate(map[string]any{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Keyword)

	// Nil members are skipped.
	out, err = All(nil, String()).Validate("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestExprShape(t *testing.T) {
	t.Run("compile error fails construction", func(t *testing.T) {
		_, err := Expr("value ???")
		assert.Error(t, err)
	})

	t.Run("accepts satisfying value", func(t *testing.T) {
		shape, err := Expr(`value.age >= 18`)
		require.NoError(t, err)

		out, err := shape.Validate(map[string]any{"age": 30})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"age": 30}, out)
	})

	t.Run("rejects non-satisfying value", func(t *testing.T) {
		shape := MustExpr(`value.age >= 18`)

		_, err := shape.Validate(map[string]any{"age": 10})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "expr", ve.Keyword)
	})
}
