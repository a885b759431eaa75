package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Types(t *testing.T) {
	tests := []struct {
		name    string
		def     Def
		value   any
		wantErr bool
		path    string
		keyword string
	}{
		{name: "string ok", def: Def{"type": "string"}, value: "hello"},
		{name: "string mismatch", def: Def{"type": "string"}, value: 42, wantErr: true, path: "$", keyword: "type"},
		{name: "number float", def: Def{"type": "number"}, value: 3.14},
		{name: "number int", def: Def{"type": "number"}, value: 5},
		{name: "number mismatch", def: Def{"type": "number"}, value: "5", wantErr: true, path: "$", keyword: "type"},
		{name: "number uint", def: Def{"type": "number"}, value: uint(5)},
		{name: "number int16", def: Def{"type": "number"}, value: int16(9)},
		{name: "integer whole float", def: Def{"type": "integer"}, value: float64(30)},
		{name: "integer fractional", def: Def{"type": "integer"}, value: 30.5, wantErr: true, path: "$", keyword: "type"},
		{name: "integer uint8", def: Def{"type": "integer"}, value: uint8(7)},
		{name: "integer fractional float32", def: Def{"type": "integer"}, value: float32(1.5), wantErr: true, path: "$", keyword: "type"},
		{name: "boolean ok", def: Def{"type": "boolean"}, value: true},
		{name: "boolean mismatch", def: Def{"type": "boolean"}, value: "true", wantErr: true, path: "$", keyword: "type"},
		{name: "null ok", def: Def{"type": "null"}, value: nil},
		{name: "no type accepts anything", def: Def{}, value: struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.def, tt.value, "$")
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.path, ve.Path)
			assert.Equal(t, tt.keyword, ve.Keyword)
		})
	}
}

func TestValidate_Object(t *testing.T) {
	def := Def{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"age":  map[string]any{"type": "integer"},
		},
		"required": []any{"name", "age"},
	}

	t.Run("valid", func(t *testing.T) {
		err := validate(def, map[string]any{"name": "Alice", "age": 30}, "$")
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := validate(def, map[string]any{"name": "Alice"}, "$")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "required", ve.Keyword)
		assert.Contains(t, ve.Message, "age")
	})

	t.Run("nested property path", func(t *testing.T) {
		err := validate(def, map[string]any{"name": 1, "age": 30}, "$")
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "$.name", ve.Path)
	})

	t.Run("extra fields allowed", func(t *testing.T) {
		err := validate(def, map[string]any{"name": "Alice", "age": 30, "extra": true}, "$")
		assert.NoError(t, err)
	})
}

func TestValidate_Array(t *testing.T) {
	def := Def{
		"type":  "array",
		"items": map[string]any{"type": "number"},
	}

	assert.NoError(t, validate(def, []any{1, 2.5, 3}, "$"))

	err := validate(def, []any{1, "two"}, "$")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "$[1]", ve.Path)
}

func TestValidate_Enum(t *testing.T) {
	def := Def{
		"type": "string",
		"enum": []any{"pending", "running", "completed"},
	}

	assert.NoError(t, validate(def, "running", "$"))

	err := validate(def, "paused", "$")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "enum", ve.Keyword)
}
