// Package schema provides shape validation for values flowing between
// workflow steps. A Shape checks a raw value against a declared structure
// and returns the (possibly coerced) value or a ValidationError.
package schema

import (
	"encoding/json"
	"fmt"
)

// Shape validates a raw value, returning the coerced value on success.
// Validating an already-conforming value returns it unchanged.
type Shape interface {
	Validate(value any) (any, error)
}

// Def is a declarative shape definition using a subset of JSON Schema
// keywords: type, properties, required, items, enum.
type Def map[string]any

// jsonShape validates values against a Def.
type jsonShape struct {
	def Def
}

// FromDef creates a Shape from a raw definition map. A nil or empty
// definition accepts any value.
func FromDef(def map[string]any) Shape {
	return &jsonShape{def: Def(def)}
}

// Object creates a shape for an object with the given property shapes.
// Properties listed in required must be present.
func Object(properties map[string]Def, required ...string) Shape {
	props := make(map[string]any, len(properties))
	for name, p := range properties {
		props[name] = map[string]any(p)
	}
	def := Def{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		def["required"] = req
	}
	return &jsonShape{def: def}
}

// Array creates a shape for an array whose items all match the given shape.
func Array(items Def) Shape {
	return &jsonShape{def: Def{
		"type":  "array",
		"items": map[string]any(items),
	}}
}

// String creates a shape accepting any string.
func String() Shape { return &jsonShape{def: Def{"type": "string"}} }

// Number creates a shape accepting any numeric value.
func Number() Shape { return &jsonShape{def: Def{"type": "number"}} }

// Integer creates a shape accepting whole numbers.
func Integer() Shape { return &jsonShape{def: Def{"type": "integer"}} }

// Boolean creates a shape accepting booleans.
func Boolean() Shape { return &jsonShape{def: Def{"type": "boolean"}} }

// Any creates a shape accepting every value. Non-JSON values (structs,
// typed slices) are still coerced to their JSON representation.
func Any() Shape { return &jsonShape{def: Def{}} }

// All combines shapes: the value must satisfy every one, and each
// shape's coercion feeds the next. Nil members are skipped.
func All(shapes ...Shape) Shape { return allShape(shapes) }

type allShape []Shape

func (a allShape) Validate(value any) (any, error) {
	var err error
	for _, s := range a {
		if s == nil {
			continue
		}
		if value, err = s.Validate(value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// Validate checks value against the shape definition. Values that are not
// already in JSON form (maps, slices, primitives) are coerced through
// their JSON encoding first, so step functions may return structs.
func (s *jsonShape) Validate(value any) (any, error) {
	coerced, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	if err := validate(s.def, coerced, "$"); err != nil {
		return nil, err
	}
	return coerced, nil
}

// Normalize coerces a value into JSON form: maps, slices, strings, bools,
// numbers and nil pass through unchanged; everything else (structs, typed
// maps and slices) is round-tripped through encoding/json.
func Normalize(value any) (any, error) {
	switch value.(type) {
	case nil, bool, string, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		map[string]any, []any:
		return value, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return nil, NewValidationError("$", "type", fmt.Sprintf("value of type %T is not representable: %v", value, err))
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, NewValidationError("$", "type", fmt.Sprintf("value of type %T is not representable: %v", value, err))
	}
	return out, nil
}
