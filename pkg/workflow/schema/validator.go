package schema

import (
	"encoding/json"
	"fmt"
)

// validate is the recursive validation function with path tracking.
// Supported keywords: type, properties, required, enum, items.
func validate(def Def, value any, path string) error {
	schemaType, ok := def["type"].(string)
	if !ok {
		// No type constraint: accept anything.
		return nil
	}

	if err := validateType(schemaType, value, path); err != nil {
		return err
	}

	switch schemaType {
	case "object":
		return validateObject(def, value, path)
	case "array":
		return validateArray(def, value, path)
	case "string":
		return validateString(def, value, path)
	}

	return nil
}

// validateType checks that value matches the declared type.
func validateType(schemaType string, value any, path string) error {
	switch schemaType {
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected object, got %T", value))
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected array, got %T", value))
		}
	case "string":
		if _, ok := value.(string); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected string, got %T", value))
		}
	case "number":
		switch value.(type) {
		case float64, float32,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64:
			// Every numeric type Normalize passes through unchanged.
		default:
			return NewValidationError(path, "type", fmt.Sprintf("expected number, got %T", value))
		}
	case "integer":
		switch v := value.(type) {
		case float64:
			// JSON numbers decode as float64; accept only whole values.
			if v != float64(int64(v)) {
				return NewValidationError(path, "type", fmt.Sprintf("expected integer, got %v", v))
			}
		case float32:
			if v != float32(int64(v)) {
				return NewValidationError(path, "type", fmt.Sprintf("expected integer, got %v", v))
			}
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64:
			// Valid integer types.
		default:
			return NewValidationError(path, "type", fmt.Sprintf("expected integer, got %T", value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return NewValidationError(path, "type", fmt.Sprintf("expected boolean, got %T", value))
		}
	case "null":
		if value != nil {
			return NewValidationError(path, "type", fmt.Sprintf("expected null, got %T", value))
		}
	default:
		return fmt.Errorf("unsupported shape type: %s", schemaType)
	}
	return nil
}

// validateObject checks required fields and recurses into properties.
// Fields not declared in properties are allowed and ignored.
func validateObject(def Def, value any, path string) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return NewValidationError(path, "type", fmt.Sprintf("expected object, got %T", value))
	}

	if required, ok := def["required"].([]any); ok {
		for _, req := range required {
			name, ok := req.(string)
			if !ok {
				continue
			}
			if _, exists := obj[name]; !exists {
				return NewValidationError(path, "required", fmt.Sprintf("missing required field: %s", name))
			}
		}
	}

	if properties, ok := def["properties"].(map[string]any); ok {
		for name, fieldValue := range obj {
			propDef, ok := properties[name].(map[string]any)
			if !ok {
				continue
			}
			fieldPath := fmt.Sprintf("%s.%s", path, name)
			if err := validate(Def(propDef), fieldValue, fieldPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateArray recurses into array items.
func validateArray(def Def, value any, path string) error {
	arr, ok := value.([]any)
	if !ok {
		return NewValidationError(path, "type", fmt.Sprintf("expected array, got %T", value))
	}

	if items, ok := def["items"].(map[string]any); ok {
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if err := validate(Def(items), item, itemPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateString checks string constraints (enum).
func validateString(def Def, value any, path string) error {
	str, ok := value.(string)
	if !ok {
		return NewValidationError(path, "type", fmt.Sprintf("expected string, got %T", value))
	}

	if enum, ok := def["enum"].([]any); ok {
		for _, allowed := range enum {
			if s, ok := allowed.(string); ok && s == str {
				return nil
			}
		}
		enumJSON, _ := json.Marshal(enum)
		return NewValidationError(path, "enum", fmt.Sprintf("value %q not in allowed values: %s", str, enumJSON))
	}

	return nil
}
