/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"encoding/json"
	"fmt"
)

// Extract extracts a required parameter from args with type safety.
// Returns an error if the parameter is missing or cannot be converted to T.
func Extract[T any](args map[string]any, name string) (T, error) {
	value, exists := args[name]
	if !exists {
		var zero T
		return zero, fmt.Errorf("%s parameter is required", name)
	}
	return convert[T](name, value)
}

// ExtractOptional extracts an optional parameter with a default value.
func ExtractOptional[T any](args map[string]any, name string, defaultValue T) (T, error) {
	value, exists := args[name]
	if !exists {
		return defaultValue, nil
	}
	return convert[T](name, value)
}

func convert[T any](name string, value any) (T, error) {
	if v, ok := value.(T); ok {
		return v, nil
	}
	if v, ok := convertNumeric[T](value); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// convertNumeric handles the numeric shapes providers decode arguments into:
// float64 from encoding/json and json.Number when UseNumber is set.
func convertNumeric[T any](value any) (T, bool) {
	var zero T

	var f float64
	switch n := value.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return zero, false
		}
		f = parsed
	default:
		return zero, false
	}

	switch any(zero).(type) {
	case int:
		return any(int(f)).(T), true
	case int32:
		return any(int32(f)).(T), true
	case int64:
		return any(int64(f)).(T), true
	case float64:
		return any(f).(T), true
	case float32:
		return any(float32(f)).(T), true
	}
	return zero, false
}
