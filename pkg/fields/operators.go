package fields

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// evaluateEqual checks if two values are equal. Form values usually arrive
// as strings, so numbers compare numerically and everything else falls
// back to string comparison.
func evaluateEqual(actual, expected any) (bool, error) {
	if actual == nil && expected == nil {
		return true, nil
	}
	if actual == nil || expected == nil {
		return false, nil
	}

	actualNum, actualErr := convertToFloat64(actual)
	expectedNum, expectedErr := convertToFloat64(expected)
	if actualErr == nil && expectedErr == nil {
		return actualNum == expectedNum, nil
	}

	if reflect.DeepEqual(actual, expected) {
		return true, nil
	}

	return fmt.Sprint(actual) == fmt.Sprint(expected), nil
}

// evaluateCompare applies a numeric comparison.
func evaluateCompare(actual, expected any, cmp func(a, b float64) bool) (bool, error) {
	actualNum, err := convertToFloat64(actual)
	if err != nil {
		return false, fmt.Errorf("cannot convert actual value to number: %w", err)
	}

	expectedNum, err := convertToFloat64(expected)
	if err != nil {
		return false, fmt.Errorf("cannot convert expected value to number: %w", err)
	}

	return cmp(actualNum, expectedNum), nil
}

// evaluateIn checks if actual is in the expected list.
func evaluateIn(actual, expected any) (bool, error) {
	expectedVal := reflect.ValueOf(expected)
	if expectedVal.Kind() != reflect.Slice && expectedVal.Kind() != reflect.Array {
		return false, fmt.Errorf("in operator requires slice or array for expected, got %s", expectedVal.Kind())
	}

	for i := 0; i < expectedVal.Len(); i++ {
		ok, err := evaluateEqual(actual, expectedVal.Index(i).Interface())
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// convertToFloat64 converts a numeric value, or a string holding one, to
// float64.
func convertToFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
