// Package record defines the field-keyed record representation shared by
// every layer of the form core.
//
// A Draft is deliberately schema-less at the type level. Fields referenced by
// a validation schema or a transform pipeline are read through the typed
// accessors below; every other key is carried as-is, which keeps server-defined
// extra fields intact across seed, edit and submit.
package record

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Draft maps a field name to its value. Values are strings, numbers or nil.
type Draft map[string]any

// Clone returns a shallow copy of d. A nil draft clones to an empty one.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Get returns the raw value stored under field.
func (d Draft) Get(field string) (any, bool) {
	v, ok := d[field]
	return v, ok
}

// Has reports whether field is present with a non-empty value.
func (d Draft) Has(field string) bool {
	return !IsEmpty(d[field])
}

// String returns the value of field formatted as a string.
// Missing and nil values yield "".
func (d Draft) String(field string) string {
	return ToString(d[field])
}

// Number returns the value of field as a float64.
// The second result is false when the value is missing or not numeric.
func (d Draft) Number(field string) (float64, bool) {
	return ToNumber(d[field])
}

// Without returns a copy of d with the named fields removed.
func (d Draft) Without(fields ...string) Draft {
	out := d.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Keys returns the field names of d in sorted order.
func (d Draft) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether d and other hold the same fields with equal values.
// Numbers compare by value regardless of their Go type.
func (d Draft) Equal(other Draft) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !ValuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// Merge overlays layers from lowest to highest precedence.
// Keys are replaced whole; nested values are never merged.
func Merge(layers ...Draft) Draft {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	out := make(Draft, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// IsEmpty reports whether a value counts as "not filled in".
// nil and blank strings are empty; numbers never are.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(v) == 0
	default:
		return false
	}
}

// ToString formats a draft value. nil becomes "".
func ToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToNumber converts numeric values and numeric strings to float64.
func ToNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ValuesEqual compares two draft values. Two numbers are equal when their
// float64 forms match; anything else falls back to string comparison.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumber(a) && isNumber(b) {
		fa, _ := ToNumber(a)
		fb, _ := ToNumber(b)
		return fa == fb
	}
	return ToString(a) == ToString(b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
