package domain

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// AttributeMap is the read-only set of global attributes of one comparison
// file. Values are strings or numbers.
// The zero value is an empty map.
type AttributeMap struct{ m map[string]any }

// NewAttributeMap copies attrs into a new AttributeMap. Later changes to
// attrs are not visible through the returned map.
func NewAttributeMap(attrs map[string]any) AttributeMap {
	return AttributeMap{m: maps.Clone(attrs)}
}

// Lookup returns the raw value stored under key.
func (a AttributeMap) Lookup(key string) (any, bool) {
	v, ok := a.m[key]
	return v, ok
}

// Has reports whether key is present.
func (a AttributeMap) Has(key string) bool {
	_, ok := a.m[key]
	return ok
}

// String returns the value under key rendered as a string.
// It fails with an *AttributeError wrapping ErrMissingAttribute when the key
// is absent.
func (a AttributeMap) String(key string) (string, error) {
	v, ok := a.m[key]
	if !ok {
		return "", NewAttributeError(key, ErrMissingAttribute)
	}
	return formatScalar(v), nil
}

// Keys returns all attribute keys in lexical order.
func (a AttributeMap) Keys() []string {
	return slices.Sorted(maps.Keys(a.m))
}

// Len returns the number of attributes.
func (a AttributeMap) Len() int { return len(a.m) }

// All returns a copy of the underlying mapping.
func (a AttributeMap) All() map[string]any { return maps.Clone(a.m) }

func formatScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
