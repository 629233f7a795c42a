package mhub

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Document is a decoded JSON object as returned by the hub.
type Document map[string]any

// object returns v as a JSON object.
func object(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

// list returns v as a JSON array.
func list(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// childObject reads key from m as an object. A missing or null key yields
// an empty object; any other non-object value is ErrMalformed.
func childObject(m map[string]any, key string) (map[string]any, error) {
	v, present := m[key]
	if !present || v == nil {
		return map[string]any{}, nil
	}
	obj, ok := object(v)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want object", ErrMalformed, key, v)
	}
	return obj, nil
}

// childList reads key from m as an array, with the same rules as childObject.
func childList(m map[string]any, key string) ([]any, error) {
	v, present := m[key]
	if !present || v == nil {
		return nil, nil
	}
	l, ok := list(v)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want list", ErrMalformed, key, v)
	}
	return l, nil
}

// firstString returns the first of keys whose value is present and not
// empty, rendered as a string. Objects and arrays are skipped.
func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := scalarString(m[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

// scalarString renders a JSON scalar as a string. Integral numbers render
// without a fractional part so numeric ids compare equal to their string form.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	}
	return "", false
}

// intValue parses a JSON number or an integer string as an int.
// Fractional strings such as "4.5" are rejected.
func intValue(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if f, err := x.Float64(); err == nil {
			return int(f), true
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

// boolValue interprets booleans, numbers and the usual string spellings.
func boolValue(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		return x != 0, true
	case int:
		return x != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "on", "yes":
			return true, true
		case "false", "0", "off", "no", "":
			return false, true
		}
	}
	return false, false
}

// isNonEmpty reports JSON truthiness: non-empty arrays, objects and
// strings, non-zero numbers and true.
func isNonEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	}
	return true
}
