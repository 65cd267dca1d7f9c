package response

import (
	"fmt"
	"strconv"
	"strings"
)

// lookup returns the first present key among names. Callers list the
// camelCase spelling first and snake_case aliases after it.
func lookup(obj map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := obj[n]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// str coerces scalars to a trimmed string. Objects and arrays yield "".
func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func strField(obj map[string]any, names ...string) string {
	v, ok := lookup(obj, names...)
	if !ok {
		return ""
	}
	return str(v)
}

// strList accepts an array of scalars or a single string. Empty entries
// are dropped.
func strList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := str(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return []string{}
}

func strListField(obj map[string]any, names ...string) []string {
	v, ok := lookup(obj, names...)
	if !ok {
		return []string{}
	}
	return strList(v)
}

// num accepts JSON numbers and numeric strings.
func num(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// boolean accepts JSON booleans and the strings "true"/"false".
func boolean(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	default:
		return false, false
	}
}

func objects(v any) ([]map[string]any, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
