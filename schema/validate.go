package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Issue describes a single field-level validation failure. Path is empty
// for the root value and uses dotted / indexed notation otherwise
// (metadata.keyPoints[1]).
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Error is returned by Validate and lists every issue found.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return strings.Join(parts, "; ")
}

// Paths returns the violated field paths.
func (e *Error) Paths() []string {
	paths := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		paths[i] = issue.Path
	}
	return paths
}

// Validate checks v against c and returns the normalized value:
//   - numbers become float64, integers become int
//   - objects and records become map[string]any (undeclared object keys are dropped)
//   - arrays become []any
//   - absent values with a default take the default
//
// Structs are accepted wherever an object or record is expected and are
// converted through their JSON encoding. On failure the returned error is a
// *Error listing every violation.
func (c *Contract) Validate(v any) (any, error) {
	var issues []Issue
	out := c.validate("", v, &issues)
	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return out, nil
}

func (c *Contract) validate(path string, v any, issues *[]Issue) any {
	if c == nil {
		return v
	}

	if v == nil {
		if c.hasDefault && c.def != nil {
			return c.withoutDefault().validate(path, c.def, issues)
		}
		if c.optional || c.hasDefault {
			return nil
		}
		addIssue(issues, path, "required")
		return nil
	}

	switch c.kind {
	case KindAny:
		return v

	case KindString:
		s, ok := v.(string)
		if !ok {
			addIssue(issues, path, "expected string, got %s", typeName(v))
			return nil
		}
		return s

	case KindNumber:
		f, ok := toFloat(v)
		if !ok {
			addIssue(issues, path, "expected number, got %s", typeName(v))
			return nil
		}
		return f

	case KindInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			addIssue(issues, path, "expected integer, got %s", describeValue(v))
			return nil
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if f < math.MinInt64 || f >= math.MaxInt64 {
			addIssue(issues, path, "expected integer in int64 range, got %s", describeValue(v))
			return nil
		}
		return int(f)

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			addIssue(issues, path, "expected boolean, got %s", typeName(v))
			return nil
		}
		return b

	case KindEnum:
		s, ok := v.(string)
		if !ok {
			addIssue(issues, path, "expected one of [%s], got %s", strings.Join(c.values, "|"), typeName(v))
			return nil
		}
		if !slices.Contains(c.values, s) {
			addIssue(issues, path, "expected one of [%s], got %q", strings.Join(c.values, "|"), s)
			return nil
		}
		return s

	case KindArray:
		items, ok := toSlice(v)
		if !ok {
			addIssue(issues, path, "expected array, got %s", typeName(v))
			return nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = c.elem.validate(path+"["+strconv.Itoa(i)+"]", item, issues)
		}
		return out

	case KindObject:
		m, ok := toMap(v)
		if !ok {
			addIssue(issues, path, "expected object, got %s", typeName(v))
			return nil
		}
		out := make(map[string]any, len(c.fields))
		for _, name := range c.FieldNames() {
			field := c.fields[name]
			raw, present := m[name]
			val := field.validate(joinPath(path, name), raw, issues)
			if val != nil || (present && raw != nil) {
				out[name] = val
			}
		}
		return out

	case KindRecord:
		m, ok := toMap(v)
		if !ok {
			addIssue(issues, path, "expected record, got %s", typeName(v))
			return nil
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make(map[string]any, len(m))
		for _, k := range keys {
			out[k] = c.elem.validate(joinPath(path, k), m[k], issues)
		}
		return out
	}

	addIssue(issues, path, "unknown contract kind %q", c.kind)
	return nil
}

func (c *Contract) withoutDefault() *Contract {
	cp := c.clone()
	cp.def = nil
	cp.hasDefault = false
	return cp
}

func addIssue(issues *[]Issue, path, format string, args ...any) {
	*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), !math.IsNaN(float64(n))
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, true

	case reflect.Struct:
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return m, true
	}

	return nil, false
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func describeValue(v any) string {
	if f, ok := toFloat(v); ok {
		return "number " + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return typeName(v)
}
