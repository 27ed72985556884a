package schema

// Get walks nested maps along path and returns the value found there as T.
// It is intended for reading values that already passed Validate, so the
// usual normalized types apply (string, float64, int, bool, []any,
// map[string]any).
//
//	words, ok := schema.Get[int](input, "wordCount")
//	points, ok := schema.Get[[]any](output, "metadata", "keyPoints")
func Get[T any](v any, path ...string) (T, bool) {
	var zero T
	cur := v
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return zero, false
		}
		cur, ok = m[key]
		if !ok {
			return zero, false
		}
	}
	t, ok := cur.(T)
	return t, ok
}

// Strings converts a validated []any of strings to []string, skipping
// elements of any other type.
func Strings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
