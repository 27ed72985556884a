package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flow/schema"
)

func contentInput() *schema.Contract {
	return schema.Object(schema.Fields{
		"content": schema.String(),
		"type":    schema.Enum("article", "blog", "social").WithDefault("article"),
	})
}

func TestValidate_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		contract *schema.Contract
		value    any
		want     any
		wantErr  string
	}{
		{name: "string", contract: schema.String(), value: "x", want: "x"},
		{name: "string rejects number", contract: schema.String(), value: 3, wantErr: "expected string, got number"},
		{name: "number normalizes int", contract: schema.Number(), value: 3, want: float64(3)},
		{name: "integer from float", contract: schema.Integer(), value: 4.0, want: 4},
		{name: "integer rejects fraction", contract: schema.Integer(), value: 4.5, wantErr: "expected integer, got number 4.5"},
		{name: "integer within range", contract: schema.Integer(), value: float64(1 << 62), want: 1 << 62},
		{name: "integer above int64", contract: schema.Integer(), value: 1e19, wantErr: "expected integer in int64 range, got number 1e+19"},
		{name: "integer below int64", contract: schema.Integer(), value: -1e19, wantErr: "expected integer in int64 range"},
		{name: "integer at 2^63", contract: schema.Integer(), value: float64(1 << 63), wantErr: "expected integer in int64 range"},
		{name: "boolean", contract: schema.Boolean(), value: true, want: true},
		{name: "enum member", contract: schema.Enum("a", "b"), value: "b", want: "b"},
		{name: "enum non-member", contract: schema.Enum("a", "b"), value: "c", wantErr: `expected one of [a|b], got "c"`},
		{name: "required", contract: schema.String(), value: nil, wantErr: "required"},
		{name: "optional absent", contract: schema.String().Optional(), value: nil, want: nil},
		{name: "default applied", contract: schema.String().WithDefault("d"), value: nil, want: "d"},
		{name: "nil contract passes through", contract: nil, value: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.contract.Validate(tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_ObjectAppliesDefaultsAndStripsUnknownKeys(t *testing.T) {
	got, err := contentInput().Validate(map[string]any{
		"content": "A great day.",
		"extra":   true,
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"content": "A great day.", "type": "article"}, got)
}

func TestValidate_ReportsEveryFieldPath(t *testing.T) {
	c := schema.Object(schema.Fields{
		"content": schema.String(),
		"metadata": schema.Object(schema.Fields{
			"keyPoints": schema.Array(schema.String()),
		}),
	})

	_, err := c.Validate(map[string]any{
		"metadata": map[string]any{"keyPoints": []any{"one", 2}},
	})

	var schemaErr *schema.Error
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"content", "metadata.keyPoints[1]"}, schemaErr.Paths())
}

func TestValidate_AcceptsStructsAndTypedSlices(t *testing.T) {
	type result struct {
		Score    int      `json:"seoScore"`
		Keywords []string `json:"keywords"`
	}
	c := schema.Object(schema.Fields{
		"seoScore": schema.Integer(),
		"keywords": schema.Array(schema.String()),
	})

	got, err := c.Validate(result{Score: 72, Keywords: []string{"great"}})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"seoScore": 72, "keywords": []any{"great"}}, got)
}

func TestValidate_Record(t *testing.T) {
	c := schema.Record(schema.Integer())

	got, err := c.Validate(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got)

	_, err = c.Validate(map[string]any{"a": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: expected integer")
}

func TestCompatible(t *testing.T) {
	assessment := schema.Object(schema.Fields{
		"content":    schema.String(),
		"wordCount":  schema.Integer(),
		"category":   schema.Enum("short", "medium", "long"),
		"complexity": schema.Enum("simple", "complex"),
	})

	tests := []struct {
		name      string
		producer  *schema.Contract
		consumer  *schema.Contract
		wantPaths []string
	}{
		{name: "identical", producer: assessment, consumer: assessment},
		{
			name:     "consumer subset",
			producer: assessment,
			consumer: schema.Object(schema.Fields{"content": schema.String()}),
		},
		{
			name:      "missing required field",
			producer:  schema.Object(schema.Fields{"content": schema.String()}),
			consumer:  assessment,
			wantPaths: []string{"category", "complexity", "wordCount"},
		},
		{
			name:      "kind mismatch",
			producer:  schema.Object(schema.Fields{"content": schema.Number()}),
			consumer:  schema.Object(schema.Fields{"content": schema.String()}),
			wantPaths: []string{"content"},
		},
		{
			name:      "enum widening",
			producer:  schema.Enum("a", "b", "c"),
			consumer:  schema.Enum("a", "b"),
			wantPaths: []string{""},
		},
		{
			name:     "integer into number",
			producer: schema.Integer(),
			consumer: schema.Number(),
		},
		{
			name:      "optional into required",
			producer:  schema.Object(schema.Fields{"x": schema.String().Optional()}),
			consumer:  schema.Object(schema.Fields{"x": schema.String()}),
			wantPaths: []string{"x"},
		},
		{
			name:     "defaulted consumer field may be missing",
			producer: schema.Object(schema.Fields{"content": schema.String()}),
			consumer: contentInput(),
		},
		{name: "any consumer", producer: assessment, consumer: schema.Any()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := schema.Compatible(tt.producer, tt.consumer)
			paths := make([]string, len(issues))
			for i, issue := range issues {
				paths[i] = issue.Path
			}
			if len(tt.wantPaths) == 0 {
				assert.Empty(t, issues)
				return
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestAllowsEmpty(t *testing.T) {
	assert.True(t, schema.AllowsEmpty(nil))
	assert.True(t, schema.AllowsEmpty(schema.Record(schema.Any())))
	assert.True(t, schema.AllowsEmpty(schema.Object(schema.Fields{"a": schema.String().Optional()})))
	assert.False(t, schema.AllowsEmpty(schema.Object(schema.Fields{"a": schema.String()})))
	assert.False(t, schema.AllowsEmpty(schema.String()))
}

func TestGet(t *testing.T) {
	v := map[string]any{
		"wordCount": 3,
		"metadata":  map[string]any{"keyPoints": []any{"a", "b"}},
	}

	n, ok := schema.Get[int](v, "wordCount")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	points, ok := schema.Get[[]any](v, "metadata", "keyPoints")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, schema.Strings(points))

	_, ok = schema.Get[string](v, "missing")
	assert.False(t, ok)
}

func TestContract_String(t *testing.T) {
	assert.Equal(t,
		`object{content:string, type:enum(article|blog|social)="article"}`,
		contentInput().String(),
	)
	assert.Equal(t, "array<string>?", schema.Array(schema.String()).Optional().String())
}
