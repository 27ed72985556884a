// Package schema provides runtime value contracts for step boundaries.
//
// A Contract is a tagged variant describing the shape a value must have:
// scalars (string, number, integer, boolean, enum), containers (array,
// object, record) and the permissive any. Contracts are assembled at
// runtime because workflow wiring is dynamic, and they are evaluated at
// every stage crossing rather than relied on as compile-time types.
//
//	input := schema.Object(schema.Fields{
//	    "content": schema.String(),
//	    "type":    schema.Enum("article", "blog", "social").WithDefault("article"),
//	})
//
//	v, err := input.Validate(map[string]any{"content": "A great day."})
//	// v == map[string]any{"content": "A great day.", "type": "article"}
//
// Validation failures are reported as *Error values carrying one Issue per
// violated field path.
//
// Compatible performs the best-effort static check used when a workflow is
// committed: it compares a producer's output contract against a consumer's
// input contract and reports mismatches that are certain to fail at runtime.
package schema
