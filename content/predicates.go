package content

import (
	"context"

	"github.com/tailored-agentic-units/flow/schema"
)

// Predicate names registered in an engine catalog.
const (
	PredicateShort         = "content.short"
	PredicateLongOrComplex = "content.long-or-complex"
	PredicateMediumSimple  = "content.medium-simple"
)

func characteristics(input any) (category, complexity string) {
	category, _ = schema.Get[string](input, "category")
	complexity, _ = schema.Get[string](input, "complexity")
	return category, complexity
}

// IsShort routes short content to quick processing.
func IsShort(_ context.Context, input any) (bool, error) {
	category, _ := characteristics(input)
	return category == CategoryShort, nil
}

// IsLongOrComplex routes long or complex content to deep processing.
func IsLongOrComplex(_ context.Context, input any) (bool, error) {
	category, complexity := characteristics(input)
	return category == CategoryLong || complexity == ComplexityComplex, nil
}

// IsMediumSimple routes everything else to standard processing.
func IsMediumSimple(_ context.Context, input any) (bool, error) {
	category, complexity := characteristics(input)
	return category == CategoryMedium && complexity == ComplexitySimple, nil
}
