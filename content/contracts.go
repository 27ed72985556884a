package content

import "github.com/tailored-agentic-units/flow/schema"

// Categories, complexities and sentiments produced by the steps.
const (
	CategoryShort  = "short"
	CategoryMedium = "medium"
	CategoryLong   = "long"

	ComplexitySimple  = "simple"
	ComplexityComplex = "complex"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Article is the input of both workflows. The type defaults to "article".
func Article() *schema.Contract {
	return schema.Object(schema.Fields{
		"content": schema.String(),
		"type":    schema.Enum("article", "blog", "social").WithDefault("article"),
	})
}

// Assessment is the output of content-assessment and the input of every
// processing step.
func Assessment() *schema.Contract {
	return schema.Object(schema.Fields{
		"content":    schema.String(),
		"type":       schema.String(),
		"wordCount":  schema.Integer(),
		"category":   schema.Enum(CategoryShort, CategoryMedium, CategoryLong),
		"complexity": schema.Enum(ComplexitySimple, ComplexityComplex),
	})
}

func processed(metadata *schema.Contract) *schema.Contract {
	fields := schema.Fields{
		"content":        schema.String(),
		"type":           schema.String(),
		"wordCount":      schema.Integer(),
		"processingType": schema.String(),
		"summary":        schema.String(),
	}
	if metadata != nil {
		fields["metadata"] = metadata
	}
	return schema.Object(fields)
}

func QuickResult() *schema.Contract { return processed(nil) }

func StandardResult() *schema.Contract {
	return processed(schema.Object(schema.Fields{
		"readingTime": schema.Integer(),
	}))
}

func DeepResult() *schema.Contract {
	return processed(schema.Object(schema.Fields{
		"readingTime": schema.Integer(),
		"keyPoints":   schema.Array(schema.String()),
	}))
}

// Processed is the output of the conditional workflow: one optional entry
// per processing step, present only for the paths that ran.
func Processed() *schema.Contract {
	return schema.Object(schema.Fields{
		StepQuick:    QuickResult().Optional(),
		StepStandard: StandardResult().Optional(),
		StepDeep:     DeepResult().Optional(),
	})
}

func SEOResult() *schema.Contract {
	return schema.Object(schema.Fields{
		"seoScore": schema.Integer(),
		"keywords": schema.Array(schema.String()),
	})
}

func ReadabilityResult() *schema.Contract {
	return schema.Object(schema.Fields{
		"readabilityScore": schema.Integer(),
		"gradeLevel":       schema.String(),
	})
}

func SentimentResult() *schema.Contract {
	return schema.Object(schema.Fields{
		"sentiment":  schema.Enum(SentimentPositive, SentimentNeutral, SentimentNegative),
		"confidence": schema.Number(),
	})
}

// Analyses is the joined output of the parallel analysis stage.
func Analyses() *schema.Contract {
	return schema.Object(schema.Fields{
		StepSEO:         SEOResult(),
		StepReadability: ReadabilityResult(),
		StepSentiment:   SentimentResult(),
	})
}

// Report is the output of the parallel workflow.
func Report() *schema.Contract {
	return schema.Object(schema.Fields{
		"results": schema.Object(schema.Fields{
			"seo":         SEOResult(),
			"readability": ReadabilityResult(),
			"sentiment":   SentimentResult(),
		}),
	})
}
