package content

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
	"github.com/tailored-agentic-units/flow/schema"
)

// Step ids.
const (
	StepAssessment  = "content-assessment"
	StepQuick       = "quick-processing"
	StepStandard    = "standard-processing"
	StepDeep        = "deep-processing"
	StepSEO         = "seo-analysis"
	StepReadability = "readability-analysis"
	StepSentiment   = "sentiment-analysis"
	StepCombine     = "combine-results"
)

// Simulated processing delays, applied when latency is enabled.
var latency = map[string]time.Duration{
	StepQuick:       100 * time.Millisecond,
	StepStandard:    300 * time.Millisecond,
	StepDeep:        500 * time.Millisecond,
	StepSEO:         800 * time.Millisecond,
	StepReadability: 600 * time.Millisecond,
	StepSentiment:   700 * time.Millisecond,
}

// Steps is one configured set of content steps. A set may back any number
// of workflows.
type Steps struct {
	Assessment  *workflows.Step
	Quick       *workflows.Step
	Standard    *workflows.Step
	Deep        *workflows.Step
	SEO         *workflows.Step
	Readability *workflows.Step
	Sentiment   *workflows.Step
	Combine     *workflows.Step
}

// NewSteps builds the content steps.
func NewSteps(opts ...Option) *Steps {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	b := &builder{
		opts:          o,
		seoRand:       newSource(o.seed, 1),
		sentimentRand: newSource(o.seed, 2),
	}

	return &Steps{
		Assessment: b.step(StepAssessment, "Assesses content characteristics for routing",
			Article(), Assessment(), b.assess),
		Quick: b.step(StepQuick, "Fast processing for short content",
			Assessment(), QuickResult(), b.quick),
		Standard: b.step(StepStandard, "Standard processing for medium content",
			Assessment(), StandardResult(), b.standard),
		Deep: b.step(StepDeep, "Thorough processing for long/complex content",
			Assessment(), DeepResult(), b.deep),
		SEO: b.step(StepSEO, "SEO optimization analysis",
			Article(), SEOResult(), b.seo),
		Readability: b.step(StepReadability, "Content readability analysis",
			Article(), ReadabilityResult(), b.readability),
		Sentiment: b.step(StepSentiment, "Content sentiment analysis",
			Article(), SentimentResult(), b.sentiment),
		Combine: b.step(StepCombine, "Combines parallel analysis results",
			Analyses(), Report(), b.combine),
	}
}

// All returns every step in declaration order.
func (s *Steps) All() []*workflows.Step {
	return []*workflows.Step{
		s.Assessment, s.Quick, s.Standard, s.Deep,
		s.SEO, s.Readability, s.Sentiment, s.Combine,
	}
}

type builder struct {
	opts          *options
	seoRand       *source
	sentimentRand *source
}

func (b *builder) step(id, description string, in, out *schema.Contract, fn workflows.ExecuteFunc) *workflows.Step {
	opts := []workflows.StepOption{workflows.WithDescription(description)}
	if err, ok := b.opts.faults[id]; ok {
		opts = append(opts, workflows.WithStepMiddleware(fault(err)))
	}
	return workflows.NewStep(id, in, out, fn, opts...)
}

func (b *builder) assess(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	text, _ := schema.Get[string](input, "content")
	kind, _ := schema.Get[string](input, "type")

	wordCount, category, complexity := Assess(text)
	rc.Log(ctx, StepAssessment, fmt.Sprintf("Assessment: %s, %s", category, complexity), map[string]any{
		"word_count": wordCount,
		"category":   category,
		"complexity": complexity,
	})

	return map[string]any{
		"content":    text,
		"type":       kind,
		"wordCount":  wordCount,
		"category":   category,
		"complexity": complexity,
	}, nil
}

// processing holds the fields shared by the three processing paths.
func processing(input any, processingType, summary string) (map[string]any, int) {
	text, _ := schema.Get[string](input, "content")
	kind, _ := schema.Get[string](input, "type")
	wordCount, _ := schema.Get[int](input, "wordCount")

	return map[string]any{
		"content":        text,
		"type":           kind,
		"wordCount":      wordCount,
		"processingType": processingType,
		"summary":        fmt.Sprintf("%s of %d word %s", summary, wordCount, kind),
	}, wordCount
}

func (b *builder) quick(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepQuick, "Quick processing", nil)
	if err := b.opts.pause(ctx, latency[StepQuick]); err != nil {
		return nil, err
	}

	out, _ := processing(input, "quick", "Quick summary")
	return out, nil
}

func (b *builder) standard(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepStandard, "Standard processing", nil)
	if err := b.opts.pause(ctx, latency[StepStandard]); err != nil {
		return nil, err
	}

	out, wordCount := processing(input, "standard", "Standard summary")
	out["metadata"] = map[string]any{
		"readingTime": ReadingTime(wordCount),
	}
	return out, nil
}

func (b *builder) deep(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepDeep, "Deep processing", nil)
	if err := b.opts.pause(ctx, latency[StepDeep]); err != nil {
		return nil, err
	}

	out, wordCount := processing(input, "deep", "Deep analysis")
	text, _ := schema.Get[string](input, "content")
	out["metadata"] = map[string]any{
		"readingTime": ReadingTime(wordCount),
		"keyPoints":   KeyPoints(text, 3),
	}
	return out, nil
}

func (b *builder) seo(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepSEO, "Running SEO analysis", nil)
	if err := b.opts.pause(ctx, latency[StepSEO]); err != nil {
		return nil, err
	}

	text, _ := schema.Get[string](input, "content")
	return map[string]any{
		"seoScore": b.seoRand.IntN(40) + 60,
		"keywords": Keywords(text, 3),
	}, nil
}

func (b *builder) readability(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepReadability, "Running readability analysis", nil)
	if err := b.opts.pause(ctx, latency[StepReadability]); err != nil {
		return nil, err
	}

	text, _ := schema.Get[string](input, "content")
	score, grade := Readability(text)
	return map[string]any{
		"readabilityScore": score,
		"gradeLevel":       grade,
	}, nil
}

func (b *builder) sentiment(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepSentiment, "Running sentiment analysis", nil)
	if err := b.opts.pause(ctx, latency[StepSentiment]); err != nil {
		return nil, err
	}

	text, _ := schema.Get[string](input, "content")
	return map[string]any{
		"sentiment":  Sentiment(text),
		"confidence": b.sentimentRand.Float64()*0.3 + 0.7,
	}, nil
}

func (b *builder) combine(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	rc.Log(ctx, StepCombine, "Combining parallel results", nil)

	seo, _ := schema.Get[map[string]any](input, StepSEO)
	readability, _ := schema.Get[map[string]any](input, StepReadability)
	sentiment, _ := schema.Get[map[string]any](input, StepSentiment)
	return map[string]any{
		"results": map[string]any{
			"seo":         seo,
			"readability": readability,
			"sentiment":   sentiment,
		},
	}, nil
}
