package content

import (
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// Workflow ids.
const (
	ConditionalWorkflowID = "conditional-content-workflow"
	ParallelWorkflowID    = "parallel-analysis-workflow"
)

// ConditionalWorkflow assesses content and runs every processing path whose
// predicate matches. The workflow is returned uncommitted.
func (s *Steps) ConditionalWorkflow(opts ...workflows.Option) *workflows.Workflow {
	opts = append([]workflows.Option{
		workflows.WithWorkflowDescription("Routes content to different processing based on characteristics"),
	}, opts...)

	return workflows.New(ConditionalWorkflowID, Article(), Processed(), opts...).
		Then(s.Assessment).
		Branch([]workflows.BranchCase{
			workflows.When(IsShort, s.Quick),
			workflows.When(IsLongOrComplex, s.Deep),
			workflows.When(IsMediumSimple, s.Standard),
		})
}

// ParallelWorkflow runs the three analyses concurrently and combines their
// results. The workflow is returned uncommitted.
func (s *Steps) ParallelWorkflow(opts ...workflows.Option) *workflows.Workflow {
	opts = append([]workflows.Option{
		workflows.WithWorkflowDescription("Run multiple content analyses in parallel"),
	}, opts...)

	return workflows.New(ParallelWorkflowID, Article(), Report(), opts...).
		Parallel([]*workflows.Step{s.SEO, s.Readability, s.Sentiment}).
		Then(s.Combine)
}
