package workflows

import (
	"context"
	"slices"

	"github.com/tailored-agentic-units/flow/orchestrate/config"
	"github.com/tailored-agentic-units/flow/schema"
)

// ErrorPolicy selects how a concurrent stage reacts to a failing step.
type ErrorPolicy int

const (
	// PolicyDefault defers to the workflow configuration.
	PolicyDefault ErrorPolicy = iota

	// FailFast cancels siblings on the first failure and returns it.
	FailFast

	// CollectAll runs every sibling to completion and aggregates failures.
	CollectAll
)

func (p ErrorPolicy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case CollectAll:
		return "collect_all"
	default:
		return "default"
	}
}

// StageOption configures a branch or parallel stage.
type StageOption func(*stageOptions)

type stageOptions struct {
	policy         ErrorPolicy
	maxConcurrency int
}

// WithErrorPolicy overrides the workflow's fail-fast setting for one stage.
func WithErrorPolicy(policy ErrorPolicy) StageOption {
	return func(o *stageOptions) {
		o.policy = policy
	}
}

// WithMaxConcurrency bounds how many steps of the stage run at once.
func WithMaxConcurrency(n int) StageOption {
	return func(o *stageOptions) {
		o.maxConcurrency = n
	}
}

func (o stageOptions) failFast() *bool {
	var v bool
	switch o.policy {
	case FailFast:
		v = true
	case CollectAll:
		v = false
	default:
		return nil
	}
	return &v
}

// StageInfo describes one committed stage.
type StageInfo struct {
	Index  int
	Kind   StageKind
	Steps  []*Step
	Output *schema.Contract
}

type stage interface {
	kind() StageKind
	steps() []*Step

	// output is the contract of the value the stage hands downstream.
	output() *schema.Contract

	run(ctx context.Context, w *Workflow, in any, rc *RunContext) (any, error)
}

type stepStage struct {
	step *Step
}

func (s *stepStage) kind() StageKind { return StageStep }
func (s *stepStage) steps() []*Step  { return []*Step{s.step} }
func (s *stepStage) output() *schema.Contract {
	if s.step == nil {
		return nil
	}
	return s.step.Output
}

func (s *stepStage) run(ctx context.Context, w *Workflow, in any, rc *RunContext) (any, error) {
	return s.step.run(ctx, in, rc, w.middleware)
}

type branchStage struct {
	cases []BranchCase
	opts  stageOptions
}

func (s *branchStage) kind() StageKind { return StageBranch }

func (s *branchStage) steps() []*Step {
	steps := make([]*Step, len(s.cases))
	for i, c := range s.cases {
		steps[i] = c.Step
	}
	return steps
}

// output describes the branch mapping: one optional field per target,
// since only matched targets appear.
func (s *branchStage) output() *schema.Contract {
	fields := make(schema.Fields, len(s.cases))
	for _, c := range s.cases {
		if c.Step != nil {
			fields[c.Step.ID] = contractOrAny(c.Step.Output).Optional()
		}
	}
	return schema.Object(fields)
}

// matchedShape is the mapping produced when every target matches. It is
// what downstream compatibility is checked against; emptiness is reported
// separately.
func (s *branchStage) matchedShape() *schema.Contract {
	fields := make(schema.Fields, len(s.cases))
	for _, c := range s.cases {
		if c.Step != nil {
			fields[c.Step.ID] = contractOrAny(c.Step.Output)
		}
	}
	return schema.Object(fields)
}

func (s *branchStage) run(ctx context.Context, w *Workflow, in any, rc *RunContext) (any, error) {
	cfg := w.cfg.Branch
	if ff := s.opts.failFast(); ff != nil {
		cfg.FailFastNil = ff
	}
	if s.opts.maxConcurrency > 0 {
		cfg.MaxConcurrency = s.opts.maxConcurrency
	}

	out, err := ProcessBranch(ctx, cfg, rc.observer, s.cases, in,
		func(ctx context.Context, step *Step) (any, error) {
			return step.run(ctx, in, rc, w.middleware)
		},
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type parallelStage struct {
	members []*Step
	opts    stageOptions
}

func (s *parallelStage) kind() StageKind { return StageParallel }
func (s *parallelStage) steps() []*Step  { return s.members }

func (s *parallelStage) output() *schema.Contract {
	fields := make(schema.Fields, len(s.members))
	for _, step := range s.members {
		if step != nil {
			fields[step.ID] = contractOrAny(step.Output)
		}
	}
	return schema.Object(fields)
}

func (s *parallelStage) run(ctx context.Context, w *Workflow, in any, rc *RunContext) (any, error) {
	cfg := w.cfg.Parallel
	if ff := s.opts.failFast(); ff != nil {
		cfg.FailFastNil = ff
	}
	if s.opts.maxConcurrency > 0 {
		cfg.MaxWorkers = s.opts.maxConcurrency
	}

	result, err := ProcessParallel(ctx, cfg, rc.observer, s.members,
		func(ctx context.Context, step *Step) (any, error) {
			return step.run(ctx, in, rc, w.middleware)
		},
		nil,
	)
	if err != nil {
		return nil, parallelFailure(cfg, s.members, result, err)
	}

	out := make(map[string]any, len(result.Results))
	for i, value := range result.Results {
		out[s.members[result.Indexes[i]].ID] = value
	}
	return out, nil
}

func parallelFailure(cfg config.ParallelConfig, steps []*Step, result ParallelResult[*Step, any], err error) error {
	if len(result.Errors) == 0 {
		return err
	}

	if cfg.FailFast() {
		if result.First != nil {
			return result.First.Err
		}
		return result.Errors[0].Err
	}

	failed := slices.Clone(result.Errors)
	slices.SortFunc(failed, func(a, b ItemError[*Step]) int { return a.Index - b.Index })

	agg := &AggregateError{Total: len(steps)}
	for _, itemErr := range failed {
		agg.Errors = append(agg.Errors, TaskError{StepID: itemErr.Item.ID, Err: itemErr.Err})
	}
	return agg
}

func contractOrAny(c *schema.Contract) *schema.Contract {
	if c == nil {
		return schema.Any()
	}
	return c
}
