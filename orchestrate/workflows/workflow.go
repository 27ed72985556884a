package workflows

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/config"
	"github.com/tailored-agentic-units/flow/schema"
)

// Workflow is an ordered plan of stages between an input and an output
// contract.
//
// A workflow is assembled with Then, Branch and Parallel, frozen with
// Commit and executed any number of times with Run. Builder methods return
// the workflow so calls chain; problems found while building are recorded
// and reported by Commit and Err. Once committed, the plan never changes.
type Workflow struct {
	id          string
	description string
	input       *schema.Contract
	output      *schema.Contract
	cfg         config.WorkflowConfig
	observer    observability.Observer
	middleware  []Middleware

	mu        sync.RWMutex
	stages    []stage
	errs      []error
	warnings  []string
	committed bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithConfig replaces the default configuration. Fields left at their
// zero value keep the defaults.
func WithConfig(cfg config.WorkflowConfig) Option {
	return func(w *Workflow) {
		merged := config.DefaultWorkflowConfig()
		merged.Merge(&cfg)
		w.cfg = merged
	}
}

// WithObserver sets the observer directly, bypassing the registry lookup of
// WorkflowConfig.Observer.
func WithObserver(observer observability.Observer) Option {
	return func(w *Workflow) {
		w.observer = observer
	}
}

// WithWorkflowDescription sets the workflow's human-readable description.
func WithWorkflowDescription(description string) Option {
	return func(w *Workflow) {
		w.description = description
	}
}

// WithMiddleware wraps every step of the workflow. Workflow middleware runs
// outside step middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(w *Workflow) {
		w.middleware = append(w.middleware, mw...)
	}
}

// New creates a workflow in the building state.
func New(id string, input, output *schema.Contract, opts ...Option) *Workflow {
	w := &Workflow{
		id:     id,
		input:  input,
		output: output,
		cfg:    config.DefaultWorkflowConfig(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.cfg.Parallel.GracePeriod == 0 {
		w.cfg.Parallel.GracePeriod = w.cfg.GracePeriod
	}
	if w.cfg.Branch.GracePeriod == 0 {
		w.cfg.Branch.GracePeriod = w.cfg.GracePeriod
	}

	if w.observer == nil {
		observer, err := observability.GetObserver(w.cfg.Observer)
		if err != nil {
			w.errs = append(w.errs, fmt.Errorf("failed to resolve observer: %w", err))
			observer = observability.NoOpObserver{}
		}
		w.observer = observer
	}

	if id == "" {
		w.errs = append(w.errs, w.structural(-1, ErrInvalidStep, "workflow id is empty"))
	}
	return w
}

func (w *Workflow) ID() string                    { return w.id }
func (w *Workflow) Description() string           { return w.description }
func (w *Workflow) Input() *schema.Contract       { return w.input }
func (w *Workflow) Output() *schema.Contract      { return w.output }
func (w *Workflow) Config() config.WorkflowConfig { return w.cfg }

// Then appends a single-step stage.
func (w *Workflow) Then(step *Step) *Workflow {
	return w.append(&stepStage{step: step})
}

// Branch appends a stage that runs every case whose predicate matches the
// upstream value.
func (w *Workflow) Branch(cases []BranchCase, opts ...StageOption) *Workflow {
	s := &branchStage{cases: slices.Clone(cases)}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return w.append(s)
}

// Parallel appends a stage that runs every step concurrently on the same
// upstream value and joins their outputs keyed by step id.
func (w *Workflow) Parallel(steps []*Step, opts ...StageOption) *Workflow {
	s := &parallelStage{members: slices.Clone(steps)}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return w.append(s)
}

func (w *Workflow) append(s stage) *Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committed {
		w.errs = append(w.errs, w.structural(len(w.stages), ErrCommitted,
			fmt.Sprintf("%s stage rejected", s.kind())))
		return w
	}
	w.stages = append(w.stages, s)
	return w
}

// Err returns the problems recorded by builder calls so far, joined.
func (w *Workflow) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return errors.Join(w.errs...)
}

// Committed reports whether Commit succeeded.
func (w *Workflow) Committed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.committed
}

// Warnings returns the design-time warnings recorded by Commit.
func (w *Workflow) Warnings() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.warnings)
}

// Stages describes the plan.
func (w *Workflow) Stages() []StageInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	infos := make([]StageInfo, len(w.stages))
	for i, s := range w.stages {
		infos[i] = StageInfo{
			Index:  i,
			Kind:   s.kind(),
			Steps:  slices.Clone(s.steps()),
			Output: s.output(),
		}
	}
	return infos
}

// Steps returns every step in plan order.
func (w *Workflow) Steps() []*Step {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var steps []*Step
	for _, s := range w.stages {
		steps = append(steps, s.steps()...)
	}
	return steps
}

// Commit validates the plan and freezes it.
//
// Commit rejects duplicate step ids, nil step references, invalid steps,
// empty stages and empty workflows, and checks each stage's input contracts
// against the contract of the value flowing into it. The contract check is
// best-effort; see schema.Compatible. When the stage following a branch, or
// the workflow output, cannot accept an empty mapping a warning is recorded,
// or a structural error returned when StrictBranches is set.
//
// Every problem found is returned, joined. Calling Commit on a committed
// workflow is a no-op.
func (w *Workflow) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committed {
		return nil
	}

	errs := slices.Clone(w.errs)
	errs = append(errs, w.checkShape()...)
	if len(errs) == 0 {
		errs = append(errs, w.checkContracts()...)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	w.committed = true

	for _, warning := range w.warnings {
		w.observer.OnEvent(context.Background(), observability.Event{
			Type:      EventWorkflowWarning,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "workflows.Commit",
			Data: map[string]any{
				observability.AttrWorkflowID: w.id,
				"warning":                    warning,
			},
		})
	}

	steps := 0
	for _, s := range w.stages {
		steps += len(s.steps())
	}
	w.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventWorkflowCommit,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "workflows.Commit",
		Data: map[string]any{
			observability.AttrWorkflowID: w.id,
			"stage_count":                len(w.stages),
			"step_count":                 steps,
			"warnings":                   len(w.warnings),
		},
	})

	return nil
}

func (w *Workflow) checkShape() []error {
	if len(w.stages) == 0 {
		return []error{w.structural(-1, ErrEmptyWorkflow, "")}
	}

	var errs []error
	seen := make(map[string]int)

	for i, s := range w.stages {
		if b, ok := s.(*branchStage); ok {
			for j, c := range b.cases {
				if c.When == nil {
					errs = append(errs, w.structural(i, ErrInvalidStep,
						fmt.Sprintf("branch case %d has no predicate", j)))
				}
			}
		}

		steps := s.steps()
		if len(steps) == 0 {
			errs = append(errs, w.structural(i, ErrEmptyStage, string(s.kind())))
			continue
		}

		for j, step := range steps {
			switch {
			case step == nil:
				errs = append(errs, w.structural(i, ErrUnknownStep,
					fmt.Sprintf("%s stage member %d is nil", s.kind(), j)))
				continue
			case step.ID == "":
				errs = append(errs, w.structural(i, ErrInvalidStep,
					fmt.Sprintf("%s stage member %d has no id", s.kind(), j)))
				continue
			case step.Execute == nil:
				errs = append(errs, w.structural(i, ErrInvalidStep,
					fmt.Sprintf("step %q has no execute function", step.ID)))
			}

			if prev, dup := seen[step.ID]; dup {
				errs = append(errs, w.structural(i, ErrDuplicateStep,
					fmt.Sprintf("step %q already used at stage %d", step.ID, prev)))
				continue
			}
			seen[step.ID] = i
		}
	}
	return errs
}

func (w *Workflow) checkContracts() []error {
	var errs []error
	w.warnings = nil

	producer := w.input
	fromBranch := false

	consume := func(stageIndex int, consumer *schema.Contract, subject string) {
		if issues := schema.Compatible(producer, consumer); len(issues) > 0 {
			errs = append(errs, w.structural(stageIndex, ErrIncompatibleStages,
				fmt.Sprintf("%s: %s", subject, joinIssues(issues))))
		}
		if fromBranch && !schema.AllowsEmpty(consumer) {
			msg := fmt.Sprintf("%s does not accept the empty mapping produced when no branch of stage %d matches",
				subject, stageIndex-1)
			if w.cfg.StrictBranches {
				errs = append(errs, w.structural(stageIndex, ErrEmptyBranchOutput, msg))
			} else {
				w.warnings = append(w.warnings, msg)
			}
		}
	}

	for i, s := range w.stages {
		for _, step := range s.steps() {
			consume(i, step.Input, fmt.Sprintf("step %q input", step.ID))
		}

		if b, ok := s.(*branchStage); ok {
			producer = b.matchedShape()
			fromBranch = true
		} else {
			producer = s.output()
			fromBranch = false
		}
	}

	consume(len(w.stages), w.output, "workflow output")
	return errs
}

func (w *Workflow) structural(stage int, err error, detail string) error {
	return &StructuralError{
		WorkflowID: w.id,
		Stage:      stage,
		Detail:     detail,
		Err:        err,
	}
}

func joinIssues(issues []schema.Issue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return strings.Join(parts, "; ")
}
