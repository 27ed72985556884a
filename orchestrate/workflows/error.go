package workflows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tailored-agentic-units/flow/schema"
)

// Structural sentinels. They are wrapped in a *StructuralError and can be
// matched with errors.Is.
var (
	ErrNotCommitted       = errors.New("workflow not committed")
	ErrCommitted          = errors.New("workflow already committed")
	ErrDuplicateStep      = errors.New("duplicate step id")
	ErrUnknownStep        = errors.New("unknown step reference")
	ErrInvalidStep        = errors.New("invalid step definition")
	ErrEmptyStage         = errors.New("stage has no steps")
	ErrEmptyWorkflow      = errors.New("workflow has no stages")
	ErrIncompatibleStages = errors.New("incompatible stage contracts")
	ErrEmptyBranchOutput  = errors.New("branch output may be empty")
)

// Boundary identifies which side of a step or workflow failed validation.
type Boundary string

const (
	BoundaryInput  Boundary = "input"
	BoundaryOutput Boundary = "output"
)

// ValidationError reports a value that did not satisfy a contract. StepID
// is empty when the workflow's own input or output contract was violated.
type ValidationError struct {
	WorkflowID string
	StepID     string
	Boundary   Boundary
	Issues     []schema.Issue
}

func (e *ValidationError) Error() string {
	subject := fmt.Sprintf("step %q", e.StepID)
	if e.StepID == "" {
		subject = fmt.Sprintf("workflow %q", e.WorkflowID)
	}

	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%s %s validation failed: %s", subject, e.Boundary, strings.Join(parts, "; "))
}

// Fields returns the violated field paths.
func (e *ValidationError) Fields() []string {
	paths := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		paths[i] = issue.Path
	}
	return paths
}

// AuthorFault reports whether a step produced output violating its own
// declared contract.
func (e *ValidationError) AuthorFault() bool {
	return e.Boundary == BoundaryOutput && e.StepID != ""
}

func newValidationError(workflowID, stepID string, boundary Boundary, err error) error {
	var schemaErr *schema.Error
	if !errors.As(err, &schemaErr) {
		return err
	}
	return &ValidationError{
		WorkflowID: workflowID,
		StepID:     stepID,
		Boundary:   boundary,
		Issues:     schemaErr.Issues,
	}
}

// StructuralError reports a malformed workflow. Stage is -1 when the defect
// is not tied to a single stage and equals the stage count when it concerns
// the workflow output contract.
type StructuralError struct {
	WorkflowID string
	Stage      int
	Detail     string
	Err        error
}

func (e *StructuralError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %q", e.WorkflowID)
	if e.Stage >= 0 {
		fmt.Fprintf(&b, " stage %d", e.Stage)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	return b.String()
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// StepExecutionError wraps an error returned by a step's execute function.
type StepExecutionError struct {
	RunID      string
	WorkflowID string
	StepID     string
	Err        error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.StepID, e.Err)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a step that exceeded its configured timeout.
type TimeoutError struct {
	StepID  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %q timed out after %s", e.StepID, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// PredicateError reports a branch predicate that returned an error. No
// branch target runs when any predicate fails.
type PredicateError struct {
	Case   int
	StepID string
	Err    error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("branch predicate %d (step %q) failed: %v", e.Case, e.StepID, e.Err)
}

func (e *PredicateError) Unwrap() error {
	return e.Err
}

// TaskError attributes a failure inside a concurrent stage to a step.
type TaskError struct {
	StepID string
	Err    error
}

// AggregateError collects every failure of a concurrent stage that ran
// under the collect-all policy. Errors are ordered by step declaration.
//
// Error message formats:
//   - Single failure: "2 steps ran, 1 failed: step "sentiment-analysis": boom"
//   - Multiple failures: categorized by message and sorted by frequency
type AggregateError struct {
	Total  int
	Errors []TaskError
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "concurrent stage failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%d steps ran, 1 failed: step %q: %v",
			e.Total, e.Errors[0].StepID, rootCause(e.Errors[0].Err),
		)
	}

	errorCounts := make(map[string]int)
	for _, taskErr := range e.Errors {
		errorCounts[rootCause(taskErr.Err).Error()]++
	}

	type errorSummary struct {
		msg   string
		count int
	}
	var summaries []errorSummary
	for msg, count := range errorCounts {
		summaries = append(summaries, errorSummary{msg, count})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].count == summaries[j].count {
			return summaries[i].msg < summaries[j].msg
		}
		return summaries[i].count > summaries[j].count
	})

	var parts []string
	for _, s := range summaries {
		if s.count == 1 {
			parts = append(parts, fmt.Sprintf("'%s' (1 step)", s.msg))
		} else {
			parts = append(parts, fmt.Sprintf("'%s' (%d steps)", s.msg, s.count))
		}
	}

	return fmt.Sprintf(
		"%d steps ran, %d failed with %d error types (%s): %s",
		e.Total, len(e.Errors), len(errorCounts), strings.Join(e.StepIDs(), ", "), strings.Join(parts, ", "),
	)
}

// StepIDs returns the ids of the failed steps.
func (e *AggregateError) StepIDs() []string {
	ids := make([]string, len(e.Errors))
	for i, taskErr := range e.Errors {
		ids[i] = taskErr.StepID
	}
	return ids
}

// Unwrap returns all underlying step errors for errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, taskErr := range e.Errors {
		errs[i] = taskErr.Err
	}
	return errs
}

// rootCause strips the step attribution wrapper so categorized summaries
// group identical failures across steps.
func rootCause(err error) error {
	var execErr *StepExecutionError
	if errors.As(err, &execErr) {
		return execErr.Err
	}
	return err
}

// StageKind identifies the shape of a stage.
type StageKind string

const (
	StageStep     StageKind = "step"
	StageBranch   StageKind = "branch"
	StageParallel StageKind = "parallel"
)

// FailureKind classifies the cause of a StageError.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureStructural FailureKind = "structural"
	FailureExecution  FailureKind = "execution"
	FailureTimeout    FailureKind = "timeout"
	FailurePredicate  FailureKind = "predicate"
	FailureAggregate  FailureKind = "aggregate"
	FailureCancelled  FailureKind = "cancelled"
)

// StageError is the single error returned by Workflow.Run once a run has
// started. It names the failing stage and, when one is attributable, the
// failing step. Stage is -1 when the workflow input contract rejected the
// input and equals the stage count when the workflow output contract
// rejected the terminal value.
type StageError struct {
	WorkflowID string
	RunID      string
	Stage      int
	Kind       StageKind
	StepID     string
	Err        error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %q run %s", e.WorkflowID, e.RunID)
	switch {
	case e.Stage < 0:
		b.WriteString(" input")
	case e.Kind != "":
		fmt.Fprintf(&b, " stage %d (%s)", e.Stage, e.Kind)
	default:
		fmt.Fprintf(&b, " stage %d", e.Stage)
	}
	if e.StepID != "" {
		fmt.Fprintf(&b, " step %q", e.StepID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Failure classifies the underlying cause.
func (e *StageError) Failure() FailureKind {
	return classify(e.Err)
}

func classify(err error) FailureKind {
	var (
		aggErr   *AggregateError
		tErr     *TimeoutError
		vErr     *ValidationError
		pErr     *PredicateError
		execErr  *StepExecutionError
		structEr *StructuralError
	)
	switch {
	case errors.As(err, &aggErr):
		return FailureAggregate
	case errors.As(err, &tErr):
		return FailureTimeout
	case errors.As(err, &vErr):
		return FailureValidation
	case errors.As(err, &pErr):
		return FailurePredicate
	case errors.As(err, &structEr):
		return FailureStructural
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCancelled
	case errors.As(err, &execErr):
		return FailureExecution
	}
	return FailureExecution
}

// stepIDOf extracts the step attributed by err, if any.
func stepIDOf(err error) string {
	var (
		tErr    *TimeoutError
		vErr    *ValidationError
		pErr    *PredicateError
		execErr *StepExecutionError
	)
	switch {
	case errors.As(err, &tErr):
		return tErr.StepID
	case errors.As(err, &vErr):
		return vErr.StepID
	case errors.As(err, &pErr):
		return pErr.StepID
	case errors.As(err, &execErr):
		return execErr.StepID
	}
	return ""
}

// ChainError records where a sequential chain stopped.
//
// Generic over both TItem and TContext to preserve the item being processed
// and the accumulated state at the failure point.
type ChainError[TItem, TContext any] struct {
	// StepIndex is the 0-based index of the item that failed
	StepIndex int

	// Item is the item being processed when the error occurred
	Item TItem

	// State is the accumulated context at the time of failure
	State TContext

	// Err is the underlying error that caused the failure
	Err error
}

func (e *ChainError[TItem, TContext]) Error() string {
	return fmt.Sprintf("chain failed at step %d: %v", e.StepIndex, e.Err)
}

func (e *ChainError[TItem, TContext]) Unwrap() error {
	return e.Err
}

// ItemError captures failure context for a single item of ProcessParallel.
// Index corresponds to the position in the items slice.
type ItemError[TItem any] struct {
	Index int
	Item  TItem
	Err   error
}

// ParallelError wraps item failures from ProcessParallel.
//
// Error message formats:
//   - Single failure: "parallel execution failed: item 5: connection refused"
//   - Multiple failures: "parallel execution failed: 3 items failed with 2 error types: 'boom' (2 items), 'timeout' (1 item)"
type ParallelError[TItem any] struct {
	Errors []ItemError[TItem]
}

func (e *ParallelError[TItem]) Error() string {
	if len(e.Errors) == 0 {
		return "parallel execution failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("parallel execution failed: item %d: %v",
			e.Errors[0].Index, e.Errors[0].Err,
		)
	}

	errorCounts := make(map[string]int)
	for _, itemErr := range e.Errors {
		errorCounts[itemErr.Err.Error()]++
	}

	type errorSummary struct {
		msg   string
		count int
	}
	var summaries []errorSummary
	for msg, count := range errorCounts {
		summaries = append(summaries, errorSummary{msg, count})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].count > summaries[j].count
	})

	var parts []string
	for _, s := range summaries {
		if s.count == 1 {
			parts = append(parts, fmt.Sprintf("'%s' (1 item)", s.msg))
		} else {
			parts = append(parts, fmt.Sprintf("'%s' (%d items)", s.msg, s.count))
		}
	}

	return fmt.Sprintf(
		"parallel execution failed: %d items failed with %d error types: %s",
		len(e.Errors), len(errorCounts), strings.Join(parts, ", "),
	)
}

// Unwrap returns all underlying item errors.
func (e *ParallelError[TItem]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, itemErr := range e.Errors {
		errs[i] = itemErr.Err
	}
	return errs
}
