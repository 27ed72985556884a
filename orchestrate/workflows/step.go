package workflows

import (
	"context"
	"errors"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/schema"
)

// ExecuteFunc is a step's business logic. It receives the input already
// validated and normalized against the step's input contract, together with
// the run's context. The returned value is validated against the step's
// output contract.
type ExecuteFunc func(ctx context.Context, input any, rc *RunContext) (any, error)

// Handler is the inner call a Middleware wraps.
type Handler func(ctx context.Context, input any) (any, error)

// Middleware wraps step execution. Middleware sees the validated input and
// the raw step result; contract checks happen outside the chain.
type Middleware func(ctx context.Context, step *Step, input any, rc *RunContext, next Handler) (any, error)

// Step is a named unit of work with declared input and output contracts.
// Steps are stateless values and may appear in many workflows, but a step id
// must be unique within one workflow.
type Step struct {
	ID          string
	Description string
	Input       *schema.Contract
	Output      *schema.Contract
	Execute     ExecuteFunc

	// Timeout bounds a single execution (0 = no timeout)
	Timeout time.Duration

	// Middleware wraps Execute, outermost first
	Middleware []Middleware
}

// StepOption configures a Step built with NewStep.
type StepOption func(*Step)

// WithDescription sets the step's human-readable description.
func WithDescription(description string) StepOption {
	return func(s *Step) {
		s.Description = description
	}
}

// WithTimeout bounds each execution of the step.
func WithTimeout(timeout time.Duration) StepOption {
	return func(s *Step) {
		s.Timeout = timeout
	}
}

// WithStepMiddleware appends middleware that wraps only this step.
func WithStepMiddleware(mw ...Middleware) StepOption {
	return func(s *Step) {
		s.Middleware = append(s.Middleware, mw...)
	}
}

// NewStep creates a step from its id, contracts and execute function.
func NewStep(id string, input, output *schema.Contract, execute ExecuteFunc, opts ...StepOption) *Step {
	s := &Step{
		ID:      id,
		Input:   input,
		Output:  output,
		Execute: execute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes the step once: validate input, execute through the
// middleware chain, validate output, record the output on rc.
func (s *Step) run(ctx context.Context, input any, rc *RunContext, outer []Middleware) (any, error) {
	start := time.Now()
	rc.emit(ctx, EventStepStart, observability.LevelVerbose, map[string]any{
		observability.AttrStepID: s.ID,
	})

	out, err := s.execute(ctx, input, rc, outer)

	data := map[string]any{
		observability.AttrStepID: s.ID,
		"duration_ms":            time.Since(start).Milliseconds(),
		"error":                  err != nil,
	}
	level := observability.LevelVerbose
	if err != nil {
		data["error_kind"] = string(classify(err))
		data["error_message"] = err.Error()
		level = observability.LevelWarning
	}
	rc.emit(ctx, EventStepComplete, level, data)

	if err != nil {
		return nil, err
	}
	rc.record(s.ID, out)
	return out, nil
}

func (s *Step) execute(ctx context.Context, input any, rc *RunContext, outer []Middleware) (any, error) {
	in, err := s.Input.Validate(input)
	if err != nil {
		return nil, newValidationError(rc.workflowID, s.ID, BoundaryInput, err)
	}

	out, err := s.invoke(ctx, in, rc, outer)
	if err != nil {
		return nil, err
	}

	validated, err := s.Output.Validate(out)
	if err != nil {
		return nil, newValidationError(rc.workflowID, s.ID, BoundaryOutput, err)
	}
	return validated, nil
}

func (s *Step) invoke(ctx context.Context, input any, rc *RunContext, outer []Middleware) (any, error) {
	handler := s.chain(rc, outer)

	if s.Timeout <= 0 {
		out, err := handler(ctx, input)
		if err != nil {
			return nil, rc.executionError(s.ID, err)
		}
		return out, nil
	}

	tctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	type outcome struct {
		out any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := handler(tctx, input)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
				return nil, &TimeoutError{StepID: s.ID, Timeout: s.Timeout}
			}
			return nil, rc.executionError(s.ID, o.err)
		}
		return o.out, nil
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			// Cancelled from outside: wait for the handler like an untimed
			// step. The stage bounds this wait with its grace period.
			<-done
			return nil, rc.executionError(s.ID, err)
		}
		return nil, &TimeoutError{StepID: s.ID, Timeout: s.Timeout}
	}
}

// chain builds the handler for one invocation. Workflow middleware wraps
// step middleware.
func (s *Step) chain(rc *RunContext, outer []Middleware) Handler {
	handler := Handler(func(ctx context.Context, input any) (any, error) {
		return s.Execute(ctx, input, rc)
	})

	all := make([]Middleware, 0, len(outer)+len(s.Middleware))
	all = append(all, outer...)
	all = append(all, s.Middleware...)

	for i := len(all) - 1; i >= 0; i-- {
		mw := all[i]
		next := handler
		handler = func(ctx context.Context, input any) (any, error) {
			return mw(ctx, s, input, rc, next)
		}
	}
	return handler
}
