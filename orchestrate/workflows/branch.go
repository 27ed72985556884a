package workflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/config"
)

// Predicate decides whether a branch case applies to the upstream value.
type Predicate func(ctx context.Context, input any) (bool, error)

// BranchCase pairs a predicate with the step it routes to.
type BranchCase struct {
	When Predicate
	Step *Step
}

// When builds a BranchCase.
func When(predicate Predicate, step *Step) BranchCase {
	return BranchCase{When: predicate, Step: step}
}

// Always is a predicate that matches every input.
func Always(context.Context, any) (bool, error) {
	return true, nil
}

// StepRunner executes one step of a concurrent stage against the shared
// upstream value.
type StepRunner func(ctx context.Context, step *Step) (any, error)

// ProcessBranch routes upstream to every case whose predicate holds.
//
// Predicates are evaluated in declared order against the same upstream
// value. A predicate error aborts the stage with a *PredicateError before
// any target runs. A case without a predicate or step is rejected with a
// *StructuralError before any predicate is evaluated. Every matched target
// then runs concurrently through run; the result maps each matched step id
// to its output. Zero matches produce an empty map and run nothing.
//
// Error Handling Modes:
//
// FailFast=true (default):
//   - The first failing target cancels the others
//   - Cancelled targets are awaited for at most cfg.GracePeriod
//   - The originating error is returned
//
// FailFast=false:
//   - Every matched target runs to completion
//   - Any failure yields an *AggregateError listing each failing step
//
// Observer Integration:
//   - EventBranchEvaluate: After each predicate
//   - EventBranchSelect: Once all predicates are evaluated
//   - EventBranchComplete: When every target has returned
func ProcessBranch(
	ctx context.Context,
	cfg config.BranchConfig,
	observer observability.Observer,
	cases []BranchCase,
	upstream any,
	run StepRunner,
) (map[string]any, error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	for i, c := range cases {
		switch {
		case c.When == nil:
			return nil, &StructuralError{Stage: -1, Err: ErrInvalidStep,
				Detail: fmt.Sprintf("branch case %d has no predicate", i)}
		case c.Step == nil:
			return nil, &StructuralError{Stage: -1, Err: ErrUnknownStep,
				Detail: fmt.Sprintf("branch case %d has no step", i)}
		}
	}

	var matched []*Step
	for i, c := range cases {
		ok, err := c.When(ctx, upstream)

		observer.OnEvent(ctx, observability.Event{
			Type:      EventBranchEvaluate,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessBranch",
			Data: map[string]any{
				"case":                   i,
				observability.AttrStepID: stepID(c.Step),
				"matched":                ok && err == nil,
				"error":                  err != nil,
			},
		})

		if err != nil {
			return nil, &PredicateError{Case: i, StepID: stepID(c.Step), Err: err}
		}
		if ok {
			matched = append(matched, c.Step)
		}
	}

	ids := make([]string, len(matched))
	for i, s := range matched {
		ids[i] = s.ID
	}
	observer.OnEvent(ctx, observability.Event{
		Type:      EventBranchSelect,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "workflows.ProcessBranch",
		Data: map[string]any{
			"cases":   len(cases),
			"matched": ids,
		},
	})

	results := make(map[string]any, len(matched))
	if len(matched) == 0 {
		observer.OnEvent(ctx, observability.Event{
			Type:      EventBranchComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessBranch",
			Data:      map[string]any{"matched": 0, "error": false},
		})
		return results, nil
	}

	var err error
	if cfg.FailFast() {
		err = dispatchFailFast(ctx, cfg, matched, run, results)
	} else {
		err = dispatchCollectAll(ctx, cfg, matched, run, results)
	}

	observer.OnEvent(ctx, observability.Event{
		Type:      EventBranchComplete,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "workflows.ProcessBranch",
		Data: map[string]any{
			"matched": len(matched),
			"error":   err != nil,
		},
	})

	if err != nil {
		return nil, err
	}
	return results, nil
}

func dispatchFailFast(
	ctx context.Context,
	cfg config.BranchConfig,
	steps []*Step,
	run StepRunner,
	results map[string]any,
) error {
	g, gctx := errgroup.WithContext(ctx)
	if cfg.MaxConcurrency > 0 {
		g.SetLimit(cfg.MaxConcurrency)
	}

	var (
		mu    sync.Mutex
		first error
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if first == nil {
			first = err
		}
	}
	originating := func() error {
		mu.Lock()
		defer mu.Unlock()
		return first
	}

	for _, step := range steps {
		g.Go(func() error {
			out, err := run(gctx, step)
			if err != nil {
				if gctx.Err() == nil || !errors.Is(err, context.Canceled) {
					record(err)
				}
				return err
			}
			mu.Lock()
			results[step.ID] = out
			mu.Unlock()
			return nil
		})
	}

	waited := make(chan error, 1)
	go func() {
		waited <- g.Wait()
	}()

	var err error
	select {
	case err = <-waited:
	case <-gctx.Done():
		var expired <-chan time.Time
		if grace := cfg.GracePeriod.Std(); grace > 0 {
			timer := time.NewTimer(grace)
			defer timer.Stop()
			expired = timer.C
		}
		select {
		case err = <-waited:
		case <-expired:
			if err = originating(); err == nil {
				err = fmt.Errorf("branch cancelled: %w", context.Cause(gctx))
			}
			return err
		}
	}

	if err != nil {
		if f := originating(); f != nil {
			return f
		}
	}
	return err
}

func dispatchCollectAll(
	ctx context.Context,
	cfg config.BranchConfig,
	steps []*Step,
	run StepRunner,
	results map[string]any,
) error {
	var g errgroup.Group
	if cfg.MaxConcurrency > 0 {
		g.SetLimit(cfg.MaxConcurrency)
	}

	var mu sync.Mutex
	failures := make(map[string]error)

	for _, step := range steps {
		g.Go(func() error {
			out, err := run(ctx, step)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[step.ID] = err
				return nil
			}
			results[step.ID] = out
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}

	agg := &AggregateError{Total: len(steps)}
	for _, step := range steps {
		if err, ok := failures[step.ID]; ok {
			agg.Errors = append(agg.Errors, TaskError{StepID: step.ID, Err: err})
		}
	}
	return agg
}

func stepID(s *Step) string {
	if s == nil {
		return ""
	}
	return s.ID
}
