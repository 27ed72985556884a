package workflows

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
)

// Result is the outcome of a successful run.
type Result struct {
	RunID      string
	WorkflowID string

	// Output is the terminal value, validated against the workflow output
	// contract.
	Output any

	// Steps holds the validated output of every step that ran, keyed by id.
	Steps map[string]any

	// Intermediate holds the value leaving each stage, preceded by the
	// validated input. Only populated when intermediate capture is enabled.
	Intermediate []any

	Duration time.Duration
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	observers []observability.Observer
	progress  ProgressFunc[any]
}

// WithRunObserver adds an observer for this run only, alongside the
// workflow's own.
func WithRunObserver(observer observability.Observer) RunOption {
	return func(o *runOptions) {
		o.observers = append(o.observers, observer)
	}
}

// WithProgress reports each completed stage with the value it produced.
func WithProgress(progress ProgressFunc[any]) RunOption {
	return func(o *runOptions) {
		o.progress = progress
	}
}

type indexedStage struct {
	index int
	stage stage
}

// Run executes the committed plan once.
//
// The input is validated against the workflow input contract, stages run
// strictly in order, and the terminal value is validated against the output
// contract. Running an uncommitted workflow returns a *StructuralError
// wrapping ErrNotCommitted before any step runs. Every other failure is a
// *StageError naming the stage, the step when attributable, and the typed
// cause.
func (w *Workflow) Run(ctx context.Context, input any, opts ...RunOption) (Result, error) {
	w.mu.RLock()
	committed := w.committed
	stages := slices.Clone(w.stages)
	w.mu.RUnlock()

	if !committed {
		return Result{}, w.structural(-1, ErrNotCommitted, "")
	}

	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	observer := w.observer
	if len(o.observers) > 0 {
		observer = observability.NewMultiObserver(append([]observability.Observer{w.observer}, o.observers...)...)
	}

	rc := newRunContext(w.id, observer)
	start := time.Now()

	rc.emit(ctx, EventRunStart, observability.LevelInfo, map[string]any{
		"stage_count": len(stages),
	})

	result, err := w.execute(ctx, rc, stages, input, o.progress)
	result.Duration = time.Since(start)

	data := map[string]any{
		"duration_ms": result.Duration.Milliseconds(),
		"error":       err != nil,
	}
	level := observability.LevelInfo
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		data[observability.AttrStage] = stageErr.Stage
		data[observability.AttrStepID] = stageErr.StepID
		data["error_kind"] = string(stageErr.Failure())
		data["error_message"] = err.Error()
		level = observability.LevelError
	}
	rc.emit(ctx, EventRunComplete, level, data)

	return result, err
}

func (w *Workflow) execute(
	ctx context.Context,
	rc *RunContext,
	stages []stage,
	input any,
	progress ProgressFunc[any],
) (Result, error) {
	result := Result{RunID: rc.runID, WorkflowID: w.id}

	validated, err := w.input.Validate(input)
	if err != nil {
		return result, w.stageError(rc, -1, "", newValidationError(w.id, "", BoundaryInput, err))
	}
	rc.input = validated

	items := make([]indexedStage, len(stages))
	for i, s := range stages {
		items[i] = indexedStage{index: i, stage: s}
	}

	processor := func(ctx context.Context, item indexedStage, current any) (any, error) {
		rc.enterStage(item.index, current)
		return item.stage.run(ctx, w, current, rc)
	}

	chain, err := ProcessChain(ctx, w.cfg.Chain, rc.observer, items, validated, processor, progress)
	result.Steps = rc.Outputs()
	result.Intermediate = chain.Intermediate

	if err != nil {
		var chainErr *ChainError[indexedStage, any]
		if errors.As(err, &chainErr) {
			s := chainErr.Item.stage
			return result, w.stageError(rc, chainErr.StepIndex, s.kind(), chainErr.Err)
		}
		return result, err
	}

	output, err := w.output.Validate(chain.Final)
	if err != nil {
		return result, w.stageError(rc, len(stages), "", newValidationError(w.id, "", BoundaryOutput, err))
	}
	result.Output = output

	return result, nil
}

func (w *Workflow) stageError(rc *RunContext, index int, kind StageKind, err error) error {
	return &StageError{
		WorkflowID: w.id,
		RunID:      rc.runID,
		Stage:      index,
		Kind:       kind,
		StepID:     stepIDOf(err),
		Err:        err,
	}
}
