package workflows

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/flow/observability"
)

// RunContext is the per-run state shared by every step of one workflow run.
// It is created by Workflow.Run, never shared between runs, and safe for
// concurrent use by sibling steps of a parallel or branch stage.
type RunContext struct {
	runID      string
	workflowID string
	input      any
	observer   observability.Observer

	mu         sync.RWMutex
	stage      int
	stageInput any
	outputs    map[string]any
}

func newRunContext(workflowID string, observer observability.Observer) *RunContext {
	runID := uuid.New().String()
	return &RunContext{
		runID:      runID,
		workflowID: workflowID,
		observer: observability.WithAttrs(observer, map[string]any{
			observability.AttrRunID:      runID,
			observability.AttrWorkflowID: workflowID,
		}),
		outputs: make(map[string]any),
	}
}

func (rc *RunContext) RunID() string { return rc.runID }
func (rc *RunContext) WorkflowID() string { return rc.workflowID }

// Input returns the validated workflow input.
func (rc *RunContext) Input() any { return rc.input }

// Stage returns the index of the stage currently running.
func (rc *RunContext) Stage() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.stage
}

// StageInput returns the value the current stage received from upstream.
func (rc *RunContext) StageInput() any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.stageInput
}

// StepOutput returns the validated output of a step that already completed
// in this run.
func (rc *RunContext) StepOutput(stepID string) (any, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	out, ok := rc.outputs[stepID]
	return out, ok
}

// Outputs returns a snapshot of every completed step output keyed by step id.
func (rc *RunContext) Outputs() map[string]any {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return maps.Clone(rc.outputs)
}

// Emit publishes an application event from inside a step. The event carries
// the run and workflow ids.
func (rc *RunContext) Emit(ctx context.Context, eventType observability.EventType, data map[string]any) {
	rc.emit(ctx, eventType, observability.LevelInfo, data)
}

// Log publishes a step.emit event with a message attribute.
func (rc *RunContext) Log(ctx context.Context, stepID, message string, data map[string]any) {
	attrs := make(map[string]any, len(data)+2)
	maps.Copy(attrs, data)
	attrs[observability.AttrStepID] = stepID
	attrs["message"] = message
	rc.emit(ctx, EventStepEmit, observability.LevelInfo, attrs)
}

func (rc *RunContext) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	rc.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "workflows." + rc.workflowID,
		Data:      data,
	})
}

func (rc *RunContext) enterStage(stage int, input any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.stage = stage
	rc.stageInput = input
}

func (rc *RunContext) record(stepID string, output any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.outputs[stepID] = output
}

func (rc *RunContext) executionError(stepID string, err error) error {
	return &StepExecutionError{
		RunID:      rc.runID,
		WorkflowID: rc.workflowID,
		StepID:     stepID,
		Err:        err,
	}
}
