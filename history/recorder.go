package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// Recorder is an observer that turns workflow run events into entries.
// Runs in flight are held in memory and saved when their run.complete
// event arrives. Save failures are logged, never propagated to the run.
type Recorder struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*Entry
}

var _ observability.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder writing to store. A nil logger uses
// slog.Default.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		logger:  logger,
		pending: make(map[string]*Entry),
	}
}

func (r *Recorder) OnEvent(ctx context.Context, event observability.Event) {
	runID := event.String(observability.AttrRunID)
	if runID == "" {
		return
	}

	switch event.Type {
	case workflows.EventRunStart:
		r.mu.Lock()
		r.pending[runID] = &Entry{
			RunID:      runID,
			WorkflowID: event.String(observability.AttrWorkflowID),
			Started:    event.Timestamp,
		}
		r.mu.Unlock()

	case workflows.EventStepComplete:
		r.mu.Lock()
		if entry, ok := r.pending[runID]; ok {
			entry.Steps = append(entry.Steps, StepRecord{
				StepID:   event.String(observability.AttrStepID),
				Duration: millis(event.Data["duration_ms"]),
				Error:    event.String("error_message"),
			})
		}
		r.mu.Unlock()

	case workflows.EventRunComplete:
		r.mu.Lock()
		entry, ok := r.pending[runID]
		delete(r.pending, runID)
		r.mu.Unlock()
		if !ok {
			return
		}

		entry.Duration = millis(event.Data["duration_ms"])
		entry.Status = StatusSucceeded
		if failed, _ := event.Data["error"].(bool); failed {
			entry.Status = StatusFailed
			entry.Stage, _ = event.Data[observability.AttrStage].(int)
			entry.StepID = event.String(observability.AttrStepID)
			entry.ErrorKind = event.String("error_kind")
			entry.Error = event.String("error_message")
		}

		if err := r.store.Save(context.WithoutCancel(ctx), *entry); err != nil {
			r.logger.WarnContext(ctx, "history save failed",
				slog.String(observability.AttrRunID, runID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Pending returns the number of runs started but not yet completed.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func millis(v any) time.Duration {
	switch n := v.(type) {
	case int64:
		return time.Duration(n) * time.Millisecond
	case int:
		return time.Duration(n) * time.Millisecond
	case float64:
		return time.Duration(n * float64(time.Millisecond))
	}
	return 0
}
