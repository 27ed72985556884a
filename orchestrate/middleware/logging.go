package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// Logging writes one record per step execution to logger: debug on
// success, warn on failure. A nil logger uses slog.Default.
func Logging(logger *slog.Logger) workflows.Middleware {
	return func(ctx context.Context, step *workflows.Step, input any, rc *workflows.RunContext, next workflows.Handler) (any, error) {
		l := logger
		if l == nil {
			l = slog.Default()
		}

		start := time.Now()
		out, err := next(ctx, input)

		attrs := []slog.Attr{
			slog.String(observability.AttrRunID, rc.RunID()),
			slog.String(observability.AttrWorkflowID, rc.WorkflowID()),
			slog.String(observability.AttrStepID, step.ID),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			l.LogAttrs(ctx, slog.LevelWarn, "step failed", attrs...)
			return out, err
		}
		l.LogAttrs(ctx, slog.LevelDebug, "step completed", attrs...)
		return out, nil
	}
}
