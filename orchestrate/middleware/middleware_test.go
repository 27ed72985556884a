package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/middleware"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
	"github.com/tailored-agentic-units/flow/schema"
)

func run(t *testing.T, step *workflows.Step, mw ...workflows.Middleware) (workflows.Result, error) {
	t.Helper()
	wf := workflows.New("mw", schema.Any(), schema.Any(),
		workflows.WithObserver(observability.NoOpObserver{}),
		workflows.WithMiddleware(mw...),
	).Then(step)
	require.NoError(t, wf.Commit())
	return wf.Run(context.Background(), "input")
}

func TestRecover(t *testing.T) {
	t.Run("panic_becomes_error", func(t *testing.T) {
		step := workflows.NewStep("panics", schema.Any(), schema.Any(),
			func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
				panic("unexpected state")
			},
		)

		_, err := run(t, step, middleware.Recover())

		var panicErr *middleware.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "panics", panicErr.StepID)
		assert.Equal(t, "unexpected state", panicErr.Value)
		assert.NotEmpty(t, panicErr.Stack)

		var stageErr *workflows.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, workflows.FailureExecution, stageErr.Failure())
	})

	t.Run("panic_with_error_unwraps", func(t *testing.T) {
		cause := errors.New("nil map")
		step := workflows.NewStep("panics", schema.Any(), schema.Any(),
			func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
				panic(cause)
			},
		)

		_, err := run(t, step, middleware.Recover())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("inside_timeout", func(t *testing.T) {
		step := workflows.NewStep("panics", schema.Any(), schema.Any(),
			func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
				panic("late panic")
			},
			workflows.WithTimeout(time.Second),
		)

		_, err := run(t, step, middleware.Recover())

		var panicErr *middleware.PanicError
		assert.ErrorAs(t, err, &panicErr)
	})

	t.Run("no_panic_passes_through", func(t *testing.T) {
		step := workflows.NewStep("ok", schema.Any(), schema.Any(),
			func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
				return "done", nil
			},
		)

		result, err := run(t, step, middleware.Recover())
		require.NoError(t, err)
		assert.Equal(t, "done", result.Output)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("unlimited", func(t *testing.T) {
		step := workflows.NewStep("fast", schema.Any(), schema.Any(),
			func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
				return input, nil
			},
		)
		_, err := run(t, step, middleware.RateLimit(middleware.RateLimitConfig{}))
		assert.NoError(t, err)
	})

	t.Run("spaces_executions", func(t *testing.T) {
		limit := middleware.RateLimit(middleware.RateLimitConfig{Limit: 20, Burst: 1})
		steps := []*workflows.Step{
			workflows.NewStep("a", schema.Any(), schema.Any(), echo),
			workflows.NewStep("b", schema.Any(), schema.Any(), echo),
			workflows.NewStep("c", schema.Any(), schema.Any(), echo),
		}

		wf := workflows.New("limited", schema.Any(), schema.Any(),
			workflows.WithObserver(observability.NoOpObserver{}),
			workflows.WithMiddleware(limit),
		).Parallel(steps)
		require.NoError(t, wf.Commit())

		start := time.Now()
		_, err := wf.Run(context.Background(), "x")
		require.NoError(t, err)

		// Burst 1 at 20/s admits the second and third executions 50ms apart.
		assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("per_step_limiters_are_independent", func(t *testing.T) {
		limit := middleware.RateLimit(middleware.RateLimitConfig{Limit: 1, Burst: 1, PerStep: true})
		steps := []*workflows.Step{
			workflows.NewStep("a", schema.Any(), schema.Any(), echo),
			workflows.NewStep("b", schema.Any(), schema.Any(), echo),
		}

		wf := workflows.New("limited", schema.Any(), schema.Any(),
			workflows.WithObserver(observability.NoOpObserver{}),
			workflows.WithMiddleware(limit),
		).Parallel(steps)
		require.NoError(t, wf.Commit())

		start := time.Now()
		_, err := wf.Run(context.Background(), "x")
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("cancelled_while_waiting", func(t *testing.T) {
		limit := middleware.RateLimit(middleware.RateLimitConfig{Limit: 0.1, Burst: 1})
		calls := 0
		step := workflows.NewStep("slow", schema.Any(), schema.Any(),
			func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
				calls++
				return input, nil
			},
		)

		wf := workflows.New("limited", schema.Any(), schema.Any(),
			workflows.WithObserver(observability.NoOpObserver{}),
			workflows.WithMiddleware(limit),
		).Then(step)
		require.NoError(t, wf.Commit())

		_, err := wf.Run(context.Background(), "x")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = wf.Run(ctx, "x")

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := workflows.NewStep("ok", schema.Any(), schema.Any(), echo)
	result, err := run(t, ok, middleware.Logging(logger))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "step completed")
	assert.Contains(t, out, "step_id=ok")
	assert.Contains(t, out, "run_id="+result.RunID)

	buf.Reset()
	failing := workflows.NewStep("bad", schema.Any(), schema.Any(),
		func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
			return nil, errors.New("boom")
		},
	)
	_, err = run(t, failing, middleware.Logging(logger))
	require.Error(t, err)

	out = buf.String()
	assert.True(t, strings.Contains(out, "level=WARN"), out)
	assert.Contains(t, out, "error=boom")
}

func echo(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
	return input, nil
}
