package middleware

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// RateLimitConfig bounds how often wrapped steps execute.
type RateLimitConfig struct {
	// Limit is the sustained rate in executions per second (0 = unlimited)
	Limit float64 `json:"limit" yaml:"limit"`

	// Burst is the number of executions allowed at once (default 1)
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`

	// PerStep gives every step id its own limiter instead of one shared
	// limiter for all wrapped steps.
	PerStep bool `json:"per_step,omitempty" yaml:"per_step,omitempty"`
}

// RateLimit delays step execution until the limiter admits it. Waiting
// honors context cancellation; a step cancelled while waiting never runs.
func RateLimit(cfg RateLimitConfig) workflows.Middleware {
	if cfg.Limit <= 0 {
		return passthrough
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	var (
		mu       sync.Mutex
		shared   = rate.NewLimiter(rate.Limit(cfg.Limit), burst)
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(stepID string) *rate.Limiter {
		if !cfg.PerStep {
			return shared
		}
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[stepID]
		if !ok {
			l = rate.NewLimiter(rate.Limit(cfg.Limit), burst)
			limiters[stepID] = l
		}
		return l
	}

	return func(ctx context.Context, step *workflows.Step, input any, rc *workflows.RunContext, next workflows.Handler) (any, error) {
		if err := limiterFor(step.ID).Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		return next(ctx, input)
	}
}

func passthrough(ctx context.Context, step *workflows.Step, input any, rc *workflows.RunContext, next workflows.Handler) (any, error) {
	return next(ctx, input)
}
