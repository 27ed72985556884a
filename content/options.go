package content

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// Option configures the steps built by NewSteps.
type Option func(*options)

type options struct {
	latency bool
	seed    *uint64
	faults  map[string]error
}

// WithLatency enables the simulated processing delays of each step. The
// delays honor context cancellation.
func WithLatency(enabled bool) Option {
	return func(o *options) { o.latency = enabled }
}

// WithSeed makes the randomized scores deterministic.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithFault makes the step with stepID fail with err instead of executing.
func WithFault(stepID string, err error) Option {
	return func(o *options) {
		if o.faults == nil {
			o.faults = make(map[string]error)
		}
		o.faults[stepID] = err
	}
}

// source is a goroutine-safe random source. Each randomized step owns one
// so concurrent siblings draw reproducible sequences.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSource(seed *uint64, stream uint64) *source {
	if seed == nil {
		return &source{rng: rand.New(rand.NewPCG(rand.Uint64(), stream))}
	}
	return &source{rng: rand.New(rand.NewPCG(*seed, stream))}
}

func (s *source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// pause waits d when latency is enabled.
func (o *options) pause(ctx context.Context, d time.Duration) error {
	if !o.latency {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fault(err error) workflows.Middleware {
	return func(ctx context.Context, step *workflows.Step, input any, rc *workflows.RunContext, next workflows.Handler) (any, error) {
		return nil, err
	}
}
