package workflows_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/config"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// timedStep returns its id after delay, or err when set. A cooperative
// step stops early on cancellation; an uncooperative one always sleeps.
func timedStep(id string, delay time.Duration, err error, cooperative bool) *workflows.Step {
	return &workflows.Step{
		ID: id,
		Execute: func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
			if cooperative {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
			} else {
				time.Sleep(delay)
			}
			if err != nil {
				return nil, err
			}
			return id, nil
		},
	}
}

func fanOut(ctx context.Context, step *workflows.Step) (any, error) {
	return step.Execute(ctx, "upstream", nil)
}

func collectAll() config.ParallelConfig {
	failFast := false
	cfg := config.DefaultParallelConfig()
	cfg.FailFastNil = &failFast
	return cfg
}

func stepIDs(steps []*workflows.Step, indexes []int) []string {
	ids := make([]string, len(indexes))
	for i, idx := range indexes {
		ids[i] = steps[idx].ID
	}
	return ids
}

func errorIDs(errs []workflows.ItemError[*workflows.Step]) []string {
	ids := make([]string, len(errs))
	for i, e := range errs {
		ids[i] = e.Item.ID
	}
	return ids
}

func TestProcessParallel_DeclaredOrder(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		steps       []*workflows.Step
		wantResults []string
		wantErrors  []string
	}{
		{
			name: "results follow declaration not completion",
			steps: []*workflows.Step{
				timedStep("seo", 40*time.Millisecond, nil, true),
				timedStep("readability", 20*time.Millisecond, nil, true),
				timedStep("sentiment", 0, nil, true),
			},
			wantResults: []string{"seo", "readability", "sentiment"},
		},
		{
			name: "failures follow declaration not completion",
			steps: []*workflows.Step{
				timedStep("seo", 40*time.Millisecond, boom, true),
				timedStep("readability", 0, nil, true),
				timedStep("sentiment", 0, boom, true),
			},
			wantResults: []string{"readability"},
			wantErrors:  []string{"seo", "sentiment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := workflows.ProcessParallel(context.Background(), collectAll(), noop, tt.steps, fanOut, nil)

			if got := stepIDs(tt.steps, result.Indexes); strings.Join(got, ",") != strings.Join(tt.wantResults, ",") {
				t.Errorf("Indexes name %v, want %v", got, tt.wantResults)
			}
			for i, r := range result.Results {
				if r != tt.steps[result.Indexes[i]].ID {
					t.Errorf("Results[%d] = %v, want output of %s", i, r, tt.steps[result.Indexes[i]].ID)
				}
			}

			if got := errorIDs(result.Errors); strings.Join(got, ",") != strings.Join(tt.wantErrors, ",") {
				t.Errorf("Errors name %v, want %v", got, tt.wantErrors)
			}
			if (err != nil) != (len(tt.wantErrors) > 0) {
				t.Errorf("ProcessParallel() error = %v, want error %v", err, len(tt.wantErrors) > 0)
			}
		})
	}
}

func TestProcessParallel_FirstFailure(t *testing.T) {
	early := errors.New("early")
	late := errors.New("late")

	tests := []struct {
		name       string
		cfg        config.ParallelConfig
		wantFirst  string
		wantErr    error
		wantErrors []string
	}{
		{
			name:       "fail fast keeps the originating failure",
			cfg:        config.DefaultParallelConfig(),
			wantFirst:  "sentiment",
			wantErr:    early,
			wantErrors: []string{"seo", "sentiment"},
		},
		{
			name:       "collect all reports earliest completion",
			cfg:        collectAll(),
			wantFirst:  "sentiment",
			wantErr:    early,
			wantErrors: []string{"seo", "sentiment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := []*workflows.Step{
				timedStep("seo", 60*time.Millisecond, late, false),
				timedStep("readability", 0, nil, true),
				timedStep("sentiment", 10*time.Millisecond, early, true),
			}

			result, err := workflows.ProcessParallel(context.Background(), tt.cfg, noop, steps, fanOut, nil)

			var pErr *workflows.ParallelError[*workflows.Step]
			if !errors.As(err, &pErr) {
				t.Fatalf("ProcessParallel() error = %T, want *ParallelError", err)
			}
			if result.First == nil {
				t.Fatal("First = nil, want originating failure")
			}
			if result.First.Item.ID != tt.wantFirst || result.First.Index != 2 {
				t.Errorf("First = %s at %d, want %s at 2", result.First.Item.ID, result.First.Index, tt.wantFirst)
			}
			if !errors.Is(result.First.Err, tt.wantErr) {
				t.Errorf("First.Err = %v, want %v", result.First.Err, tt.wantErr)
			}
			if got := errorIDs(result.Errors); strings.Join(got, ",") != strings.Join(tt.wantErrors, ",") {
				t.Errorf("Errors name %v, want %v", got, tt.wantErrors)
			}
		})
	}
}

func TestProcessParallel_GracePeriod(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name          string
		grace         time.Duration
		wantAbandoned bool
		wantFinished  bool
	}{
		{name: "expired grace abandons", grace: 30 * time.Millisecond, wantAbandoned: true, wantFinished: false},
		{name: "zero grace waits for every step", grace: 0, wantAbandoned: false, wantFinished: true},
		{name: "ample grace waits for every step", grace: 5 * time.Second, wantAbandoned: false, wantFinished: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var finished atomic.Bool
			stuck := &workflows.Step{
				ID: "stuck",
				Execute: func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
					time.Sleep(200 * time.Millisecond)
					finished.Store(true)
					return "late", nil
				},
			}
			steps := []*workflows.Step{stuck, timedStep("fails", 0, boom, true)}

			cfg := config.DefaultParallelConfig()
			cfg.GracePeriod = config.Duration(tt.grace)

			result, err := workflows.ProcessParallel(context.Background(), cfg, noop, steps, fanOut, nil)

			if !errors.Is(err, boom) {
				t.Fatalf("ProcessParallel() error = %v, want %v", err, boom)
			}
			if result.Abandoned != tt.wantAbandoned {
				t.Errorf("Abandoned = %v, want %v", result.Abandoned, tt.wantAbandoned)
			}
			if finished.Load() != tt.wantFinished {
				t.Errorf("stuck step finished at return = %v, want %v", finished.Load(), tt.wantFinished)
			}
			if result.First == nil || result.First.Item.ID != "fails" {
				t.Errorf("First = %v, want fails", result.First)
			}
			if tt.wantAbandoned && len(result.Results) != 0 {
				t.Errorf("abandoned Results = %v, want none", result.Results)
			}
		})
	}
}

func TestProcessParallel_AbandonEvent(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stuck := &workflows.Step{
		ID: "stuck",
		Execute: func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
			<-release
			return nil, nil
		},
	}

	cfg := config.DefaultParallelConfig()
	cfg.GracePeriod = config.Duration(20 * time.Millisecond)
	recorder := observability.NewRecorder()

	workflows.ProcessParallel(context.Background(), cfg, recorder,
		[]*workflows.Step{stuck, timedStep("fails", 0, errors.New("boom"), true)}, fanOut, nil)

	complete := recorder.OfType(workflows.EventParallelComplete)
	if len(complete) != 1 {
		t.Fatalf("got %d %s events, want 1", len(complete), workflows.EventParallelComplete)
	}
	if complete[0].Data["abandoned"] != true {
		t.Errorf("abandoned = %v, want true", complete[0].Data["abandoned"])
	}
	if complete[0].Level != observability.LevelWarning {
		t.Errorf("level = %v, want %v", complete[0].Level, observability.LevelWarning)
	}
}

func TestProcessParallel_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	steps := []*workflows.Step{
		timedStep("a", 5*time.Second, nil, true),
		timedStep("b", 5*time.Second, nil, true),
	}

	start := time.Now()
	_, err := workflows.ProcessParallel(ctx, config.DefaultParallelConfig(), noop, steps, fanOut, nil)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ProcessParallel() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}

func TestProcessParallel_WorkerSizing(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ParallelConfig
		items    int
		wantPeak int
	}{
		{name: "single worker serializes", cfg: config.ParallelConfig{MaxWorkers: 1}, items: 4, wantPeak: 1},
		{name: "explicit worker count", cfg: config.ParallelConfig{MaxWorkers: 2}, items: 6, wantPeak: 2},
		{name: "worker cap bounds auto sizing", cfg: config.ParallelConfig{WorkerCap: 1}, items: 4, wantPeak: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var active, peak atomic.Int32
			var mu sync.Mutex

			steps := make([]*workflows.Step, tt.items)
			for i := range steps {
				steps[i] = &workflows.Step{
					ID: string(rune('a' + i)),
					Execute: func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
						n := active.Add(1)
						mu.Lock()
						if n > peak.Load() {
							peak.Store(n)
						}
						mu.Unlock()
						time.Sleep(15 * time.Millisecond)
						active.Add(-1)
						return nil, nil
					},
				}
			}

			result, err := workflows.ProcessParallel(context.Background(), tt.cfg, noop, steps, fanOut, nil)
			if err != nil {
				t.Fatalf("ProcessParallel() error = %v", err)
			}
			if len(result.Results) != tt.items {
				t.Errorf("len(Results) = %d, want %d", len(result.Results), tt.items)
			}
			if got := int(peak.Load()); got > tt.wantPeak {
				t.Errorf("peak concurrency = %d, want at most %d", got, tt.wantPeak)
			}
		})
	}
}

func TestProcessParallel_NoSteps(t *testing.T) {
	result, err := workflows.ProcessParallel(context.Background(), config.DefaultParallelConfig(), nil,
		[]*workflows.Step{}, fanOut, nil)
	if err != nil {
		t.Fatalf("ProcessParallel() error = %v", err)
	}
	if result.Results == nil || len(result.Results) != 0 || result.First != nil {
		t.Errorf("result = %+v, want empty non-nil Results and no failure", result)
	}
}

func TestProcessParallel_ProgressCountsSuccesses(t *testing.T) {
	steps := []*workflows.Step{
		timedStep("a", 0, nil, true),
		timedStep("b", 0, errors.New("boom"), true),
		timedStep("c", 0, nil, true),
	}

	var calls atomic.Int32
	var mu sync.Mutex
	var totals []int
	progress := func(completed, total int, value any) {
		calls.Add(1)
		mu.Lock()
		totals = append(totals, total)
		mu.Unlock()
	}

	workflows.ProcessParallel(context.Background(), collectAll(), noop, steps, fanOut, progress)

	if calls.Load() != 2 {
		t.Errorf("progress calls = %d, want 2", calls.Load())
	}
	for _, total := range totals {
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
	}
}

func TestParallelError_Error(t *testing.T) {
	a := &workflows.Step{ID: "a"}
	b := &workflows.Step{ID: "b"}
	c := &workflows.Step{ID: "c"}
	boom := errors.New("boom")

	tests := []struct {
		name   string
		errs   []workflows.ItemError[*workflows.Step]
		want   []string
		unwrap error
	}{
		{
			name: "none",
			want: []string{"parallel execution failed"},
		},
		{
			name:   "single",
			errs:   []workflows.ItemError[*workflows.Step]{{Index: 2, Item: c, Err: boom}},
			want:   []string{"parallel execution failed: item 2: boom"},
			unwrap: boom,
		},
		{
			name: "grouped by message",
			errs: []workflows.ItemError[*workflows.Step]{
				{Index: 0, Item: a, Err: boom},
				{Index: 1, Item: b, Err: boom},
				{Index: 2, Item: c, Err: errors.New("offline")},
			},
			want:   []string{"3 items failed with 2 error types", "'boom' (2 items)", "'offline' (1 item)"},
			unwrap: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &workflows.ParallelError[*workflows.Step]{Errors: tt.errs}
			for _, part := range tt.want {
				if !strings.Contains(err.Error(), part) {
					t.Errorf("Error() = %q, missing %q", err.Error(), part)
				}
			}
			if tt.unwrap != nil && !errors.Is(err, tt.unwrap) {
				t.Errorf("errors.Is(%v) = false", tt.unwrap)
			}
		})
	}
}
