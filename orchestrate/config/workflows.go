package config

import "time"

// ChainConfig defines configuration for sequential stage execution.
type ChainConfig struct {
	// CaptureIntermediateStates determines whether the value flowing out of
	// every stage is kept on the run result. Index 0 is the validated
	// workflow input, index N the output of stage N.
	CaptureIntermediateStates bool `json:"capture_intermediate_states" yaml:"capture_intermediate_states"`
}

// DefaultChainConfig returns sensible defaults for chain execution.
//
// Intermediate state capture is disabled by default to minimize memory usage.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		CaptureIntermediateStates: false,
	}
}

func (c *ChainConfig) Merge(source *ChainConfig) {
	if source.CaptureIntermediateStates {
		c.CaptureIntermediateStates = source.CaptureIntermediateStates
	}
}

// ParallelConfig defines configuration for parallel stages.
//
// Worker Pool Sizing:
//   - MaxWorkers = 0: Auto-detect based on runtime.NumCPU() * 2, capped by WorkerCap
//   - MaxWorkers > 0: Use exact worker count, ignoring auto-detection
//   - WorkerCap: Maximum workers for auto-detection (prevents excessive goroutines)
//
// Error Handling:
//   - FailFast = true: First step failure cancels the in-flight siblings
//   - FailFast = false: Every step runs to completion, failures are aggregated
//
// Example YAML:
//
//	parallel:
//	  max_workers: 4
//	  worker_cap: 16
//	  fail_fast: false
type ParallelConfig struct {
	// MaxWorkers specifies exact worker pool size (0 = auto-detect)
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// WorkerCap limits auto-detected workers (default: 16)
	WorkerCap int `json:"worker_cap" yaml:"worker_cap"`

	// FailFastNil controls error handling behavior. Use FailFast() method to access.
	// When nil, defaults to true. Use pointer to distinguish unset from explicit false.
	FailFastNil *bool `json:"fail_fast" yaml:"fail_fast"`

	// GracePeriod bounds the wait for cancelled steps after a fail-fast
	// failure (0 = wait until every step returns)
	GracePeriod Duration `json:"grace_period" yaml:"grace_period"`
}

func (c *ParallelConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

// DefaultParallelConfig returns sensible defaults for parallel stages.
//
// Default configuration:
//   - MaxWorkers: 0 (auto-detect: min(NumCPU*2, WorkerCap, len(steps)))
//   - WorkerCap: 16
//   - FailFast: true
func DefaultParallelConfig() ParallelConfig {
	failFast := true
	return ParallelConfig{
		MaxWorkers:  0,
		WorkerCap:   16,
		FailFastNil: &failFast,
	}
}

func (c *ParallelConfig) Merge(source *ParallelConfig) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}

	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}

	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}

	if source.GracePeriod > 0 {
		c.GracePeriod = source.GracePeriod
	}
}

// BranchConfig defines configuration for branch stages. Every matching
// branch runs, so the same fail-fast / collect-all choice applies as for
// parallel stages.
type BranchConfig struct {
	// MaxConcurrency bounds how many matched steps run at once (0 = unbounded)
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// FailFastNil controls error handling behavior. Use FailFast() method to access.
	FailFastNil *bool `json:"fail_fast" yaml:"fail_fast"`

	// GracePeriod bounds the wait for cancelled steps after a fail-fast
	// failure (0 = wait until every step returns)
	GracePeriod Duration `json:"grace_period" yaml:"grace_period"`
}

func (c *BranchConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

func DefaultBranchConfig() BranchConfig {
	failFast := true
	return BranchConfig{
		MaxConcurrency: 0,
		FailFastNil:    &failFast,
	}
}

func (c *BranchConfig) Merge(source *BranchConfig) {
	if source.MaxConcurrency > 0 {
		c.MaxConcurrency = source.MaxConcurrency
	}

	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}

	if source.GracePeriod > 0 {
		c.GracePeriod = source.GracePeriod
	}
}

// WorkflowConfig defines configuration for a workflow graph. It is consumed
// when the workflow is constructed and does not persist into runs.
//
// Example YAML:
//
//	observer: slog
//	grace_period: 5s
//	strict_branches: false
//	chain:
//	  capture_intermediate_states: true
//	parallel:
//	  fail_fast: true
//	branch:
//	  max_concurrency: 4
type WorkflowConfig struct {
	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer"`

	// GracePeriod bounds how long a failing concurrent stage waits for
	// cancelled siblings to return before the error is propagated. It
	// applies to parallel and branch stages that do not set their own.
	GracePeriod Duration `json:"grace_period" yaml:"grace_period"`

	// StrictBranches turns the commit-time "branch output may be empty"
	// warning into a structural error.
	StrictBranches bool `json:"strict_branches" yaml:"strict_branches"`

	Chain    ChainConfig    `json:"chain" yaml:"chain"`
	Parallel ParallelConfig `json:"parallel" yaml:"parallel"`
	Branch   BranchConfig   `json:"branch" yaml:"branch"`
}

// DefaultWorkflowConfig returns sensible defaults for workflow execution.
//
// Default values:
//   - Observer: "slog"
//   - GracePeriod: 5s
//   - StrictBranches: false
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		Observer:    "slog",
		GracePeriod: Duration(5 * time.Second),
		Chain:       DefaultChainConfig(),
		Parallel:    DefaultParallelConfig(),
		Branch:      DefaultBranchConfig(),
	}
}

func (c *WorkflowConfig) Merge(source *WorkflowConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.GracePeriod > 0 {
		c.GracePeriod = source.GracePeriod
	}

	if source.StrictBranches {
		c.StrictBranches = source.StrictBranches
	}

	c.Chain.Merge(&source.Chain)
	c.Parallel.Merge(&source.Parallel)
	c.Branch.Merge(&source.Branch)
}
