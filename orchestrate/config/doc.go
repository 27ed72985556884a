// Package config provides configuration structures for workflow execution.
//
// This package defines configuration types for workflow graphs and the
// concurrent stages inside them, establishing sensible defaults while
// allowing customization through JSON or YAML files.
//
// # Workflow Configuration
//
// WorkflowConfig bundles the settings a workflow graph reads when it is
// constructed:
//
//	cfg := config.DefaultWorkflowConfig()
//	// Observer: "slog"
//	// GracePeriod: 5s
//	// Parallel: auto-sized worker pool, fail-fast
//	// Branch: unbounded concurrency, fail-fast
//
//	wf := workflows.New("content", input, output, workflows.WithConfig(cfg))
//
// # Design Principles
//
//   - Configuration only exists during initialization
//   - Does not persist into runtime components
//   - Validation happens at point of use (workflows package)
//   - No circular dependencies with domain packages
//
// # Configuration Merging
//
// All configuration types support a Merge pattern shared by every configurable component.
// This enables layered configuration where loaded configs merge over defaults:
//
//	cfg := config.DefaultWorkflowConfig()
//	var loaded config.WorkflowConfig
//	yaml.Unmarshal(data, &loaded)
//	cfg.Merge(&loaded)
//
// Merge semantics by field type:
//
//   - Strings: Merge if source is non-empty
//   - Integers: Merge if source is greater than zero
//   - Durations: Merge if source is greater than zero
//   - Pointers: Merge if source is non-nil
//   - Nested configs: Recursive merge
//
// # Boolean Fields with Non-False Defaults
//
// For boolean fields where the default is true (e.g., ParallelConfig.FailFast),
// a pointer type (*bool) is used with an accessor method to distinguish between:
//
//   - nil: Field not specified, accessor returns default value
//   - &false: Explicitly set to false, accessor returns false
//   - &true: Explicitly set to true, accessor returns true
//
// The convention is to name the field with a "Nil" suffix (e.g., FailFastNil)
// and provide an accessor method with the original name (e.g., FailFast()):
//
//	type ParallelConfig struct {
//	    FailFastNil *bool `json:"fail_fast" yaml:"fail_fast"`
//	}
//
//	func (c *ParallelConfig) FailFast() bool {
//	    if c.FailFastNil == nil {
//	        return true  // default
//	    }
//	    return *c.FailFastNil
//	}
//
// This prevents unintended behavior when unmarshaling partial JSON configs,
// where unspecified boolean fields would otherwise unmarshal to false and
// incorrectly override a true default.
//
// Example:
//
//	// Config file omits fail_fast entirely
//	{"max_workers": 4}
//
//	// Without *bool: FailFast becomes false (zero value), overriding default
//	// With *bool: FailFastNil is nil, FailFast() returns true (default)
//
// For boolean fields with false defaults, plain bool is sufficient since
// the zero value matches the default and only explicit true values need merging.
package config
