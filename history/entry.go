// Package history records completed workflow runs.
//
// A Recorder is an observability.Observer that assembles one Entry per run
// from the workflow events and saves it to a Store when the run completes.
// Stores are in memory (bounded) or SQLite.
package history

import "time"

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry summarizes one workflow run.
type Entry struct {
	RunID      string        `json:"run_id"`
	WorkflowID string        `json:"workflow_id"`
	Status     Status        `json:"status"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`

	// Failure details; Stage is -1 for input validation failures.
	Stage     int    `json:"stage,omitempty"`
	StepID    string `json:"step_id,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	Steps []StepRecord `json:"steps,omitempty"`
}

// StepRecord is one step execution within a run, in completion order.
type StepRecord struct {
	StepID   string        `json:"step_id"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Filter narrows List results.
type Filter struct {
	WorkflowID string // empty matches every workflow
	Limit      int    // 0 = no limit
}
