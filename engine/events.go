package engine

import "github.com/tailored-agentic-units/flow/observability"

// Engine event types.
const (
	EventWorkflowRegistered observability.EventType = "engine.workflow.registered"
	EventRunRejected        observability.EventType = "engine.run.rejected"
)
