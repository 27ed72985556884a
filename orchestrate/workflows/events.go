package workflows

import "github.com/tailored-agentic-units/flow/observability"

const (
	// Workflow lifecycle
	EventWorkflowCommit  observability.EventType = "workflow.commit"
	EventWorkflowWarning observability.EventType = "workflow.warning"
	EventRunStart        observability.EventType = "workflow.run.start"
	EventRunComplete     observability.EventType = "workflow.run.complete"

	// Sequential stage chain
	EventChainStart    observability.EventType = "chain.start"
	EventChainComplete observability.EventType = "chain.complete"
	EventStageStart    observability.EventType = "stage.start"
	EventStageComplete observability.EventType = "stage.complete"

	// Step execution
	EventStepStart    observability.EventType = "step.start"
	EventStepComplete observability.EventType = "step.complete"
	EventStepEmit     observability.EventType = "step.emit"

	// Parallel execution
	EventParallelStart    observability.EventType = "parallel.start"
	EventParallelComplete observability.EventType = "parallel.complete"
	EventWorkerStart      observability.EventType = "worker.start"
	EventWorkerComplete   observability.EventType = "worker.complete"

	// Branch routing
	EventBranchEvaluate observability.EventType = "branch.evaluate"
	EventBranchSelect   observability.EventType = "branch.select"
	EventBranchComplete observability.EventType = "branch.complete"
)
