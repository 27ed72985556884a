// Package workflows composes typed steps into committed execution plans.
//
// A Step is a named function with an input and an output schema.Contract.
// A Workflow arranges steps into stages that run strictly in order:
//
//   - Then: a single step receiving the previous stage's value
//   - Branch: every case whose predicate matches runs; the stage yields a
//     map keyed by the ids of the steps that ran (possibly empty)
//   - Parallel: every step runs concurrently on the same value; the stage
//     yields a map with exactly one entry per step id
//
// Example:
//
//	wf := workflows.New("content", input, output).
//	    Then(assess).
//	    Branch([]workflows.BranchCase{
//	        workflows.When(isShort, quick),
//	        workflows.When(isLong, deep),
//	    })
//	if err := wf.Commit(); err != nil {
//	    log.Fatal(err)
//	}
//	result, err := wf.Run(ctx, map[string]any{"content": "A great day."})
//
// # Contracts
//
// Every value crossing a step boundary is validated. Inputs are validated
// before a step executes and outputs before they reach the next stage; the
// normalized value (defaults applied, unknown keys stripped) is what flows
// on. Commit additionally checks adjacent contracts for mismatches that can
// be found without running anything.
//
// # Commit
//
// Builder calls never fail on their own. Problems are recorded and returned
// together by Commit: duplicate step ids, nil steps, empty stages, empty
// workflows and incompatible contracts. After a successful Commit the plan
// is immutable and further builder calls record ErrCommitted. A committed
// workflow may be run concurrently.
//
// # Concurrent Stages
//
// Branch and parallel stages share one error model, chosen per stage with
// WithErrorPolicy or for the workflow through config.WorkflowConfig:
//
// FailFast (default):
//   - The first failing step cancels its siblings' context
//   - Siblings are awaited for at most the configured grace period
//   - The originating step's error is returned
//
// CollectAll:
//   - Every sibling runs to completion
//   - Any failure yields an *AggregateError naming each failing step
//
// Parallel stages run on ProcessParallel, a generic worker pool sized as
//
//	workers = min(NumCPU * 2, WorkerCap, len(steps))
//
// unless MaxWorkers is set. Branch stages dispatch matched steps with an
// errgroup bounded by MaxConcurrency.
//
// # Error Types
//
// Run returns a *StructuralError wrapping ErrNotCommitted for uncommitted
// workflows. Every other failure is a *StageError carrying the stage index,
// stage kind and step id, and unwrapping to one of:
//
//   - *ValidationError: a contract rejected a value (AuthorFault reports a
//     step violating its own output contract)
//   - *StepExecutionError: the step's execute function failed
//   - *TimeoutError: the step exceeded Step.Timeout
//   - *PredicateError: a branch predicate failed
//   - *AggregateError: collect-all failures of a concurrent stage
//
// StageError.Failure classifies the cause.
//
// # Observer Integration
//
// Every run stamps run_id and workflow_id onto its events:
//
//   - EventRunStart, EventRunComplete
//   - EventChainStart, EventChainComplete, EventStageStart, EventStageComplete
//   - EventStepStart, EventStepComplete
//   - EventBranchEvaluate, EventBranchSelect, EventBranchComplete
//   - EventParallelStart, EventParallelComplete, EventWorkerStart, EventWorkerComplete
//
// Steps publish their own events through RunContext.Emit and RunContext.Log.
//
// # Generic Primitives
//
// ProcessChain (fold over items with accumulated state), ProcessParallel
// (order-preserving worker pool) and ProcessBranch (all-match router) are
// usable without a Workflow.
package workflows
