package workflows

// ProgressFunc provides visibility into execution progress.
// Called after each successful item completion. Not called before the first
// item or when errors occur.
//
// Parameters:
//
//   - completed: Number of items completed so far (1-indexed)
//   - total: Total number of items
//   - state: Current accumulated state (chains) or the item's result (parallel)
//
// Example:
//
//	progress := func(completed, total int, value any) {
//	    fmt.Printf("Progress: %d/%d\n", completed, total)
//	}
type ProgressFunc[TContext any] func(
	completed int,
	total int,
	state TContext,
)
