package workflows

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/config"
)

// TaskProcessor processes a single item and returns a result.
//
// Unlike StepProcessor in sequential chains, TaskProcessor does not receive
// or return accumulated state. Each task executes independently with no
// dependencies on other tasks.
type TaskProcessor[TItem, TResult any] func(
	ctx context.Context,
	item TItem,
) (TResult, error)

type indexedItem[TItem any] struct {
	index int
	item  TItem
}

type indexedResult[TResult any] struct {
	index  int
	result TResult
	err    error
}

// ParallelResult contains the results of parallel execution.
//
// Results and Indexes are dense and aligned: Results[i] is the output of
// items[Indexes[i]]. Errors holds every failure in item order.
type ParallelResult[TItem, TResult any] struct {
	// Results contains all successfully processed items (dense slice, no gaps)
	Results []TResult

	// Indexes maps each entry of Results back to its item position
	Indexes []int

	// Errors contains all failed items with context (index, item, error)
	Errors []ItemError[TItem]

	// First is the earliest failure by completion time, nil when none failed
	First *ItemError[TItem]

	// Abandoned reports that the grace period expired before every
	// cancelled worker returned; Results and Errors are then incomplete
	Abandoned bool
}

// firstFailure records the earliest failing item and signals it once.
type firstFailure[TItem any] struct {
	once   sync.Once
	err    *ItemError[TItem]
	signal chan struct{}
}

func (f *firstFailure[TItem]) set(index int, item TItem, err error) {
	f.once.Do(func() {
		f.err = &ItemError[TItem]{Index: index, Item: item, Err: err}
		close(f.signal)
	})
}

// ProcessParallel executes concurrent processing with result aggregation.
//
// Items are distributed to a worker pool and processed concurrently. Results
// are returned in original item order despite concurrent execution.
//
// Worker Pool Sizing:
//   - MaxWorkers > 0: Use exact count
//   - MaxWorkers = 0: Auto-detect min(NumCPU*2, WorkerCap, len(items))
//
// Error Handling Modes:
//
// FailFast=true (default):
//   - The first failure cancels every other worker
//   - ParallelResult.First holds the originating failure
//   - Cancelled workers are awaited for at most cfg.GracePeriod
//     (0 = until every worker returns)
//
// FailFast=false:
//   - Every item is processed
//   - Returns ParallelError listing every failure when any item failed
//
// Observer Integration:
//   - EventParallelStart: Before processing begins
//   - EventWorkerStart: Before each item processes
//   - EventWorkerComplete: After each item (success or failure)
//   - EventParallelComplete: When execution finishes
//
// Example:
//
//	result, err := workflows.ProcessParallel(ctx, config.DefaultParallelConfig(), observer, urls, fetch, nil)
//	if err != nil {
//	    log.Printf("first failure: item %d: %v", result.First.Index, result.First.Err)
//	}
func ProcessParallel[TItem, TResult any](
	ctx context.Context,
	cfg config.ParallelConfig,
	observer observability.Observer,
	items []TItem,
	processor TaskProcessor[TItem, TResult],
	progress ProgressFunc[TResult],
) (ParallelResult[TItem, TResult], error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	if len(items) == 0 {
		observer.OnEvent(ctx, observability.Event{
			Type:      EventParallelStart,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessParallel",
			Data: map[string]any{
				"item_count":            0,
				"worker_count":          0,
				"fail_fast":             cfg.FailFast(),
				"has_progress_callback": progress != nil,
			},
		})

		observer.OnEvent(ctx, observability.Event{
			Type:      EventParallelComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessParallel",
			Data: map[string]any{
				"items_processed": 0,
				"items_failed":    0,
				"error":           false,
			},
		})

		return ParallelResult[TItem, TResult]{
			Results: []TResult{},
			Indexes: []int{},
			Errors:  []ItemError[TItem]{},
		}, nil
	}

	workerCount := calculateWorkerCount(cfg.MaxWorkers, cfg.WorkerCap, len(items))

	observer.OnEvent(ctx, observability.Event{
		Type:      EventParallelStart,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "workflows.ProcessParallel",
		Data: map[string]any{
			"item_count":            len(items),
			"worker_count":          workerCount,
			"fail_fast":             cfg.FailFast(),
			"has_progress_callback": progress != nil,
		},
	})

	workQueue := make(chan indexedItem[TItem], len(items))
	resultChannel := make(chan indexedResult[TResult], len(items))
	done := make(chan struct{})

	var (
		results []TResult
		indexes []int
		errors  []ItemError[TItem]
	)

	go func() {
		results, indexes, errors = collectResults(resultChannel, items)
		close(done)
	}()

	var cancelCtx context.Context
	var cancel context.CancelFunc
	if cfg.FailFast() {
		cancelCtx, cancel = context.WithCancel(ctx)
	} else {
		cancelCtx, cancel = ctx, func() {}
	}
	defer cancel()

	first := &firstFailure[TItem]{signal: make(chan struct{})}

	var wg sync.WaitGroup
	var completed atomic.Int32

	for i := range workerCount {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processWorker(
				cancelCtx,
				workerID,
				workQueue,
				resultChannel,
				processor,
				progress,
				&completed,
				items,
				observer,
				cfg.FailFast(),
				cancel,
				first,
			)
		}(i)
	}

	for i, item := range items {
		workQueue <- indexedItem[TItem]{index: i, item: item}
	}
	close(workQueue)

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(resultChannel)
		close(workersDone)
	}()

	grace := cfg.GracePeriod.Std()
	abandoned := false
	select {
	case <-workersDone:
	case <-first.signal:
		abandoned = !awaitGrace(workersDone, grace)
	case <-ctx.Done():
		abandoned = !awaitGrace(workersDone, grace)
	}

	if abandoned {
		var firstErr *ItemError[TItem]
		select {
		case <-first.signal:
			firstErr = first.err
		default:
		}

		observer.OnEvent(ctx, observability.Event{
			Type:      EventParallelComplete,
			Level:     observability.LevelWarning,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessParallel",
			Data: map[string]any{
				"error":        true,
				"abandoned":    true,
				"grace_period": grace.String(),
			},
		})

		result := ParallelResult[TItem, TResult]{First: firstErr, Abandoned: true}
		if firstErr != nil {
			result.Errors = []ItemError[TItem]{*firstErr}
			return result, &ParallelError[TItem]{Errors: result.Errors}
		}
		return result, fmt.Errorf("parallel execution cancelled: %w", ctx.Err())
	}

	<-done

	result := ParallelResult[TItem, TResult]{
		Results: results,
		Indexes: indexes,
		Errors:  errors,
	}
	select {
	case <-first.signal:
		result.First = first.err
	default:
	}

	failed := len(errors) > 0
	observer.OnEvent(ctx, observability.Event{
		Type:      EventParallelComplete,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "workflows.ProcessParallel",
		Data: map[string]any{
			"items_processed": len(results),
			"items_failed":    len(errors),
			"error":           failed || ctx.Err() != nil,
		},
	})

	if failed {
		return result, &ParallelError[TItem]{Errors: errors}
	}

	if ctx.Err() != nil && len(results) < len(items) {
		return result, fmt.Errorf("parallel execution cancelled: %w", ctx.Err())
	}

	return result, nil
}

// awaitGrace waits for done, giving up after grace. A non-positive grace
// waits indefinitely. Reports whether done closed.
func awaitGrace(done <-chan struct{}, grace time.Duration) bool {
	if grace <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// calculateWorkerCount determines worker pool size.
//
// When maxWorkers is 0:
//   - Start with NumCPU * 2
//   - Cap at workerCap to prevent excessive goroutines
//   - Cap at itemCount (no point in more workers than items)
//   - Ensure at least 1 worker
func calculateWorkerCount(maxWorkers, workerCap, itemCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	workers := runtime.NumCPU() * 2
	if workerCap > 0 {
		workers = min(workers, workerCap)
	}
	workers = min(workers, itemCount)

	if workers <= 0 {
		workers = 1
	}

	return workers
}

// processWorker reads items until the queue closes or ctx is cancelled.
// In fail-fast mode the first error records itself on first and cancels
// the shared context.
func processWorker[TItem, TResult any](
	ctx context.Context,
	workerID int,
	workQueue <-chan indexedItem[TItem],
	resultChannel chan<- indexedResult[TResult],
	processor TaskProcessor[TItem, TResult],
	progress ProgressFunc[TResult],
	completed *atomic.Int32,
	items []TItem,
	observer observability.Observer,
	failFast bool,
	cancel context.CancelFunc,
	first *firstFailure[TItem],
) {
	total := len(items)
	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-workQueue:
			if !ok {
				return
			}

			observer.OnEvent(ctx, observability.Event{
				Type:      EventWorkerStart,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    "workflows.ProcessParallel",
				Data: map[string]any{
					"worker_id":   workerID,
					"item_index":  work.index,
					"total_items": total,
				},
			})

			result, err := processor(ctx, work.item)

			observer.OnEvent(ctx, observability.Event{
				Type:      EventWorkerComplete,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    "workflows.ProcessParallel",
				Data: map[string]any{
					"worker_id":   workerID,
					"item_index":  work.index,
					"total_items": total,
					"error":       err != nil,
				},
			})

			if err != nil {
				if ctx.Err() == nil || !failFast {
					first.set(work.index, work.item, err)
				}
				resultChannel <- indexedResult[TResult]{
					index: work.index,
					err:   err,
				}
				if failFast {
					cancel()
					return
				}
			} else {
				resultChannel <- indexedResult[TResult]{
					index:  work.index,
					result: result,
				}
				if progress != nil {
					count := completed.Add(1)
					progress(int(count), total, result)
				}
			}
		}
	}
}

// collectResults aggregates worker results and preserves original item
// order by rebuilding the slices from indexes once the channel closes.
func collectResults[TItem, TResult any](
	resultChannel <-chan indexedResult[TResult],
	items []TItem,
) ([]TResult, []int, []ItemError[TItem]) {
	resultMap := make(map[int]TResult)
	errorMap := make(map[int]error)

	for result := range resultChannel {
		if result.err != nil {
			errorMap[result.index] = result.err
		} else {
			resultMap[result.index] = result.result
		}
	}

	results := make([]TResult, 0, len(resultMap))
	indexes := make([]int, 0, len(resultMap))
	errors := make([]ItemError[TItem], 0, len(errorMap))

	for i := range items {
		if result, ok := resultMap[i]; ok {
			results = append(results, result)
			indexes = append(indexes, i)
		}
		if err, ok := errorMap[i]; ok {
			errors = append(errors, ItemError[TItem]{
				Index: i,
				Item:  items[i],
				Err:   err,
			})
		}
	}

	return results, indexes, errors
}
