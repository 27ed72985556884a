package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/config"
)

// StepProcessor processes a single item and updates the accumulated context.
//
// This function type implements the fold/reduce pattern where each step
// receives the current accumulated state and returns an updated state.
// Workflow.Run uses it with stages as items and the value flowing between
// stages as state.
//
// Parameters:
//
//   - ctx: Context for cancellation and timeout control
//   - item: The current item to process
//   - state: The accumulated state from all previous steps
//
// Returns:
//
//   - Updated state after processing this item
//   - Error if processing fails (stops the chain)
type StepProcessor[TItem, TContext any] func(
	ctx context.Context,
	item TItem,
	state TContext,
) (TContext, error)

// ChainResult contains the results of chain execution.
//
// The Final field always contains the result (either final state on success
// or the last successful state on failure). Intermediate states are only
// populated when ChainConfig.CaptureIntermediateStates is true.
type ChainResult[TContext any] struct {
	// Final is the accumulated state after all steps completed
	Final TContext

	// Intermediate contains state after each step when captured.
	// Index 0 is the initial state, index N is state after step N.
	Intermediate []TContext

	// Steps is the number of steps successfully completed
	Steps int
}

// ProcessChain executes a sequential chain with state accumulation.
//
// Items are processed strictly in order, each receiving the state returned
// by its predecessor. Processing stops on first error. Context cancellation
// is checked at the start of each step.
//
// Observer Integration:
//
//   - EventChainStart: Before processing begins
//   - EventStageStart: Before each item processes
//   - EventStageComplete: After each item (success or failure)
//   - EventChainComplete: When chain finishes
//
// Errors are wrapped in ChainError with the step index, the item, the
// state at the failure point and the underlying error.
//
// When items is empty, returns immediately with Final = initial and still
// emits start/complete events.
//
// Example:
//
//	items := []string{"trim", "lower"}
//	processor := func(ctx context.Context, op string, s string) (string, error) {
//	    return apply(op, s), nil
//	}
//	result, err := workflows.ProcessChain(ctx, config.DefaultChainConfig(), observer, items, "  Input ", processor, nil)
func ProcessChain[TItem, TContext any](
	ctx context.Context,
	cfg config.ChainConfig,
	observer observability.Observer,
	items []TItem,
	initial TContext,
	processor StepProcessor[TItem, TContext],
	progress ProgressFunc[TContext],
) (ChainResult[TContext], error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	result := ChainResult[TContext]{
		Final: initial,
		Steps: 0,
	}

	observer.OnEvent(ctx, observability.Event{
		Type:      EventChainStart,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "workflows.ProcessChain",
		Data: map[string]any{
			"item_count":            len(items),
			"has_progress_callback": progress != nil,
			"capture_intermediate":  cfg.CaptureIntermediateStates,
		},
	})

	if len(items) == 0 {
		observer.OnEvent(ctx, observability.Event{
			Type:      EventChainComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessChain",
			Data: map[string]any{
				"steps_completed": 0,
				"error":           false,
			},
		})
		return result, nil
	}

	var intermediate []TContext
	if cfg.CaptureIntermediateStates {
		intermediate = make([]TContext, 0, len(items)+1)
		intermediate = append(intermediate, initial)
	}

	state := initial

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			chainErr := &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       fmt.Errorf("processing cancelled: %w", err),
			}
			observer.OnEvent(ctx, observability.Event{
				Type:      EventChainComplete,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    "workflows.ProcessChain",
				Data: map[string]any{
					"steps_completed": i,
					"error":           true,
					"error_type":      "cancellation",
				},
			})
			result.Final = state
			result.Intermediate = intermediate
			result.Steps = i
			return result, chainErr
		}

		observer.OnEvent(ctx, observability.Event{
			Type:      EventStageStart,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessChain",
			Data: map[string]any{
				observability.AttrStage: i,
				"total_stages":          len(items),
			},
		})

		updated, err := processor(ctx, item, state)
		if err != nil {
			chainErr := &ChainError[TItem, TContext]{
				StepIndex: i,
				Item:      item,
				State:     state,
				Err:       err,
			}
			observer.OnEvent(ctx, observability.Event{
				Type:      EventStageComplete,
				Level:     observability.LevelVerbose,
				Timestamp: time.Now(),
				Source:    "workflows.ProcessChain",
				Data: map[string]any{
					observability.AttrStage: i,
					"total_stages":          len(items),
					"error":                 true,
				},
			})
			observer.OnEvent(ctx, observability.Event{
				Type:      EventChainComplete,
				Level:     observability.LevelWarning,
				Timestamp: time.Now(),
				Source:    "workflows.ProcessChain",
				Data: map[string]any{
					"steps_completed": i,
					"error":           true,
					"error_type":      "processor",
				},
			})
			result.Final = state
			result.Intermediate = intermediate
			result.Steps = i
			return result, chainErr
		}

		state = updated

		if cfg.CaptureIntermediateStates {
			intermediate = append(intermediate, state)
		}

		observer.OnEvent(ctx, observability.Event{
			Type:      EventStageComplete,
			Level:     observability.LevelVerbose,
			Timestamp: time.Now(),
			Source:    "workflows.ProcessChain",
			Data: map[string]any{
				observability.AttrStage: i,
				"total_stages":          len(items),
				"error":                 false,
			},
		})

		if progress != nil {
			progress(i+1, len(items), state)
		}
	}

	result.Final = state
	result.Intermediate = intermediate
	result.Steps = len(items)

	observer.OnEvent(ctx, observability.Event{
		Type:      EventChainComplete,
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "workflows.ProcessChain",
		Data: map[string]any{
			"steps_completed": len(items),
			"error":           false,
		},
	})

	return result, nil
}
