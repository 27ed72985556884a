package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

// PanicError is returned in place of a panic raised by a step.
type PanicError struct {
	StepID string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("step %q panicked: %v", e.StepID, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recover converts a panic in the wrapped step into a *PanicError. The run
// fails like any other step execution error.
func Recover() workflows.Middleware {
	return func(ctx context.Context, step *workflows.Step, input any, rc *workflows.RunContext, next workflows.Handler) (out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				out = nil
				err = &PanicError{StepID: step.ID, Value: r, Stack: debug.Stack()}
			}
		}()
		return next(ctx, input)
	}
}
