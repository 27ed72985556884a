// Package middleware provides reusable workflows.Middleware for steps.
//
// Middleware is attached to a single step with workflows.WithStepMiddleware
// or to every step of a workflow with workflows.WithMiddleware:
//
//	wf := workflows.New("content", in, out,
//	    workflows.WithMiddleware(
//	        middleware.Recover(),
//	        middleware.Logging(logger),
//	    ),
//	)
//
// Middleware wraps the step's execute function only. Contract validation
// happens outside the chain, so middleware sees validated input and the raw
// step result.
package middleware
