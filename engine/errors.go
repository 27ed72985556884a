package engine

import "errors"

// Sentinel errors for engine operations.
var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrDuplicateWorkflow = errors.New("workflow already registered")
	ErrUnknownPredicate  = errors.New("unknown predicate")
	ErrUnknownContract   = errors.New("unknown contract")
	ErrInvalidDefinition = errors.New("invalid workflow definition")
)
