package history

import "errors"

// Sentinel errors for store operations.
var (
	ErrRunNotFound   = errors.New("run not found")
	ErrUnknownDriver = errors.New("unknown history driver")
	ErrSaveFailed    = errors.New("save failed")
	ErrLoadFailed    = errors.New("load failed")
)
