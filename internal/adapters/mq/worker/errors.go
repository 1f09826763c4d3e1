package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrHandlerPanic = errors.New("handler panicked")
	ErrInvalidTotal = errors.New("progress total must be positive")
)
