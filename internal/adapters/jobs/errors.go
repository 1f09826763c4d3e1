package jobs

import "errors"

// Sentinel errors returned by the dispatchers.
var (
	ErrClosed = errors.New("dispatcher closed")
	ErrBusy   = errors.New("too many tournaments running")
)
