package loadtest

import "errors"

var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrUnexpected   = errors.New("unexpected response")
	ErrInconsistent = errors.New("inconsistent results")
)
