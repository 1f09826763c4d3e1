package sandbox

import "errors"

// Sentinel kinds for sandbox errors.
var (
	ErrForbiddenImport = errors.New("forbidden import")
	ErrCompile         = errors.New("strategy does not compile")
	ErrMissingDecide   = errors.New("strategy does not define Decide")
	ErrBadSignature    = errors.New("Decide must be func([][2]string) string")
	ErrUnsafeSource    = errors.New("strategy uses a construct the sandbox does not allow")
)
