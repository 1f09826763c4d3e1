package strategy

import "errors"

// Sentinel kinds for strategy resolution errors.
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrDuplicateName   = errors.New("duplicate strategy name")
)

func isUnknown(err error) bool {
	return errors.Is(err, ErrUnknownStrategy)
}
