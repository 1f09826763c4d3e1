package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrNoDispatcher      = errors.New("no dispatcher configured")
	ErrDuplicateRun      = errors.New("tournament already dispatched")
	ErrInvalidPlayer     = errors.New("invalid player")
	ErrInvalidTournament = errors.New("invalid tournament")
	ErrDuplicateName     = errors.New("duplicate player name")
	ErrResolve           = errors.New("strategy resolution failed")
	ErrInterrupted       = errors.New("tournament run interrupted")
)
