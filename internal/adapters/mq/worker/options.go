package worker

import (
	"github.com/okian/dilemma/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithOnDone registers a hook called after every task, successful or not.
func WithOnDone(fn func(Task, error)) Option {
	return func(p *Pool) {
		p.onDone = fn
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(logger logger.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// ProgressOption applies a configuration option to the Progress tracker.
type ProgressOption func(*Progress)

// WithProgressLogger sets a custom logger for the tracker.
func WithProgressLogger(logger logger.Logger) ProgressOption {
	return func(p *Progress) {
		if logger != nil {
			p.logger = logger
		}
	}
}
