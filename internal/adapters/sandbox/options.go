package sandbox

import (
	"time"

	"github.com/okian/dilemma/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithAllowedPackages replaces the set of importable standard packages.
func WithAllowedPackages(pkgs ...string) Option {
	return func(r *Resolver) {
		r.allowed = make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			r.allowed[p] = true
		}
	}
}

// WithCompileTimeout bounds evaluation of a strategy source.
func WithCompileTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.compileTimeout = d
		}
	}
}

// WithBusyTimeout bounds how long a call waits for the previous call on the
// same strategy to return. A call that gives up yields no choice, which the
// match runner treats as a forfeit.
func WithBusyTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.busyTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxCallDepth bounds how deep calls inside one decision may nest. A
// deeper chain panics, which the match runner scores as a forfeit.
func WithMaxCallDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxCallDepth = n
		}
	}
}
