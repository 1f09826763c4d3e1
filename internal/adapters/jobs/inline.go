// Package jobs hands created tournaments to something that runs them: a
// goroutine in this process or a River job backed by Postgres.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// Runner plays one tournament to completion.
type Runner interface {
	RunTournament(ctx context.Context, sessionID string) error
}

// Inline runs every dispatched tournament on its own goroutine in this
// process.
type Inline struct {
	runner Runner
	base   context.Context
	group  errgroup.Group

	mu     sync.RWMutex
	closed bool

	logger logger.Logger
}

// InlineOption applies a configuration option to Inline.
type InlineOption func(*Inline)

// WithMaxConcurrent bounds how many tournaments run at once. Dispatch
// fails with ErrBusy beyond it.
func WithMaxConcurrent(n int) InlineOption {
	return func(i *Inline) {
		if n > 0 {
			i.group.SetLimit(n)
		}
	}
}

// NewInline creates a dispatcher whose runs live under ctx rather than the
// context of the request that created them.
func NewInline(ctx context.Context, r Runner, opts ...InlineOption) *Inline {
	i := &Inline{
		runner: r,
		base:   ctx,
		logger: logger.Get().Named("inline-jobs"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Dispatch starts the run and returns immediately.
func (i *Inline) Dispatch(ctx context.Context, sessionID string) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return ErrClosed
	}

	started := i.group.TryGo(func() error {
		start := time.Now()
		if err := i.runner.RunTournament(i.base, sessionID); err != nil {
			metrics.RecordErrorByComponent("jobs", "run_failed")
			i.logger.Error(i.base, "tournament run failed",
				logger.String("session_id", sessionID),
				logger.Error(err),
			)
			return nil
		}
		i.logger.Debug(i.base, "tournament run done",
			logger.String("session_id", sessionID),
			logger.Duration("took", time.Since(start)),
		)
		return nil
	})
	if !started {
		return fmt.Errorf("session %s: %w", sessionID, ErrBusy)
	}
	return nil
}

// Wait refuses new dispatches and blocks until running tournaments return
// or ctx expires.
func (i *Inline) Wait(ctx context.Context) error {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = i.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		i.logger.Warn(ctx, "tournaments still running at shutdown")
		return fmt.Errorf("inline wait: %w", ctx.Err())
	}
}
