package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/dilemma/pkg/metrics"
)

const retryBackoff = 25 * time.Millisecond

// retryOnce runs fn and, if it fails while ctx is still live, runs it one
// more time after a short pause.
func retryOnce(ctx context.Context, op string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		metrics.RecordPersistenceError(op)
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordPersistenceRetry(op)
	timer := time.NewTimer(retryBackoff)
	select {
	case <-ctx.Done():
		timer.Stop()
		metrics.RecordPersistenceError(op)
		return fmt.Errorf("%s: %w", op, err)
	case <-timer.C:
	}

	if err := fn(ctx); err != nil {
		metrics.RecordPersistenceError(op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
