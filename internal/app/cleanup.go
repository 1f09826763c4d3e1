package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// SweepReport summarises one cleanup pass.
type SweepReport struct {
	Listed       int
	Deleted      int
	Chunks       int
	FailedChunks int
}

// Sweeper removes the per-match records of a finished session.
type Sweeper struct {
	store     repository.MatchStore
	chunkSize int
	workers   int
	logger    logger.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the logger cleanup reports go to.
func WithSweeperLogger(l logger.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSweeper creates a sweeper deleting chunkSize records per call with at
// most workers calls in flight.
func NewSweeper(store repository.MatchStore, chunkSize, workers int, opts ...SweeperOption) *Sweeper {
	if chunkSize <= 0 {
		chunkSize = DefaultCleanupChunkSize
	}
	if workers <= 0 {
		workers = 1
	}
	s := &Sweeper{
		store:     store,
		chunkSize: chunkSize,
		workers:   workers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sweeper")
	}
	return s
}

// Sweep deletes every match of sessionID. A chunk that fails twice is
// logged and counted; the other chunks still run. Only a failure to list
// the matches is returned as an error. Log records take the session id
// from ctx (see logger.ContextWithFields).
func (s *Sweeper) Sweep(ctx context.Context, sessionID string) (SweepReport, error) {
	ids, err := s.store.MatchIDs(ctx, sessionID)
	if err != nil {
		metrics.RecordPersistenceError("list_matches")
		return SweepReport{}, fmt.Errorf("sweep %s: %w", sessionID, err)
	}

	chunks := chunk(ids, s.chunkSize)
	report := SweepReport{Listed: len(ids), Chunks: len(chunks)}

	var deleted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, c := range chunks {
		g.Go(func() error {
			var n int
			err := retryOnce(gctx, "delete_matches", func(ctx context.Context) error {
				var err error
				n, err = s.store.DeleteMatches(ctx, c)
				return err
			})
			if err != nil {
				failed.Add(1)
				metrics.RecordCleanupFailedChunk()
				s.logger.Warn(gctx, "cleanup chunk failed",
					logger.Int("chunk", i),
					logger.Int("size", len(c)),
					logger.Error(err),
				)
				return nil
			}
			deleted.Add(int64(n))
			metrics.RecordCleanupDeleted(n)
			return nil
		})
	}
	_ = g.Wait()

	report.Deleted = int(deleted.Load())
	report.FailedChunks = int(failed.Load())

	s.logger.Info(ctx, "cleanup finished",
		logger.Int("listed", report.Listed),
		logger.Int("deleted", report.Deleted),
		logger.Int("chunks", report.Chunks),
		logger.Int("failed_chunks", report.FailedChunks),
	)
	return report, nil
}

func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
