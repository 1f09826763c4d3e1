package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/dilemma/internal/adapters/mq/queue"
	"github.com/okian/dilemma/internal/adapters/mq/worker"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/domain/match"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/schedule"
	"github.com/okian/dilemma/internal/domain/standings"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// RunTournament plays every scheduled match of a started session, publishes
// the results and removes the per-match records. A session that is already
// finished is left alone.
//
// On a fatal error the session keeps its last progress value; no failure
// status is written.
func (s *Service) RunTournament(ctx context.Context, sessionID string) error {
	log := s.logger.Named("engine")
	start := time.Now()
	ctx = logger.ContextWithFields(ctx, logger.String("session_id", sessionID))

	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return s.fail(ctx, sessionID, "load", err)
	}
	if sess.Status.Finished() {
		log.Info(ctx, "tournament already finished")
		return nil
	}

	metrics.RecordTournamentStarted()
	s.active.Add(1)
	defer s.active.Add(-1)

	players, err := s.store.Players(ctx, sess.PlayerIDs)
	if err != nil {
		return s.fail(ctx, sessionID, "load", err)
	}
	// a rename after creation can still collide
	if err := distinctNames(players); err != nil {
		return s.fail(ctx, sessionID, "load", err)
	}
	contestants, err := s.resolve(ctx, players)
	if err != nil {
		return s.fail(ctx, sessionID, "resolve", err)
	}
	tasks, err := schedule.RoundRobin(sess.PlayerIDs, s.repetitions)
	if err != nil {
		return s.fail(ctx, sessionID, "schedule", err)
	}

	log.Info(ctx, "tournament running",
		logger.Int("players", len(players)),
		logger.Int("tasks", len(tasks)),
	)

	if err := s.play(ctx, sessionID, contestants, tasks); err != nil {
		return s.fail(ctx, sessionID, "play", err)
	}

	matches, err := s.store.Matches(ctx, sessionID)
	if err != nil {
		metrics.RecordPersistenceError("read_matches")
		return s.fail(ctx, sessionID, "aggregate", err)
	}
	results, summary := standings.Aggregate(players, matches)
	if summary.Skipped > 0 {
		log.Warn(ctx, "matches skipped during aggregation",
			logger.Int("skipped", summary.Skipped),
		)
	}
	if missing := len(tasks) - summary.Matches; missing > 0 {
		log.Warn(ctx, "matches missing from aggregation",
			logger.Int("missing", missing),
		)
	}

	if err := s.publish(ctx, sessionID, results); err != nil {
		return s.fail(ctx, sessionID, "publish", err)
	}

	report, err := NewSweeper(s.store, s.chunkSize, s.workerCount, WithSweeperLogger(s.logger.Named("sweeper"))).Sweep(ctx, sessionID)
	if err != nil {
		// results are already out; leftover rows are only a storage cost
		log.Warn(ctx, "cleanup skipped", logger.Error(err))
	}

	took := time.Since(start)
	metrics.RecordTournamentFinished(float64(took.Milliseconds()))
	s.finished.Add(1)
	log.Info(ctx, "tournament finished",
		logger.Int("matches", summary.Matches),
		logger.Int("deleted", report.Deleted),
		logger.Duration("took", took),
	)
	return nil
}

func (s *Service) fail(ctx context.Context, sessionID, stage string, err error) error {
	metrics.RecordTournamentFailed(stage)
	s.failed.Add(1)
	s.logger.Named("engine").Error(ctx, "tournament aborted",
		logger.String("stage", stage),
		logger.Error(err),
	)
	return fmt.Errorf("run %s: %s: %w", sessionID, stage, err)
}

// resolve maps every player to a strategy. Any failure is fatal.
func (s *Service) resolve(ctx context.Context, players []model.Player) (map[string]match.Contestant, error) {
	out := make(map[string]match.Contestant, len(players))
	for _, p := range players {
		st, err := s.resolver.Resolve(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolve, err)
		}
		out[p.ID] = match.Contestant{Player: p, Strategy: st}
	}
	return out, nil
}

// play runs tasks on a fresh queue and pool and returns once all of them
// have been handled and the last progress value is written.
func (s *Service) play(ctx context.Context, sessionID string, contestants map[string]match.Contestant, tasks []model.Task) error {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(tasks)))
	if err := queue.EnqueueAll(ctx, q, tasks); err != nil {
		return err
	}
	if err := q.Close(); err != nil {
		return err
	}

	progress, err := worker.NewProgress(len(tasks), s.statusWriter(sessionID),
		worker.WithProgressLogger(s.logger.Named("progress")))
	if err != nil {
		return err
	}
	progress.Start(ctx)

	runner := match.NewRunner(s.matchOpts...)
	handler := worker.HandlerFunc(func(ctx context.Context, t worker.Task) error {
		m, err := runner.Play(ctx, sessionID, contestants[t.HomeID], contestants[t.AwayID], s.taskRand(t))
		if err != nil {
			return err
		}
		return retryOnce(ctx, "save_match", func(ctx context.Context) error {
			return s.store.SaveMatch(ctx, m)
		})
	})

	pool := worker.NewPool(s.workerCount, q, handler,
		worker.WithOnDone(func(worker.Task, error) { progress.Done() }),
		worker.WithLogger(s.logger.Named("worker-pool")),
	)
	pool.Start(ctx)
	pool.Wait()
	last, writes := progress.Close()

	s.logger.Named("engine").Debug(ctx, "all tasks handled",
		logger.Int64("completed", progress.Completed()),
		logger.Int("last_percent", last),
		logger.Int("status_writes", writes),
	)

	if err := ctx.Err(); err != nil {
		return err
	}
	if progress.Completed() < int64(len(tasks)) {
		return fmt.Errorf("%w: %d of %d tasks handled", ErrInterrupted, progress.Completed(), len(tasks))
	}
	return nil
}

// statusWriter persists a progress value and mirrors it to the notifier.
func (s *Service) statusWriter(sessionID string) worker.StatusWriter {
	return worker.StatusWriterFunc(func(ctx context.Context, percent int) error {
		status := model.ProgressStatus(percent)
		err := retryOnce(ctx, "write_progress", func(ctx context.Context) error {
			return s.store.UpdateStatus(ctx, sessionID, status)
		})
		if err != nil {
			if errors.Is(err, repository.ErrSessionFinished) {
				return nil
			}
			return err
		}
		s.notify(ctx, sessionID, status)
		return nil
	})
}

func (s *Service) notify(ctx context.Context, sessionID string, status model.Status) {
	if err := s.notifier.Notify(ctx, sessionID, status); err != nil {
		metrics.RecordNotifyError()
		s.logger.Warn(ctx, "status notification failed",
			logger.String("status", string(status)),
			logger.Error(err),
		)
	}
}

// taskRand returns the random source of one match. With a seed the source
// depends only on the seed and the task position, so a run is reproducible
// whatever order the workers pick tasks in.
func (s *Service) taskRand(t model.Task) *rand.Rand {
	if s.seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(s.seed, uint64(t.Seq))) //nolint:gosec // simulation randomness
}
