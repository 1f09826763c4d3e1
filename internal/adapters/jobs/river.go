package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// QueueTournaments is the River queue tournament jobs run on.
const QueueTournaments = "tournaments"

// DefaultRiverWorkers is how many tournaments one process runs at once.
const DefaultRiverWorkers = 2

// RunTournamentArgs is the payload of a run_tournament job.
type RunTournamentArgs struct {
	SessionID string `json:"session_id"`
}

// Kind returns the job type identifier for River.
func (RunTournamentArgs) Kind() string { return "run_tournament" }

// InsertOpts makes a run a single attempt. A second attempt would replay
// matches on top of the records the first one left.
func (RunTournamentArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueTournaments, MaxAttempts: 1}
}

// TournamentWorker executes run_tournament jobs.
type TournamentWorker struct {
	river.WorkerDefaults[RunTournamentArgs]

	runner Runner
	logger logger.Logger
}

// NewTournamentWorker creates a worker delegating to r.
func NewTournamentWorker(r Runner) *TournamentWorker {
	return &TournamentWorker{runner: r, logger: logger.Get().Named("river-worker")}
}

// Work runs the tournament named by the job.
func (w *TournamentWorker) Work(ctx context.Context, job *river.Job[RunTournamentArgs]) error {
	ctx = logger.ContextWithFields(ctx, logger.Int64("job_id", job.ID))
	w.logger.Info(ctx, "job picked up", logger.String("session_id", job.Args.SessionID))
	if err := w.runner.RunTournament(ctx, job.Args.SessionID); err != nil {
		metrics.RecordErrorByComponent("jobs", "run_failed")
		return fmt.Errorf("run_tournament %s: %w", job.Args.SessionID, err)
	}
	return nil
}

// Timeout disables River's job deadline; a run is bounded by its match caps.
func (w *TournamentWorker) Timeout(*river.Job[RunTournamentArgs]) time.Duration { return -1 }

// River dispatches tournaments as River jobs stored in Postgres.
type River struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger logger.Logger
}

// RiverOption applies a configuration option to River.
type RiverOption func(*riverConfig)

type riverConfig struct {
	workers int
}

// WithRiverWorkers sets how many jobs this process works at once.
func WithRiverWorkers(n int) RiverOption {
	return func(c *riverConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewRiver connects to dsn and builds a client that works tournament jobs
// with r.
func NewRiver(ctx context.Context, dsn string, r Runner, opts ...RiverOption) (*River, error) {
	cfg := riverConfig{workers: DefaultRiverWorkers}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := logger.Get().Named("river")

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("jobs.NewRiver: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("jobs.NewRiver: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobs.NewRiver: ping: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewTournamentWorker(r))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueTournaments: {MaxWorkers: cfg.workers},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobs.NewRiver: client: %w", err)
	}

	log.Info(ctx, "river client ready", logger.Int("workers", cfg.workers))
	return &River{client: client, pool: pool, logger: log}, nil
}

// Migrate brings River's own tables up to date.
func (r *River) Migrate(ctx context.Context) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(r.pool), nil)
	if err != nil {
		return fmt.Errorf("jobs.Migrate: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("jobs.Migrate: %w", err)
	}
	r.logger.Info(ctx, "river schema ready", logger.Int("applied", len(res.Versions)))
	return nil
}

// Start begins working jobs.
func (r *River) Start(ctx context.Context) error {
	if err := r.client.Start(ctx); err != nil {
		return fmt.Errorf("jobs.Start: %w", err)
	}
	return nil
}

// Stop waits for running jobs to finish, then releases the pool.
func (r *River) Stop(ctx context.Context) error {
	defer r.pool.Close()
	if err := r.client.Stop(ctx); err != nil {
		return fmt.Errorf("jobs.Stop: %w", err)
	}
	return nil
}

// Dispatch inserts a run_tournament job.
func (r *River) Dispatch(ctx context.Context, sessionID string) error {
	res, err := r.client.Insert(ctx, RunTournamentArgs{SessionID: sessionID}, nil)
	if err != nil {
		return fmt.Errorf("jobs.Dispatch: %w", err)
	}
	r.logger.Debug(ctx, "job inserted",
		logger.String("session_id", sessionID),
		logger.Int64("job_id", res.Job.ID),
	)
	return nil
}
