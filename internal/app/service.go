// Package service provides the tournament service behind the HTTP API, the
// job runners and the simulate CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dilemma/internal/adapters/mq/worker"
	"github.com/okian/dilemma/internal/adapters/notify"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/domain/dedupe"
	"github.com/okian/dilemma/internal/domain/match"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/schedule"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"
)

// DefaultCleanupChunkSize is how many match records one delete removes.
const DefaultCleanupChunkSize = 1000

// Dispatcher hands a created session to whatever runs tournaments.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, sessionID string) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, sessionID string) error { return f(ctx, sessionID) }

// Service owns tournament creation and execution.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	resolver   strategy.Resolver
	notifier   notify.Notifier
	dispatcher Dispatcher
	deduper    dedupe.Deduper

	// Configuration
	workerCount int
	repetitions int
	chunkSize   int
	dedupeSize  int
	seed        uint64
	matchOpts   []match.Option

	// State
	started  bool
	active   atomic.Int64
	finished atomic.Int64
	failed   atomic.Int64

	// Logging
	logger logger.Logger
}

// New creates a service backed by an in-memory store and the builtin
// strategies unless options say otherwise.
func New(opts ...Option) *Service {
	s := &Service{
		store:       repository.NewMemoryStore(),
		resolver:    strategy.Builtins(),
		notifier:    notify.Nop{},
		workerCount: worker.DefaultWorkerCount,
		repetitions: schedule.DefaultRepetitions,
		chunkSize:   DefaultCleanupChunkSize,
		dedupeSize:  dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// SetDispatcher installs d. Job runners need the service to exist before
// they can be built, so they are attached after New.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Start prepares the service to accept tournaments.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.started = true

	s.logger.Info(ctx, "service started",
		logger.Int("worker_count", s.workerCount),
		logger.Int("repetitions", s.repetitions),
		logger.Int("cleanup_chunk_size", s.chunkSize),
		logger.Bool("seeded", s.seed != 0),
	)
	return nil
}

// Stop stops accepting new tournaments. Runs already dispatched are owned
// by the dispatcher and drained there.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "service stopped",
		logger.Int64("active_runs", s.active.Load()),
	)
}

// RegisterPlayer validates p and stores it. A missing ID is generated. The
// player's strategy must resolve so broken code is refused at the door
// rather than when a tournament starts.
func (s *Service) RegisterPlayer(ctx context.Context, p model.Player) (model.Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.FunctionName = strings.TrimSpace(p.FunctionName)
	if p.Name == "" {
		return model.Player{}, fmt.Errorf("%w: name is required", ErrInvalidPlayer)
	}
	if p.FunctionName == "" {
		return model.Player{}, fmt.Errorf("%w: function_name is required", ErrInvalidPlayer)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := s.resolver.Resolve(ctx, p); err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", ErrInvalidPlayer, err)
	}
	if err := s.store.SavePlayer(ctx, p); err != nil {
		return model.Player{}, fmt.Errorf("save player: %w", err)
	}

	s.logger.Debug(ctx, "player registered",
		logger.String("player_id", p.ID),
		logger.String("function_name", p.FunctionName),
	)
	return p, nil
}

// Players returns the requested players in ids order.
func (s *Service) Players(ctx context.Context, ids []string) ([]model.Player, error) {
	return s.store.Players(ctx, ids)
}

// CreateTournament records a started session over playerIDs and hands it to
// the dispatcher. The returned session is the state at creation time.
func (s *Service) CreateTournament(ctx context.Context, name string, playerIDs []string) (model.Session, error) {
	s.mu.RLock()
	started, dispatcher := s.started, s.dispatcher
	s.mu.RUnlock()
	if !started {
		return model.Session{}, ErrNotStarted
	}
	if dispatcher == nil {
		return model.Session{}, ErrNoDispatcher
	}

	if len(playerIDs) < 2 {
		return model.Session{}, fmt.Errorf("%w: %w", ErrInvalidTournament, schedule.ErrNotEnoughPlayers)
	}
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := seen[id]; ok {
			return model.Session{}, fmt.Errorf("%w: %s: %w", ErrInvalidTournament, id, schedule.ErrDuplicatePlayer)
		}
		seen[id] = struct{}{}
	}
	players, err := s.store.Players(ctx, playerIDs)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", ErrInvalidTournament, err)
	}
	if err := distinctNames(players); err != nil {
		return model.Session{}, err
	}

	sess := model.Session{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Status:    model.StatusStarted,
		PlayerIDs: append([]string(nil), playerIDs...),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	if err := s.dispatch(ctx, dispatcher, sess.ID); err != nil {
		return model.Session{}, err
	}

	s.logger.Info(ctx, "tournament created",
		logger.String("session_id", sess.ID),
		logger.Int("players", len(playerIDs)),
		logger.Int("tasks", schedule.Count(len(playerIDs), s.repetitions)),
	)
	return s.store.Session(ctx, sess.ID)
}

// distinctNames rejects players sharing a name. Results are keyed by name,
// so two players with one name would merge into a single row.
func distinctNames(players []model.Player) error {
	owner := make(map[string]string, len(players))
	for _, p := range players {
		if prev, ok := owner[p.Name]; ok {
			return fmt.Errorf("%w: players %s and %s share the name %q: %w",
				ErrInvalidTournament, prev, p.ID, p.Name, ErrDuplicateName)
		}
		owner[p.Name] = p.ID
	}
	return nil
}

// Dispatch hands an existing session to the dispatcher again, for instance
// after a restart. The idempotency guard still applies.
func (s *Service) Dispatch(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	started, dispatcher := s.started, s.dispatcher
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if dispatcher == nil {
		return ErrNoDispatcher
	}
	if _, err := s.store.Session(ctx, sessionID); err != nil {
		return err
	}
	return s.dispatch(ctx, dispatcher, sessionID)
}

func (s *Service) dispatch(ctx context.Context, d Dispatcher, sessionID string) error {
	if s.deduper.SeenAndRecord(ctx, sessionID) {
		metrics.RecordDuplicateRun()
		return fmt.Errorf("session %s: %w", sessionID, ErrDuplicateRun)
	}
	if err := d.Dispatch(ctx, sessionID); err != nil {
		s.deduper.Unrecord(ctx, sessionID)
		metrics.RecordErrorByComponent("service", "dispatch_error")
		return fmt.Errorf("dispatch %s: %w", sessionID, err)
	}
	return nil
}

// Tournament returns the current state of a session for polling.
func (s *Service) Tournament(ctx context.Context, id string) (model.Session, error) {
	return s.store.Session(ctx, id)
}

// IsDuplicate reports whether err came from the idempotency guard.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicateRun) }

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"worker_count":       s.workerCount,
		"repetitions":        s.repetitions,
		"cleanup_chunk_size": s.chunkSize,
		"active_runs":        s.active.Load(),
		"finished_runs":      s.finished.Load(),
		"failed_runs":        s.failed.Load(),
		"goroutines":         runtime.NumGoroutine(),
		"timestamp":          time.Now().Unix(),
	}
	if s.deduper != nil {
		stats["dedupe_size"] = s.deduper.Size()
	}
	if c, ok := s.store.(interface{ Counts() (int, int) }); ok {
		sessions, matches := c.Counts()
		stats["sessions"] = sessions
		stats["pending_matches"] = matches
	}
	return stats
}
