package service

import (
	"github.com/okian/dilemma/internal/adapters/notify"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/domain/match"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithResolver sets how players are turned into strategies.
func WithResolver(r strategy.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithNotifier mirrors status writes to an external channel.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithDispatcher sets the job runner used by CreateTournament.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithWorkerCount sets the number of workers per tournament run.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithRepetitions sets how many matches every pair plays.
func WithRepetitions(reps int) Option {
	return func(s *Service) {
		if reps > 0 {
			s.repetitions = reps
		}
	}
}

// WithMatchOptions configures the match runner of every run.
func WithMatchOptions(opts ...match.Option) Option {
	return func(s *Service) {
		s.matchOpts = append(s.matchOpts, opts...)
	}
}

// WithSeed makes runs reproducible. Zero means a random source per match.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithCleanupChunkSize sets how many match records one delete removes.
func WithCleanupChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithDedupeSize sets the maximum number of remembered dispatches.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
