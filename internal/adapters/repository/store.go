// Package repository defines the tournament persistence contracts and an
// in-memory implementation of them.
package repository

import (
	"context"

	"github.com/okian/dilemma/internal/domain/model"
)

// PlayerStore holds the roster.
type PlayerStore interface {
	SavePlayer(ctx context.Context, p model.Player) error

	// Players returns the players in ids order.
	// Returns an error wrapping ErrNotFound if any id is unknown.
	Players(ctx context.Context, ids []string) ([]model.Player, error)
}

// SessionStore holds tournament sessions and their published results.
type SessionStore interface {
	// CreateSession stores s. Returns ErrDuplicate if the ID exists.
	CreateSession(ctx context.Context, s model.Session) error

	// Session returns ErrNotFound if the session is unknown.
	Session(ctx context.Context, id string) (model.Session, error)

	// UpdateStatus sets the status of a running session.
	// Returns ErrSessionFinished once results are published.
	UpdateStatus(ctx context.Context, id string, status model.Status) error

	// PublishResults stores results and marks the session finished in one step.
	PublishResults(ctx context.Context, id string, results model.Results) error
}

// MatchStore holds the transient per-match records of running sessions.
type MatchStore interface {
	SaveMatch(ctx context.Context, m model.Match) error
	Matches(ctx context.Context, sessionID string) ([]model.Match, error)
	MatchIDs(ctx context.Context, sessionID string) ([]string, error)

	// DeleteMatches removes the given matches and reports how many existed.
	DeleteMatches(ctx context.Context, ids []string) (int, error)
}

// Store is everything a tournament run needs.
type Store interface {
	PlayerStore
	SessionStore
	MatchStore
}
