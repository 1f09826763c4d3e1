package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/dilemma/internal/domain/model"
)

// MemoryStore implements Store in process memory. It backs tests, the
// simulate command and single-node deployments without Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	players   map[string]model.Player
	sessions  map[string]model.Session
	matches   map[string]model.Match
	bySession map[string]map[string]struct{}
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		players:   make(map[string]model.Player),
		sessions:  make(map[string]model.Session),
		matches:   make(map[string]model.Match),
		bySession: make(map[string]map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) SavePlayer(_ context.Context, p model.Player) error {
	if p.ID == "" {
		return fmt.Errorf("player: %w", ErrInvalidID)
	}
	s.mu.Lock()
	s.players[p.ID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Players(_ context.Context, ids []string) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		p, ok := s.players[id]
		if !ok {
			return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryStore) CreateSession(_ context.Context, sess model.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session: %w", ErrInvalidID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s: %w", sess.ID, ErrDuplicate)
	}
	if sess.Status == "" {
		sess.Status = model.StatusStarted
	}
	now := s.now()
	sess.CreatedAt, sess.UpdatedAt = now, now
	sess.PlayerIDs = append([]string(nil), sess.PlayerIDs...)
	if sess.Results != nil {
		r := sess.Results.Clone()
		sess.Results = &r
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Session(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	sess.PlayerIDs = append([]string(nil), sess.PlayerIDs...)
	if sess.Results != nil {
		r := sess.Results.Clone()
		sess.Results = &r
	}
	return sess, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if sess.Status.Finished() {
		return fmt.Errorf("session %s: %w", id, ErrSessionFinished)
	}
	sess.Status = status
	sess.UpdatedAt = s.now()
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStore) PublishResults(_ context.Context, id string, results model.Results) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	r := results.Clone()
	sess.Results = &r
	sess.Status = model.StatusFinished
	sess.UpdatedAt = s.now()
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStore) SaveMatch(_ context.Context, m model.Match) error {
	if m.ID == "" || m.SessionID == "" {
		return fmt.Errorf("match: %w", ErrInvalidID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	m.Rounds = append([]model.Round(nil), m.Rounds...)
	s.matches[m.ID] = m
	ids, ok := s.bySession[m.SessionID]
	if !ok {
		ids = make(map[string]struct{})
		s.bySession[m.SessionID] = ids
	}
	ids[m.ID] = struct{}{}
	return nil
}

// Matches returns the session's matches ordered by ID.
func (s *MemoryStore) Matches(_ context.Context, sessionID string) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	out := make([]model.Match, 0, len(ids))
	for id := range ids {
		out = append(out, s.matches[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) MatchIDs(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.bySession[sessionID]))
	for id := range s.bySession[sessionID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) DeleteMatches(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		m, ok := s.matches[id]
		if !ok {
			continue
		}
		delete(s.matches, id)
		if set := s.bySession[m.SessionID]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(s.bySession, m.SessionID)
			}
		}
		n++
	}
	return n, nil
}

// Counts reports the number of sessions and stored matches.
func (s *MemoryStore) Counts() (sessions, matches int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), len(s.matches)
}
