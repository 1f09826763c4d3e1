// Package postgres implements the repository contracts on PostgreSQL using bun.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store implements repository.Store on a bun database.
type Store struct {
	db     *bun.DB
	logger logger.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}
	return New(bun.NewDB(sqldb, pgdialect.New())), nil
}

// New wraps an existing bun database.
func New(db *bun.DB) *Store {
	db.RegisterModel((*playerRow)(nil), (*sessionRow)(nil), (*gameRow)(nil), (*roundRow)(nil))
	return &Store{db: db, logger: logger.Get().Named("postgres")}
}

// DB exposes the underlying handle.
func (s *Store) DB() *bun.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range []any{(*playerRow)(nil), (*sessionRow)(nil), (*gameRow)(nil)} {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("postgres.Migrate: %w", err)
		}
	}
	_, err := s.db.NewCreateTable().
		Model((*roundRow)(nil)).
		IfNotExists().
		ForeignKey(`("game_id") REFERENCES "games" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Migrate: rounds: %w", err)
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*gameRow)(nil), "games_session_id_idx", "session_id"},
		{(*roundRow)(nil), "rounds_game_id_idx", "game_id"},
	}
	for _, ix := range indexes {
		_, err := s.db.NewCreateIndex().
			Model(ix.model).
			Index(ix.name).
			Column(ix.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("postgres.Migrate: index %s: %w", ix.name, err)
		}
	}

	s.logger.Info(ctx, "schema ready")
	return nil
}

func (s *Store) SavePlayer(ctx context.Context, p model.Player) error {
	if p.ID == "" {
		return fmt.Errorf("postgres.SavePlayer: %w", repository.ErrInvalidID)
	}
	_, err := s.db.NewInsert().
		Model(toPlayerRow(p)).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("function_name = EXCLUDED.function_name").
		Set("short_tactic = EXCLUDED.short_tactic").
		Set("code = EXCLUDED.code").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.SavePlayer: %w", err)
	}
	return nil
}

func (s *Store) Players(ctx context.Context, ids []string) ([]model.Player, error) {
	if len(ids) == 0 {
		return []model.Player{}, nil
	}
	var rows []playerRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Players: %w", err)
	}

	byID := make(map[string]*playerRow, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	out := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("postgres.Players: player %s: %w", id, repository.ErrNotFound)
		}
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, sess model.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("postgres.CreateSession: %w", repository.ErrInvalidID)
	}
	res, err := s.db.NewInsert().
		Model(toSessionRow(sess)).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.CreateSession: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres.CreateSession: session %s: %w", sess.ID, repository.ErrDuplicate)
	}
	return nil
}

func (s *Store) Session(ctx context.Context, id string) (model.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, fmt.Errorf("postgres.Session: session %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("postgres.Session: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	res, err := s.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status <> ?", string(model.StatusFinished)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	exists, err := s.db.NewSelect().Model((*sessionRow)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return fmt.Errorf("postgres.UpdateStatus: %w", err)
	}
	if !exists {
		return fmt.Errorf("postgres.UpdateStatus: session %s: %w", id, repository.ErrNotFound)
	}
	return fmt.Errorf("postgres.UpdateStatus: session %s: %w", id, repository.ErrSessionFinished)
}

func (s *Store) PublishResults(ctx context.Context, id string, results model.Results) error {
	row := &sessionRow{
		ID:        id,
		Status:    string(model.StatusFinished),
		Results:   &results,
		UpdatedAt: time.Now(),
	}
	res, err := s.db.NewUpdate().
		Model(row).
		Column("status", "results", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("postgres.PublishResults: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres.PublishResults: session %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// SaveMatch writes the game row and, when present, its rounds in one
// transaction.
func (s *Store) SaveMatch(ctx context.Context, m model.Match) error {
	if m.ID == "" || m.SessionID == "" {
		return fmt.Errorf("postgres.SaveMatch: %w", repository.ErrInvalidID)
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(toGameRow(m)).Exec(ctx); err != nil {
			return err
		}
		if len(m.Rounds) == 0 {
			return nil
		}
		rounds := toRoundRows(m.ID, m.Rounds)
		_, err := tx.NewInsert().Model(&rounds).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres.SaveMatch: %w", err)
	}
	return nil
}

func (s *Store) Matches(ctx context.Context, sessionID string) ([]model.Match, error) {
	var rows []gameRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Matches: %w", err)
	}
	out := make([]model.Match, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (s *Store) MatchIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*gameRow)(nil)).
		Column("id").
		Where("session_id = ?", sessionID).
		Order("id").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("postgres.MatchIDs: %w", err)
	}
	return ids, nil
}

// DeleteMatches removes games; their rounds go with them through the
// foreign key cascade.
func (s *Store) DeleteMatches(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.NewDelete().
		Model((*gameRow)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres.DeleteMatches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres.DeleteMatches: %w", err)
	}
	return int(n), nil
}

// Rounds returns the recorded rounds of one match in order.
func (s *Store) Rounds(ctx context.Context, matchID string) ([]model.Round, error) {
	var rows []roundRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("game_id = ?", matchID).
		Order("round_number").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres.Rounds: %w", err)
	}
	out := make([]model.Round, len(rows))
	for i, r := range rows {
		out[i] = model.Round{
			Number:      r.RoundNumber,
			HomeChoice:  model.Choice(r.HomeChoice),
			AwayChoice:  model.Choice(r.AwayChoice),
			HomeForfeit: r.HomeForfeit,
			AwayForfeit: r.AwayForfeit,
		}
	}
	return out, nil
}
