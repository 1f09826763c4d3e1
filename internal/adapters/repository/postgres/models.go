package postgres

import (
	"strings"
	"time"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/uptrace/bun"
)

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`
	ID            string `bun:"id,pk"`
	Name          string `bun:"name,notnull"`
	FunctionName  string `bun:"function_name,nullzero"`
	ShortTactic   string `bun:"short_tactic,nullzero"`
	Code          string `bun:"code,nullzero"`
}

// sessionRow keeps player_ids comma-joined. results is stored as json rather
// than jsonb so the leaderboard keeps its key order.
type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`
	ID            string         `bun:"id,pk"`
	Name          string         `bun:"name,nullzero"`
	Status        string         `bun:"status,notnull,default:'started'"`
	PlayerIDs     string         `bun:"player_ids,notnull"`
	Results       *model.Results `bun:"results,type:json"`
	CreatedAt     time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
}

type gameRow struct {
	bun.BaseModel `bun:"table:games,alias:g"`
	ID            string    `bun:"id,pk"`
	SessionID     string    `bun:"session_id,notnull"`
	HomePlayerID  string    `bun:"home_player_id,notnull"`
	AwayPlayerID  string    `bun:"away_player_id,notnull"`
	HomeScore     int       `bun:"home_score,notnull"`
	AwayScore     int       `bun:"away_score,notnull"`
	RoundCount    int       `bun:"round_count,notnull"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type roundRow struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`
	ID            int64  `bun:"id,pk,autoincrement"`
	GameID        string `bun:"game_id,notnull"`
	RoundNumber   int    `bun:"round_number,notnull"`
	HomeChoice    string `bun:"home_choice,notnull"`
	AwayChoice    string `bun:"away_choice,notnull"`
	HomeForfeit   bool   `bun:"home_forfeit,notnull"`
	AwayForfeit   bool   `bun:"away_forfeit,notnull"`
}

func toPlayerRow(p model.Player) *playerRow {
	return &playerRow{
		ID:           p.ID,
		Name:         p.Name,
		FunctionName: p.FunctionName,
		ShortTactic:  p.ShortTactic,
		Code:         p.Code,
	}
}

func (r *playerRow) toModel() model.Player {
	return model.Player{
		ID:           r.ID,
		Name:         r.Name,
		FunctionName: r.FunctionName,
		ShortTactic:  r.ShortTactic,
		Code:         r.Code,
	}
}

func toSessionRow(s model.Session) *sessionRow {
	status := s.Status
	if status == "" {
		status = model.StatusStarted
	}
	return &sessionRow{
		ID:        s.ID,
		Name:      s.Name,
		Status:    string(status),
		PlayerIDs: strings.Join(s.PlayerIDs, ","),
		Results:   s.Results,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (r *sessionRow) toModel() model.Session {
	var ids []string
	if r.PlayerIDs != "" {
		ids = strings.Split(r.PlayerIDs, ",")
	}
	return model.Session{
		ID:        r.ID,
		Name:      r.Name,
		Status:    model.Status(r.Status),
		PlayerIDs: ids,
		Results:   r.Results,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toGameRow(m model.Match) *gameRow {
	return &gameRow{
		ID:           m.ID,
		SessionID:    m.SessionID,
		HomePlayerID: m.HomePlayerID,
		AwayPlayerID: m.AwayPlayerID,
		HomeScore:    m.HomeScore,
		AwayScore:    m.AwayScore,
		RoundCount:   m.RoundCount,
		CreatedAt:    m.CreatedAt,
	}
}

func (r *gameRow) toModel() model.Match {
	return model.Match{
		ID:           r.ID,
		SessionID:    r.SessionID,
		HomePlayerID: r.HomePlayerID,
		AwayPlayerID: r.AwayPlayerID,
		HomeScore:    r.HomeScore,
		AwayScore:    r.AwayScore,
		RoundCount:   r.RoundCount,
		CreatedAt:    r.CreatedAt,
	}
}

func toRoundRows(gameID string, rounds []model.Round) []roundRow {
	out := make([]roundRow, len(rounds))
	for i, r := range rounds {
		out[i] = roundRow{
			GameID:      gameID,
			RoundNumber: r.Number,
			HomeChoice:  string(r.HomeChoice),
			AwayChoice:  string(r.AwayChoice),
			HomeForfeit: r.HomeForfeit,
			AwayForfeit: r.AwayForfeit,
		}
	}
	return out
}
