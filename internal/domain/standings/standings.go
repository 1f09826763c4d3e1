// Package standings turns persisted match records into a leaderboard and a
// pairwise score matrix.
package standings

import (
	"sort"

	"github.com/okian/dilemma/internal/domain/model"
)

// Summary describes what Aggregate consumed.
type Summary struct {
	Matches int // matches counted
	Skipped int // matches referencing a player outside the roster
}

// Aggregate computes totals, the ranked leaderboard and the score matrix.
//
// Ordering: score DESC, then player ID ASC (deterministic). The matrix has
// a zero cell for every ordered pair of distinct players.
func Aggregate(players []model.Player, matches []model.Match) (model.Results, Summary) {
	byID := make(map[string]model.Player, len(players))
	totals := make(map[string]int, len(players))
	matrix := make(model.Matrix, len(players))
	for _, p := range players {
		byID[p.ID] = p
		totals[p.ID] = 0
		row := make(map[string]int, len(players)-1)
		for _, o := range players {
			if o.ID != p.ID {
				row[o.Name] = 0
			}
		}
		matrix[p.Name] = row
	}

	var sum Summary
	for _, m := range matches {
		home, okHome := byID[m.HomePlayerID]
		away, okAway := byID[m.AwayPlayerID]
		if !okHome || !okAway || home.ID == away.ID {
			sum.Skipped++
			continue
		}
		totals[home.ID] += m.HomeScore
		totals[away.ID] += m.AwayScore
		matrix[home.Name][away.Name] += m.HomeScore
		matrix[away.Name][home.Name] += m.AwayScore
		sum.Matches++
	}

	board := make(model.Leaderboard, 0, len(players))
	for _, p := range players {
		board = append(board, model.LeaderboardEntry{
			PlayerID:    p.ID,
			Name:        p.Name,
			Score:       totals[p.ID],
			ShortTactic: p.ShortTactic,
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].Score != board[j].Score {
			return board[i].Score > board[j].Score
		}
		return board[i].PlayerID < board[j].PlayerID
	})

	return model.Results{Leaderboard: board, Matrix: matrix}, sum
}
