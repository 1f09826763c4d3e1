// Package schedule enumerates the match tasks of a round-robin tournament.
package schedule

import (
	"errors"
	"fmt"

	"github.com/okian/dilemma/internal/domain/model"
)

// DefaultRepetitions is the number of matches played per pair.
const DefaultRepetitions = 100

// Sentinel kinds for scheduling errors.
var (
	ErrNotEnoughPlayers   = errors.New("at least two players are required")
	ErrInvalidRepetitions = errors.New("repetitions must be positive")
	ErrDuplicatePlayer    = errors.New("duplicate player")
)

// Count returns the number of tasks RoundRobin produces for n players.
func Count(n, reps int) int {
	if n < 2 || reps < 1 {
		return 0
	}
	return n * (n - 1) / 2 * reps
}

// RoundRobin returns reps tasks for every unordered pair of distinct
// players. The first player of a pair in roster order plays at home.
// Tasks carry no ordering dependency; Seq is only their list position.
func RoundRobin(playerIDs []string, reps int) ([]model.Task, error) {
	if len(playerIDs) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if reps < 1 {
		return nil, ErrInvalidRepetitions
	}
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%s: %w", id, ErrDuplicatePlayer)
		}
		seen[id] = struct{}{}
	}

	tasks := make([]model.Task, 0, Count(len(playerIDs), reps))
	for i := 0; i < len(playerIDs); i++ {
		for j := i + 1; j < len(playerIDs); j++ {
			for r := 0; r < reps; r++ {
				tasks = append(tasks, model.Task{
					Seq:    len(tasks),
					HomeID: playerIDs[i],
					AwayID: playerIDs[j],
				})
			}
		}
	}
	return tasks, nil
}
