package loadtest

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/strategy"
)

// generatePlayers creates n players cycling through the builtin strategies
// so every strategy is represented once n covers them.
func generatePlayers(n int) []model.Player {
	names := strategy.Builtins().Names()
	run := uuid.NewString()[:8]

	players := make([]model.Player, n)
	for i := range players {
		fn := names[i%len(names)]
		players[i] = model.Player{
			ID:           fmt.Sprintf("lt-%s-%03d", run, i),
			Name:         fmt.Sprintf("%s-%03d", fn, i),
			FunctionName: fn,
			ShortTactic:  "load test " + fn,
		}
	}
	return players
}

// pickPlayers returns size distinct ids drawn from players.
func pickPlayers(rng *rand.Rand, players []model.Player, size int) []string {
	perm := rng.Perm(len(players))
	ids := make([]string, size)
	for i := range ids {
		ids[i] = players[perm[i]].ID
	}
	return ids
}
