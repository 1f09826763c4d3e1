// Package payoff implements the fixed Prisoner's Dilemma payoff matrix.
package payoff

import "github.com/okian/dilemma/internal/domain/model"

// Matrix values.
const (
	Temptation = 5
	Reward     = 3
	Punishment = 1
	Sucker     = 0
)

// Compute returns the scores of a and b for one round.
// Both choices must be valid; callers resolve invalid strategy output first.
func Compute(a, b model.Choice) (int, int) {
	switch {
	case a == model.Cooperate && b == model.Cooperate:
		return Reward, Reward
	case a == model.Cooperate && b == model.Defect:
		return Sucker, Temptation
	case a == model.Defect && b == model.Cooperate:
		return Temptation, Sucker
	default:
		return Punishment, Punishment
	}
}

// Round scores a recorded round, applying the forfeit rule: a forfeiting
// side gets Sucker and its opponent Temptation; if both forfeit neither scores.
func Round(r model.Round) (int, int) {
	switch {
	case r.HomeForfeit && r.AwayForfeit:
		return Sucker, Sucker
	case r.HomeForfeit:
		return Sucker, Temptation
	case r.AwayForfeit:
		return Temptation, Sucker
	default:
		return Compute(r.HomeChoice, r.AwayChoice)
	}
}
