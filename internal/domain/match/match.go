// Package match simulates a single iterated Prisoner's Dilemma match.
package match

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/payoff"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/pkg/metrics"
)

// Default match configuration constants.
const (
	DefaultMaxRounds       = 1000
	DefaultEndProbability  = 0.005
	DefaultDecisionTimeout = 250 * time.Millisecond
)

// Forfeit names the way a strategy broke its contract in a round.
type Forfeit string

// Forfeit reasons.
const (
	ForfeitPanic   Forfeit = "panic"
	ForfeitTimeout Forfeit = "timeout"
	ForfeitInvalid Forfeit = "invalid_choice"
)

// Contestant pairs a player with its resolved strategy.
type Contestant struct {
	Player   model.Player
	Strategy strategy.Strategy
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithMaxRounds sets the hard cap on rounds per match.
func WithMaxRounds(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxRounds = n
		}
	}
}

// WithEndProbability sets the per-round probability that the match stops.
func WithEndProbability(p float64) Option {
	return func(r *Runner) {
		if p >= 0 && p <= 1 {
			r.endProbability = p
		}
	}
}

// WithDecisionTimeout bounds each strategy call.
func WithDecisionTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRecordRounds keeps every round on the returned match.
func WithRecordRounds(enabled bool) Option {
	return func(r *Runner) {
		r.recordRounds = enabled
	}
}

// Runner plays matches. It holds no per-match state and is safe for
// concurrent use.
type Runner struct {
	maxRounds      int
	endProbability float64
	timeout        time.Duration
	recordRounds   bool
}

// NewRunner creates a Runner with configuration options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxRounds:      DefaultMaxRounds,
		endProbability: DefaultEndProbability,
		timeout:        DefaultDecisionTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Play runs one match between home and away. The match ends when a draw
// from rng falls below the end probability after a round, or at the round
// cap. A nil rng uses a randomly seeded source.
//
// Strategy failures never abort the match; they forfeit the round. The only
// error returned is the context's, in which case no match is produced.
func (r *Runner) Play(ctx context.Context, sessionID string, home, away Contestant, rng *rand.Rand) (model.Match, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // simulation randomness
	}

	m := model.Match{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		HomePlayerID: home.Player.ID,
		AwayPlayerID: away.Player.ID,
		CreatedAt:    time.Now().UTC(),
	}

	var homeHistory, awayHistory model.History
	for round := 1; round <= r.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return model.Match{}, err
		}

		homeChoice, homeForfeit := r.decide(ctx, home.Strategy, homeHistory)
		awayChoice, awayForfeit := r.decide(ctx, away.Strategy, awayHistory)
		if err := ctx.Err(); err != nil {
			return model.Match{}, err
		}

		rec := model.Round{
			Number:      round,
			HomeChoice:  homeChoice,
			AwayChoice:  awayChoice,
			HomeForfeit: homeForfeit != "",
			AwayForfeit: awayForfeit != "",
		}
		// A forfeiting side is seen as having defected.
		if rec.HomeForfeit {
			rec.HomeChoice = model.Defect
			metrics.RecordStrategyForfeit(string(homeForfeit))
		}
		if rec.AwayForfeit {
			rec.AwayChoice = model.Defect
			metrics.RecordStrategyForfeit(string(awayForfeit))
		}

		homeScore, awayScore := payoff.Round(rec)
		m.HomeScore += homeScore
		m.AwayScore += awayScore
		m.RoundCount = round

		homeHistory = append(homeHistory, model.Move{Own: rec.HomeChoice, Opponent: rec.AwayChoice})
		awayHistory = append(awayHistory, model.Move{Own: rec.AwayChoice, Opponent: rec.HomeChoice})
		if r.recordRounds {
			m.Rounds = append(m.Rounds, rec)
		}

		if rng.Float64() < r.endProbability {
			break
		}
	}

	metrics.RecordMatchPlayed(m.RoundCount)
	return m, nil
}

type outcome struct {
	choice   model.Choice
	panicked bool
}

// decide invokes s on its own goroutine so a panicking or stuck strategy
// cannot take the worker down. A call abandoned on timeout keeps running
// until it returns; its result is discarded.
func (r *Runner) decide(ctx context.Context, s strategy.Strategy, h model.History) (model.Choice, Forfeit) {
	start := time.Now()
	defer func() {
		metrics.RecordDecisionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	// The strategy gets its own copy; an abandoned call may still read it
	// after the match moves on.
	view := slices.Clone(h)
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{panicked: true}
			}
		}()
		done <- outcome{choice: s.Decide(view)}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		switch {
		case o.panicked:
			return "", ForfeitPanic
		case !o.choice.Valid():
			return "", ForfeitInvalid
		}
		return o.choice, ""
	case <-timer.C:
		return "", ForfeitTimeout
	case <-ctx.Done():
		return "", ForfeitTimeout
	}
}
