// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"
)

// Choice is a single-round decision of a strategy.
type Choice string

// Valid choices. Anything else returned by a strategy is a contract violation.
const (
	Cooperate Choice = "cooperate"
	Defect    Choice = "defect"
)

// Valid reports whether c is one of the two legal choices.
func (c Choice) Valid() bool {
	return c == Cooperate || c == Defect
}

// Move is one history entry seen from a single participant.
type Move struct {
	Own      Choice
	Opponent Choice
}

// History is the ordered (oldest first) list of moves a participant has
// seen in the current match.
type History []Move

// Round is the persisted record of one played round.
type Round struct {
	Number      int    `json:"round_number"`
	HomeChoice  Choice `json:"home_choice"`
	AwayChoice  Choice `json:"away_choice"`
	HomeForfeit bool   `json:"home_forfeit,omitempty"`
	AwayForfeit bool   `json:"away_forfeit,omitempty"`
}

// Player is a tournament participant. It is owned outside the engine and
// treated as immutable for the duration of a tournament.
type Player struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	FunctionName string `json:"function_name" yaml:"function_name"` // strategy identifier
	ShortTactic  string `json:"short_tactic" yaml:"short_tactic"`
	Code         string `json:"code,omitempty" yaml:"code"` // generated strategy source, optional for builtins
}

// Match is one simulated game between two players of a session.
type Match struct {
	ID           string
	SessionID    string
	HomePlayerID string
	AwayPlayerID string
	HomeScore    int
	AwayScore    int
	RoundCount   int
	Rounds       []Round // only populated when round recording is enabled
	CreatedAt    time.Time
}

// Task is a single (pair, repetition) unit of work.
type Task struct {
	Seq    int
	HomeID string
	AwayID string
}

// Status is the lifecycle label of a session, or a transient integer
// percentage while the tournament is running.
type Status string

// Lifecycle labels.
const (
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
)

// ProgressStatus renders a completion percentage as a status value.
func ProgressStatus(percent int) Status {
	return Status(strconv.Itoa(percent))
}

// Progress returns the percentage carried by s, if any.
func (s Status) Progress() (int, bool) {
	p, err := strconv.Atoi(string(s))
	if err != nil || p < 0 || p > 100 {
		return 0, false
	}
	return p, true
}

// Finished reports whether s is the terminal label.
func (s Status) Finished() bool { return s == StatusFinished }

// Session is a tournament run over an ordered list of players.
type Session struct {
	ID        string
	Name      string
	Status    Status
	PlayerIDs []string
	Results   *Results
	CreatedAt time.Time
	UpdatedAt time.Time
}
