// Package loadtest drives a running dilemma server over HTTP: it registers
// a population of builtin players, runs tournaments between random subsets
// of them and checks every published result for consistency.
package loadtest

import "time"

// Config holds configuration for a load test.
type Config struct {
	BaseURL        string        // Base URL of the service
	Players        int           // Number of players to register
	Tournaments    int           // Number of tournaments to create
	TournamentSize int           // Players per tournament
	Workers        int           // Concurrent HTTP workers
	Timeout        time.Duration // HTTP request timeout
	PollInterval   time.Duration // Delay between polls of a running tournament
	Verbose        bool          // Log every poll
}

// Stats holds test statistics.
type Stats struct {
	PlayersRegistered   int
	TournamentsCreated  int
	TournamentsFinished int
	TournamentsRejected int
	Polls               int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
