package loadtest

import "time"

// Defaults applied by Normalize.
const (
	DefaultBaseURL        = "http://localhost:9080"
	DefaultPlayers        = 20
	DefaultTournaments    = 10
	DefaultTournamentSize = 4
	DefaultWorkers        = 8
	DefaultTimeout        = 30 * time.Second
	DefaultPollInterval   = 250 * time.Millisecond
)

// Normalize fills zero fields with defaults and clamps the tournament size
// to the player count.
func (c *Config) Normalize() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Players <= 0 {
		c.Players = DefaultPlayers
	}
	if c.Tournaments <= 0 {
		c.Tournaments = DefaultTournaments
	}
	if c.TournamentSize < 2 {
		c.TournamentSize = DefaultTournamentSize
	}
	if c.TournamentSize > c.Players {
		c.TournamentSize = c.Players
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}
