package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/dilemma/internal/loadtest"
)

func newLoadCommand() *cobra.Command {
	cfg := loadtest.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Register players and run tournaments against a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := loadtest.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			cmd.Printf("players=%d created=%d finished=%d rejected=%d polls=%d duration=%s\n",
				stats.PlayersRegistered, stats.TournamentsCreated, stats.TournamentsFinished,
				stats.TournamentsRejected, stats.Polls, stats.Duration)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&cfg.BaseURL, "url", loadtest.DefaultBaseURL, "base URL of the service")
	fl.IntVar(&cfg.Players, "players", loadtest.DefaultPlayers, "players to register")
	fl.IntVar(&cfg.Tournaments, "tournaments", loadtest.DefaultTournaments, "tournaments to create")
	fl.IntVar(&cfg.TournamentSize, "size", loadtest.DefaultTournamentSize, "players per tournament")
	fl.IntVar(&cfg.Workers, "workers", loadtest.DefaultWorkers, "concurrent HTTP workers")
	fl.DurationVar(&cfg.Timeout, "timeout", loadtest.DefaultTimeout, "HTTP request timeout")
	fl.DurationVar(&cfg.PollInterval, "poll", loadtest.DefaultPollInterval, "delay between polls")
	fl.BoolVar(&cfg.Verbose, "verbose", false, "log every poll")
	return cmd
}
