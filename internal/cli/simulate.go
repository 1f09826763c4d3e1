package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/adapters/sandbox"
	service "github.com/okian/dilemma/internal/app"
	"github.com/okian/dilemma/internal/domain/match"
	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/schedule"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/internal/roster"
)

type simulateFlags struct {
	roster         string
	name           string
	repetitions    int
	workers        int
	seed           uint64
	maxRounds      int
	endProbability float64
	asJSON         bool
}

func newSimulateCommand() *cobra.Command {
	f := simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play one tournament in memory and print the standings",
		Long: `Play one round-robin tournament without a server or database.

Players come from a YAML roster (--roster). Without one, every builtin
strategy plays once under its own name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.roster, "roster", "", "YAML roster of players")
	fl.StringVar(&f.name, "name", "simulation", "tournament name")
	fl.IntVar(&f.repetitions, "repetitions", schedule.DefaultRepetitions, "matches per pairing")
	fl.IntVar(&f.workers, "workers", 4, "concurrent match workers")
	fl.Uint64Var(&f.seed, "seed", 0, "seed for a reproducible run; 0 draws a fresh one")
	fl.IntVar(&f.maxRounds, "max-rounds", match.DefaultMaxRounds, "round cap per match")
	fl.Float64Var(&f.endProbability, "end-probability", match.DefaultEndProbability, "chance a match ends after each round")
	fl.BoolVar(&f.asJSON, "json", false, "print results as JSON")
	return cmd
}

func runSimulate(cmd *cobra.Command, f simulateFlags) error {
	ctx := cmd.Context()

	players, err := simulationPlayers(f.roster)
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithStore(repository.NewMemoryStore()),
		service.WithResolver(strategy.Chain(strategy.Builtins(), sandbox.NewResolver())),
		service.WithRepetitions(f.repetitions),
		service.WithWorkerCount(f.workers),
		service.WithSeed(f.seed),
		service.WithMatchOptions(
			match.WithMaxRounds(f.maxRounds),
			match.WithEndProbability(f.endProbability),
		),
	)
	svc.SetDispatcher(service.DispatcherFunc(svc.RunTournament))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	ids := make([]string, 0, len(players))
	for _, p := range players {
		saved, err := svc.RegisterPlayer(ctx, p)
		if err != nil {
			return err
		}
		ids = append(ids, saved.ID)
	}

	sess, err := svc.CreateTournament(ctx, f.name, ids)
	if err != nil {
		return err
	}
	if sess.Results == nil {
		return fmt.Errorf("tournament %s ended with status %q and no results", sess.ID, sess.Status)
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.Results)
	}
	return printResults(out, *sess.Results)
}

// simulationPlayers loads the roster at path, or one player per builtin
// strategy when path is empty.
func simulationPlayers(path string) ([]model.Player, error) {
	if path != "" {
		return roster.Load(path)
	}
	names := strategy.Builtins().Names()
	players := make([]model.Player, len(names))
	for i, n := range names {
		players[i] = model.Player{ID: n, Name: n, FunctionName: n}
	}
	return players, nil
}

// printResults writes the leaderboard and then the score matrix, rows and
// columns in ranking order.
func printResults(w io.Writer, res model.Results) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "RANK\tPLAYER\tSCORE\tTACTIC")
	for i, e := range res.Leaderboard {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, e.Name, e.Score, e.ShortTactic)
	}
	fmt.Fprintln(tw)

	order := make([]string, 0, len(res.Leaderboard))
	for _, e := range res.Leaderboard {
		order = append(order, e.Name)
	}
	// Matrix rows missing from the leaderboard still print, after it.
	var extra []string
	for name := range res.Matrix {
		if _, ok := res.Leaderboard.Entry(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	fmt.Fprintln(tw, "VS\t"+strings.Join(order, "\t"))
	for _, row := range order {
		cells := make([]string, 0, len(order)+1)
		cells = append(cells, row)
		for _, col := range order {
			if row == col {
				cells = append(cells, "-")
				continue
			}
			cells = append(cells, fmt.Sprint(res.Matrix[row][col]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
