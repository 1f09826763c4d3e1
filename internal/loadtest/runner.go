package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/pkg/logger"
)

// tournament is one created session and the names of its players.
type tournament struct {
	id    string
	names []string
}

type tournamentResponse struct {
	SessionID string         `json:"session_id"`
	Status    string         `json:"status"`
	Results   *model.Results `json:"results"`
}

// Run executes the complete load test and returns its statistics.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.Normalize()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting dilemma load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("tournaments", cfg.Tournaments),
		logger.Int("tournamentSize", cfg.TournamentSize),
		logger.Int("workers", cfg.Workers),
	)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Register players
	players := generatePlayers(cfg.Players)
	if err := registerPlayers(ctx, cfg, client, players, stats); err != nil {
		return stats, fmt.Errorf("player registration failed: %w", err)
	}

	// Step 3: Create tournaments
	created, err := createTournaments(ctx, cfg, client, players, stats)
	if err != nil {
		return stats, fmt.Errorf("tournament creation failed: %w", err)
	}

	// Step 4: Poll until every tournament publishes and check its results
	if err := awaitResults(ctx, cfg, client, created, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *httpClient) error {
	code, _, err := client.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	// The service answers with Prometheus metrics; any 200 is healthy.
	if code != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, code)
	}
	return nil
}

func registerPlayers(ctx context.Context, cfg Config, client *httpClient, players []model.Player, stats *Stats) error {
	var registered atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, p := range players {
		g.Go(func() error {
			code, body, err := client.post(gctx, "/players", p)
			if err != nil {
				return err
			}
			if code != http.StatusCreated {
				return fmt.Errorf("%w: register %s: %d %s", ErrUnexpected, p.ID, code, body)
			}
			registered.Add(1)
			return nil
		})
	}
	err := g.Wait()
	stats.PlayersRegistered = int(registered.Load())
	return err
}

// createTournaments creates cfg.Tournaments sessions. Sessions refused
// because the server is at capacity are counted, not treated as failures.
func createTournaments(ctx context.Context, cfg Config, client *httpClient, players []model.Player, stats *Stats) ([]tournament, error) {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(len(players))))

	out := make([]tournament, 0, cfg.Tournaments)
	for i := 0; i < cfg.Tournaments; i++ {
		ids := pickPlayers(rng, players, cfg.TournamentSize)
		code, body, err := client.post(ctx, "/tournaments", map[string]any{
			"name":       fmt.Sprintf("load-%03d", i),
			"player_ids": ids,
		})
		if err != nil {
			return out, err
		}
		switch code {
		case http.StatusAccepted:
		case http.StatusTooManyRequests, http.StatusConflict:
			stats.TournamentsRejected++
			continue
		default:
			return out, fmt.Errorf("%w: create tournament: %d %s", ErrUnexpected, code, body)
		}

		var resp tournamentResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return out, fmt.Errorf("%w: %w", ErrUnexpected, err)
		}
		t := tournament{id: resp.SessionID}
		for _, id := range ids {
			t.names = append(t.names, names[id])
		}
		out = append(out, t)
		stats.TournamentsCreated++
	}
	return out, nil
}

func awaitResults(ctx context.Context, cfg Config, client *httpClient, created []tournament, stats *Stats) error {
	var finished, polls atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, t := range created {
		g.Go(func() error {
			res, n, err := poll(gctx, cfg, client, t.id)
			polls.Add(int64(n))
			if err != nil {
				return err
			}
			if err := verifyResults(res, t.names); err != nil {
				return fmt.Errorf("tournament %s: %w", t.id, err)
			}
			finished.Add(1)
			return nil
		})
	}
	err := g.Wait()
	stats.TournamentsFinished = int(finished.Load())
	stats.Polls = int(polls.Load())
	return err
}

// poll fetches the session until it carries results.
func poll(ctx context.Context, cfg Config, client *httpClient, id string) (model.Results, int, error) {
	log := logger.Get().Named("loadtest")
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		code, body, err := client.get(ctx, "/tournaments/"+id)
		if err != nil {
			return model.Results{}, n, err
		}
		if code != http.StatusOK {
			return model.Results{}, n, fmt.Errorf("%w: poll %s: %d %s", ErrUnexpected, id, code, body)
		}
		var resp tournamentResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return model.Results{}, n, fmt.Errorf("%w: %w", ErrUnexpected, err)
		}
		if resp.Results != nil {
			return *resp.Results, n, nil
		}
		if cfg.Verbose {
			log.Info(ctx, "tournament running", logger.String("session_id", id), logger.String("status", resp.Status))
		}

		select {
		case <-ctx.Done():
			return model.Results{}, n, ctx.Err()
		case <-ticker.C:
		}
	}
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.TournamentsFinished) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("tournamentsCreated", stats.TournamentsCreated),
		logger.Int("tournamentsFinished", stats.TournamentsFinished),
		logger.Int("tournamentsRejected", stats.TournamentsRejected),
		logger.Int("polls", stats.Polls),
		logger.Duration("duration", stats.Duration),
		logger.Float64("tournamentsPerSecond", perSecond),
	)
}
