package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/dilemma/internal/adapters/http/api"
	"github.com/okian/dilemma/internal/adapters/http/swagger"
	"github.com/okian/dilemma/internal/adapters/jobs"
	"github.com/okian/dilemma/internal/adapters/notify"
	"github.com/okian/dilemma/internal/adapters/repository"
	"github.com/okian/dilemma/internal/adapters/repository/postgres"
	"github.com/okian/dilemma/internal/adapters/sandbox"
	service "github.com/okian/dilemma/internal/app"
	"github.com/okian/dilemma/internal/config"
	"github.com/okian/dilemma/internal/domain/match"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/internal/roster"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/okian/dilemma/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// components is everything main starts and has to stop again.
type components struct {
	svc      *service.Service
	inline   *jobs.Inline
	river    *jobs.River
	closers  []func() error
	handlers *http.ServeMux
}

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c, err := build(ctx, cfg)
	if err != nil {
		log.Fatal(ctx, "failed to build service", logger.Error(err))
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           c.handlers,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	c.shutdown(shutdownCtx)

	log.Info(shutdownCtx, "server stopped")
}

// build wires storage, strategies, notifications and the job runner into a
// started service and its HTTP routes. ctx bounds the lifetime of inline
// runs.
func build(ctx context.Context, cfg *config.Config) (*components, error) {
	log := logger.Get()
	c := &components{}

	store, err := openStore(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	notifier := notify.Notifier(notify.Nop{})
	if cfg.RedisAddr != "" {
		r, err := notify.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			c.close()
			return nil, err
		}
		c.closers = append(c.closers, r.Close)
		notifier = r
		log.Info(ctx, "redis notifications enabled", logger.String("addr", cfg.RedisAddr))
	}

	c.svc = service.New(
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithResolver(strategy.Chain(strategy.Builtins(), sandbox.NewResolver())),
		service.WithNotifier(notifier),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithRepetitions(cfg.Repetitions),
		service.WithSeed(cfg.Seed),
		service.WithCleanupChunkSize(cfg.CleanupChunkSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMatchOptions(
			match.WithMaxRounds(cfg.MaxRounds),
			match.WithEndProbability(cfg.EndProbability),
			match.WithDecisionTimeout(cfg.DecisionTimeout()),
			match.WithRecordRounds(cfg.RecordRounds),
		),
	)

	if cfg.RosterPath != "" {
		if err := registerRoster(ctx, c.svc, cfg.RosterPath); err != nil {
			c.close()
			return nil, err
		}
	}

	switch cfg.JobRunner {
	case config.RunnerRiver:
		r, err := jobs.NewRiver(ctx, cfg.PostgresDSN, c.svc, jobs.WithRiverWorkers(cfg.MaxConcurrent))
		if err != nil {
			c.close()
			return nil, err
		}
		if err := r.Migrate(ctx); err != nil {
			c.close()
			return nil, err
		}
		if err := r.Start(ctx); err != nil {
			c.close()
			return nil, err
		}
		c.river = r
		c.svc.SetDispatcher(r)
	default:
		c.inline = jobs.NewInline(ctx, c.svc, jobs.WithMaxConcurrent(cfg.MaxConcurrent))
		c.svc.SetDispatcher(c.inline)
	}

	if err := c.svc.Start(ctx); err != nil {
		c.close()
		return nil, err
	}

	c.handlers = http.NewServeMux()
	swagger.Register(c.handlers)
	api.NewServer(c.svc, c.svc).Register(c.handlers)

	log.Info(ctx, "service wired",
		logger.String("storage", cfg.Storage),
		logger.String("job_runner", cfg.JobRunner),
		logger.Int("max_concurrent", cfg.MaxConcurrent),
	)
	return c, nil
}

func openStore(ctx context.Context, cfg *config.Config, c *components) (repository.Store, error) {
	if cfg.Storage != config.StoragePostgres {
		return repository.NewMemoryStore(), nil
	}
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	c.closers = append(c.closers, store.Close)
	return store, nil
}

// registerRoster registers every player in the roster at path. Players
// already stored by an earlier start are skipped.
func registerRoster(ctx context.Context, svc *service.Service, path string) error {
	players, err := roster.Load(path)
	if err != nil {
		return err
	}
	log := logger.Get()
	registered := 0
	for _, p := range players {
		if _, err := svc.RegisterPlayer(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				log.Debug(ctx, "roster player already registered", logger.String("player_id", p.ID))
				continue
			}
			return err
		}
		registered++
	}
	log.Info(ctx, "roster loaded",
		logger.String("path", path),
		logger.Int("players", len(players)),
		logger.Int("registered", registered),
	)
	return nil
}

// shutdown stops new tournaments, drains running ones and releases
// connections.
func (c *components) shutdown(ctx context.Context) {
	log := logger.Get()
	c.svc.Stop()
	if c.inline != nil {
		if err := c.inline.Wait(ctx); err != nil {
			log.Warn(ctx, "tournaments still running at shutdown", logger.Error(err))
		}
	}
	if c.river != nil {
		if err := c.river.Stop(ctx); err != nil {
			log.Warn(ctx, "river stop failed", logger.Error(err))
		}
	}
	c.close()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Get().Warn(context.Background(), "close failed", logger.Error(err))
		}
	}
	c.closers = nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
