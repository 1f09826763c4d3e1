// Package config defines process configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Job runners.
const (
	RunnerInline = "inline"
	RunnerRiver  = "river"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Storage selects memory or postgres.
	Storage     string `koanf:"storage"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// RedisAddr enables status notifications when set.
	RedisAddr string `koanf:"redis_addr"`

	// JobRunner selects inline or river. River needs postgres storage.
	JobRunner     string `koanf:"job_runner"`
	MaxConcurrent int    `koanf:"max_concurrent"`

	// Tournament execution.
	WorkerCount       int     `koanf:"worker_count"`
	Repetitions       int     `koanf:"repetitions"`
	MaxRounds         int     `koanf:"max_rounds"`
	EndProbability    float64 `koanf:"end_probability"`
	DecisionTimeoutMS int     `koanf:"decision_timeout_ms"`
	CleanupChunkSize  int     `koanf:"cleanup_chunk_size"`
	RecordRounds      bool    `koanf:"record_rounds"`
	Seed              uint64  `koanf:"seed"`

	// RosterPath is a YAML file of players registered at startup.
	RosterPath string `koanf:"roster_path"`

	// DedupeSize sets the size of the dispatch idempotency guard.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Storage:           StorageMemory,
		JobRunner:         RunnerInline,
		MaxConcurrent:     4,
		WorkerCount:       4,
		Repetitions:       100,
		MaxRounds:         1000,
		EndProbability:    0.005,
		DecisionTimeoutMS: 250,
		CleanupChunkSize:  1000,
		DedupeSize:        10_000,
	}
}

// DecisionTimeout returns DecisionTimeoutMS as a duration.
func (c *Config) DecisionTimeout() time.Duration {
	return time.Duration(c.DecisionTimeoutMS) * time.Millisecond
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.Storage != StorageMemory && c.Storage != StoragePostgres:
		return fmt.Errorf("%w: storage must be %s or %s, got %q", ErrInvalidConfig, StorageMemory, StoragePostgres, c.Storage)
	case c.Storage == StoragePostgres && strings.TrimSpace(c.PostgresDSN) == "":
		return fmt.Errorf("%w: postgres_dsn is required with postgres storage", ErrInvalidConfig)
	case c.JobRunner != RunnerInline && c.JobRunner != RunnerRiver:
		return fmt.Errorf("%w: job_runner must be %s or %s, got %q", ErrInvalidConfig, RunnerInline, RunnerRiver, c.JobRunner)
	case c.JobRunner == RunnerRiver && c.Storage != StoragePostgres:
		return fmt.Errorf("%w: the river job runner needs postgres storage", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.Repetitions < 1:
		return fmt.Errorf("%w: repetitions must be positive", ErrInvalidConfig)
	case c.MaxRounds < 1:
		return fmt.Errorf("%w: max_rounds must be positive", ErrInvalidConfig)
	case c.EndProbability < 0 || c.EndProbability > 1:
		return fmt.Errorf("%w: end_probability must be within [0,1]", ErrInvalidConfig)
	case c.DecisionTimeoutMS < 1:
		return fmt.Errorf("%w: decision_timeout_ms must be positive", ErrInvalidConfig)
	case c.CleanupChunkSize < 1:
		return fmt.Errorf("%w: cleanup_chunk_size must be positive", ErrInvalidConfig)
	}
	return nil
}
