package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long the mirrored status key lives after its last write.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "dilemma:tournament:"

// ErrNoStatus is returned by Status when no status has been mirrored.
var ErrNoStatus = errors.New("no status recorded")

// Redis stores the latest status under a key and publishes it on a channel.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RedisOption configures Redis.
type RedisOption func(*Redis)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string, opts ...RedisOption) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify.Dial %s: %w", addr, err)
	}
	return NewRedis(client, opts...), nil
}

// StatusKey is the key holding the latest status of a session.
func StatusKey(sessionID string) string { return keyPrefix + sessionID + ":status" }

// Channel is the pub/sub channel status updates are published on.
func Channel(sessionID string) string { return keyPrefix + sessionID }

// Notify sets the status key and publishes the value in one round trip.
func (r *Redis) Notify(ctx context.Context, sessionID string, status model.Status) error {
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, StatusKey(sessionID), string(status), r.ttl)
		pipe.Publish(ctx, Channel(sessionID), string(status))
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify.Redis: session %s: %w", sessionID, err)
	}
	return nil
}

// Status reads the mirrored status.
func (r *Redis) Status(ctx context.Context, sessionID string) (model.Status, error) {
	v, err := r.client.Get(ctx, StatusKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("session %s: %w", sessionID, ErrNoStatus)
	}
	if err != nil {
		return "", fmt.Errorf("notify.Redis: %w", err)
	}
	return model.Status(v), nil
}

// Subscribe returns a subscription to a session's status channel.
func (r *Redis) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return r.client.Subscribe(ctx, Channel(sessionID))
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
