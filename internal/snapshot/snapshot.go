// Package snapshot persists store state to Redis and fans writes out to
// other running sessions over a pub/sub change feed. Each session tags its
// publications with its own id so it can discard its own writes when they
// echo back on the channel.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contacts_backend/platform/config"
	"contacts_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChannelChanges carries one JSON ChangeEvent per snapshot write.
const ChannelChanges = "contacts:changes"

// ChangeEvent is the wire form of a snapshot write notification.
type ChangeEvent struct {
	SessionID string `json:"sessionId"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// Repository stores whole-value snapshots under well-known keys and
// notifies other sessions of every successful write.
type Repository struct {
	client    *redis.Client
	sessionID string
	log       *logger.Logger
}

// New connects to Redis using a URL and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*Repository, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, log), nil
}

// NewWithClient wraps an existing client. Used by tests with miniredis.
func NewWithClient(client *redis.Client, log *logger.Logger) *Repository {
	return &Repository{
		client:    client,
		sessionID: uuid.NewString(),
		log:       log,
	}
}

// SessionID returns this session's change-feed identity.
func (r *Repository) SessionID() string { return r.sessionID }

// Ping verifies the Redis connection for health checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection.
func (r *Repository) Close() error { return r.client.Close() }

// Save writes a snapshot value and announces the change. The announcement
// is best-effort: a publish failure is logged, the write stands.
func (r *Repository) Save(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}

	payload, err := json.Marshal(ChangeEvent{SessionID: r.sessionID, Key: key, Value: value})
	if err != nil {
		return nil
	}
	if err := r.client.Publish(ctx, ChannelChanges, payload).Err(); err != nil {
		r.log.PersistenceError(key, err)
	}
	return nil
}

// Load reads a snapshot value. A missing key is not an error.
func (r *Repository) Load(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return value, true, nil
}

// Clear removes the given snapshot keys.
func (r *Repository) Clear(ctx context.Context, keys ...string) error {
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

// Subscribe delivers change events written by OTHER sessions until ctx is
// cancelled. Malformed feed messages and this session's own echoes are
// dropped. The returned channel closes when the subscription ends.
func (r *Repository) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	sub := r.client.Subscribe(ctx, ChannelChanges)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", ChannelChanges, err)
	}

	out := make(chan ChangeEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					r.log.ReconcileError(ChannelChanges, err)
					continue
				}
				if evt.SessionID == r.sessionID {
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
