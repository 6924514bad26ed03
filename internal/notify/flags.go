package notify

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// FlagStore persists the scheduler's per-user booleans across process
// restarts: permission preference, welcome-sent, settings-alert-seen.
type FlagStore interface {
	// SetIfAbsent sets the flag and reports whether this call created it.
	// The guard behind "exactly once" semantics.
	SetIfAbsent(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key, value string) error
	// Get returns the stored value, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)
}

// RedisFlagStore keeps flags in Redis so they survive restarts.
type RedisFlagStore struct {
	client *redis.Client
	prefix string
}

func NewRedisFlagStore(client *redis.Client) *RedisFlagStore {
	return &RedisFlagStore{client: client, prefix: "recap:notify:"}
}

func (s *RedisFlagStore) SetIfAbsent(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, "1", 0).Result()
}

func (s *RedisFlagStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *RedisFlagStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}
