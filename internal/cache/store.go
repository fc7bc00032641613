package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON cache over Redis. A Store without a client is valid and
// behaves as a permanent miss.
type Store struct {
	client *redis.Client
}

// New wraps client, which may be nil.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled reports whether a Redis client is attached.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Ping checks Redis reachability. A disabled store is always healthy.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// SetJSONNX is SetJSON that leaves an existing entry alone. It reports whether
// the key was written.
func (s *Store) SetJSONNX(ctx context.Context, key string, v any, ttl time.Duration) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, b, ttl).Result()
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest)
// and fills the cache with ttl. The fill never replaces an entry written in
// the meantime, so a writer's value wins over a slower reader's.
// Cache failures degrade to a plain fetch. The returned bool reports a cache hit.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) (bool, error) {
	found, readErr := s.GetJSON(ctx, key, dest)
	if readErr != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key), slog.String("error", readErr.Error()))
	}
	if found {
		return true, nil
	}

	if err := fetch(); err != nil {
		return false, err
	}

	// An unreadable entry is replaced; otherwise a concurrent writer's entry wins.
	fill := s.SetJSONNX
	if readErr != nil {
		fill = func(ctx context.Context, key string, v any, ttl time.Duration) (bool, error) {
			return true, s.SetJSON(ctx, key, v, ttl)
		}
	}
	if _, err := fill(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return false, nil
}

// Invalidate drops key. Failures are logged; the entry will expire on its own.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
