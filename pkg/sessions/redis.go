package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "displayname_session:"

// RedisStore is a Redis-backed session store, for deployments where the
// identity-provider callback runs in a separate process from the picker.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// RedisOptions configures the Redis-backed store
type RedisOptions struct {
	URL      string
	Password string
	DB       int

	// DefaultTTL applies to sessions stored without an expiry time.
	DefaultTTL time.Duration
}

// NewRedisStore creates a Redis-backed session store and verifies
// connectivity.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if opts.Password != "" {
		ropts.Password = opts.Password
	}
	if opts.DB > 0 {
		ropts.DB = opts.DB
	}

	ropts.DialTimeout = 5 * time.Second
	ropts.ReadTimeout = 3 * time.Second
	ropts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(ropts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client:     client,
		defaultTTL: opts.DefaultTTL,
	}, nil
}

func key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Get returns the session for the identifier, or nil if none exists
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*PendingSession, error) {
	data, err := r.client.Get(ctx, key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var s PendingSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		// If unmarshal fails, delete corrupt data
		r.client.Del(ctx, key(sessionID))
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &s, nil
}

// Put stores a session under its identifier. The Redis TTL follows the
// session expiry, falling back to the store default.
func (r *RedisStore) Put(ctx context.Context, s *PendingSession) error {
	if s.ID == "" {
		return fmt.Errorf("sessions: missing session id")
	}

	ttl := r.defaultTTL
	if !s.ExpiresAt.IsZero() {
		ttl = time.Until(s.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("sessions: expiry must be in the future")
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, key(s.ID), data, ttl).Err()
}

// Delete removes a session; absent identifiers are a no-op
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, key(sessionID)).Err()
}

// Ping checks Redis connectivity
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
