// Package store provides storage backends for HallBook.
//
// This file implements a Redis-backed session store so several HallBook
// processes can share conversations.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Redis session store defaults
const (
	// DefaultSessionTTL is how long an untouched session survives in Redis
	DefaultSessionTTL = 24 * time.Hour
	// DefaultKeyPrefix namespaces HallBook session keys
	DefaultKeyPrefix = "hallbook:session:"
	// DefaultRedisPingTimeout bounds the connectivity check at startup
	DefaultRedisPingTimeout = 2 * time.Second
)

// RedisStore is a SessionStore persisting sessions as JSON values with a TTL.
// Lock is process-local: events for one conversation must reach one process.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	locks  *KeyedMutex
}

// Compile-time check that RedisStore implements SessionStore.
var _ SessionStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis using the provided options.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisStore invoked", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "password_set", cfg.RedisPassword != "")

	if cfg.RedisAddr == "" {
		slog.Error("RedisStore address not set")
		return nil, fmt.Errorf("redis address not set")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRedisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err, "addr", cfg.RedisAddr)
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	slog.Debug("Redis ping successful", "addr", cfg.RedisAddr)

	return NewRedisStoreWithClient(client, cfg.SessionTTL, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client. Zero ttl or empty prefix
// fall back to the defaults.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, prefix string) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		locks:  NewKeyedMutex(),
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		slog.Error("RedisStore save failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to store session %s: %w", session.ID, err)
	}
	return nil
}

// Create replaces any existing session for id with a fresh one.
func (s *RedisStore) Create(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, models.ErrEmptySessionID
	}
	session := models.NewSession(id, time.Now())
	if err := s.save(ctx, session); err != nil {
		return models.Session{}, err
	}
	slog.Debug("RedisStore Create succeeded", "sessionID", id)
	return session, nil
}

// Get loads the session for id.
func (s *RedisStore) Get(ctx context.Context, id string) (models.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	if err != nil {
		slog.Error("RedisStore Get failed", "error", err, "sessionID", id)
		return models.Session{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Error("RedisStore Get JSON unmarshal failed", "error", err, "sessionID", id)
		return models.Session{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return session, nil
}

// Update applies fn to the stored session and writes it back if fn succeeds.
// The TTL restarts on every successful update.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*models.Session) error) (models.Session, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Session{}, err
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return current, err
	}
	next.ID = id
	next.UpdatedAt = time.Now()

	if err := s.save(ctx, next); err != nil {
		return current, err
	}
	slog.Debug("RedisStore Update succeeded", "sessionID", id, "state", next.State)
	return next, nil
}

// Clear deletes the session for id.
func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		slog.Error("RedisStore Clear failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to clear session %s: %w", id, err)
	}
	slog.Debug("RedisStore Clear succeeded", "sessionID", id)
	return nil
}

// Lock serializes work on a single session id within this process.
func (s *RedisStore) Lock(id string) func() {
	return s.locks.Lock(id)
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	slog.Debug("Closing Redis client")
	return s.client.Close()
}
