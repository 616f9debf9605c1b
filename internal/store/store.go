// Package store provides storage backends for HallBook.
//
// It holds booking sessions (in memory or in Redis) and the sources of busy
// intervals that availability decisions are made against.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/HallBook/internal/models"
)

// SessionStore holds one booking session per conversation id.
//
// Update applies fn to a copy of the stored session and persists the copy
// only when fn returns nil, so a failed transition leaves nothing behind.
// Lock serializes callers working on the same id; different ids never block
// each other.
type SessionStore interface {
	Create(ctx context.Context, id string) (models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
	Update(ctx context.Context, id string, fn func(*models.Session) error) (models.Session, error)
	Clear(ctx context.Context, id string) error
	Lock(id string) (unlock func())
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN           string        // database connection string for busy-interval providers
	RedisAddr     string        // Redis address for the session store
	RedisPassword string        // Redis password
	RedisDB       int           // Redis database number
	SessionTTL    time.Duration // Redis session expiry
	KeyPrefix     string        // Redis key prefix
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) {
		o.RedisAddr = addr
	}
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) Option {
	return func(o *Opts) {
		o.RedisPassword = password
	}
}

// WithRedisDB selects the Redis database number.
func WithRedisDB(db int) Option {
	return func(o *Opts) {
		o.RedisDB = db
	}
}

// WithSessionTTL sets how long an idle session is kept in Redis.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.SessionTTL = ttl
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *Opts) {
		o.KeyPrefix = prefix
	}
}

// InMemoryStore is a SessionStore that keeps sessions in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	locks    *KeyedMutex
}

// Compile-time check that InMemoryStore implements SessionStore.
var _ SessionStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]models.Session),
		locks:    NewKeyedMutex(),
	}
}

// Create replaces any existing session for id with a fresh one.
func (s *InMemoryStore) Create(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		return models.Session{}, models.ErrEmptySessionID
	}
	session := models.NewSession(id, time.Now())

	s.mu.Lock()
	_, replaced := s.sessions[id]
	s.sessions[id] = session
	s.mu.Unlock()

	slog.Debug("InMemoryStore Create succeeded", "sessionID", id, "replaced", replaced)
	return session.Clone(), nil
}

// Get returns a copy of the session for id.
func (s *InMemoryStore) Get(ctx context.Context, id string) (models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return models.Session{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return session.Clone(), nil
}

// Update applies fn to a copy of the session and stores it if fn succeeds.
func (s *InMemoryStore) Update(ctx context.Context, id string, fn func(*models.Session) error) (models.Session, error) {
	s.mu.RLock()
	current, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return models.Session{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return current.Clone(), err
	}
	next.ID = id
	next.UpdatedAt = time.Now()

	s.mu.Lock()
	s.sessions[id] = next
	s.mu.Unlock()

	slog.Debug("InMemoryStore Update succeeded", "sessionID", id, "state", next.State)
	return next.Clone(), nil
}

// Clear removes the session for id. Clearing an absent session is not an error.
func (s *InMemoryStore) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	slog.Debug("InMemoryStore Clear succeeded", "sessionID", id)
	return nil
}

// Lock serializes work on a single session id.
func (s *InMemoryStore) Lock(id string) func() {
	return s.locks.Lock(id)
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
