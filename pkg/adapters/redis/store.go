package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aretw0/relay/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces relay keys.
const DefaultPrefix = "relay:session:"

// indexSuffix names the expiry index under the prefix. '#' never appears in a
// session id, so the index cannot collide with a session key.
const indexSuffix = "#index"

// Store keeps control states in Redis, one JSON value per session.
//
// Alongside the values it maintains a sorted set of session ids scored by the
// unix second at which the value expires. Redis drops expired values on its
// own; List trims the set to match. Sessions without a TTL score +Inf.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL expires sessions that see no committed turn for ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix replaces DefaultPrefix. An empty prefix is ignored.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock sets the time source used to score the expiry index.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New dials addr and returns a store that owns the connection.
func New(addr, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client. Close closes it.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client is shared with the Locker so both use one connection pool.
func (s *Store) Client() *backend.Client { return s.client }

// Prefix is the namespace of every key the store writes.
func (s *Store) Prefix() string { return s.prefix }

func (s *Store) sessionKey(id string) string { return s.prefix + id }

func (s *Store) indexKey() string { return s.prefix + indexSuffix }

func (s *Store) expiresAt() float64 {
	if s.ttl <= 0 {
		return math.Inf(1)
	}
	return float64(s.now().Add(s.ttl).Unix())
}

// Save writes the state and refreshes its place in the expiry index atomically.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.ControlState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Set(ctx, s.sessionKey(sessionID), raw, s.ttl)
		tx.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.expiresAt(), Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", sessionID, err)
	}
	return nil
}

// Load returns domain.ErrSessionNotFound for unknown or expired sessions.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ControlState, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	switch {
	case errors.Is(err, backend.Nil):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("redis load %s: %w", sessionID, err)
	}

	state := new(domain.ControlState)
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

// Delete drops the value and its index entry. Unknown sessions are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(tx backend.Pipeliner) error {
		tx.Del(ctx, s.sessionKey(sessionID))
		tx.ZRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", sessionID, err)
	}
	return nil
}

// List returns the ids of sessions that have not expired yet.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cutoff := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", cutoff).Err(); err != nil {
		return nil, fmt.Errorf("redis trim index: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	return ids, nil
}

// Ping reports whether the server answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
