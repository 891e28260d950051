package csrf

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peopleops/authkit/internal"
)

// ErrTokenNotFound is returned when no token exists for the session.
var ErrTokenNotFound = errors.New("csrf token not found")

// ErrTokenMismatch is returned when the presented token does not match the stored one.
var ErrTokenMismatch = errors.New("csrf token mismatch")

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a Redis-backed CSRF token store. Each session holds at most one
// live token; generating a new token for a session replaces the previous one.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a CSRF [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ak"
	}
	return &Store{redis: redis, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":csrf:" + sessionID
}

// Generate mints a fresh random token for the session, replacing any prior
// token, and stores it with the given TTL.
func (s *Store) Generate(ctx context.Context, sessionID string, ttl time.Duration) (string, error) {
	token, err := internal.NewCSRFToken()
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, s.key(sessionID), token, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return token, nil
}

// Validate compares the presented token against the stored one in constant
// time. Returns [ErrTokenNotFound] when no unexpired token exists and
// [ErrTokenMismatch] when the values differ.
func (s *Store) Validate(ctx context.Context, sessionID, token string) error {
	stored, err := s.redis.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

// Get returns the session's current token, or [ErrTokenNotFound].
func (s *Store) Get(ctx context.Context, sessionID string) (string, error) {
	token, err := s.redis.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Invalidate removes the session's token. Removing an absent token is not an
// error.
func (s *Store) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Refresh replaces the session's token with a freshly minted one and
// returns it. The prior token stops validating the moment the new one is
// stored. Equivalent to [Store.Generate]; kept as a separate name so call
// sites read as rotation rather than first issuance.
func (s *Store) Refresh(ctx context.Context, sessionID string, ttl time.Duration) (string, error) {
	return s.Generate(ctx, sessionID, ttl)
}
