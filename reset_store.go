package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errResetNotFound         = errors.New("reset record not found")
	errResetRedisUnavailable = errors.New("reset redis unavailable")
)

// passwordResetStore indexes outstanding reset tokens in Redis by the
// SHA-256 hash of the token, mapping to the principal id. The plaintext
// token exists only in the email handed to the user; the index plus the
// hash stored on the principal are what the confirm step checks.
type passwordResetStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newPasswordResetStore(redisClient redis.UniversalClient, prefix string) *passwordResetStore {
	if prefix == "" {
		prefix = "ak"
	}
	return &passwordResetStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *passwordResetStore) key(tokenHash string) string {
	return s.prefix + ":reset:" + tokenHash
}

// Save records tokenHash -> userID with the reset TTL. Saving a second
// token for the same hash overwrites, which never happens in practice
// because tokens are random UUIDs.
func (s *passwordResetStore) Save(ctx context.Context, tokenHash, userID string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(tokenHash), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errResetRedisUnavailable, err)
	}
	return nil
}

// Consume atomically looks up and deletes the index entry for tokenHash,
// enforcing single use. Unknown or expired hashes return errResetNotFound.
func (s *passwordResetStore) Consume(ctx context.Context, tokenHash string) (string, error) {
	userID, err := s.redis.GetDel(ctx, s.key(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errResetNotFound
		}
		return "", fmt.Errorf("%w: %v", errResetRedisUnavailable, err)
	}
	return userID, nil
}

// Invalidate drops the index entry for tokenHash without consuming it.
// Used when a newer reset request supersedes an outstanding token.
func (s *passwordResetStore) Invalidate(ctx context.Context, tokenHash string) error {
	if err := s.redis.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errResetRedisUnavailable, err)
	}
	return nil
}
