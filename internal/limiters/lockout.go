package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds configuration for the failed-login lockout limiter.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Window    time.Duration // sliding window for counting failures
	Duration  time.Duration // how long a lock lasts once triggered
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// LockoutLimiter tracks failed login attempts per email and locks further
// attempts once the threshold is reached within the sliding window.
//
// Failures are keyed by the submitted email, not a user ID, so attempts
// against unknown accounts are throttled the same way as attempts against
// real ones.
type LockoutLimiter struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(redisClient redis.UniversalClient, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{redis: redisClient, config: cfg}
}

func (l *LockoutLimiter) failKey(email string) string {
	return "alo:fail:" + email
}

func (l *LockoutLimiter) lockKey(email string) string {
	return "alo:lock:" + email
}

// Check reports whether the email is currently locked out and, if so, how
// long until the lock expires. A zero duration means not locked.
func (l *LockoutLimiter) Check(ctx context.Context, email string) (time.Duration, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	pttl, err := l.redis.PTTL(ctx, l.lockKey(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if pttl <= 0 {
		return 0, nil
	}
	return pttl, nil
}

// RecordFailure increments the failure counter for an email and refreshes
// the window TTL, so the counter only resets after a quiet period of the
// full window length. Returns true when this failure reached the threshold
// and the lock was set.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, email string) (bool, error) {
	if !l.config.Enabled || email == "" {
		return false, nil
	}

	key := l.failKey(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	if l.config.Window > 0 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
		}
	}

	if count < int64(l.config.Threshold) {
		return false, nil
	}

	if err := l.redis.Set(ctx, l.lockKey(email), count, l.config.Duration).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return true, nil
}

// Reset clears the failure counter and any active lock for an email,
// typically after a successful login or a completed password reset.
func (l *LockoutLimiter) Reset(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.failKey(email), l.lockKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Attempts returns the current failure count within the window for an email.
func (l *LockoutLimiter) Attempts(ctx context.Context, email string) (int, error) {
	if !l.config.Enabled || email == "" {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.failKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return int(count), nil
}
