package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionCorrupt is returned when a stored session blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session blob corrupt")

// Store is a Redis-backed session registry that handles persistence,
// expiration, per-user indexing, and eviction of the least recently active
// sessions when a user exceeds the concurrent-session cap.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ak"
	}
	return &Store{redis: redis, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":sess:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

// Create persists a new session and enforces the per-user cap. When the user
// already holds maxPerUser or more live sessions, the least recently active
// ones are invalidated until maxPerUser-1 remain, then the new session is
// inserted. The evicted sessions are returned so the caller can audit and
// revoke their refresh tokens.
//
//	Performance: O(n) in the user's live session count.
func (s *Store) Create(ctx context.Context, sess *Session, ttl time.Duration, maxPerUser int) ([]*Session, error) {
	var evicted []*Session

	if maxPerUser > 0 {
		live, err := s.ListForUser(ctx, sess.UserID)
		if err != nil {
			return nil, err
		}

		if len(live) >= maxPerUser {
			sort.Slice(live, func(i, j int) bool {
				return live[i].LastActivity < live[j].LastActivity
			})
			drop := len(live) - (maxPerUser - 1)
			for _, victim := range live[:drop] {
				if _, err := s.Invalidate(ctx, victim.ID); err != nil {
					return evicted, err
				}
				evicted = append(evicted, victim)
			}
		}
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return evicted, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
		return nil
	})
	if err != nil {
		return evicted, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return evicted, nil
}

// Get retrieves a session by ID. Returns redis.Nil when the session does not
// exist, is expired, or is no longer active.
//
//	Performance: 1 Redis GET on the happy path.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := decode(data)
	if err != nil {
		return nil, err
	}

	if !sess.Active || sess.Expired(time.Now()) {
		if err := s.deleteSessionAndIndex(ctx, sess.UserID, sessionID); err != nil {
			return nil, err
		}
		return nil, redis.Nil
	}

	return sess, nil
}

// Touch records activity on a session: LastActivity is set to now and the
// stored blob is rewritten with its remaining TTL preserved. Touch is a
// no-op when the session no longer exists.
func (s *Store) Touch(ctx context.Context, sessionID string, now time.Time) error {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := decode(data)
	if err != nil {
		return err
	}

	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pttl <= 0 {
		return nil
	}

	sess.LastActivity = now.Unix()
	updated, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	if err := s.redis.Set(ctx, key, updated, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SetRefreshHash rewrites the refresh-token linkage on a session after a
// rotation, preserving the remaining TTL.
func (s *Store) SetRefreshHash(ctx context.Context, sessionID, refreshHash string) error {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := decode(data)
	if err != nil {
		return err
	}

	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pttl <= 0 {
		return redis.Nil
	}

	sess.RefreshHash = refreshHash
	updated, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	if err := s.redis.Set(ctx, key, updated, pttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ListForUser returns the user's live sessions. Index entries whose session
// key has expired are pruned as a side effect.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*Session, error) {
	userKey := s.userKey(userID)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	now := time.Now()
	sessions := make([]*Session, 0, len(ids))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, ids[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		sess, decErr := decode(data)
		if decErr != nil {
			stale = append(stale, ids[i])
			continue
		}
		if !sess.Active || sess.Expired(now) {
			stale = append(stale, ids[i])
			continue
		}

		sessions = append(sessions, sess)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sessions, nil
}

// Invalidate removes a session. The first call for a live session returns
// true; repeat calls and calls for unknown IDs return false without error.
func (s *Store) Invalidate(ctx context.Context, sessionID string) (bool, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := decode(data)
	if err != nil {
		// Unreadable blob: drop the key so it cannot wedge the registry.
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return false, nil
	}

	if err := s.deleteSessionAndIndex(ctx, sess.UserID, sessionID); err != nil {
		return false, err
	}
	return true, nil
}

// InvalidateAllForUser removes every live session belonging to the user and
// returns the IDs that were removed.
func (s *Store) InvalidateAllForUser(ctx context.Context, userID string) ([]string, error) {
	userKey := s.userKey(userID)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	removed := make([]string, 0, len(ids))
	if len(ids) > 0 {
		pipe := s.redis.Pipeline()
		delCmds := make([]*redis.IntCmd, len(ids))
		for i, id := range ids {
			delCmds[i] = pipe.Del(ctx, s.key(id))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for i, cmd := range delCmds {
			n, cmdErr := cmd.Result()
			if cmdErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
			}
			if n > 0 {
				removed = append(removed, ids[i])
			}
		}
	}

	if err := s.redis.Del(ctx, userKey).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return removed, nil
}

// ActiveCount returns the number of indexed session IDs for a user. The
// count may briefly overstate when sessions have expired but not yet been
// pruned from the index.
func (s *Store) ActiveCount(ctx context.Context, userID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// SweepExpired scans the per-user index sets and removes entries whose
// session keys have expired out of Redis. Returns the number of pruned
// entries. This is an O(n) maintenance operation intended for a background
// sweeper, not request hot paths.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	pattern := s.prefix + ":user:*"
	var (
		cursor uint64
		pruned int
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}

		for _, userKey := range keys {
			ids, err := s.redis.SMembers(ctx, userKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}

			var stale []interface{}
			for _, id := range ids {
				exists, err := s.redis.Exists(ctx, s.key(id)).Result()
				if err != nil {
					return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
				if exists == 0 {
					stale = append(stale, id)
				}
			}
			if len(stale) > 0 {
				if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
					return pruned, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
				}
				pruned += len(stale)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return pruned, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, userID, sessionID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.SRem(ctx, s.userKey(userID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func decode(data []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if sess.ID == "" || sess.UserID == "" {
		return nil, ErrSessionCorrupt
	}
	return &sess, nil
}
