package authkit

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/peopleops/authkit/internal"
	"github.com/peopleops/authkit/jwt"
)

// Fine-grained refresh failure causes. Each wraps ErrRefreshInvalid, so the
// caller-facing contract stays a single coarse sentinel while the audit
// trail can record which check actually tripped.
var (
	errRefreshMalformed        = fmt.Errorf("%w: token failed parse or signature check", ErrRefreshInvalid)
	errRefreshUnknownPrincipal = fmt.Errorf("%w: principal no longer exists", ErrRefreshInvalid)
	errRefreshRevoked          = fmt.Errorf("%w: hash not in tracked set", ErrRefreshInvalid)
)

// tokenService layers refresh-token tracking on top of the stateless JWT
// manager. A refresh token is only honored while its SHA-256 hash is present
// in the principal's tracked hash list, so revocation works even though the
// JWT itself stays cryptographically valid until expiry.
//
// Rotation for a given principal is serialized through a per-principal
// mutex. Two concurrent rotations of the same token therefore resolve to
// exactly one winner; the loser fails the membership check.
type tokenService struct {
	jwt   *jwt.Manager
	users UserStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTokenService(manager *jwt.Manager, users UserStore) *tokenService {
	return &tokenService{
		jwt:   manager,
		users: users,
		locks: make(map[string]*sync.Mutex),
	}
}

// principalLock returns the rotation mutex for userID, creating it on first
// use. The map grows with the active principal population, which is bounded
// by the host's user table.
func (t *tokenService) principalLock(userID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[userID] = lock
	}
	return lock
}

// Issue mints a fresh token pair for the principal and persists the new
// refresh hash through the user store. The principal's in-memory hash list
// is updated to match what was persisted.
func (t *tokenService) Issue(ctx context.Context, principal *Principal) (jwt.TokenPair, error) {
	lock := t.principalLock(principal.ID)
	lock.Lock()
	defer lock.Unlock()

	pair, err := t.jwt.IssuePair(principal.ID, principal.Email, principal.Role)
	if err != nil {
		return jwt.TokenPair{}, err
	}

	hashes := appendHash(principal.RefreshTokenHashes, internal.HashToken(pair.RefreshToken))
	if err := t.users.Update(ctx, principal.ID, PrincipalUpdate{RefreshTokenHashes: &hashes}); err != nil {
		return jwt.TokenPair{}, err
	}
	principal.RefreshTokenHashes = hashes

	return pair, nil
}

// VerifyRefresh checks both layers of refresh validity: the JWT signature
// and claims, then hash membership in the principal's tracked list. Every
// failure mode matches ErrRefreshInvalid; the returned error additionally
// identifies which layer rejected the token.
func (t *tokenService) VerifyRefresh(ctx context.Context, refreshToken string) (*Principal, *jwt.Claims, error) {
	claims, err := t.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, nil, errRefreshMalformed
	}

	principal, err := t.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, errRefreshUnknownPrincipal
	}

	if !containsHash(principal.RefreshTokenHashes, internal.HashToken(refreshToken)) {
		return nil, nil, errRefreshRevoked
	}

	return principal, claims, nil
}

// Rotate exchanges oldToken for a fresh pair. The old hash is removed and
// the new one appended in a single store update, under the principal's
// rotation lock. A token that lost a concurrent rotation race fails here
// with ErrRefreshInvalid.
func (t *tokenService) Rotate(ctx context.Context, principal *Principal, oldToken string) (jwt.TokenPair, error) {
	lock := t.principalLock(principal.ID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read inside the lock: a concurrent rotation may have consumed the
	// hash after VerifyRefresh but before we got here.
	current, err := t.users.FindByID(ctx, principal.ID)
	if err != nil {
		return jwt.TokenPair{}, errRefreshUnknownPrincipal
	}

	oldHash := internal.HashToken(oldToken)
	if !containsHash(current.RefreshTokenHashes, oldHash) {
		return jwt.TokenPair{}, errRefreshRevoked
	}

	pair, err := t.jwt.IssuePair(current.ID, current.Email, current.Role)
	if err != nil {
		return jwt.TokenPair{}, err
	}

	hashes := removeHash(current.RefreshTokenHashes, oldHash)
	hashes = appendHash(hashes, internal.HashToken(pair.RefreshToken))
	if err := t.users.Update(ctx, current.ID, PrincipalUpdate{RefreshTokenHashes: &hashes}); err != nil {
		return jwt.TokenPair{}, err
	}
	principal.RefreshTokenHashes = hashes

	return pair, nil
}

// RevokeHash removes a single tracked refresh hash from the principal.
// Unknown hashes are a no-op.
func (t *tokenService) RevokeHash(ctx context.Context, userID, refreshHash string) error {
	lock := t.principalLock(userID)
	lock.Lock()
	defer lock.Unlock()

	principal, err := t.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !containsHash(principal.RefreshTokenHashes, refreshHash) {
		return nil
	}

	hashes := removeHash(principal.RefreshTokenHashes, refreshHash)
	return t.users.Update(ctx, userID, PrincipalUpdate{RefreshTokenHashes: &hashes})
}

// RevokeAll clears every tracked refresh hash for the principal, killing
// all outstanding refresh tokens at once.
func (t *tokenService) RevokeAll(ctx context.Context, userID string) error {
	lock := t.principalLock(userID)
	lock.Lock()
	defer lock.Unlock()

	empty := []string{}
	return t.users.Update(ctx, userID, PrincipalUpdate{RefreshTokenHashes: &empty})
}

func appendHash(hashes []string, hash string) []string {
	out := make([]string, 0, len(hashes)+1)
	out = append(out, hashes...)
	return append(out, hash)
}

func removeHash(hashes []string, hash string) []string {
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if subtle.ConstantTimeCompare([]byte(h), []byte(hash)) == 1 {
			continue
		}
		out = append(out, h)
	}
	return out
}

func containsHash(hashes []string, hash string) bool {
	found := false
	for _, h := range hashes {
		if subtle.ConstantTimeCompare([]byte(h), []byte(hash)) == 1 {
			found = true
		}
	}
	return found
}
