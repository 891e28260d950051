package authkit

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/peopleops/authkit/csrf"
	"github.com/peopleops/authkit/internal"
	"github.com/peopleops/authkit/session"
)

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout tears down one client: the refresh token it presented, the session
// it named, and that session's CSRF token. Each part is idempotent, so
// repeating a logout is harmless.
func (e *Engine) Logout(ctx context.Context, refreshToken, sessionID string) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}

	var userID, email string
	if refreshToken != "" {
		if claims, err := e.jwtManager.ParseRefresh(refreshToken); err == nil {
			userID = claims.Subject
			email = claims.Email
			if err := e.tokens.RevokeHash(ctx, userID, internal.HashToken(refreshToken)); err != nil {
				log.Printf("authkit: refresh revocation failed for user %s: %v", userID, err)
			}
		}
	}

	if sessionID != "" {
		removed, err := e.sessionStore.Invalidate(ctx, sessionID)
		if err != nil {
			return err
		}
		if removed {
			e.metricInc(MetricSessionInvalidated)
		}
		_ = e.csrfStore.Invalidate(ctx, sessionID)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditActionLogoutSession, true, userID, email, sessionID, nil, nil)

	return nil
}

// LogoutAll revokes every refresh token and invalidates every session for
// the principal. Used for "sign out everywhere" and by admin tooling after
// a suspected account compromise.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if err := e.tokens.RevokeAll(ctx, userID); err != nil {
		return err
	}

	invalidated, err := e.sessionStore.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, sessionID := range invalidated {
		e.metricInc(MetricSessionInvalidated)
		_ = e.csrfStore.Invalidate(ctx, sessionID)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditActionLogoutAll, true, userID, principal.Email, "", nil, func() map[string]string {
		return map[string]string{
			"sessions_invalidated": strconv.Itoa(len(invalidated)),
		}
	})

	return nil
}

// Sessions lists the principal's live sessions. The registry returns them
// unordered; ordering is left to the caller.
func (e *Engine) Sessions(ctx context.Context, userID string) ([]*session.Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.sessionStore.ListForUser(ctx, userID)
}

// InvalidateSession kills a single session by id, along with its CSRF
// token. Unknown ids are a no-op.
func (e *Engine) InvalidateSession(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	removed, err := e.sessionStore.Invalidate(ctx, sessionID)
	if err != nil {
		return err
	}
	if removed {
		e.metricInc(MetricSessionInvalidated)
		e.emitAudit(ctx, auditActionLogoutSession, true, "", "", sessionID, nil, nil)
	}
	_ = e.csrfStore.Invalidate(ctx, sessionID)

	return nil
}

// TouchSession refreshes the session's last-activity timestamp. No-op for
// unknown sessions.
func (e *Engine) TouchSession(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.sessionStore.Touch(ctx, sessionID, time.Now())
}

// CSRFToken returns the token currently bound to the session, or
// ErrSessionNotFound when none is on record.
func (e *Engine) CSRFToken(ctx context.Context, sessionID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	token, err := e.csrfStore.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, csrf.ErrTokenNotFound) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return token, nil
}

// ValidateCSRF checks the presented token against the one bound to the
// session. Mismatches and unknown sessions both collapse to ErrCSRFInvalid.
func (e *Engine) ValidateCSRF(ctx context.Context, sessionID, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.config.CSRF.Enabled {
		return nil
	}

	if err := e.csrfStore.Validate(ctx, sessionID, token); err != nil {
		e.metricInc(MetricCSRFMismatch)
		e.emitAudit(ctx, auditActionCSRFMismatch, false, "", "", sessionID, ErrCSRFInvalid, nil)
		return ErrCSRFInvalid
	}
	return nil
}

// StartSweeper runs the expired-session sweep on the configured interval
// until ctx is cancelled. Meant to run in its own goroutine for the
// process lifetime.
func (e *Engine) StartSweeper(ctx context.Context) {
	if e == nil || e.config.Session.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(e.config.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := e.sessionStore.SweepExpired(ctx)
			if err != nil {
				log.Printf("authkit: session sweep failed: %v", err)
				continue
			}
			if purged > 0 {
				e.emitAudit(ctx, auditActionSessionSweepCompleted, true, "", "", "", nil, func() map[string]string {
					return map[string]string{
						"purged": strconv.Itoa(purged),
					}
				})
			}
		}
	}
}
