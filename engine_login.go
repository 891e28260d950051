package authkit

import (
	"context"
	"log"
	"time"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Callers cannot distinguish an unknown email from a wrong password: both
// surface as ErrInvalidCredentials. The audit trail keeps the distinction.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*AuthResponse, error) {
	if e == nil || e.userStore == nil {
		return nil, ErrEngineNotReady
	}

	if remaining, err := e.lockout.Check(ctx, email); err == nil && remaining > 0 {
		lockErr := &LockoutError{RetryAfter: remaining}
		e.metricInc(MetricLoginLockout)
		e.emitAudit(ctx, auditActionLoginLockout, false, "", email, "", lockErr, nil)
		return nil, lockErr
	}
	// A limiter backend error fails open: an unreachable Redis must not
	// lock every user out of login.

	principal, err := e.userStore.FindByEmail(ctx, email)
	if err != nil {
		e.recordLoginFailure(ctx, email, "", ErrUserNotFound)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.policy.Verify(plaintext, principal.PasswordHash)
	if err != nil || !ok {
		e.recordLoginFailure(ctx, email, principal.ID, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if e.config.Security.RequireActiveStatus && principal.Status != StatusActive {
		status := principal.Status.String()
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditActionLoginFailure, false, principal.ID, email, "", ErrAccountNotActive, func() map[string]string {
			return map[string]string{
				"status": status,
			}
		})
		return nil, ErrAccountNotActive
	}

	e.maybeUpgradeHash(ctx, principal, plaintext)

	response, err := e.startSession(ctx, principal)
	if err != nil {
		e.emitAudit(ctx, auditActionLoginFailure, false, principal.ID, email, "", err, nil)
		return nil, err
	}

	lastLogin := time.Now().Unix()
	if err := e.userStore.Update(ctx, principal.ID, PrincipalUpdate{LastLoginAt: &lastLogin}); err != nil {
		log.Printf("authkit: last-login update failed for user %s: %v", principal.ID, err)
	}

	if err := e.lockout.Reset(ctx, email); err != nil {
		log.Printf("authkit: lockout reset failed for %s: %v", email, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditActionLoginSuccess, true, principal.ID, email, response.SessionID, nil, nil)

	return response, nil
}

// recordLoginFailure counts the failure toward the email's lockout window
// and emits the failure event. When this failure crosses the threshold, a
// lockout event follows immediately.
func (e *Engine) recordLoginFailure(ctx context.Context, email, userID string, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditActionLoginFailure, false, userID, email, "", cause, nil)

	locked, err := e.lockout.RecordFailure(ctx, email)
	if err != nil {
		log.Printf("authkit: lockout tracking failed for %s: %v", email, err)
		return
	}
	if locked {
		e.metricInc(MetricLoginLockout)
		e.emitAudit(ctx, auditActionLoginLockout, false, userID, email, "", ErrAccountLocked, nil)
	}
}

// maybeUpgradeHash transparently rehashes the password when the stored hash
// was produced with weaker parameters than currently configured. Best
// effort: a failed upgrade never fails the login.
func (e *Engine) maybeUpgradeHash(ctx context.Context, principal *Principal, plaintext string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	needs, err := e.hasher.NeedsUpgrade(principal.PasswordHash)
	if err != nil || !needs {
		return
	}

	rehashed, err := e.hasher.Hash(plaintext)
	if err != nil {
		log.Printf("authkit: password rehash failed for user %s: %v", principal.ID, err)
		return
	}

	if err := e.userStore.Update(ctx, principal.ID, PrincipalUpdate{PasswordHash: &rehashed}); err != nil {
		log.Printf("authkit: password upgrade persist failed for user %s: %v", principal.ID, err)
		return
	}
	principal.PasswordHash = rehashed

	e.emitAudit(ctx, auditActionPasswordUpgradeBackground, true, principal.ID, principal.Email, "", nil, nil)
}
