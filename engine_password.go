package authkit

import (
	"context"
	"log"
	"time"

	"github.com/peopleops/authkit/password"
)

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A successful change revokes every refresh token and session and clears
// any lockout state, forcing re-login on all devices.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	ok, err := e.policy.Verify(oldPassword, principal.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditActionPasswordChangeFailure, false, userID, principal.Email, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	result := e.policy.ValidateComplexity(newPassword, &password.UserInfo{
		Email:     principal.Email,
		FirstName: principal.FirstName,
		LastName:  principal.LastName,
	})
	if !result.Valid {
		policyErr := &PolicyViolationError{Result: result}
		e.emitAudit(ctx, auditActionPasswordChangeFailure, false, userID, principal.Email, "", policyErr, nil)
		return policyErr
	}

	if e.policy.InHistory(newPassword, principal.PasswordHistory) {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditActionPasswordChangeFailure, false, userID, principal.Email, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	if err := e.applyNewPassword(ctx, principal, newPassword); err != nil {
		e.emitAudit(ctx, auditActionPasswordChangeFailure, false, userID, principal.Email, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditActionPasswordChangeSuccess, true, userID, principal.Email, "", nil, nil)

	return nil
}

// applyNewPassword persists the new hash, rolls the history window, clears
// refresh tokens and sessions, and resets lockout state. Shared by the
// change-password and reset-password paths.
func (e *Engine) applyNewPassword(ctx context.Context, principal *Principal, newPassword string) error {
	hash, err := e.policy.Hash(newPassword)
	if err != nil {
		return err
	}

	history := e.policy.AppendHistory(hash, principal.PasswordHistory)
	now := time.Now()
	changedAt := now.Unix()
	expiresAt := e.policy.ExpiresAt(now).Unix()
	noTokens := []string{}
	noResetHash := ""
	noResetExpiry := int64(0)

	update := PrincipalUpdate{
		PasswordHash:        &hash,
		PasswordHistory:     &history,
		PasswordChangedAt:   &changedAt,
		PasswordExpiresAt:   &expiresAt,
		RefreshTokenHashes:  &noTokens,
		ResetTokenHash:      &noResetHash,
		ResetTokenExpiresAt: &noResetExpiry,
	}
	if err := e.userStore.Update(ctx, principal.ID, update); err != nil {
		return err
	}

	invalidated, err := e.sessionStore.InvalidateAllForUser(ctx, principal.ID)
	if err != nil {
		log.Printf("authkit: session invalidation failed for user %s: %v", principal.ID, err)
	}
	for _, sessionID := range invalidated {
		e.metricInc(MetricSessionInvalidated)
		_ = e.csrfStore.Invalidate(ctx, sessionID)
	}

	if err := e.lockout.Reset(ctx, principal.Email); err != nil {
		log.Printf("authkit: lockout reset failed for %s: %v", principal.Email, err)
	}

	return nil
}
