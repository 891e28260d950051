package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/peopleops/authkit/internal"
	"github.com/peopleops/authkit/password"
)

// errResetDisabled is returned when the reset feature is switched off in
// configuration. It is deliberately not a caller-facing sentinel.
var errResetDisabled = errors.New("password reset is disabled")

// ForgotPassword issues a single-use reset token for the account behind
// email and returns the plaintext token for out-of-band delivery. An
// unknown email is a silent no-op: the caller sees ("", nil) so the API
// response cannot be used to probe which addresses exist. The audit trail
// still records the probe.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	if e == nil || e.userStore == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return "", errResetDisabled
	}

	principal, err := e.userStore.FindByEmail(ctx, email)
	if err != nil {
		e.metricInc(MetricPasswordResetRequest)
		e.emitAudit(ctx, auditActionPasswordResetRequest, false, "", email, "", ErrUserNotFound, nil)
		return "", nil
	}

	// A newer request supersedes any outstanding token.
	if principal.ResetTokenHash != "" {
		_ = e.resetStore.Invalidate(ctx, principal.ResetTokenHash)
	}

	token := uuid.NewString()
	tokenHash := internal.HashToken(token)
	expiresAt := time.Now().Add(e.config.PasswordReset.ResetTTL).Unix()

	if err := e.resetStore.Save(ctx, tokenHash, principal.ID, e.config.PasswordReset.ResetTTL); err != nil {
		return "", err
	}

	update := PrincipalUpdate{
		ResetTokenHash:      &tokenHash,
		ResetTokenExpiresAt: &expiresAt,
	}
	if err := e.userStore.Update(ctx, principal.ID, update); err != nil {
		return "", err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditActionPasswordResetRequest, true, principal.ID, email, "", nil, nil)

	return token, nil
}

// ResetPassword consumes a reset token and applies the new password. The
// token is single use: success and most failure modes remove it from the
// index, so a replay fails with ErrResetInvalid. Like a password change,
// success revokes every refresh token and session.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return errResetDisabled
	}

	tokenHash := internal.HashToken(token)

	userID, err := e.resetStore.Consume(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, errResetNotFound) {
			e.metricInc(MetricPasswordResetFailure)
			e.emitAudit(ctx, auditActionPasswordResetFailure, false, "", "", "", ErrResetInvalid, nil)
			return ErrResetInvalid
		}
		return err
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditActionPasswordResetFailure, false, userID, "", "", ErrResetInvalid, nil)
		return ErrResetInvalid
	}

	// The principal record is authoritative: the index entry alone is not
	// enough if the stored hash was cleared or superseded meanwhile.
	now := time.Now().Unix()
	if principal.ResetTokenHash != tokenHash || principal.ResetTokenExpiresAt < now {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditActionPasswordResetFailure, false, userID, principal.Email, "", ErrResetInvalid, nil)
		return ErrResetInvalid
	}

	result := e.policy.ValidateComplexity(newPassword, &password.UserInfo{
		Email:     principal.Email,
		FirstName: principal.FirstName,
		LastName:  principal.LastName,
	})
	if !result.Valid {
		policyErr := &PolicyViolationError{Result: result}
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditActionPasswordResetFailure, false, userID, principal.Email, "", policyErr, nil)
		return policyErr
	}

	if e.policy.InHistory(newPassword, principal.PasswordHistory) {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditActionPasswordResetFailure, false, userID, principal.Email, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	if err := e.applyNewPassword(ctx, principal, newPassword); err != nil {
		e.emitAudit(ctx, auditActionPasswordResetFailure, false, userID, principal.Email, "", err, nil)
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditActionPasswordResetSuccess, true, userID, principal.Email, "", nil, nil)

	return nil
}
