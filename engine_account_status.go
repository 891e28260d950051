package authkit

import "context"

// SetAccountStatus transitions the account's lifecycle status. Moving an
// account out of active revokes all refresh tokens and sessions so the
// suspension takes effect immediately rather than at next token expiry.
func (e *Engine) SetAccountStatus(ctx context.Context, userID string, status AccountStatus) error {
	if e == nil || e.userStore == nil {
		return ErrEngineNotReady
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if principal.Status == status {
		return nil
	}

	previous := principal.Status
	if err := e.userStore.Update(ctx, userID, PrincipalUpdate{Status: &status}); err != nil {
		return err
	}

	if status != StatusActive {
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
	}

	e.emitAudit(ctx, auditActionAccountStatusChange, true, userID, principal.Email, "", nil, func() map[string]string {
		return map[string]string{
			"from": previous.String(),
			"to":   status.String(),
		}
	})

	return nil
}
