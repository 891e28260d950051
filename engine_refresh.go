package authkit

import (
	"context"
	"time"

	"github.com/peopleops/authkit/internal"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Every failure mode collapses to ErrRefreshInvalid for the caller: a
// forged token, an expired one, a revoked one, and a token replayed after
// rotation are indistinguishable at the API boundary.
func (e *Engine) Refresh(ctx context.Context, sessionID, refreshToken string) (*AuthResponse, error) {
	if e == nil || e.userStore == nil {
		return nil, ErrEngineNotReady
	}

	principal, claims, err := e.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditActionRefreshInvalid, false, "", "", sessionID, err, nil)
		return nil, ErrRefreshInvalid
	}

	if e.config.Security.RequireActiveStatus && principal.Status != StatusActive {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditActionRefreshInvalid, false, principal.ID, principal.Email, sessionID, ErrAccountNotActive, nil)
		return nil, ErrRefreshInvalid
	}

	pair, err := e.tokens.Rotate(ctx, principal, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditActionRefreshInvalid, false, principal.ID, principal.Email, sessionID, err, nil)
		return nil, ErrRefreshInvalid
	}

	response := &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    sessionID,
		User: UserSummary{
			ID:        principal.ID,
			Email:     principal.Email,
			FirstName: principal.FirstName,
			LastName:  principal.LastName,
			Role:      principal.Role,
		},
	}

	// Session tracking is advisory: a dropped session blob does not fail
	// the rotation, the principal's hash list already moved on.
	if sessionID != "" {
		newHash := internal.HashToken(pair.RefreshToken)
		_ = e.sessionStore.SetRefreshHash(ctx, sessionID, newHash)
		_ = e.sessionStore.Touch(ctx, sessionID, time.Now())

		if e.config.CSRF.Enabled {
			token, err := e.csrfStore.Generate(ctx, sessionID, e.csrfTTL())
			if err == nil {
				e.metricInc(MetricCSRFIssued)
				e.emitAudit(ctx, auditActionCSRFRotated, true, principal.ID, principal.Email, sessionID, nil, nil)
				response.CSRFToken = token
			}
		}
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditActionRefreshSuccess, true, claims.Subject, principal.Email, sessionID, nil, nil)

	return response, nil
}
