package authkit

import (
	"context"
	"errors"
	"time"
)

const (
	auditActionLoginSuccess              = "login_success"
	auditActionLoginFailure              = "login_failure"
	auditActionLoginLockout              = "login_lockout"
	auditActionRefreshSuccess            = "refresh_success"
	auditActionRefreshInvalid            = "refresh_invalid"
	auditActionSessionEvicted            = "session_evicted"
	auditActionLogoutSession             = "logout_session"
	auditActionLogoutAll                 = "logout_all"
	auditActionRegisterSuccess           = "register_success"
	auditActionRegisterFailure           = "register_failure"
	auditActionPasswordChangeSuccess     = "password_change_success"
	auditActionPasswordChangeFailure     = "password_change_failure"
	auditActionPasswordResetRequest      = "password_reset_request"
	auditActionPasswordResetSuccess      = "password_reset_success"
	auditActionPasswordResetFailure      = "password_reset_failure"
	auditActionCSRFRotated               = "csrf_rotated"
	auditActionCSRFMismatch              = "csrf_mismatch"
	auditActionAccountStatusChange       = "account_status_change"
	auditActionSessionSweepCompleted     = "session_sweep_completed"
	auditActionPermissionCheckDenied     = "permission_check_denied"
	auditActionValidateRejectedByStatus  = "validate_rejected_status"
	auditActionPasswordUpgradeBackground = "password_hash_upgraded"
)

// AuditReason defines a public type used by authkit APIs.
//
// AuditReason instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditReason string

const (
	auditReasonInvalidCredentials AuditReason = "invalid_credentials"
	auditReasonAccountNotActive   AuditReason = "account_not_active"
	auditReasonAccountLocked      AuditReason = "account_locked"
	auditReasonUserNotFound       AuditReason = "user_not_found"
	auditReasonDuplicateEmail     AuditReason = "duplicate_email"
	auditReasonInvalidToken       AuditReason = "invalid_token"
	auditReasonRefreshMalformed   AuditReason = "refresh_malformed"
	auditReasonRefreshOrphaned    AuditReason = "refresh_unknown_principal"
	auditReasonRefreshRevoked     AuditReason = "refresh_revoked"
	auditReasonSessionNotFound    AuditReason = "session_not_found"
	auditReasonCSRFMismatch       AuditReason = "csrf_mismatch"
	auditReasonPasswordPolicy     AuditReason = "password_policy"
	auditReasonPasswordReuse      AuditReason = "password_reuse"
	auditReasonResetInvalid       AuditReason = "reset_token_invalid"
	auditReasonPermissionDenied   AuditReason = "permission_denied"
	auditReasonInternal           AuditReason = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	action string,
	success bool,
	userID string,
	email string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		Action:    action,
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if reason := auditReason(err); reason != "" {
		event.Reason = string(reason)
	}

	e.audit.Emit(ctx, event)
}

// auditReason maps a caller-facing error to the finer-grained reason code
// recorded in the audit trail. Callers only ever observe the coarse
// sentinel; the trail keeps the distinction.
func auditReason(err error) AuditReason {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAccountLocked):
		return auditReasonAccountLocked
	case errors.Is(err, ErrAccountNotActive):
		return auditReasonAccountNotActive
	case errors.Is(err, ErrUserNotFound):
		return auditReasonUserNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return auditReasonInvalidCredentials
	case errors.Is(err, ErrDuplicateEmail):
		return auditReasonDuplicateEmail
	case errors.Is(err, errRefreshMalformed):
		return auditReasonRefreshMalformed
	case errors.Is(err, errRefreshUnknownPrincipal):
		return auditReasonRefreshOrphaned
	case errors.Is(err, ErrRefreshInvalid):
		return auditReasonRefreshRevoked
	case errors.Is(err, ErrTokenInvalid):
		return auditReasonInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditReasonSessionNotFound
	case errors.Is(err, ErrCSRFInvalid):
		return auditReasonCSRFMismatch
	case errors.Is(err, ErrPasswordReuse):
		return auditReasonPasswordReuse
	case errors.Is(err, ErrPasswordPolicy):
		return auditReasonPasswordPolicy
	case errors.Is(err, ErrResetInvalid):
		return auditReasonResetInvalid
	case errors.Is(err, ErrPermissionDenied):
		return auditReasonPermissionDenied
	default:
		return auditReasonInternal
	}
}
