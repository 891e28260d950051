package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peopleops/authkit/password"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A successful registration behaves like a successful login: the new
// principal gets a session, a token pair, and a CSRF token in one call.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if e == nil || e.userStore == nil {
		return nil, ErrEngineNotReady
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	role := req.Role
	if role == "" {
		role = e.defaultRole
	}
	if !e.resolver.IsDefined(role) {
		return nil, fmt.Errorf("register: role %q is not defined", role)
	}

	result := e.policy.ValidateComplexity(req.Password, &password.UserInfo{
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if !result.Valid {
		policyErr := &PolicyViolationError{Result: result}
		e.emitAudit(ctx, auditActionRegisterFailure, false, "", email, "", policyErr, nil)
		return nil, policyErr
	}

	hash, err := e.policy.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	principal := &Principal{
		ID:                uuid.NewString(),
		Email:             email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		PasswordHash:      hash,
		PasswordHistory:   e.policy.AppendHistory(hash, nil),
		PasswordChangedAt: now.Unix(),
		PasswordExpiresAt: e.policy.ExpiresAt(now).Unix(),
		Role:              role,
		Status:            StatusActive,
	}

	if err := e.userStore.Create(ctx, principal); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditActionRegisterFailure, false, "", email, "", ErrDuplicateEmail, nil)
			return nil, ErrDuplicateEmail
		}
		e.emitAudit(ctx, auditActionRegisterFailure, false, "", email, "", err, nil)
		return nil, err
	}

	response, err := e.startSession(ctx, principal)
	if err != nil {
		e.emitAudit(ctx, auditActionRegisterFailure, false, principal.ID, email, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditActionRegisterSuccess, true, principal.ID, email, response.SessionID, nil, func() map[string]string {
		return map[string]string{
			"role":     role,
			"strength": result.Strength.String(),
		}
	})

	return response, nil
}
