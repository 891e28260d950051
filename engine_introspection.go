package authkit

import (
	"context"
	"sort"
	"time"
)

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The returned permissions are the role's resolved closure merged with the
// principal's per-account overrides.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.userStore == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil && e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}
	}()

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	principal, err := e.userStore.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if e.config.Security.RequireActiveStatus && principal.Status != StatusActive {
		status := principal.Status.String()
		e.emitAudit(ctx, auditActionValidateRejectedByStatus, false, principal.ID, principal.Email, "", ErrAccountNotActive, func() map[string]string {
			return map[string]string{
				"status": status,
			}
		})
		return nil, ErrAccountNotActive
	}

	return &AuthResult{
		UserID:      principal.ID,
		Email:       principal.Email,
		Role:        principal.Role,
		Permissions: e.effectivePermissions(principal),
	}, nil
}

// HasPermission reports whether the principal holds perm, either through
// the role hierarchy or a per-account override.
func (e *Engine) HasPermission(ctx context.Context, userID, perm string) (bool, error) {
	if e == nil || e.userStore == nil {
		return false, ErrEngineNotReady
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		return false, ErrUserNotFound
	}

	if e.resolver.HasPermission(principal.Role, perm) {
		return true, nil
	}
	for _, override := range principal.PermissionOverrides {
		if override == perm {
			return true, nil
		}
	}
	return false, nil
}

// RequirePermission is HasPermission with deny-side auditing: a missing
// permission returns ErrPermissionDenied and leaves an audit record.
func (e *Engine) RequirePermission(ctx context.Context, userID, perm string) error {
	ok, err := e.HasPermission(ctx, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		e.emitAudit(ctx, auditActionPermissionCheckDenied, false, userID, "", "", ErrPermissionDenied, func() map[string]string {
			return map[string]string{
				"permission": perm,
			}
		})
		return ErrPermissionDenied
	}
	return nil
}

// CheckPermissions evaluates a list of permissions against the principal's
// effective set. With requireAll false, one match suffices; with requireAll
// true, every permission must be held. An empty list is trivially satisfied.
func (e *Engine) CheckPermissions(ctx context.Context, userID string, perms []string, requireAll bool) (bool, error) {
	if e == nil || e.userStore == nil {
		return false, ErrEngineNotReady
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		return false, ErrUserNotFound
	}

	held := make(map[string]struct{})
	for _, perm := range e.effectivePermissions(principal) {
		held[perm] = struct{}{}
	}

	if requireAll {
		for _, perm := range perms {
			if _, ok := held[perm]; !ok {
				return false, nil
			}
		}
		return true, nil
	}

	if len(perms) == 0 {
		return true, nil
	}
	for _, perm := range perms {
		if _, ok := held[perm]; ok {
			return true, nil
		}
	}
	return false, nil
}

// RolePermissions returns the resolved permission closure for a role,
// without any per-principal overrides.
func (e *Engine) RolePermissions(role string) []string {
	if e == nil || e.resolver == nil {
		return nil
	}
	return e.resolver.RolePermissions(role)
}

// PermissionsFor returns the principal's effective permission set, sorted.
func (e *Engine) PermissionsFor(ctx context.Context, userID string) ([]string, error) {
	if e == nil || e.userStore == nil {
		return nil, ErrEngineNotReady
	}

	principal, err := e.userStore.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return e.effectivePermissions(principal), nil
}

func (e *Engine) effectivePermissions(principal *Principal) []string {
	merged := make(map[string]struct{})
	for _, perm := range e.resolver.RolePermissions(principal.Role) {
		merged[perm] = struct{}{}
	}
	for _, perm := range principal.PermissionOverrides {
		merged[perm] = struct{}{}
	}

	out := make([]string, 0, len(merged))
	for perm := range merged {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}
