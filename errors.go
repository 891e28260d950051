package authkit

import (
	"errors"
	"fmt"
	"time"

	"github.com/peopleops/authkit/password"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotActive is an exported constant or variable used by the authentication engine.
	ErrAccountNotActive = errors.New("account not active")
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is an exported constant or variable used by the authentication engine.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid is an exported constant or variable used by the authentication engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCSRFInvalid is an exported constant or variable used by the authentication engine.
	ErrCSRFInvalid = errors.New("invalid csrf token")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the authentication engine.
	ErrPasswordReuse = errors.New("new password must differ from recent passwords")
	// ErrResetInvalid is an exported constant or variable used by the authentication engine.
	ErrResetInvalid = errors.New("password reset token invalid or expired")
	// ErrPermissionDenied is an exported constant or variable used by the authentication engine.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockoutError wraps [ErrAccountLocked] and carries how long the caller must
// wait before the lock expires. errors.Is(err, ErrAccountLocked) matches it.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	minutes := int(e.RetryAfter.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("account locked; retry in %d minutes", minutes)
}

func (e *LockoutError) Is(target error) bool {
	return target == ErrAccountLocked
}

// PolicyViolationError wraps [ErrPasswordPolicy] and carries the structured
// complexity result so callers can surface per-rule feedback.
// errors.Is(err, ErrPasswordPolicy) matches it.
type PolicyViolationError struct {
	Result password.ComplexityResult
}

func (e *PolicyViolationError) Error() string {
	if len(e.Result.Feedback) == 0 {
		return ErrPasswordPolicy.Error()
	}
	return "password policy violation: " + e.Result.Feedback[0]
}

func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPasswordPolicy
}
