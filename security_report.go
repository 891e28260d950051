package authkit

import (
	"time"

	"github.com/peopleops/authkit/jwt"
)

// SecurityReport is a point-in-time snapshot of the security posture the
// engine is running with. Intended for health endpoints and deploy-time
// assertions, not for end users.
type SecurityReport struct {
	ProductionMode      bool
	RequireActiveStatus bool

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Argon2 PasswordConfigReport

	MaxSessionsPerUser  int
	LockoutActive       bool
	LockoutThreshold    int
	CSRFActive          bool
	PasswordResetActive bool
	AuditActive         bool
}

// PasswordConfigReport mirrors the active argon2id cost parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport may return an error when input validation, dependency calls, or security checks fail.
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:      e.config.Security.ProductionMode,
		RequireActiveStatus: e.config.Security.RequireActiveStatus,
		AccessTTL:           jwt.ParseTTL(e.config.JWT.AccessTTL),
		RefreshTTL:          jwt.ParseTTL(e.config.JWT.RefreshTTL),
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		MaxSessionsPerUser:  e.config.Session.MaxPerUser,
		LockoutActive:       e.config.Lockout.Enabled,
		LockoutThreshold:    e.config.Lockout.Threshold,
		CSRFActive:          e.config.CSRF.Enabled,
		PasswordResetActive: e.config.PasswordReset.Enabled,
		AuditActive:         e.config.Audit.Enabled,
	}
}
