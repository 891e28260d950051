package authkit

import (
	"context"
	"io"

	internalaudit "github.com/peopleops/authkit/internal/audit"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// StatusActive is an exported constant or variable used by the authentication engine.
	StatusActive AccountStatus = iota
	// StatusInactive is an exported constant or variable used by the authentication engine.
	StatusInactive
	// StatusSuspended is an exported constant or variable used by the authentication engine.
	StatusSuspended
	// StatusPending is an exported constant or variable used by the authentication engine.
	StatusPending
	// StatusArchived is an exported constant or variable used by the authentication engine.
	StatusArchived
)

// String describes the account status.
func (s AccountStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusSuspended:
		return "suspended"
	case StatusPending:
		return "pending"
	case StatusArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// Principal is the full account record exchanged with the host's [UserStore].
// Refresh token hashes, password history, and the reset token hash are
// stored hashed; the engine never asks the store to persist a plaintext
// secret.
type Principal struct {
	ID        string
	Email     string
	FirstName string
	LastName  string

	PasswordHash      string
	PasswordHistory   []string
	PasswordChangedAt int64
	PasswordExpiresAt int64

	Role                string
	PermissionOverrides []string

	Status AccountStatus

	RefreshTokenHashes []string

	ResetTokenHash      string
	ResetTokenExpiresAt int64

	LastLoginAt int64
}

// PrincipalUpdate is a partial update applied by [UserStore.Update]. Nil
// fields are left untouched; non-nil fields overwrite, including with empty
// values.
type PrincipalUpdate struct {
	PasswordHash      *string
	PasswordHistory   *[]string
	PasswordChangedAt *int64
	PasswordExpiresAt *int64

	Role   *string
	Status *AccountStatus

	RefreshTokenHashes *[]string

	ResetTokenHash      *string
	ResetTokenExpiresAt *int64

	LastLoginAt *int64
}

// UserStore is the interface callers must implement to integrate authkit
// with their user database. Lookups return [ErrUserNotFound] for unknown
// principals and Create returns [ErrDuplicateEmail] on email collision.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	FindByID(ctx context.Context, id string) (*Principal, error)
	Create(ctx context.Context, principal *Principal) error
	Update(ctx context.Context, id string, update PrincipalUpdate) error
}

// UserSummary is the caller-facing projection of a [Principal] returned in
// [AuthResponse]. It never carries hashes or lifecycle internals.
type UserSummary struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// AuthResponse is returned by [Engine.Login], [Engine.Refresh], and
// [Engine.Register] when auto-login applies.
type AuthResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64

	SessionID string
	CSRFToken string

	User UserSummary
}

// RegisterRequest is the input for [Engine.Register]. Email and Password are
// required; Role defaults to the engine's configured default role when empty.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// AuthResult is returned by [Engine.Validate]. It contains the authenticated
// principal's identity, role, and the permissions materialized from the role
// hierarchy plus any per-principal overrides.
type AuthResult struct {
	UserID string
	Email  string
	Role   string

	Permissions []string
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
