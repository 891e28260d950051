package session

import "time"

// DeviceInfo describes the client device a session was established from,
// derived from the User-Agent header and the remote address at login time.
//
// DeviceInfo instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DeviceInfo struct {
	UserAgent  string `json:"user_agent"`
	DeviceType string `json:"device_type"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	IP         string `json:"ip"`
}

// Session defines a public type used by authkit APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Device DeviceInfo `json:"device"`

	// RefreshHash is the hex SHA-256 of the refresh token the session was
	// last issued with. It links the session to one live refresh token so
	// introspection can show which token a session belongs to.
	RefreshHash string `json:"refresh_hash"`

	CreatedAt    int64 `json:"created_at"`
	LastActivity int64 `json:"last_activity"`
	ExpiresAt    int64 `json:"expires_at"`

	Active bool `json:"active"`
}

// Expired reports whether the session's absolute lifetime has passed at the
// given instant.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
