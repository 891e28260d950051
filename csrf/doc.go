// Package csrf provides the Redis-backed CSRF token store with a strict
// one-token-per-session contract: generating a token replaces the session's
// previous token, and validation compares in constant time.
package csrf
