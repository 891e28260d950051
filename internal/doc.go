// Package internal contains helper utilities that are intentionally private to authkit,
// including secure random generation and opaque-token hashing helpers.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - limiters — the failed-login lockout limiter
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
