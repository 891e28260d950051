// Package limiters provides the Redis-backed failed-login lockout limiter.
//
// # Limiters
//
//   - [LockoutLimiter] — per-email failure counter with a sliding window and
//     a timed lock once the threshold is reached.
//
// # Architecture boundaries
//
// The limiter owns its own Redis key namespace and error types. Policy
// thresholds come from [LockoutConfig] supplied at construction time.
//
// # What this package must NOT do
//
//   - Import authkit or any sibling internal package.
//   - Make policy decisions beyond counting — the Engine decides consequences.
package limiters
