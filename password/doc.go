// Package password provides argon2id hashing/verification and the password
// policy used by authkit: complexity validation with structured feedback,
// bounded reuse history, and expiration horizons.
//
// # Architecture boundaries
//
// This package performs CPU-bound hashing only. Policy decisions about
// when to hash, what to persist, and which audit events to emit belong to
// the engine.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Store or log plaintext passwords.
//   - Decide authentication outcomes (it reports, the engine decides).
package password
