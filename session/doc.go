// Package session provides the Redis-backed session registry: persistence,
// per-user indexing, activity tracking, and eviction of the least recently
// active sessions when a user exceeds the concurrent-session cap.
//
// # Storage layout
//
// Each session is a JSON blob under "<prefix>:sess:<id>" with a Redis TTL
// matching the refresh-token lifetime, plus a per-user SET of session IDs
// under "<prefix>:user:<userID>". Redis expiry is the primary reaper; the
// index sets are pruned lazily on reads and by [Store.SweepExpired].
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations), the [Session] model, and
// User-Agent device classification. It does NOT interpret JWT tokens,
// evaluate permissions, or enforce authentication policy — those
// responsibilities belong to the Engine.
package session
