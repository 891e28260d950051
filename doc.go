// Package authkit is the authentication and authorization core for a
// people/project management backend. It bundles credential verification
// with lockout, JWT access/refresh token issuance with tracked rotation,
// a Redis-backed session registry with concurrent-session limits, CSRF
// token binding, role-hierarchy permission resolution, password policy
// enforcement, and an async audit pipeline behind a single Engine.
//
// The host application owns user persistence and implements [UserStore];
// everything else (sessions, CSRF tokens, lockout counters, reset token
// index) lives in Redis under a shared key prefix.
//
// Construction goes through the [Builder]:
//
//	engine, err := authkit.New().
//		WithRedis(client).
//		WithUserStore(store).
//		WithRoles(roles, ranking).
//		WithConfig(cfg).
//		Build()
//
// All Engine operations take a context; attach the caller's IP and
// User-Agent with [WithClientIP] and [WithUserAgent] so sessions and audit
// events carry them.
package authkit
