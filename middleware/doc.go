// Package middleware enforces route authorization in front of HTTP handlers
// using a declarative policy table built at startup.
//
// # Policy table
//
// Each route is registered with a [Requirement]: [Public], [AnyOf], or
// [AllOf]. Routes with no registered requirement are denied, so the table
// fails closed for endpoints added without a policy decision.
//
//	table := middleware.NewPolicyTable().
//		Register(http.MethodPost, "/login", middleware.Public()).
//		Register(http.MethodGet, "/projects", middleware.AnyOf("project:read")).
//		Register(http.MethodDelete, "/users", middleware.AllOf("user:read", "user:delete"))
//
// # Guard
//
// [Guard] reads the Authorization bearer token, calls Engine.Validate,
// checks the route's requirement against the resolved permissions, and
// injects the [authkit.AuthResult] into the request context for handlers
// to read via [AuthResultFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// parse tokens, touch Redis, or make authorization decisions beyond
// matching the requirement against Engine.Validate's output.
package middleware
