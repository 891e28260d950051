// Package permission models the static role hierarchy and resolves
// role-to-permission questions used by authkit authorization checks.
//
// # Hierarchy
//
// Roles are declared once at startup as [RoleDefinition] values: each
// carries the permissions it grants directly and the roles it inherits
// from. [NewResolver] validates the graph (all edges resolve, no cycles)
// and then treats it as immutable. Effective permission sets are the
// transitive union over InheritsFrom edges, memoized per role.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import authkit, jwt, or session.
//   - Mutate the hierarchy after construction (only the memo cache moves).
package permission
