package middleware

import (
	"strings"
	"sync"
)

type requirementKind uint8

const (
	kindPublic requirementKind = iota
	kindAnyOf
	kindAllOf
)

// Requirement is a declarative authorization rule attached to a route:
// public, any-of a permission list, or all-of a permission list.
//
// Requirement instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type Requirement struct {
	kind  requirementKind
	perms []string
}

// Public marks a route as requiring no authentication at all.
func Public() Requirement {
	return Requirement{kind: kindPublic}
}

// AnyOf requires the caller to hold at least one of the listed permissions.
// With no arguments it only requires a valid access token.
func AnyOf(perms ...string) Requirement {
	return Requirement{kind: kindAnyOf, perms: perms}
}

// AllOf requires the caller to hold every listed permission.
func AllOf(perms ...string) Requirement {
	return Requirement{kind: kindAllOf, perms: perms}
}

// Satisfied reports whether the held permission set meets the requirement.
func (r Requirement) Satisfied(held []string) bool {
	if r.kind == kindPublic {
		return true
	}

	set := make(map[string]struct{}, len(held))
	for _, perm := range held {
		set[perm] = struct{}{}
	}

	switch r.kind {
	case kindAllOf:
		for _, perm := range r.perms {
			if _, ok := set[perm]; !ok {
				return false
			}
		}
		return true
	default:
		if len(r.perms) == 0 {
			return true
		}
		for _, perm := range r.perms {
			if _, ok := set[perm]; ok {
				return true
			}
		}
		return false
	}
}

func (r Requirement) public() bool {
	return r.kind == kindPublic
}

// PolicyTable maps method+path routes to their authorization requirement.
// Routes are registered at startup; lookups at request time are read-only.
// A route with no registered requirement is denied, so forgetting to
// register a new endpoint fails closed.
type PolicyTable struct {
	mu     sync.RWMutex
	routes map[string]Requirement
}

// NewPolicyTable describes the newpolicytable operation and its observable behavior.
//
// NewPolicyTable may return an error when input validation, dependency calls, or security checks fail.
// NewPolicyTable does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{routes: make(map[string]Requirement)}
}

// Register attaches a requirement to an exact method+path pair.
// Re-registering a route overwrites the previous requirement.
func (t *PolicyTable) Register(method, path string, req Requirement) *PolicyTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[routeKey(method, path)] = req
	return t
}

// Lookup returns the requirement for the route, if registered.
func (t *PolicyTable) Lookup(method, path string) (Requirement, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	req, ok := t.routes[routeKey(method, path)]
	return req, ok
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}
