package permission

import (
	"errors"
	"sort"
	"sync"
)

// Resolver answers role-to-permission questions over a static role
// hierarchy. A role's effective permission set is its directly granted
// permissions unioned with the transitive closure of everything it
// inherits from. Resolution results are memoized per role; the cache is
// only dropped by an explicit [Resolver.ClearCache].
//
// Resolver instances are intended to be configured during initialization
// and then treated as immutable unless documented otherwise.
type Resolver struct {
	defs    map[string]RoleDefinition
	ranking map[string]int

	mu    sync.RWMutex
	cache map[string]map[string]struct{}
}

// NewResolver builds a Resolver from the given role definitions and a
// fixed ranking list ordered highest role first. The ranking drives
// [Resolver.IsRoleHigher] only; it is independent of the inheritance
// graph and must never be used as an authorization gate.
//
// NewResolver fails when a definition references an unknown role, when
// the inheritance graph is cyclic, or when the ranking names an
// undefined role.
func NewResolver(definitions []RoleDefinition, ranking []string) (*Resolver, error) {
	if len(definitions) == 0 {
		return nil, errors.New("at least one role definition required")
	}

	defs := make(map[string]RoleDefinition, len(definitions))
	for _, def := range definitions {
		if def.Name == "" {
			return nil, errors.New("role name cannot be empty")
		}
		if _, exists := defs[def.Name]; exists {
			return nil, errors.New("role already defined: " + def.Name)
		}
		defs[def.Name] = def
	}

	if err := validateHierarchy(defs); err != nil {
		return nil, err
	}

	ranks := make(map[string]int, len(ranking))
	for i, name := range ranking {
		if _, ok := defs[name]; !ok {
			return nil, errors.New("ranking references undefined role: " + name)
		}
		if _, dup := ranks[name]; dup {
			return nil, errors.New("ranking lists role twice: " + name)
		}
		ranks[name] = i
	}

	return &Resolver{
		defs:    defs,
		ranking: ranks,
		cache:   make(map[string]map[string]struct{}, len(defs)),
	}, nil
}

// RolePermissions returns the role's effective permission set: its own
// permissions plus everything inherited, deduplicated and sorted. An
// unknown role resolves to an empty set.
func (r *Resolver) RolePermissions(role string) []string {
	set := r.resolve(role)

	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)

	return out
}

// HasPermission reports whether the role's effective permission set
// contains the given permission.
func (r *Resolver) HasPermission(role, perm string) bool {
	_, ok := r.resolve(role)[perm]
	return ok
}

// HasAny reports whether the role holds at least one of the given
// permissions. An empty list is vacuously satisfied.
func (r *Resolver) HasAny(role string, perms []string) bool {
	if len(perms) == 0 {
		return true
	}

	set := r.resolve(role)
	for _, perm := range perms {
		if _, ok := set[perm]; ok {
			return true
		}
	}

	return false
}

// HasAll reports whether the role holds every one of the given permissions.
func (r *Resolver) HasAll(role string, perms []string) bool {
	set := r.resolve(role)
	for _, perm := range perms {
		if _, ok := set[perm]; !ok {
			return false
		}
	}

	return true
}

// IsRoleHigher reports whether roleA outranks roleB in the fixed ranking
// list. Intended for display and management-hierarchy checks only; it is
// not derived from the inheritance graph and must not gate authorization.
func (r *Resolver) IsRoleHigher(roleA, roleB string) bool {
	rankA, okA := r.ranking[roleA]
	rankB, okB := r.ranking[roleB]
	if !okA || !okB {
		return false
	}

	return rankA < rankB
}

// Roles returns the names of all defined roles, sorted.
func (r *Resolver) Roles() []string {
	out := make([]string, 0, len(r.defs))
	for name := range r.defs {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

// IsDefined reports whether the role exists in the hierarchy.
func (r *Resolver) IsDefined(role string) bool {
	_, ok := r.defs[role]
	return ok
}

// ClearCache drops all memoized resolutions. The hierarchy itself is
// static, so this only matters for long-lived processes that want to
// bound memory after resolving many unknown role names.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]map[string]struct{}, len(r.defs))
}

func (r *Resolver) resolve(role string) map[string]struct{} {
	r.mu.RLock()
	if set, ok := r.cache[role]; ok {
		r.mu.RUnlock()
		return set
	}
	r.mu.RUnlock()

	set := make(map[string]struct{})
	r.union(role, set, make(map[string]struct{}))

	r.mu.Lock()
	r.cache[role] = set
	r.mu.Unlock()

	return set
}

// union performs the depth-first walk over InheritsFrom edges. The
// visited set terminates diamond-shaped graphs; cycles were already
// rejected at construction.
func (r *Resolver) union(role string, set, visited map[string]struct{}) {
	if _, seen := visited[role]; seen {
		return
	}
	visited[role] = struct{}{}

	def, ok := r.defs[role]
	if !ok {
		return
	}

	for _, perm := range def.Permissions {
		set[perm] = struct{}{}
	}
	for _, parent := range def.InheritsFrom {
		r.union(parent, set, visited)
	}
}
