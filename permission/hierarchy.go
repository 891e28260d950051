package permission

import (
	"errors"
	"fmt"
)

// RoleDefinition declares a role's directly granted permissions and the
// roles it inherits permissions from. Definitions are static: they are
// handed to [NewResolver] once at startup and never mutated afterwards.
type RoleDefinition struct {
	Name         string
	Permissions  []string
	InheritsFrom []string
}

var (
	// ErrRoleUnknown is returned when a definition references a role that
	// was never defined.
	ErrRoleUnknown = errors.New("role not defined")
	// ErrHierarchyCycle is returned when the inheritance graph contains a
	// cycle. A role must never (transitively) inherit itself.
	ErrHierarchyCycle = errors.New("role hierarchy contains a cycle")
)

// validateHierarchy checks that every inherited role exists and that the
// inheritance graph is acyclic. Runs once at construction so a bad
// configuration fails at startup, not at request time.
func validateHierarchy(defs map[string]RoleDefinition) error {
	for name, def := range defs {
		for _, parent := range def.InheritsFrom {
			if _, ok := defs[parent]; !ok {
				return fmt.Errorf("%w: role %q inherits from %q", ErrRoleUnknown, name, parent)
			}
		}
	}

	const (
		colorWhite = 0
		colorGray  = 1
		colorBlack = 2
	)

	colors := make(map[string]int, len(defs))

	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case colorGray:
			return fmt.Errorf("%w: at role %q", ErrHierarchyCycle, name)
		case colorBlack:
			return nil
		}

		colors[name] = colorGray
		for _, parent := range defs[name].InheritsFrom {
			if err := visit(parent); err != nil {
				return err
			}
		}
		colors[name] = colorBlack

		return nil
	}

	for name := range defs {
		if err := visit(name); err != nil {
			return err
		}
	}

	return nil
}
