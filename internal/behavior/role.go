package behavior

import (
	"fmt"
)

// Role tags the structural kind of a node.
type Role int

const (
	// Action is a leaf performing a side effect via its callback.
	Action Role = iota + 1
	// Condition is a leaf testing something via its callback.
	Condition
	// Sequence succeeds if every child succeeds, stopping at the first failure.
	Sequence
	// Selector succeeds at the first succeeding child.
	Selector
	// Parallel evaluates every child and succeeds if none failed.
	Parallel
	// DecoratorCarrier applies its attached decorator to its children.
	DecoratorCarrier
)

// roleMemory is reserved. It has no construction path; see validateNode.
const roleMemory Role = DecoratorCarrier + 1

// Valid reports whether r is a constructible role.
func (r Role) Valid() bool {
	return r >= Action && r <= DecoratorCarrier
}

// IsLeaf reports whether r is Action or Condition.
func (r Role) IsLeaf() bool {
	return r == Action || r == Condition
}

// IsComposite reports whether r is Sequence, Selector or Parallel.
func (r Role) IsComposite() bool {
	return r == Sequence || r == Selector || r == Parallel
}

func (r Role) String() string {
	switch r {
	case Action:
		return "action"
	case Condition:
		return "condition"
	case Sequence:
		return "sequence"
	case Selector:
		return "selector"
	case Parallel:
		return "parallel"
	case DecoratorCarrier:
		return "decorator"
	case roleMemory:
		return "memory"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}
