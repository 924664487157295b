package behavior

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every [*ValidationError].
	ErrValidation = errors.New("behavior: invalid construction")

	// ErrStructuralCorruption is matched by every [*StructuralError].
	ErrStructuralCorruption = errors.New("behavior: structural corruption")

	// ErrAllocation is matched by every [*AllocationError].
	ErrAllocation = errors.New("behavior: allocation failed")

	// ErrAbsentNode is returned when Execute is given the zero NodeID.
	ErrAbsentNode = errors.New("behavior: execute called with absent node")

	// ErrBusy is returned when Execute or Release overlaps a call already in
	// progress on the same pool.
	ErrBusy = errors.New("behavior: pool is busy with another pass")

	// ErrCallbackPanic wraps a panic recovered from a leaf callback.
	ErrCallbackPanic = errors.New("behavior: leaf callback panicked")
)

// ValidationError reports a construction request that violates the
// structural rules of its role or decorator kind. The malformed node or
// decorator is never entered into the pool.
type ValidationError struct {
	Role   Role
	Kind   DecoratorKind
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Role != 0 && e.Kind != 0:
		return fmt.Sprintf("behavior: invalid %s node with %s decorator: %s", e.Role, e.Kind, e.Reason)
	case e.Role != 0:
		return fmt.Sprintf("behavior: invalid %s node: %s", e.Role, e.Reason)
	case e.Kind != 0:
		return fmt.Sprintf("behavior: invalid %s decorator: %s", e.Kind, e.Reason)
	default:
		return "behavior: invalid construction: " + e.Reason
	}
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StructuralError reports a reference that was required to be live but was
// absent or stale, found during execution or teardown. It means a
// construction contract was violated earlier; the operation is aborted.
type StructuralError struct {
	Op     string
	Node   NodeID
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("behavior: %s %s: %s", e.Op, e.Node, e.Reason)
}

// Is matches ErrStructuralCorruption.
func (e *StructuralError) Is(target error) bool {
	return target == ErrStructuralCorruption
}

// AllocationError reports that the pool could not provide a slot, because a
// configured capacity limit was reached.
type AllocationError struct {
	What  string
	Limit int
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("behavior: cannot allocate %s: limit of %d reached", e.What, e.Limit)
}

// Is matches ErrAllocation.
func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocation
}
