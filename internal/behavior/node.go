package behavior

import (
	"fmt"
	"slices"
)

// CreateNode validates and allocates a node. The children must be live; the
// first time a child is adopted it takes over the child's creator handle,
// and every further adoption adds an owner. Nothing is modified if
// validation or allocation fails.
//
// DecoratorCarrier nodes are created without a decorator; use
// [Pool.AttachDecorator], or [Pool.Carrier] to do both in one step.
func (p *Pool) CreateNode(role Role, callback Callback, children ...NodeID) (NodeID, error) {
	var leaf LeafFunc
	if callback != nil {
		leaf = callback.leafFunc()
	}
	return p.createNode(role, leaf, children)
}

// CreateNodeFunc is CreateNode for context-aware leaves.
func (p *Pool) CreateNodeFunc(role Role, fn LeafFunc, children ...NodeID) (NodeID, error) {
	return p.createNode(role, fn, children)
}

// Action creates an Action leaf.
func (p *Pool) Action(callback Callback) (NodeID, error) {
	return p.CreateNode(Action, callback)
}

// Condition creates a Condition leaf.
func (p *Pool) Condition(callback Callback) (NodeID, error) {
	return p.CreateNode(Condition, callback)
}

// Sequence creates a Sequence over children.
func (p *Pool) Sequence(children ...NodeID) (NodeID, error) {
	return p.CreateNode(Sequence, nil, children...)
}

// Selector creates a Selector over children.
func (p *Pool) Selector(children ...NodeID) (NodeID, error) {
	return p.CreateNode(Selector, nil, children...)
}

// Parallel creates a Parallel over children.
func (p *Pool) Parallel(children ...NodeID) (NodeID, error) {
	return p.CreateNode(Parallel, nil, children...)
}

// Carrier creates a DecoratorCarrier over children and attaches dec to it.
// The attachment is validated before the node is created.
func (p *Pool) Carrier(dec DecoratorID, children ...NodeID) (NodeID, error) {
	if err := p.validateNode(DecoratorCarrier, false, children); err != nil {
		return NodeID{}, err
	}
	if err := p.checkAttach(len(children), dec); err != nil {
		return NodeID{}, err
	}
	id, err := p.createNode(DecoratorCarrier, nil, children)
	if err != nil {
		return NodeID{}, err
	}
	p.nodes[id.index].decorator = dec
	p.adoptDecorator(dec)
	p.logger.Debug("attached decorator", "node", id, "decorator", dec)
	return id, nil
}

func (p *Pool) createNode(role Role, leaf LeafFunc, children []NodeID) (NodeID, error) {
	if err := p.validateNode(role, leaf != nil, children); err != nil {
		p.logger.Debug("rejected node", "role", role, "error", err)
		return NodeID{}, err
	}
	id, err := p.allocNode()
	if err != nil {
		return NodeID{}, err
	}
	s := &p.nodes[id.index]
	s.role = role
	s.leaf = leaf
	s.owners = 1
	if len(children) > 0 {
		s.children = slices.Clone(children)
	}
	for _, child := range children {
		p.adoptNode(child)
	}
	p.logger.Debug("created node", "node", id, "role", role, "children", len(children))
	return id, nil
}

func (p *Pool) adoptNode(id NodeID) {
	n := p.node(id)
	if !n.adopted {
		n.adopted = true
		return
	}
	n.owners++
}

// validateNode checks the structural rules of role against the requested
// shape. It reads the children but never modifies them.
func (p *Pool) validateNode(role Role, hasCallback bool, children []NodeID) error {
	if !role.Valid() {
		return &ValidationError{Role: role, Reason: "unsupported role"}
	}
	for i, child := range children {
		if p.node(child) == nil {
			return &ValidationError{Role: role, Reason: fmt.Sprintf("child %d (%s) is absent or stale", i, child)}
		}
	}
	switch {
	case role.IsLeaf():
		if len(children) != 0 {
			return &ValidationError{Role: role, Reason: fmt.Sprintf("leaf cannot have children, got %d", len(children))}
		}
		if !hasCallback {
			return &ValidationError{Role: role, Reason: "missing callback"}
		}
	case role.IsComposite():
		if len(children) == 0 {
			return &ValidationError{Role: role, Reason: "requires at least one child"}
		}
		if hasCallback {
			return &ValidationError{Role: role, Reason: "composite cannot have a callback"}
		}
	case role == DecoratorCarrier:
		if len(children) == 0 || len(children) > 3 {
			return &ValidationError{Role: role, Reason: fmt.Sprintf("requires 1 to 3 children, got %d", len(children))}
		}
		if hasCallback {
			return &ValidationError{Role: role, Reason: "carrier cannot have a callback"}
		}
	}
	return nil
}
