package behavior

import (
	"fmt"
)

// releasePlan is a dry run of a release walk over shadow owner counts.
type releasePlan struct {
	pool       *Pool
	nodes      map[uint32]int
	decorators map[uint32]int
	// freed and freedDecorators are in reclaim order, children first.
	freed           []NodeID
	freedDecorators []DecoratorID
}

// Release drops one owner handle of id. If that was the last handle the node
// is reclaimed: its children are released first (depth first), then its
// decorator, then its own slot. A node shared with other parents only loses
// one owner and stays alive.
//
// The whole walk is checked before anything is modified; an absent or stale
// reference anywhere in it aborts the release with a *StructuralError and
// leaves every owner count untouched.
func (p *Pool) Release(id NodeID) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)

	plan := &releasePlan{
		pool:       p,
		nodes:      make(map[uint32]int),
		decorators: make(map[uint32]int),
	}
	if err := plan.visit(id, NodeID{}); err != nil {
		p.logger.Error("release aborted", "node", id, "error", err)
		return err
	}
	plan.apply()
	p.logger.Debug("released node", "node", id, "reclaimed", len(plan.freed))
	return nil
}

func (r *releasePlan) visit(id, parent NodeID) error {
	n := r.pool.node(id)
	if n == nil {
		reason := "node is absent or stale"
		if !parent.IsZero() {
			reason = fmt.Sprintf("child of %s is absent or stale", parent)
		}
		return &StructuralError{Op: "release", Node: id, Reason: reason}
	}
	owners, ok := r.nodes[id.index]
	if !ok {
		owners = n.owners
	}
	if owners <= 0 {
		return &StructuralError{Op: "release", Node: id, Reason: "owner count already drained"}
	}
	owners--
	r.nodes[id.index] = owners
	if owners > 0 {
		return nil
	}

	for _, child := range n.children {
		if err := r.visit(child, id); err != nil {
			return err
		}
	}

	if !n.decorator.IsZero() {
		d := r.pool.decorator(n.decorator)
		if d == nil {
			return &StructuralError{Op: "release", Node: id, Reason: fmt.Sprintf("attached %s is stale", n.decorator)}
		}
		owners, ok := r.decorators[n.decorator.index]
		if !ok {
			owners = d.owners
		}
		if owners <= 0 {
			return &StructuralError{Op: "release", Node: id, Reason: fmt.Sprintf("%s owner count already drained", n.decorator)}
		}
		owners--
		r.decorators[n.decorator.index] = owners
		if owners == 0 {
			r.freedDecorators = append(r.freedDecorators, n.decorator)
		}
	}

	r.freed = append(r.freed, id)
	return nil
}

func (r *releasePlan) apply() {
	p := r.pool
	for index, owners := range r.nodes {
		p.nodes[index].owners = owners
	}
	for index, owners := range r.decorators {
		p.decorators[index].owners = owners
	}
	for _, id := range r.freed {
		p.freeNode(id)
		p.logger.Debug("reclaimed node", "node", id)
	}
	for _, id := range r.freedDecorators {
		p.freeDecorator(id)
	}
}
