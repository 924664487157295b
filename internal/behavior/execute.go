package behavior

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrPass    = attribute.Key("behavior.pass")
	AttrNode    = attribute.Key("behavior.node")
	AttrRole    = attribute.Key("behavior.role")
	AttrOutcome = attribute.Key("behavior.outcome")
	AttrKind    = attribute.Key("behavior.decorator")
)

// pass holds the state of a single evaluation pass.
type pass struct {
	pool *Pool
	id   uuid.UUID
}

// Execute runs one evaluation pass rooted at root and returns its outcome.
//
// Any error aborts the pass immediately and is returned with Failure: an
// absent root (ErrAbsentNode), a stale reference or a carrier without a
// decorator (*StructuralError), a LeafFunc error, a recovered callback panic
// (ErrCallbackPanic), or cancellation of ctx. ctx is checked before every
// node evaluation and also interrupts Delay suspensions.
func (p *Pool) Execute(ctx context.Context, root NodeID) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if root.IsZero() {
		p.logger.Error("execute called with absent node")
		return Failure, ErrAbsentNode
	}
	if !p.busy.CompareAndSwap(false, true) {
		return Failure, ErrBusy
	}
	defer p.busy.Store(false)

	ps := &pass{pool: p, id: uuid.New()}
	ctx, span := p.tracer.Start(ctx, "behavior.Execute", trace.WithAttributes(
		AttrPass.String(ps.id.String()),
		AttrNode.String(root.String()),
	))
	defer span.End()

	p.logger.Debug("pass started", "pass", ps.id, "root", root)
	outcome, err := ps.eval(ctx, root)
	span.SetAttributes(AttrOutcome.String(outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("pass aborted", "pass", ps.id, "root", root, "error", err)
		return Failure, err
	}
	p.logger.Debug("pass finished", "pass", ps.id, "root", root, "outcome", outcome)
	return outcome, nil
}

func (ps *pass) eval(ctx context.Context, id NodeID) (Outcome, error) {
	slot := ps.pool.node(id)
	if slot == nil {
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: "node is absent or stale"}
	}
	if err := ctx.Err(); err != nil {
		return Failure, fmt.Errorf("behavior: pass %s cancelled at %s: %w", ps.id, id, err)
	}
	// callbacks may grow the pool, so work on a copy of the slot
	n := *slot

	ctx, span := ps.pool.tracer.Start(ctx, "behavior."+n.role.String(), trace.WithAttributes(
		AttrNode.String(id.String()),
		AttrRole.String(n.role.String()),
	))
	defer span.End()

	var (
		outcome Outcome
		err     error
	)
	switch n.role {
	case Action, Condition:
		outcome, err = ps.leaf(ctx, id, n.leaf)
	case Sequence:
		outcome, err = ps.sequence(ctx, n.children)
	case Selector:
		outcome, err = ps.selector(ctx, n.children)
	case Parallel:
		outcome, err = ps.parallel(ctx, n.children)
	case DecoratorCarrier:
		outcome, err = ps.decorate(ctx, id, &n, span)
	default:
		err = &StructuralError{Op: "execute", Node: id, Reason: fmt.Sprintf("unsupported role %s", n.role)}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Failure, err
	}
	span.SetAttributes(AttrOutcome.String(outcome.String()))
	return outcome, nil
}

func (ps *pass) leaf(ctx context.Context, id NodeID, fn LeafFunc) (outcome Outcome, err error) {
	if fn == nil {
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: "leaf has no callback"}
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = Failure
			err = fmt.Errorf("%w: %s: %v", ErrCallbackPanic, id, r)
		}
	}()
	ok, err := fn(ctx)
	if err != nil {
		return Failure, fmt.Errorf("behavior: leaf %s: %w", id, err)
	}
	outcome = OutcomeOf(ok)
	ps.pool.logger.Debug("leaf evaluated", "pass", ps.id, "node", id, "outcome", outcome)
	return outcome, nil
}

// sequence stops at the first failing child.
func (ps *pass) sequence(ctx context.Context, children []NodeID) (Outcome, error) {
	for _, child := range children {
		outcome, err := ps.eval(ctx, child)
		if err != nil {
			return Failure, err
		}
		if !outcome.Succeeded() {
			return Failure, nil
		}
	}
	return Success, nil
}

// selector stops at the first succeeding child.
func (ps *pass) selector(ctx context.Context, children []NodeID) (Outcome, error) {
	for _, child := range children {
		outcome, err := ps.eval(ctx, child)
		if err != nil {
			return Failure, err
		}
		if outcome.Succeeded() {
			return Success, nil
		}
	}
	return Failure, nil
}

// parallel evaluates every child, in order, and succeeds if none failed.
func (ps *pass) parallel(ctx context.Context, children []NodeID) (Outcome, error) {
	var failures int
	for _, child := range children {
		outcome, err := ps.eval(ctx, child)
		if err != nil {
			return Failure, err
		}
		if !outcome.Succeeded() {
			failures++
		}
	}
	return OutcomeOf(failures == 0), nil
}
