package behavior

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func (ps *pass) decorate(ctx context.Context, id NodeID, n *nodeSlot, span trace.Span) (Outcome, error) {
	if len(n.children) == 0 {
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: "decorator carrier has no children"}
	}
	slot := ps.pool.decorator(n.decorator)
	if slot == nil {
		reason := "decorator carrier has no decorator attached"
		if !n.decorator.IsZero() {
			reason = fmt.Sprintf("attached %s is stale", n.decorator)
		}
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: reason}
	}
	d := *slot
	if lo, hi := d.kind.arity(); len(n.children) < lo || len(n.children) > hi {
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: fmt.Sprintf("%s decorator cannot wrap %d children", d.kind, len(n.children))}
	}
	span.SetAttributes(AttrKind.String(d.kind.String()))

	switch d.kind {
	case Invert:
		return ps.invert(ctx, n.children[0])
	case Repeat:
		return ps.repeat(ctx, id, n.children[0], d.param)
	case RepeatUntilSuccess:
		return ps.repeatUntilSuccess(ctx, n.children[0], d.param)
	case Conditional:
		return ps.conditional(ctx, n.children)
	case Delay:
		return ps.delay(ctx, id, n.children[0], d.param)
	default:
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: fmt.Sprintf("unsupported %s", d.kind)}
	}
}

func (ps *pass) invert(ctx context.Context, child NodeID) (Outcome, error) {
	outcome, err := ps.eval(ctx, child)
	if err != nil {
		return Failure, err
	}
	return OutcomeOf(!outcome.Succeeded()), nil
}

// repeat runs child exactly count times, without early exit, and reports the
// outcome of the last run.
func (ps *pass) repeat(ctx context.Context, id, child NodeID, count uint32) (Outcome, error) {
	if count == 0 {
		return Failure, &StructuralError{Op: "execute", Node: id, Reason: "repeat count is zero"}
	}
	var last Outcome
	for range count {
		outcome, err := ps.eval(ctx, child)
		if err != nil {
			return Failure, err
		}
		last = outcome
	}
	return last, nil
}

// repeatUntilSuccess retries child while it fails. maxAttempts of zero is
// unbounded; the loop then ends only on success or cancellation.
func (ps *pass) repeatUntilSuccess(ctx context.Context, child NodeID, maxAttempts uint32) (Outcome, error) {
	for attempt := uint32(1); ; attempt++ {
		outcome, err := ps.eval(ctx, child)
		if err != nil {
			return Failure, err
		}
		if outcome.Succeeded() {
			return Success, nil
		}
		if maxAttempts != 0 && attempt >= maxAttempts {
			return Failure, nil
		}
	}
}

// conditional evaluates children[0] and, depending on the child count,
// branches to children[1] or children[2].
func (ps *pass) conditional(ctx context.Context, children []NodeID) (Outcome, error) {
	cond, err := ps.eval(ctx, children[0])
	if err != nil {
		return Failure, err
	}
	switch {
	case len(children) == 1:
		return cond, nil
	case cond.Succeeded():
		return ps.eval(ctx, children[1])
	case len(children) == 3:
		return ps.eval(ctx, children[2])
	default:
		return Failure, nil
	}
}

// delay suspends after child succeeds, then passes its outcome through.
func (ps *pass) delay(ctx context.Context, id, child NodeID, units uint32) (Outcome, error) {
	outcome, err := ps.eval(ctx, child)
	if err != nil || !outcome.Succeeded() || units == 0 {
		return outcome, err
	}
	d := DelayDuration(units, ps.pool.delayUnit)
	ps.pool.logger.Debug("delaying", "pass", ps.id, "node", id, "duration", d)
	if err := ps.pool.sleeper(ctx, d); err != nil {
		return Failure, fmt.Errorf("behavior: delay at %s interrupted: %w", id, err)
	}
	return outcome, nil
}

// DelayDuration is the suspension of a Delay decorator with the given
// parameter: units × unit, saturating at the longest representable duration.
func DelayDuration(units uint32, unit time.Duration) time.Duration {
	if unit > 0 && time.Duration(units) > math.MaxInt64/unit {
		return math.MaxInt64
	}
	return time.Duration(units) * unit
}
