package behavior

import (
	"fmt"
)

// DecoratorKind selects the semantics a decorator applies to its carrier's
// children.
type DecoratorKind int

const (
	// Invert reports Success iff its child fails.
	Invert DecoratorKind = iota + 1
	// Repeat runs its child exactly Param times and reports the last outcome.
	Repeat
	// RepeatUntilSuccess retries its child while it fails. A non-zero Param
	// bounds the number of attempts.
	RepeatUntilSuccess
	// Conditional uses child 0 as a condition selecting child 1 or child 2.
	Conditional
	// Delay suspends for Param delay units after its child succeeds.
	Delay
)

// Valid reports whether k is a supported kind.
func (k DecoratorKind) Valid() bool {
	return k >= Invert && k <= Delay
}

// arity returns the inclusive range of carrier children the kind accepts.
func (k DecoratorKind) arity() (lo, hi int) {
	if k == Conditional {
		return 1, 3
	}
	return 1, 1
}

func (k DecoratorKind) String() string {
	switch k {
	case Invert:
		return "invert"
	case Repeat:
		return "repeat"
	case RepeatUntilSuccess:
		return "repeat-until-success"
	case Conditional:
		return "conditional"
	case Delay:
		return "delay"
	default:
		return fmt.Sprintf("decorator-kind(%d)", int(k))
	}
}

// Decorator is a snapshot of a decorator slot, as returned by
// [Pool.Decorator].
type Decorator struct {
	Kind DecoratorKind
	// Param is the repeat count, attempt bound or delay, depending on Kind.
	Param  uint32
	Owners int
}

// CreateDecorator allocates a decorator with one owner handle held by the
// caller. Attaching it to a carrier transfers that handle.
func (p *Pool) CreateDecorator(kind DecoratorKind, param uint32) (DecoratorID, error) {
	if !kind.Valid() {
		return DecoratorID{}, &ValidationError{Kind: kind, Reason: "unknown decorator kind"}
	}
	if kind == Repeat && param == 0 {
		return DecoratorID{}, &ValidationError{Kind: kind, Reason: "repeat count must be at least 1"}
	}
	id, err := p.allocDecorator()
	if err != nil {
		return DecoratorID{}, err
	}
	s := &p.decorators[id.index]
	s.kind = kind
	s.param = param
	s.owners = 1
	p.logger.Debug("created decorator", "decorator", id, "kind", kind, "param", param)
	return id, nil
}

// Invert creates an Invert decorator.
func (p *Pool) Invert() (DecoratorID, error) {
	return p.CreateDecorator(Invert, 0)
}

// Repeat creates a Repeat decorator running its child n times. n must be at
// least 1.
func (p *Pool) Repeat(n uint32) (DecoratorID, error) {
	return p.CreateDecorator(Repeat, n)
}

// RepeatUntilSuccess creates a RepeatUntilSuccess decorator. A maxAttempts of
// zero leaves the retry loop unbounded: it then terminates only when the child
// succeeds or the pass context is cancelled.
func (p *Pool) RepeatUntilSuccess(maxAttempts uint32) (DecoratorID, error) {
	return p.CreateDecorator(RepeatUntilSuccess, maxAttempts)
}

// Conditional creates a Conditional decorator.
func (p *Pool) Conditional() (DecoratorID, error) {
	return p.CreateDecorator(Conditional, 0)
}

// Delay creates a Delay decorator suspending for the given number of delay
// units (seconds, by default) after its child succeeds.
func (p *Pool) Delay(seconds uint32) (DecoratorID, error) {
	return p.CreateDecorator(Delay, seconds)
}

// AttachDecorator attaches dec to a decorator carrier that has none yet. The
// first attachment of a decorator takes over its creator's handle; attaching
// it to further carriers adds an owner each time.
func (p *Pool) AttachDecorator(node NodeID, dec DecoratorID) error {
	n := p.node(node)
	if n == nil {
		return &ValidationError{Reason: fmt.Sprintf("cannot attach decorator to absent or stale %s", node)}
	}
	if n.role != DecoratorCarrier {
		return &ValidationError{Role: n.role, Reason: "only decorator carriers accept a decorator"}
	}
	if !n.decorator.IsZero() {
		return &ValidationError{Role: n.role, Reason: fmt.Sprintf("%s already has %s attached", node, n.decorator)}
	}
	if err := p.checkAttach(len(n.children), dec); err != nil {
		return err
	}
	n.decorator = dec
	p.adoptDecorator(dec)
	p.logger.Debug("attached decorator", "node", node, "decorator", dec)
	return nil
}

// ReleaseDecorator drops the creator's handle of a decorator that was never
// attached, reclaiming it. Once attached, every handle belongs to a carrier
// and the decorator is freed only by releasing its carriers.
func (p *Pool) ReleaseDecorator(dec DecoratorID) error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)
	d := p.decorator(dec)
	if d == nil {
		return &StructuralError{Op: "release", Reason: fmt.Sprintf("%s is absent or stale", dec)}
	}
	if d.attached {
		return &ValidationError{Role: DecoratorCarrier, Kind: d.kind, Reason: fmt.Sprintf("%s is owned by its carriers; release them instead", dec)}
	}
	d.owners--
	if d.owners == 0 {
		p.freeDecorator(dec)
	}
	return nil
}

// checkAttach validates attaching dec to a carrier with the given number of
// children, without modifying anything.
func (p *Pool) checkAttach(children int, dec DecoratorID) error {
	d := p.decorator(dec)
	if d == nil {
		return &ValidationError{Role: DecoratorCarrier, Reason: fmt.Sprintf("%s is absent or stale", dec)}
	}
	if lo, hi := d.kind.arity(); children < lo || children > hi {
		reason := fmt.Sprintf("carrier has %d children, decorator accepts exactly %d", children, lo)
		if lo != hi {
			reason = fmt.Sprintf("carrier has %d children, decorator accepts %d to %d", children, lo, hi)
		}
		return &ValidationError{Role: DecoratorCarrier, Kind: d.kind, Reason: reason}
	}
	return nil
}

func (p *Pool) adoptDecorator(dec DecoratorID) {
	d := p.decorator(dec)
	if !d.attached {
		d.attached = true
		return
	}
	d.owners++
}
