package bt

import (
	"context"
	"fmt"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/behave/internal/behavior"
)

// Option configures Export.
type Option func(*exporter)

// WithSleeper sets the suspension point used by exported Delay decorators.
// Default: behavior.Sleep
func WithSleeper(s behavior.Sleeper) Option {
	return func(e *exporter) {
		if s != nil {
			e.sleeper = s
		}
	}
}

// WithDelayUnit sets the duration of one Delay unit.
// Default: behavior.DefaultDelayUnit
func WithDelayUnit(d time.Duration) Option {
	return func(e *exporter) {
		if d >= 0 {
			e.delayUnit = d
		}
	}
}

type exporter struct {
	ctx       context.Context
	pool      *behavior.Pool
	sleeper   behavior.Sleeper
	delayUnit time.Duration
	// nodes memoizes exported subtrees, so that shared pool nodes stay shared.
	nodes map[behavior.NodeID]bt.Node
}

// Export converts the subtree rooted at root into a go-behaviortree node
// graph with the same semantics as [behavior.Pool.Execute]. The pool is read
// once, up front; later changes to the pool are not reflected in the
// returned node. Leaf callbacks receive ctx.
//
// The exported graph never returns bt.Running: every leaf in the pool
// completes synchronously.
func Export(ctx context.Context, pool *behavior.Pool, root behavior.NodeID, options ...Option) (bt.Node, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if root.IsZero() {
		return nil, behavior.ErrAbsentNode
	}
	e := &exporter{
		ctx:       ctx,
		pool:      pool,
		sleeper:   behavior.Sleep,
		delayUnit: behavior.DefaultDelayUnit,
		nodes:     make(map[behavior.NodeID]bt.Node),
	}
	for _, opt := range options {
		opt(e)
	}
	return e.export(root)
}

func (e *exporter) export(id behavior.NodeID) (bt.Node, error) {
	if node, ok := e.nodes[id]; ok {
		return node, nil
	}
	info, ok := e.pool.Inspect(id)
	if !ok {
		return nil, &behavior.StructuralError{Op: "export", Node: id, Reason: "node is absent or stale"}
	}

	children := make([]bt.Node, len(info.Children))
	for i, child := range info.Children {
		node, err := e.export(child)
		if err != nil {
			return nil, err
		}
		children[i] = node
	}

	tick, err := e.tick(id, info)
	if err != nil {
		return nil, err
	}
	node := bt.New(tick, children...)
	e.nodes[id] = node
	return node, nil
}

func (e *exporter) tick(id behavior.NodeID, info behavior.NodeInfo) (bt.Tick, error) {
	switch info.Role {
	case behavior.Action, behavior.Condition:
		fn, ok := e.pool.Leaf(id)
		if !ok {
			return nil, &behavior.StructuralError{Op: "export", Node: id, Reason: "leaf has no callback"}
		}
		return leafTick(e.ctx, id, fn), nil
	case behavior.Sequence:
		return bt.Sequence, nil
	case behavior.Selector:
		return bt.Selector, nil
	case behavior.Parallel:
		return parallel, nil
	case behavior.DecoratorCarrier:
		return e.decoratorTick(id, info)
	default:
		return nil, &behavior.StructuralError{Op: "export", Node: id, Reason: fmt.Sprintf("unsupported role %s", info.Role)}
	}
}

func (e *exporter) decoratorTick(id behavior.NodeID, info behavior.NodeInfo) (bt.Tick, error) {
	d, ok := e.pool.Decorator(info.Decorator)
	if !ok {
		reason := "decorator carrier has no decorator attached"
		if !info.Decorator.IsZero() {
			reason = fmt.Sprintf("attached %s is stale", info.Decorator)
		}
		return nil, &behavior.StructuralError{Op: "export", Node: id, Reason: reason}
	}
	switch d.Kind {
	case behavior.Invert:
		return bt.Not(bt.Sequence), nil
	case behavior.Repeat:
		return repeat(d.Param), nil
	case behavior.RepeatUntilSuccess:
		return repeatUntilSuccess(e.ctx, d.Param), nil
	case behavior.Conditional:
		return conditional, nil
	case behavior.Delay:
		return delay(e.ctx, behavior.DelayDuration(d.Param, e.delayUnit), e.sleeper), nil
	default:
		return nil, &behavior.StructuralError{Op: "export", Node: id, Reason: fmt.Sprintf("unsupported %s", d.Kind)}
	}
}

func leafTick(ctx context.Context, id behavior.NodeID, fn behavior.LeafFunc) bt.Tick {
	return func([]bt.Node) (status bt.Status, err error) {
		defer func() {
			if r := recover(); r != nil {
				status = bt.Failure
				err = fmt.Errorf("%w: %s: %v", behavior.ErrCallbackPanic, id, r)
			}
		}()
		if err := ctx.Err(); err != nil {
			return bt.Failure, err
		}
		ok, err := fn(ctx)
		if err != nil {
			return bt.Failure, fmt.Errorf("behavior: leaf %s: %w", id, err)
		}
		return statusOf(ok), nil
	}
}

// parallel ticks every child, in order, and succeeds if none failed.
func parallel(children []bt.Node) (bt.Status, error) {
	failed := false
	for _, child := range children {
		status, err := child.Tick()
		if err != nil {
			return bt.Failure, err
		}
		if status != bt.Success {
			failed = true
		}
	}
	return statusOf(!failed), nil
}

func repeat(count uint32) bt.Tick {
	return func(children []bt.Node) (bt.Status, error) {
		last := bt.Failure
		for range count {
			status, err := children[0].Tick()
			if err != nil {
				return bt.Failure, err
			}
			last = status
		}
		return last, nil
	}
}

func repeatUntilSuccess(ctx context.Context, maxAttempts uint32) bt.Tick {
	return func(children []bt.Node) (bt.Status, error) {
		for attempt := uint32(1); ; attempt++ {
			if err := ctx.Err(); err != nil {
				return bt.Failure, err
			}
			status, err := children[0].Tick()
			if err != nil {
				return bt.Failure, err
			}
			if status == bt.Success {
				return bt.Success, nil
			}
			if maxAttempts != 0 && attempt >= maxAttempts {
				return bt.Failure, nil
			}
		}
	}
}

func conditional(children []bt.Node) (bt.Status, error) {
	cond, err := children[0].Tick()
	if err != nil {
		return bt.Failure, err
	}
	switch {
	case len(children) == 1:
		return cond, nil
	case cond == bt.Success:
		return children[1].Tick()
	case len(children) == 3:
		return children[2].Tick()
	default:
		return bt.Failure, nil
	}
}

func delay(ctx context.Context, d time.Duration, sleep behavior.Sleeper) bt.Tick {
	return func(children []bt.Node) (bt.Status, error) {
		status, err := children[0].Tick()
		if err != nil || status != bt.Success || d == 0 {
			return status, err
		}
		if err := sleep(ctx, d); err != nil {
			return bt.Failure, fmt.Errorf("behavior: delay interrupted: %w", err)
		}
		return status, nil
	}
}

func statusOf(ok bool) bt.Status {
	if ok {
		return bt.Success
	}
	return bt.Failure
}

// OutcomeOf maps a go-behaviortree status onto an outcome. Running, which
// exported graphs never produce, maps to Failure.
func OutcomeOf(status bt.Status) behavior.Outcome {
	return behavior.OutcomeOf(status == bt.Success)
}
