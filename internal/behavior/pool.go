package behavior

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultDelayUnit is the duration of one Delay decorator unit.
const DefaultDelayUnit = time.Second

// NodeID is a generation-checked handle to a node slot. The zero value is the
// absent node.
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the absent node.
func (id NodeID) IsZero() bool {
	return id.gen == 0
}

func (id NodeID) String() string {
	if id.IsZero() {
		return "node(absent)"
	}
	return fmt.Sprintf("node#%d.%d", id.index, id.gen)
}

// DecoratorID is a generation-checked handle to a decorator slot. The zero
// value is the absent decorator.
type DecoratorID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the absent decorator.
func (id DecoratorID) IsZero() bool {
	return id.gen == 0
}

func (id DecoratorID) String() string {
	if id.IsZero() {
		return "decorator(absent)"
	}
	return fmt.Sprintf("decorator#%d.%d", id.index, id.gen)
}

// Callback is the leaf contract: a zero-argument function reporting success.
// It may perform arbitrary side effects but must return promptly, since the
// engine does not bound callback duration.
type Callback func() bool

// LeafFunc is a context-aware leaf. A non-nil error aborts the pass.
type LeafFunc func(ctx context.Context) (bool, error)

func (c Callback) leafFunc() LeafFunc {
	return func(context.Context) (bool, error) {
		return c(), nil
	}
}

type nodeSlot struct {
	gen       uint32
	live      bool
	role      Role
	leaf      LeafFunc
	children  []NodeID
	decorator DecoratorID
	owners    int
	// adopted is set once the creator's handle has been taken over by a parent.
	adopted bool
}

type decoratorSlot struct {
	gen      uint32
	live     bool
	kind     DecoratorKind
	param    uint32
	owners   int
	attached bool
}

// Pool is an arena of nodes and decorators. See the package documentation for
// the ownership rules.
type Pool struct {
	nodes          []nodeSlot
	freeNodes      []uint32
	liveNodes      int
	decorators     []decoratorSlot
	freeDecorators []uint32
	liveDecorators int

	logger        *slog.Logger
	tracer        trace.Tracer
	sleeper       Sleeper
	delayUnit     time.Duration
	maxNodes      int
	maxDecorators int

	busy atomic.Bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer used for pass and node spans.
// Defaults to a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pool) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// WithSleeper sets the suspension point used by Delay decorators.
func WithSleeper(s Sleeper) Option {
	return func(p *Pool) {
		if s != nil {
			p.sleeper = s
		}
	}
}

// WithDelayUnit sets the duration of one Delay unit.
// Default: DefaultDelayUnit
func WithDelayUnit(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.delayUnit = d
		}
	}
}

// WithMaxNodes limits the number of live nodes. Zero means unlimited.
func WithMaxNodes(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.maxNodes = n
		}
	}
}

// WithMaxDecorators limits the number of live decorators. Zero means
// unlimited.
func WithMaxDecorators(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.maxDecorators = n
		}
	}
}

// NewPool creates an empty pool.
func NewPool(options ...Option) *Pool {
	p := &Pool{
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("behavior"),
		sleeper:   Sleep,
		delayUnit: DefaultDelayUnit,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Nodes          int
	Decorators     int
	NodeSlots      int
	DecoratorSlots int
}

// Stats returns the number of live nodes and decorators, and the number of
// slots allocated for each.
func (p *Pool) Stats() Stats {
	return Stats{
		Nodes:          p.liveNodes,
		Decorators:     p.liveDecorators,
		NodeSlots:      len(p.nodes),
		DecoratorSlots: len(p.decorators),
	}
}

// NodeInfo is a snapshot of a node slot, as returned by [Pool.Inspect].
type NodeInfo struct {
	Role        Role
	Children    []NodeID
	Decorator   DecoratorID
	HasCallback bool
	Owners      int
}

// Inspect returns a snapshot of the node, or false if id is absent or stale.
func (p *Pool) Inspect(id NodeID) (NodeInfo, bool) {
	n := p.node(id)
	if n == nil {
		return NodeInfo{}, false
	}
	return NodeInfo{
		Role:        n.role,
		Children:    slices.Clone(n.children),
		Decorator:   n.decorator,
		HasCallback: n.leaf != nil,
		Owners:      n.owners,
	}, true
}

// Leaf returns the callback of a live leaf node, adapted to LeafFunc.
func (p *Pool) Leaf(id NodeID) (LeafFunc, bool) {
	n := p.node(id)
	if n == nil || n.leaf == nil {
		return nil, false
	}
	return n.leaf, true
}

// Alive reports whether id refers to a node that has not been reclaimed.
func (p *Pool) Alive(id NodeID) bool {
	return p.node(id) != nil
}

// OwnerCount returns the node's owner count, or false if it is not alive.
func (p *Pool) OwnerCount(id NodeID) (int, bool) {
	n := p.node(id)
	if n == nil {
		return 0, false
	}
	return n.owners, true
}

// Retain adds an owner handle to a live node, so that it survives the
// release of every parent that adopted it. Each Retain must be matched by a
// Release.
func (p *Pool) Retain(id NodeID) error {
	n := p.node(id)
	if n == nil {
		return &StructuralError{Op: "retain", Node: id, Reason: "node is absent or stale"}
	}
	n.owners++
	return nil
}

// Decorator returns a snapshot of the decorator, or false if it is absent or
// stale.
func (p *Pool) Decorator(id DecoratorID) (Decorator, bool) {
	d := p.decorator(id)
	if d == nil {
		return Decorator{}, false
	}
	return Decorator{Kind: d.kind, Param: d.param, Owners: d.owners}, true
}

// DecoratorAlive reports whether id refers to a decorator that has not been
// reclaimed.
func (p *Pool) DecoratorAlive(id DecoratorID) bool {
	return p.decorator(id) != nil
}

func (p *Pool) node(id NodeID) *nodeSlot {
	if id.gen == 0 || int(id.index) >= len(p.nodes) {
		return nil
	}
	s := &p.nodes[id.index]
	if !s.live || s.gen != id.gen {
		return nil
	}
	return s
}

func (p *Pool) decorator(id DecoratorID) *decoratorSlot {
	if id.gen == 0 || int(id.index) >= len(p.decorators) {
		return nil
	}
	s := &p.decorators[id.index]
	if !s.live || s.gen != id.gen {
		return nil
	}
	return s
}

func (p *Pool) allocNode() (NodeID, error) {
	if p.maxNodes > 0 && p.liveNodes >= p.maxNodes {
		return NodeID{}, &AllocationError{What: "node", Limit: p.maxNodes}
	}
	var index uint32
	if n := len(p.freeNodes); n > 0 {
		index = p.freeNodes[n-1]
		p.freeNodes = p.freeNodes[:n-1]
	} else {
		index = uint32(len(p.nodes))
		p.nodes = append(p.nodes, nodeSlot{gen: 1})
	}
	s := &p.nodes[index]
	s.live = true
	p.liveNodes++
	return NodeID{index: index, gen: s.gen}, nil
}

func (p *Pool) freeNode(id NodeID) {
	s := &p.nodes[id.index]
	*s = nodeSlot{gen: nextGen(s.gen)}
	p.freeNodes = append(p.freeNodes, id.index)
	p.liveNodes--
}

func (p *Pool) allocDecorator() (DecoratorID, error) {
	if p.maxDecorators > 0 && p.liveDecorators >= p.maxDecorators {
		return DecoratorID{}, &AllocationError{What: "decorator", Limit: p.maxDecorators}
	}
	var index uint32
	if n := len(p.freeDecorators); n > 0 {
		index = p.freeDecorators[n-1]
		p.freeDecorators = p.freeDecorators[:n-1]
	} else {
		index = uint32(len(p.decorators))
		p.decorators = append(p.decorators, decoratorSlot{gen: 1})
	}
	s := &p.decorators[index]
	s.live = true
	p.liveDecorators++
	return DecoratorID{index: index, gen: s.gen}, nil
}

func (p *Pool) freeDecorator(id DecoratorID) {
	s := &p.decorators[id.index]
	*s = decoratorSlot{gen: nextGen(s.gen)}
	p.freeDecorators = append(p.freeDecorators, id.index)
	p.liveDecorators--
	p.logger.Debug("reclaimed decorator", "decorator", id)
}

// nextGen skips zero, which marks the absent handle.
func nextGen(gen uint32) uint32 {
	gen++
	if gen == 0 {
		gen = 1
	}
	return gen
}
