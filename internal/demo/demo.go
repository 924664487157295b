// Package demo builds the sample robot tree: a Parallel root evaluating a
// conditional check, a selector with a delayed action, a shared action, and
// a repeated, delayed motor/beep sequence.
//
//	parallel
//	├── conditional(ifCondition, ifTest)
//	├── selector
//	│   ├── delay(3)
//	│   │   └── actionA
//	│   └── actionB
//	├── actionA                (shared with the selector branch)
//	└── repeat(3)
//	    └── delay(1)
//	        └── sequence(motor, beep)
package demo

import (
	"context"
	"fmt"
	"io"

	"github.com/joeycumines/behave/internal/behavior"
)

// Leaf names, usable as override keys.
const (
	ActionA     = "actionA"
	ActionB     = "actionB"
	Beep        = "beep"
	Motor       = "motor"
	IfCondition = "ifCondition"
	IfTest      = "ifTest"
	ElseTest    = "elseTest"
)

// Leaves lists every leaf name, in construction order.
var Leaves = []string{ActionA, ActionB, Beep, Motor, IfCondition, IfTest, ElseTest}

type defaultLeaf struct {
	line   string
	result bool
}

var defaults = map[string]defaultLeaf{
	ActionA:     {"Action A executed", true},
	ActionB:     {"Action B executed", true},
	Beep:        {"Beep is start", true},
	Motor:       {"Motor is start", true},
	IfCondition: {"ifCondition", true},
	IfTest:      {"if_test", true},
	ElseTest:    {"Else test", false},
}

// Tree is the sample tree built in a pool.
type Tree struct {
	pool   *behavior.Pool
	root   behavior.NodeID
	leaves map[string]behavior.NodeID
	// elseTest is built but not wired into the conditional.
	orphans []behavior.NodeID
}

// Build constructs the sample tree in pool. Default leaves print a line to w
// and report a fixed outcome; overrides replace leaves by name. Unknown
// override names are an error.
func Build(pool *behavior.Pool, w io.Writer, overrides map[string]behavior.LeafFunc) (*Tree, error) {
	for name := range overrides {
		if _, ok := defaults[name]; !ok {
			return nil, fmt.Errorf("demo: unknown leaf %q", name)
		}
	}

	t := &Tree{pool: pool, leaves: make(map[string]behavior.NodeID, len(Leaves))}
	for _, name := range Leaves {
		fn, ok := overrides[name]
		if !ok {
			fn = printer(w, defaults[name])
		}
		id, err := pool.CreateNodeFunc(behavior.Action, fn)
		if err != nil {
			return nil, fmt.Errorf("demo: leaf %s: %w", name, err)
		}
		t.leaves[name] = id
	}

	b := builder{pool: pool}
	seq := b.node(pool.Sequence(t.leaves[Motor], t.leaves[Beep]))
	delay1 := b.carrier(pool.Delay(1))(seq)
	repeat := b.carrier(pool.Repeat(3))(delay1)
	delay3 := b.carrier(pool.Delay(3))(t.leaves[ActionA])
	selector := b.node(pool.Selector(delay3, t.leaves[ActionB]))
	// only the condition and the then branch are wired
	ifTest := b.carrier(pool.Conditional())(t.leaves[IfCondition], t.leaves[IfTest])
	t.root = b.node(pool.Parallel(ifTest, selector, t.leaves[ActionA], repeat))
	if b.err != nil {
		return nil, fmt.Errorf("demo: %w", b.err)
	}
	t.orphans = []behavior.NodeID{t.leaves[ElseTest]}
	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() behavior.NodeID {
	return t.root
}

// Leaf returns the node of the named leaf.
func (t *Tree) Leaf(name string) (behavior.NodeID, bool) {
	id, ok := t.leaves[name]
	return id, ok
}

// Run executes one pass from the root.
func (t *Tree) Run(ctx context.Context) (behavior.Outcome, error) {
	return t.pool.Execute(ctx, t.root)
}

// Release tears the tree down, including leaves that were never wired.
func (t *Tree) Release() error {
	if err := t.pool.Release(t.root); err != nil {
		return err
	}
	for _, id := range t.orphans {
		if err := t.pool.Release(id); err != nil {
			return err
		}
	}
	return nil
}

func printer(w io.Writer, leaf defaultLeaf) behavior.LeafFunc {
	return func(context.Context) (bool, error) {
		if _, err := fmt.Fprintln(w, leaf.line); err != nil {
			return false, err
		}
		return leaf.result, nil
	}
}

// builder keeps the first construction error, so that the tree reads as a
// sequence of calls.
type builder struct {
	pool *behavior.Pool
	err  error
}

func (b *builder) node(id behavior.NodeID, err error) behavior.NodeID {
	if b.err == nil {
		b.err = err
	}
	return id
}

func (b *builder) carrier(dec behavior.DecoratorID, err error) func(children ...behavior.NodeID) behavior.NodeID {
	if b.err == nil {
		b.err = err
	}
	return func(children ...behavior.NodeID) behavior.NodeID {
		if b.err != nil {
			return behavior.NodeID{}
		}
		return b.node(b.pool.Carrier(dec, children...))
	}
}
