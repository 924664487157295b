/*
Package behavior implements a synchronous behavior-tree engine: a pool of
composable decision nodes (actions, conditions, composites and decorator
carriers) evaluated depth-first against caller-supplied callbacks, producing a
binary Success/Failure outcome per evaluation pass.

# Data Model

All nodes and decorators live in a [Pool]. Callers hold generation-checked
handles ([NodeID], [DecoratorID]); the zero handle means "absent". A slot is
reclaimed when its owner count drains to zero, at which point its generation is
bumped and every outstanding handle to it becomes stale ([Pool.Alive] reports
false).

The structural rules per role are enforced at construction and never relaxed:

	role                         children  callback  decorator
	Action, Condition            none      required  none
	Sequence, Selector, Parallel 1..N      none      none
	DecoratorCarrier             1..3      none      attached after construction

# Ownership

A node may be listed as a child of several parents, so a pool holds a DAG
rather than a strict tree. Every node starts with one handle, owned by its
creator. The first adoption as a child transfers that handle to the parent;
each further adoption adds one. [Pool.Retain] adds an explicit extra handle for
callers that want to keep using a node after handing it to a parent.
Decorators follow the same rule with respect to [Pool.AttachDecorator].

[Pool.Release] drops one handle. When a node's count reaches zero its children
are released first (depth first), then its decorator, then its own slot. The
walk is planned before anything is modified: an absent or stale reference
anywhere in it aborts the whole release with a [*StructuralError].

# Evaluation

[Pool.Execute] runs one evaluation pass. Sequence and Selector short-circuit;
Parallel always evaluates every child (sequentially) and succeeds only if none
failed. Decorators wrap child 0:

  - Invert flips the child's outcome.
  - Repeat(N) runs the child exactly N times and reports the last outcome.
  - RepeatUntilSuccess retries the child while it fails, optionally bounded.
  - Conditional treats child 0 as a condition selecting child 1 or child 2.
  - Delay(s) suspends for s units after the child succeeds.

The Delay suspension goes through a [Sleeper], so a host may substitute its own
scheduling. It is the only point at which a pass blocks.

# Thread Safety

A Pool is not safe for concurrent use. Overlapping calls to Execute or Release
are detected and rejected with [ErrBusy]; construction must not race with them.
*/
package behavior
