/*
Package bt exports trees built in a [behavior.Pool] as go-behaviortree node
graphs, so that they can be driven by the go-behaviortree tickers and
managers, or composed with other go-behaviortree nodes.

# Mapping

	Pool role / decorator      go-behaviortree tick
	-------------------------  -------------------------------------------
	Action, Condition          leaf tick calling the LeafFunc
	Sequence                   bt.Sequence
	Selector                   bt.Selector
	Parallel                   tick every child; success iff none failed
	Invert                     bt.Not(bt.Sequence) over the single child
	Repeat(n)                  tick the child n times, report the last
	RepeatUntilSuccess(n)      tick until success, at most n times (0: no bound)
	Conditional                cond ? then : else, as in Pool.Execute
	Delay(units)               tick the child, suspend after success

Shared pool nodes map to a single shared bt.Node. The exported graph is a
snapshot: it holds the leaf callbacks and decorator parameters that were live
at export time, and does not observe later changes to the pool.
*/
package bt
