// Package exprleaf implements leaf callbacks as expr-lang boolean
// expressions evaluated against the host blackboard.
//
// Every blackboard key is a variable of the expression environment:
//
//	battery < 20 && door == "open"
//
// Unknown variables evaluate to nil. An expression must produce a bool.
package exprleaf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/joeycumines/behave/internal/behavior"
	"github.com/joeycumines/behave/internal/builtin/blackboard"
)

// ErrNotBool is returned when an expression evaluates to a non-boolean.
var ErrNotBool = errors.New("exprleaf: expression did not produce a bool")

// Evaluator compiles and runs expressions. It is safe for concurrent use.
type Evaluator struct {
	cache  *ProgramCache
	bb     *blackboard.Blackboard
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithBlackboard sets the blackboard providing the expression environment.
func WithBlackboard(bb *blackboard.Blackboard) Option {
	return func(e *Evaluator) {
		if bb != nil {
			e.bb = bb
		}
	}
}

// WithCacheSize sets the program cache capacity. Values below one keep the
// current capacity.
// Default: DefaultCacheSize
func WithCacheSize(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.cache.Resize(n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Evaluator.
func New(options ...Option) *Evaluator {
	e := &Evaluator{
		cache:  NewProgramCache(DefaultCacheSize),
		bb:     new(blackboard.Blackboard),
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Cache returns the program cache, for reporting its Stats.
func (e *Evaluator) Cache() *ProgramCache {
	return e.cache
}

// Compile returns the compiled program for expression, from the cache when
// possible.
func (e *Evaluator) Compile(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, errors.New("exprleaf: empty expression")
	}
	if program, ok := e.cache.Get(expression); ok {
		return program, nil
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("exprleaf: compile %q: %w", expression, err)
	}
	e.cache.Put(expression, program)
	e.logger.Debug("compiled expression", "expression", expression)
	return program, nil
}

func (e *Evaluator) run(expression string, program *vm.Program) (bool, error) {
	result, err := expr.Run(program, e.bb.Snapshot())
	if err != nil {
		return false, fmt.Errorf("exprleaf: run %q: %w", expression, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrNotBool, expression, result)
	}
	return b, nil
}

// Leaf compiles expression now, so that syntax errors surface at build
// time, and returns a LeafFunc evaluating it.
func (e *Evaluator) Leaf(expression string) (behavior.LeafFunc, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return e.run(expression, program)
	}, nil
}
