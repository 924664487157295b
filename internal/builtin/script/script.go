// Package script implements leaf callbacks as JavaScript functions, run on
// an embedded goja runtime.
//
// A script defines leaves as global functions taking no arguments. The
// function's return value is converted with JavaScript truthiness: a truthy
// result is Success. A thrown exception aborts the pass with an error.
//
// The following globals are available to scripts:
//
//	bb        read-only view of the host blackboard (get, has, keys, len)
//	log       debug, info, warn, error: structured application logs
//	output    print, printf: lines written to the configured writer
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/dop251/goja"
	"github.com/joeycumines/behave/internal/behavior"
	"github.com/joeycumines/behave/internal/builtin/blackboard"
)

// ErrNotFunction is returned by Leaf when the named global is missing or is
// not callable.
var ErrNotFunction = errors.New("script: not a function")

// Runtime owns a goja VM. goja runtimes are not goroutine safe, so every
// call into the VM holds mu.
type Runtime struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	logger *slog.Logger
	out    io.Writer
	bb     *blackboard.Blackboard
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger backing the log global.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutput sets the writer backing the output global. Defaults to
// io.Discard.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) {
		if w != nil {
			r.out = w
		}
	}
}

// WithBlackboard exposes bb to scripts as the bb global.
func WithBlackboard(bb *blackboard.Blackboard) Option {
	return func(r *Runtime) {
		if bb != nil {
			r.bb = bb
		}
	}
}

// New creates a Runtime with the globals installed.
func New(options ...Option) *Runtime {
	r := &Runtime{
		vm:     goja.New(),
		logger: slog.Default(),
		out:    io.Discard,
		bb:     new(blackboard.Blackboard),
	}
	for _, opt := range options {
		opt(r)
	}
	r.setupGlobals()
	return r
}

func (r *Runtime) setupGlobals() {
	_ = r.vm.Set("bb", r.bb.ExposeToJS(r.vm))
	_ = r.vm.Set("log", map[string]any{
		"debug": r.jsLogDebug,
		"info":  r.jsLogInfo,
		"warn":  r.jsLogWarn,
		"error": r.jsLogError,
	})
	_ = r.vm.Set("output", map[string]any{
		"print":  r.jsOutputPrint,
		"printf": r.jsOutputPrintf,
	})
}

func (r *Runtime) jsLogDebug(msg string) { r.logger.Debug(msg, "source", "script") }
func (r *Runtime) jsLogInfo(msg string)  { r.logger.Info(msg, "source", "script") }
func (r *Runtime) jsLogWarn(msg string)  { r.logger.Warn(msg, "source", "script") }
func (r *Runtime) jsLogError(msg string) { r.logger.Error(msg, "source", "script") }

func (r *Runtime) jsOutputPrint(msg string) {
	_, _ = fmt.Fprintln(r.out, msg)
}

func (r *Runtime) jsOutputPrintf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Load compiles and runs src. name is used in error positions.
func (r *Runtime) Load(name, src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.vm.RunScript(name, src); err != nil {
		return fmt.Errorf("script: load %s: %w", name, err)
	}
	return nil
}

// Functions returns the names of the global functions defined so far,
// sorted.
func (r *Runtime) Functions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	global := r.vm.GlobalObject()
	var names []string
	for _, key := range global.Keys() {
		if _, ok := goja.AssertFunction(global.Get(key)); ok {
			names = append(names, key)
		}
	}
	sort.Strings(names)
	return names
}

// Leaf returns a LeafFunc calling the global function name. The function is
// resolved now, so later redefinitions do not affect the returned leaf.
func (r *Runtime) Leaf(name string) (behavior.LeafFunc, error) {
	r.mu.Lock()
	fn, ok := goja.AssertFunction(r.vm.Get(name))
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFunction, name)
	}
	return func(ctx context.Context) (bool, error) {
		return r.call(ctx, name, fn)
	}, nil
}

func (r *Runtime) call(ctx context.Context, name string, fn goja.Callable) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("script: %s: %w", name, err)
	}
	// a cancelled ctx interrupts long-running scripts
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		r.vm.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			<-interrupted
			r.vm.ClearInterrupt()
		}
	}()

	result, err := fn(goja.Undefined())
	if err != nil {
		var ie *goja.InterruptedError
		if errors.As(err, &ie) {
			return false, fmt.Errorf("script: %s interrupted: %w", name, context.Cause(ctx))
		}
		return false, fmt.Errorf("script: %s: %w", name, err)
	}
	return result.ToBoolean(), nil
}
