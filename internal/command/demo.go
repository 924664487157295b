package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/joeycumines/behave/internal/behavior"
	"github.com/joeycumines/behave/internal/builtin/blackboard"
	"github.com/joeycumines/behave/internal/builtin/bt"
	"github.com/joeycumines/behave/internal/builtin/exprleaf"
	"github.com/joeycumines/behave/internal/builtin/script"
	"github.com/joeycumines/behave/internal/config"
	"github.com/joeycumines/behave/internal/demo"
)

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ", ")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// DemoCommand runs the sample tree once.
type DemoCommand struct {
	*BaseCommand
	config *config.Config

	noDelay  bool
	trace    bool
	verbose  bool
	script   string
	engine   string
	color    string
	logFile  string
	logLevel string
	exprs    stringList
	sets     stringList
}

// NewDemoCommand creates a new demo command. cfg may be nil.
func NewDemoCommand(cfg *config.Config) *DemoCommand {
	return &DemoCommand{
		BaseCommand: NewBaseCommand(
			"demo",
			"Run the sample behavior tree once",
			"demo [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the demo command.
func (c *DemoCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.noDelay, "no-delay", false, "Skip delay sleeps")
	fs.BoolVar(&c.trace, "trace", false, "Print the span tree of the pass")
	fs.BoolVar(&c.verbose, "verbose", false, "Log at debug level")
	fs.StringVar(&c.script, "script", "", "JavaScript file whose functions override leaves of the same name")
	fs.StringVar(&c.engine, "engine", "", "Evaluate with behave (built-in executor) or bt (exported go-behaviortree graph)")
	fs.StringVar(&c.color, "color", "", "Color mode: auto, always or never (default from config)")
	fs.StringVar(&c.logFile, "log-file", "", "Write JSON logs to this file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.Var(&c.exprs, "expr", "Override a leaf with an expression, as name=expression (repeatable)")
	fs.Var(&c.sets, "set", "Store a value on the blackboard, as key=value (repeatable)")
}

// Execute builds the sample tree, runs one pass and reports the outcome.
// An aborted pass is reported and returned as an error.
func (c *DemoCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	if err := noArgs(args, stderr); err != nil {
		return err
	}
	schema := config.DefaultSchema()

	lc, err := resolveLogConfig(c.logFile, c.logLevel, c.verbose, c.config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := lc.Close(); err == nil {
			err = cerr
		}
	}()
	logger := lc.logger(stderr)

	colorMode := c.color
	if colorMode == "" {
		colorMode = schema.Resolve(c.config, "demo", config.KeyColor)
	}
	color, err := colorEnabled(colorMode, stdout)
	if err != nil {
		return err
	}
	st := newStyles(color)

	engine := c.engine
	if engine == "" {
		engine = schema.Resolve(c.config, "demo", config.KeyEngine)
	}
	if engine != engineBehave && engine != engineBT {
		return fmt.Errorf("invalid engine %q: expected %s or %s", engine, engineBehave, engineBT)
	}

	rs, err := c.settings(schema)
	if err != nil {
		return err
	}
	if rs.recorder != nil && engine == engineBT {
		logger.Warn("trace is only recorded by the behave engine", "engine", engine)
		rs.recorder = nil
	}
	pool := behavior.NewPool(append(rs.options(), behavior.WithLogger(logger))...)

	bb := new(blackboard.Blackboard)
	for _, kv := range c.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid -set %q: expected key=value", kv)
		}
		bb.Set(key, parseValue(value))
	}

	overrides, eval, err := c.overrides(bb, stdout, logger, rs.exprCacheSize)
	if err != nil {
		return err
	}

	tree, err := demo.Build(pool, stdout, overrides)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := tree.Release(); err == nil {
			err = rerr
		}
	}()

	var (
		outcome behavior.Outcome
		runErr  error
	)
	if engine == engineBT {
		outcome, runErr = runExported(ctx, pool, tree.Root(), rs)
	} else {
		outcome, runErr = tree.Run(ctx)
	}
	if eval != nil {
		size, hits, misses := eval.Cache().Stats()
		logger.Debug("expression cache", "size", size, "hits", hits, "misses", misses)
	}

	if rs.recorder != nil {
		labels := make(map[string]string, len(demo.Leaves))
		for _, name := range demo.Leaves {
			if id, ok := tree.Leaf(name); ok {
				labels[id.String()] = name
			}
		}
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, st.render(st.heading, "Trace:"))
		printTrace(stdout, rs.recorder.Ended(), labels, st)
	}

	if runErr != nil {
		_, _ = fmt.Fprintf(stdout, "\nOutcome: %s\n", st.render(st.failure, "aborted"))
		return runErr
	}
	_, _ = fmt.Fprintf(stdout, "\nOutcome: %s\n", st.outcome(outcome))
	return nil
}

const (
	engineBehave = "behave"
	engineBT     = "bt"
)

// runSettings holds what the demo resolves from flags and config before
// building the pool.
type runSettings struct {
	delayUnit     time.Duration
	sleeper       behavior.Sleeper
	maxNodes      int
	maxDecorators int
	exprCacheSize int
	// recorder is nil unless tracing is enabled
	recorder *tracetest.SpanRecorder
	tracer   *sdktrace.TracerProvider
}

func (rs runSettings) options() []behavior.Option {
	options := []behavior.Option{
		behavior.WithDelayUnit(rs.delayUnit),
		behavior.WithSleeper(rs.sleeper),
		behavior.WithMaxNodes(rs.maxNodes),
		behavior.WithMaxDecorators(rs.maxDecorators),
	}
	if rs.recorder != nil {
		options = append(options, behavior.WithTracer(rs.tracer.Tracer("behave/demo")))
	}
	return options
}

func (c *DemoCommand) settings(schema *config.ConfigSchema) (runSettings, error) {
	rs := runSettings{sleeper: behavior.Sleep}
	var err error

	if rs.delayUnit, err = schema.ResolveDuration(c.config, "", config.KeyDelayUnit); err != nil {
		return rs, err
	}
	noDelay, err := schema.ResolveBool(c.config, "demo", config.KeyNoDelay)
	if err != nil {
		return rs, err
	}
	if c.noDelay || noDelay {
		rs.sleeper = func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}
	}
	if rs.maxNodes, err = schema.ResolveInt(c.config, "", config.KeyMaxNodes); err != nil {
		return rs, err
	}
	if rs.maxDecorators, err = schema.ResolveInt(c.config, "", config.KeyMaxDecorators); err != nil {
		return rs, err
	}
	if rs.exprCacheSize, err = schema.ResolveInt(c.config, "", config.KeyExprCacheSize); err != nil {
		return rs, err
	}

	trace, err := schema.ResolveBool(c.config, "demo", config.KeyTrace)
	if err != nil {
		return rs, err
	}
	if c.trace || trace {
		rs.recorder = tracetest.NewSpanRecorder()
		rs.tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rs.recorder))
	}
	return rs, nil
}

// runExported ticks the go-behaviortree export of root once.
func runExported(ctx context.Context, pool *behavior.Pool, root behavior.NodeID, rs runSettings) (behavior.Outcome, error) {
	node, err := bt.Export(ctx, pool, root, bt.WithSleeper(rs.sleeper), bt.WithDelayUnit(rs.delayUnit))
	if err != nil {
		return behavior.Failure, err
	}
	status, err := node.Tick()
	if err != nil {
		return behavior.Failure, err
	}
	return bt.OutcomeOf(status), nil
}

// overrides collects leaf replacements from -script and -expr. Expressions
// win over script functions of the same name. The evaluator is nil when there
// are no expressions.
func (c *DemoCommand) overrides(bb *blackboard.Blackboard, stdout io.Writer, logger *slog.Logger, cacheSize int) (map[string]behavior.LeafFunc, *exprleaf.Evaluator, error) {
	overrides := make(map[string]behavior.LeafFunc)
	known := make(map[string]bool, len(demo.Leaves))
	for _, name := range demo.Leaves {
		known[name] = true
	}

	if c.script != "" {
		src, err := os.ReadFile(c.script)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read script: %w", err)
		}
		rt := script.New(script.WithLogger(logger), script.WithOutput(stdout), script.WithBlackboard(bb))
		if err := rt.Load(c.script, string(src)); err != nil {
			return nil, nil, err
		}
		for _, name := range rt.Functions() {
			if !known[name] {
				logger.Debug("script function does not name a leaf", "function", name)
				continue
			}
			fn, err := rt.Leaf(name)
			if err != nil {
				return nil, nil, err
			}
			overrides[name] = fn
		}
	}

	var eval *exprleaf.Evaluator
	if len(c.exprs) != 0 {
		eval = exprleaf.New(exprleaf.WithLogger(logger), exprleaf.WithBlackboard(bb), exprleaf.WithCacheSize(cacheSize))
		for _, kv := range c.exprs {
			name, src, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				return nil, nil, fmt.Errorf("invalid -expr %q: expected name=expression", kv)
			}
			if !known[name] {
				return nil, nil, fmt.Errorf("invalid -expr %q: %w", kv, errUnknownLeaf)
			}
			fn, err := eval.Leaf(src)
			if err != nil {
				return nil, nil, err
			}
			overrides[name] = fn
		}
	}

	return overrides, eval, nil
}

var errUnknownLeaf = errors.New("unknown leaf (want one of " + strings.Join(demo.Leaves, ", ") + ")")

// parseValue types a -set value: integer, then float, then bool, then string.
func parseValue(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
