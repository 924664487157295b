package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/behave/internal/behavior"
	"github.com/joeycumines/behave/internal/config"
)

var defaultDemoOutput = strings.Join([]string{
	"ifCondition",
	"if_test",
	"Action A executed",
	"Action A executed",
	"Motor is start",
	"Beep is start",
	"Motor is start",
	"Beep is start",
	"Motor is start",
	"Beep is start",
}, "\n") + "\n"

func runDemo(t *testing.T, ctx context.Context, cfg *config.Config, argv ...string) (string, string, error) {
	t.Helper()
	registry := NewRegistry()
	registry.Register(NewDemoCommand(cfg))
	var stdout, stderr bytes.Buffer
	err := registry.Run(ctx, append([]string{"demo", "-color", "never", "-no-delay"}, argv...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaves.js")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDemoCommand_Default(t *testing.T) {
	t.Parallel()
	stdout, _, err := runDemo(t, context.Background(), nil)
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if want := defaultDemoOutput + "\nOutcome: success\n"; stdout != want {
		t.Fatalf("unexpected demo output\ngot:\n%s\nwant:\n%s", stdout, want)
	}
}

func TestDemoCommand_Trace(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetCommandOption("demo", "trace", "true")

	stdout, _, err := runDemo(t, context.Background(), cfg)
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if !strings.HasPrefix(stdout, defaultDemoOutput+"\nTrace:\nExecute success ") {
		t.Fatalf("expected the trace after the callback output, got:\n%s", stdout)
	}
	for _, want := range []string{
		"\n  parallel success ",
		"\n    decorator(conditional) success ",
		"\n      action ifCondition success ",
		"\n    decorator(repeat) success ",
		"\n      decorator(delay) success ",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in trace, got:\n%s", want, stdout)
		}
	}
	if n := strings.Count(stdout, "action motor success"); n != 3 {
		t.Errorf("expected three motor spans, got %d", n)
	}
	if n := strings.Count(stdout, "action actionA success"); n != 2 {
		t.Errorf("expected two spans for the shared actionA, got %d", n)
	}
	if !strings.HasSuffix(stdout, "\nOutcome: success\n") {
		t.Errorf("expected the outcome last, got:\n%s", stdout)
	}
}

func TestDemoCommand_Script(t *testing.T) {
	t.Parallel()
	path := writeScript(t, `
		function motor() {
			output.print("js motor at " + bb.get("speed"));
			return true;
		}
		function helper() { return false; }
	`)

	stdout, _, err := runDemo(t, context.Background(), nil, "-script", path, "-set", "speed=7")
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if n := strings.Count(stdout, "js motor at 7\n"); n != 3 {
		t.Errorf("expected the script motor three times, got %d in:\n%s", n, stdout)
	}
	if strings.Contains(stdout, "Motor is start") {
		t.Errorf("expected the default motor to be replaced, got:\n%s", stdout)
	}
	if !strings.HasSuffix(stdout, "Outcome: success\n") {
		t.Errorf("unexpected outcome in:\n%s", stdout)
	}
}

func TestDemoCommand_ScriptException(t *testing.T) {
	t.Parallel()
	path := writeScript(t, `function beep() { throw new Error("speaker jammed"); }`)

	stdout, _, err := runDemo(t, context.Background(), nil, "-script", path)
	if err == nil || !strings.Contains(err.Error(), "speaker jammed") {
		t.Fatalf("expected the script error, got %v", err)
	}
	if !strings.HasSuffix(stdout, "Outcome: aborted\n") {
		t.Errorf("expected aborted outcome, got:\n%s", stdout)
	}
}

func TestDemoCommand_Expr(t *testing.T) {
	t.Parallel()
	stdout, _, err := runDemo(t, context.Background(), nil,
		"-set", "battery=50",
		"-expr", "ifCondition=battery < 20",
	)
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if strings.Contains(stdout, "ifCondition") || strings.Contains(stdout, "if_test") {
		t.Errorf("expected the expression to replace ifCondition and skip ifTest, got:\n%s", stdout)
	}
	if !strings.HasSuffix(stdout, "Outcome: failure\n") {
		t.Errorf("expected failure from the conditional, got:\n%s", stdout)
	}

	// expressions win over script functions
	path := writeScript(t, `function ifCondition() { return false; }`)
	stdout, _, err = runDemo(t, context.Background(), nil,
		"-script", path,
		"-set", "battery=5",
		"-expr", "ifCondition=battery < 20",
	)
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if !strings.HasSuffix(stdout, "Outcome: success\n") {
		t.Errorf("expected the expression override, got:\n%s", stdout)
	}
}

func TestDemoCommand_Engines(t *testing.T) {
	t.Parallel()
	script := writeScript(t, `function beep() { output.print("js beep"); return bb.get("loud"); }`)

	cases := []struct {
		name string
		argv []string
	}{
		{"default tree", nil},
		{"expr failure", []string{"-set", "battery=50", "-expr", "ifCondition=battery < 20"}},
		{"script", []string{"-script", script, "-set", "loud=true"}},
		{"script failure", []string{"-script", script, "-set", "loud=false"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			want, _, wantErr := runDemo(t, context.Background(), nil, append([]string{"-engine", "behave"}, tc.argv...)...)
			got, _, gotErr := runDemo(t, context.Background(), nil, append([]string{"-engine", "bt"}, tc.argv...)...)
			if (wantErr == nil) != (gotErr == nil) {
				t.Fatalf("engines disagree on error: behave=%v bt=%v", wantErr, gotErr)
			}
			if got != want {
				t.Fatalf("engines disagree\nbehave:\n%s\nbt:\n%s", want, got)
			}
		})
	}

	out, _, err := runDemo(t, context.Background(), nil, "-engine", "bt")
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if out != defaultDemoOutput+"\nOutcome: success\n" {
		t.Fatalf("unexpected bt output:\n%s", out)
	}
}

func TestDemoCommand_EngineFromConfig(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetCommandOption("demo", "engine", "bt")
	cfg.SetCommandOption("demo", "trace", "true")

	stdout, stderr, err := runDemo(t, context.Background(), cfg)
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if strings.Contains(stdout, "Trace:") {
		t.Errorf("expected no trace from the bt engine, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "trace is only recorded by the behave engine") {
		t.Errorf("expected a warning about the trace, got %q", stderr)
	}
	if !strings.HasSuffix(stdout, "\nOutcome: success\n") {
		t.Errorf("unexpected outcome in:\n%s", stdout)
	}
}

func TestDemoCommand_EngineCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout, _, err := runDemo(t, ctx, nil, "-engine", "bt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.HasSuffix(stdout, "Outcome: aborted\n") {
		t.Errorf("expected aborted outcome, got:\n%s", stdout)
	}
}

func TestDemoCommand_ExprCacheStats(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetGlobalOption("expr.cache-size", "1")

	_, stderr, err := runDemo(t, context.Background(), cfg,
		"-verbose",
		"-set", "battery=5",
		"-expr", "ifCondition=battery < 20",
		"-expr", "ifTest=battery > 1",
	)
	if err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if !strings.Contains(stderr, "msg=\"expression cache\" size=1 hits=0 misses=2") {
		t.Fatalf("expected cache stats in the debug log, got %q", stderr)
	}
}

func TestDemoCommand_InvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		argv []string
		want string
	}{
		{"set without value", []string{"-set", "battery"}, "expected key=value"},
		{"expr without name", []string{"-expr", "=true"}, "expected name=expression"},
		{"expr unknown leaf", []string{"-expr", "jump=true"}, "unknown leaf"},
		{"expr not boolean", []string{"-expr", "actionA=1 + 2"}, "1 + 2"},
		{"missing script", []string{"-script", filepath.Join(os.TempDir(), "behave-missing.js")}, "failed to read script"},
		{"positional", []string{"extra"}, "unexpected arguments"},
		{"color", []string{"-color", "purple"}, "invalid color mode"},
		{"engine", []string{"-engine", "v8"}, "invalid engine"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := runDemo(t, context.Background(), nil, tc.argv...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDemoCommand_PoolLimit(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetGlobalOption("pool.max-nodes", "5")

	_, _, err := runDemo(t, context.Background(), cfg)
	if !errors.Is(err, behavior.ErrAllocation) {
		t.Fatalf("expected ErrAllocation, got %v", err)
	}
}

func TestDemoCommand_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout, _, err := runDemo(t, ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !strings.HasSuffix(stdout, "Outcome: aborted\n") {
		t.Errorf("expected aborted outcome, got:\n%s", stdout)
	}
}

func TestDemoCommand_ColorAlways(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(NewDemoCommand(nil))
	var stdout, stderr bytes.Buffer
	if err := registry.Run(context.Background(), []string{"demo", "-no-delay", "-color", "always"}, &stdout, &stderr); err != nil {
		t.Fatalf("demo returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "\x1b[") {
		t.Fatalf("expected ANSI styling, got %q", stdout.String())
	}
}

func TestColorEnabled(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	cases := []struct {
		mode string
		want bool
	}{
		{"always", true},
		{"never", false},
		// a buffer is never a terminal
		{"auto", false},
		{"", false},
	}
	for _, tc := range cases {
		got, err := colorEnabled(tc.mode, &buf)
		if err != nil || got != tc.want {
			t.Errorf("colorEnabled(%q) = %v, %v; want %v", tc.mode, got, err, tc.want)
		}
	}
	if _, err := colorEnabled("rainbow", &buf); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestParseValue(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{"42", 42},
		{"-3", -3},
		{"2.5", 2.5},
		{"true", true},
		{"false", false},
		{"open", "open"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseValue(tc.in); got != tc.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}
