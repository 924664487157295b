package command

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"slices"
	"strings"
	"testing"
)

// recordingCommand records the arguments it was executed with.
type recordingCommand struct {
	*BaseCommand
	flagValue string
	args      []string
	err       error
}

func newRecordingCommand(name string) *recordingCommand {
	return &recordingCommand{BaseCommand: NewBaseCommand(name, "Records "+name, name+" [options]")}
}

func (c *recordingCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.flagValue, "value", "", "a value")
}

func (c *recordingCommand) Execute(_ context.Context, args []string, _, _ io.Writer) error {
	c.args = args
	return c.err
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(newRecordingCommand("b"))
	registry.Register(newRecordingCommand("a"))

	cmd, err := registry.Get("a")
	if err != nil {
		t.Fatalf("Failed to get registered command: %v", err)
	}
	if cmd.Name() != "a" {
		t.Errorf("Expected command name 'a', got '%s'", cmd.Name())
	}

	_, err = registry.Get("nonexistent")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}

	if got := registry.List(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Expected sorted [a b], got %v", got)
	}

	// re-registering replaces
	replacement := newRecordingCommand("a")
	registry.Register(replacement)
	if cmd, _ := registry.Get("a"); cmd != replacement {
		t.Error("Expected the later registration to win")
	}
	if n := len(registry.List()); n != 2 {
		t.Errorf("Expected 2 commands, got %d", n)
	}
}

func TestRegistryRun(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	rec := newRecordingCommand("rec")
	registry.Register(rec)
	registry.Register(NewHelpCommand(registry))

	var stdout, stderr bytes.Buffer
	if err := registry.Run(context.Background(), []string{"rec", "-value", "x", "one", "two"}, &stdout, &stderr); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rec.flagValue != "x" {
		t.Errorf("Expected flag value x, got %q", rec.flagValue)
	}
	if !slices.Equal(rec.args, []string{"one", "two"}) {
		t.Errorf("Expected positional args [one two], got %v", rec.args)
	}

	rec.err = errors.New("boom")
	if err := registry.Run(context.Background(), []string{"rec"}, &stdout, &stderr); err == nil || err.Error() != "boom" {
		t.Errorf("Expected command error to propagate, got %v", err)
	}
}

func TestRegistryRunHelpAndUnknown(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(NewHelpCommand(registry))

	for _, argv := range [][]string{nil, {"-h"}, {"--help"}} {
		var stdout, stderr bytes.Buffer
		if err := registry.Run(context.Background(), argv, &stdout, &stderr); err != nil {
			t.Fatalf("Run(%v) returned error: %v", argv, err)
		}
		if !strings.Contains(stdout.String(), "Available commands") {
			t.Errorf("Run(%v) should print help, got %q", argv, stdout.String())
		}
	}

	var stdout, stderr bytes.Buffer
	err := registry.Run(context.Background(), []string{"frobnicate"}, &stdout, &stderr)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Expected ErrUnknownCommand, got %v", err)
	}
	if !strings.Contains(stderr.String(), "Unknown command: frobnicate") {
		t.Errorf("Expected unknown command message, got %q", stderr.String())
	}
}

func TestRegistryRunBadFlag(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	registry.Register(newRecordingCommand("rec"))

	var stdout, stderr bytes.Buffer
	if err := registry.Run(context.Background(), []string{"rec", "-nope"}, &stdout, &stderr); err == nil {
		t.Fatal("Expected flag parse error")
	}
	if !strings.Contains(stderr.String(), "Usage: behave rec [options]") {
		t.Errorf("Expected usage on stderr, got %q", stderr.String())
	}
}
