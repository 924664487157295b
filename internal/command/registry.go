package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
)

var (
	// ErrUnknownCommand is returned by Registry.Get and Registry.Run for
	// names that were never registered.
	ErrUnknownCommand = errors.New("unknown command")

	errUnexpectedArgs = errors.New("unexpected arguments")
)

// Registry manages the collection of available commands.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command, replacing any command with the same name.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get returns a command by name.
func (r *Registry) Get(name string) (Command, error) {
	if cmd, ok := r.commands[name]; ok {
		return cmd, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// List returns the sorted names of all registered commands.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run parses argv (without the program name) and executes the named
// command. No arguments, -h and --help all run the help command.
func (r *Registry) Run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	if len(argv) == 0 || argv[0] == "-h" || argv[0] == "--help" {
		argv = []string{"help"}
	}

	cmd, err := r.Get(argv[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", argv[0])
		_, _ = fmt.Fprintln(stderr, "Use 'behave help' to see available commands.")
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: behave %s\n", cmd.Usage())
		_, _ = fmt.Fprintf(stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)

	if err := fs.Parse(argv[1:]); err != nil {
		return err
	}

	return cmd.Execute(ctx, fs.Args(), stdout, stderr)
}

func join(args []string) string {
	return strings.Join(args, " ")
}
