package config

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is a non-negative integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "250ms", "2s").
	TypeDuration OptionType = "duration"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
	// Choices restricts a string option to a fixed set of values, if non-empty.
	Choices []string
}

// ConfigSchema declares the expected configuration options.
// It is used for validation, documentation, and env var resolution.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. A duplicate key within the same
// section replaces the earlier registration.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	if prev := s.Lookup(opt.Section, opt.Key); prev != nil {
		s.options = slices.DeleteFunc(s.options, func(o *ConfigOption) bool { return o == prev })
	}
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
		return
	}
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for global),
// or nil if the key is not registered there.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	return s.bySection[section][key]
}

// IsKnown reports whether key is registered in the given section.
// Command sections also accept global keys, which they shadow.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section != "" && s.bySection[section][key] != nil {
		return true
	}
	return s.byKey[key] != nil
}

// Options returns a copy of every registered option, in registration order.
func (s *ConfigSchema) Options() []ConfigOption {
	out := make([]ConfigOption, 0, len(s.options))
	for _, o := range s.options {
		out = append(out, *o)
	}
	return out
}

// GlobalOptions returns all registered global options.
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	return s.SectionOptions("")
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted names of all non-global sections.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for key in section ("" for global) by
// checking, in order: the option's environment variable, the config value
// (command values shadow global ones), and the schema default.
func (s *ConfigSchema) Resolve(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	if opt == nil && section != "" {
		opt = s.Lookup("", key)
	}
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		var (
			v  string
			ok bool
		)
		if section == "" {
			v, ok = c.GetGlobalOption(key)
		} else {
			v, ok = c.GetCommandOption(section, key)
		}
		if ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveBool is Resolve followed by boolean parsing. An empty value is false.
func (s *ConfigSchema) ResolveBool(c *Config, section, key string) (bool, error) {
	v := s.Resolve(c, section, key)
	if v == "" {
		return false, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return false, fmt.Errorf("option %q: %w", key, err)
	}
	return b, nil
}

// ResolveInt is Resolve followed by integer parsing. An empty value is zero.
func (s *ConfigSchema) ResolveInt(c *Config, section, key string) (int, error) {
	v := s.Resolve(c, section, key)
	if v == "" {
		return 0, nil
	}
	i, err := parseCount(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return i, nil
}

// ResolveDuration is Resolve followed by duration parsing. An empty value is zero.
func (s *ConfigSchema) ResolveDuration(c *Config, section, key string) (time.Duration, error) {
	v := s.Resolve(c, section, key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return d, nil
}

// Validate is shorthand for ValidateConfig(c, s).
func (s *ConfigSchema) Validate(c *Config) []string {
	return ValidateConfig(c, s)
}

// ValidateConfig checks a loaded Config against the schema and returns a
// sorted list of human-readable issues (empty if the config is valid).
// Unknown options, type mismatches and values outside Choices are reported.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateOption(opt, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateOption(opt, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

func validateOption(opt *ConfigOption, value string) error {
	if err := validateType(opt.Type, value); err != nil {
		return err
	}
	if len(opt.Choices) != 0 && !slices.Contains(opt.Choices, value) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(opt.Choices, ", "), value)
	}
	return nil
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := parseCount(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

func parseCount(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("negative value: %d", i)
	}
	return i, nil
}

// FormatHelp returns a human-readable reference of all registered options,
// grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	if globals := s.GlobalOptions(); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-22s %s", o.Key, o.Description)
	var parts []string
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if len(o.Choices) != 0 {
		parts = append(parts, "one of: "+strings.Join(o.Choices, "|"))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// Option keys understood by the behave command.
const (
	KeyVerbose       = "verbose"
	KeyColor         = "color"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyLogMaxSize    = "log.max-size-mb"
	KeyLogMaxFiles   = "log.max-files"
	KeyDelayUnit     = "delay.unit"
	KeyMaxNodes      = "pool.max-nodes"
	KeyMaxDecorators = "pool.max-decorators"
	KeyExprCacheSize = "expr.cache-size"
	KeyEngine        = "engine"
	KeyNoDelay       = "no-delay"
	KeyTrace         = "trace"
	KeyFormat        = "format"
)

// DefaultSchema returns the schema of every option behave understands.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: KeyVerbose, Type: TypeBool, Default: "false", Description: "Log at debug level"},
		{Key: KeyColor, Type: TypeString, Default: "auto", Description: "Color mode", Choices: []string{"auto", "always", "never"}},
		{Key: KeyLogLevel, Type: TypeString, Default: "info", Description: "Log level", EnvVar: "BEHAVE_LOG_LEVEL", Choices: []string{"debug", "info", "warn", "error"}},
		{Key: KeyLogFile, Type: TypeString, Description: "Write JSON logs to this file", EnvVar: "BEHAVE_LOG_FILE"},
		{Key: KeyLogMaxSize, Type: TypeInt, Default: "10", Description: "Rotate the log file past this many megabytes, 0 to never rotate"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Rotated log files to keep"},
		{Key: KeyDelayUnit, Type: TypeDuration, Default: "1s", Description: "Sleep per delay step", EnvVar: "BEHAVE_DELAY_UNIT"},
		{Key: KeyMaxNodes, Type: TypeInt, Default: "0", Description: "Node pool capacity, 0 for unlimited"},
		{Key: KeyMaxDecorators, Type: TypeInt, Default: "0", Description: "Decorator pool capacity, 0 for unlimited"},
		{Key: KeyExprCacheSize, Type: TypeInt, Default: "256", Description: "Compiled expressions kept per run, 0 for the default"},

		{Key: KeyEngine, Section: "demo", Type: TypeString, Default: "behave", Description: "Evaluate with the built-in executor or an exported go-behaviortree graph", Choices: []string{"behave", "bt"}},
		{Key: KeyNoDelay, Section: "demo", Type: TypeBool, Default: "false", Description: "Skip delay sleeps"},
		{Key: KeyTrace, Section: "demo", Type: TypeBool, Default: "false", Description: "Print the execution trace"},
		{Key: KeyFormat, Section: "version", Type: TypeString, Default: "text", Description: "Version output format", Choices: []string{"text", "json"}},
	})
	return s
}
