package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

// Config holds the options read from a behave config file.
//
// The file format is one option per line, the name then the rest of the
// line as its value. A [name] header starts a section whose options apply
// to the command of that name. Lines starting with # are comments.
type Config struct {
	// Global options apply to every command.
	Global map[string]string
	// Commands holds the options of each [section], keyed by command name.
	Commands map[string]map[string]string
	// Warnings lists problems found while loading. They never fail a load.
	Warnings []string
}

// NewConfig returns an empty Config.
func NewConfig() *Config {
	return &Config{
		Global:   make(map[string]string),
		Commands: make(map[string]map[string]string),
	}
}

// Load reads the config file at GetConfigPath.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config file at path. A missing file yields an empty
// Config. The file itself must not be a symlink.
func LoadFromPath(path string) (*Config, error) {
	fi, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	case fi.Mode()&os.ModeSymlink != 0:
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses a config from r and validates it against
// DefaultSchema. Validation problems become warnings.
func LoadFromReader(r io.Reader) (*Config, error) {
	c := NewConfig()
	section := c.Global

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", line[0] == '#':
		case line[0] == '[':
			name, ok := strings.CutSuffix(line[1:], "]")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				c.addWarning("line %d: malformed section header %q", lineNo, line)
				continue
			}
			if c.Commands[name] == nil {
				c.Commands[name] = make(map[string]string)
			}
			section = c.Commands[name]
		default:
			key, value := splitOption(line)
			section[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(c, DefaultSchema()) {
		c.addWarning("%s", issue)
	}
	return c, nil
}

// splitOption splits a trimmed line at its first run of whitespace.
func splitOption(line string) (key, value string) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i:])
}

func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("config: " + msg)
}

var boolWords = map[string]bool{
	"true": true, "1": true, "yes": true, "on": true,
	"false": false, "0": false, "no": false, "off": false,
}

// parseBool accepts true/false, 1/0, yes/no and on/off in any case.
func parseBool(s string) (bool, error) {
	b, ok := boolWords[strings.ToLower(s)]
	if !ok {
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
	return b, nil
}

// GetGlobalOption returns a global option.
func (c *Config) GetGlobalOption(name string) (string, bool) {
	v, ok := c.Global[name]
	return v, ok
}

// GetCommandOption returns an option of the command's section, falling back
// to the global option of the same name.
func (c *Config) GetCommandOption(command, name string) (string, bool) {
	if v, ok := c.Commands[command][name]; ok {
		return v, true
	}
	return c.GetGlobalOption(name)
}

// SetGlobalOption sets a global option.
func (c *Config) SetGlobalOption(name, value string) {
	c.Global[name] = value
}

// SetCommandOption sets an option in the command's section.
func (c *Config) SetCommandOption(command, name, value string) {
	if c.Commands[command] == nil {
		c.Commands[command] = make(map[string]string)
	}
	c.Commands[command][name] = value
}

// GetWarnings returns the warnings collected while loading.
func (c *Config) GetWarnings() []string {
	return c.Warnings
}

// HasWarnings reports whether loading produced any warnings.
func (c *Config) HasWarnings() bool {
	return len(c.Warnings) > 0
}
