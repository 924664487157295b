package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joeycumines/behave/internal/storage"
)

// SetKeyInFile sets a global option in the config file at path, creating the
// file if needed. An existing global line for key is rewritten in place.
// Otherwise the option goes at the end of the global block, ahead of the
// first [section]. Comments, blank lines and section options are untouched.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) != 0 {
		lines = strings.Split(string(data), "\n")
	}

	entry := key
	if value != "" {
		entry += " " + value
	}

	at, replace := globalSlot(lines, key)
	switch {
	case replace:
		lines[at] = entry
	case at < len(lines):
		lines = slices.Insert(lines, at, entry)
	case len(lines) != 0 && lines[len(lines)-1] == "":
		// keep the trailing newline last
		lines = slices.Insert(lines, len(lines)-1, entry)
	default:
		lines = append(lines, entry)
	}

	return WriteFile(path, []byte(strings.Join(lines, "\n")))
}

// globalSlot finds where key belongs among lines. It returns the index of the
// existing global line for key with replace set, or else the index of the
// first section header, or len(lines) when there is none.
func globalSlot(lines []string, key string) (int, bool) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}
		if trimmed[0] == '[' {
			return i, false
		}
		if name, _ := splitOption(trimmed); name == key {
			return i, true
		}
	}
	return len(lines), false
}

// WriteFile atomically replaces the config file at path with data, creating
// parent directories as needed.
func WriteFile(path string, data []byte) error {
	return storage.AtomicWriteFile(path, data, 0644)
}
