package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobalSlot(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name        string
		lines       []string
		key         string
		wantAt      int
		wantReplace bool
	}{
		{"empty", nil, "color", 0, false},
		{"header first", []string{"[demo]", "color never"}, "color", 0, false},
		{"existing key", []string{"verbose true", "color auto", ""}, "color", 1, true},
		{"indented key", []string{"  color   auto"}, "color", 0, true},
		{"commented key is skipped", []string{"# color auto", "verbose true", ""}, "color", 3, false},
		{"commented key before header", []string{"#color auto", "", "[demo]"}, "color", 2, false},
		{"prefix is not a match", []string{"colorful yes"}, "color", 1, false},
		{"key only in section", []string{"verbose true", "[demo]", "trace true"}, "trace", 1, false},
		{"malformed header still ends globals", []string{"[demo", "color auto"}, "color", 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			at, replace := globalSlot(tc.lines, tc.key)
			if at != tc.wantAt || replace != tc.wantReplace {
				t.Fatalf("globalSlot(%q, %q) = (%d, %v), want (%d, %v)", tc.lines, tc.key, at, replace, tc.wantAt, tc.wantReplace)
			}
		})
	}
}

func setAndRead(t *testing.T, initial, key, value string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if initial != "" {
		if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
			t.Fatalf("failed to write initial config: %v", err)
		}
	}
	if err := SetKeyInFile(path, key, value); err != nil {
		t.Fatalf("SetKeyInFile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	return string(data)
}

func TestSetKeyInFile_Layout(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name, initial, key, value, want string
	}{
		{
			name:  "new file",
			key:   "color",
			value: "never",
			want:  "color never",
		},
		{
			name:    "keeps trailing newline",
			initial: "verbose true\n",
			key:     "color",
			value:   "never",
			want:    "verbose true\ncolor never\n",
		},
		{
			name:    "no trailing newline",
			initial: "verbose true",
			key:     "color",
			value:   "never",
			want:    "verbose true\ncolor never",
		},
		{
			name:    "replaces in place",
			initial: "# colours\ncolor auto\nverbose true\n",
			key:     "color",
			value:   "always",
			want:    "# colours\ncolor always\nverbose true\n",
		},
		{
			name:    "header at top",
			initial: "[demo]\ntrace true\n",
			key:     "trace",
			value:   "false",
			want:    "trace false\n[demo]\ntrace true\n",
		},
		{
			name:    "commented key left alone",
			initial: "# color auto\n\n[version]\nformat json\n",
			key:     "color",
			value:   "never",
			want:    "# color auto\n\ncolor never\n[version]\nformat json\n",
		},
		{
			name:    "empty value",
			initial: "verbose true\n",
			key:     "verbose",
			value:   "",
			want:    "verbose\n",
		},
		{
			name:    "value with spaces",
			initial: "\n",
			key:     "log.file",
			value:   "/tmp/my logs/behave.log",
			want:    "\nlog.file /tmp/my logs/behave.log\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := setAndRead(t, tc.initial, tc.key, tc.value); got != tc.want {
				t.Fatalf("content = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSetKeyInFile_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config")
	initial := "# behave configuration\n" +
		"verbose false\n" +
		"# delay.unit 2s\n" +
		"\n" +
		"[demo]\n" +
		"trace true\n" +
		"delay.unit 5ms\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	for _, kv := range [][2]string{{"delay.unit", "500ms"}, {"verbose", "true"}, {"log.level", "debug"}} {
		if err := SetKeyInFile(path, kv[0], kv[1]); err != nil {
			t.Fatalf("SetKeyInFile(%q, %q) returned error: %v", kv[0], kv[1], err)
		}
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if cfg.HasWarnings() {
		t.Fatalf("expected no warnings, got %v", cfg.GetWarnings())
	}
	for key, want := range map[string]string{"delay.unit": "500ms", "verbose": "true", "log.level": "debug"} {
		if v, ok := cfg.GetGlobalOption(key); !ok || v != want {
			t.Errorf("global %s = %q exists=%v, want %q", key, v, ok, want)
		}
	}
	if v, _ := cfg.GetCommandOption("demo", "delay.unit"); v != "5ms" {
		t.Errorf("demo delay.unit = %q, want the section value", v)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# delay.unit 2s\n") {
		t.Errorf("commented-out option was not preserved: %q", content)
	}
	if strings.Index(content, "log.level debug") > strings.Index(content, "[demo]") {
		t.Errorf("new global option landed inside a section: %q", content)
	}
}

func TestWriteFile_CreatesParentDirectories(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a", "b", "config")

	if err := WriteFile(path, []byte("color never\n")); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if string(data) != "color never\n" {
		t.Fatalf("content = %q", data)
	}

	if err := WriteFile(path, []byte("color auto\n")); err != nil {
		t.Fatalf("second WriteFile returned error: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the config file to remain, got %d entries", len(entries))
	}
}
