package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/objbridge/host"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"7", 7},
		{"-3", -3},
		{"2.5", 2.5},
		{"true", true},
		{"false", false},
		{"null", nil},
		{`"7"`, "7"},
		{"hello", "hello"},
	}
	for _, tt := range tests {
		if got := parseArg(tt.in); got != tt.want {
			t.Errorf("parseArg(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{int32(7), "7"},
		{"a", `"a"`},
		{[]any{int32(1), "b", nil}, `[1, "b", null]`},
		{host.Undefined, "undefined"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "objbridge.yaml")
	data := "classpath: [/lib/a.jar]\noptions: [-Xmx64m]\nworkers: 2\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cp := "/lib/b" + string(os.PathListSeparator) + "/lib/c.wasm"
	cfg, err := loadConfig(path, cp, []string{"-Dk=v"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/lib/a.jar", "/lib/b", "/lib/c.wasm"}, cfg.Classpath); diff != "" {
		t.Errorf("classpath (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-Xmx64m", "-Dk=v"}, cfg.Options); diff != "" {
		t.Errorf("options (-want +got):\n%s", diff)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers = %d", cfg.Workers)
	}

	if _, err := loadConfig(filepath.Join(dir, "missing.yaml"), "", nil); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := loadConfig("", "", []string{""}); err == nil {
		t.Error("empty option accepted")
	}
}
