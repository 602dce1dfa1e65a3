package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}

	table := cfg.ExtensionTable()
	tests := []struct {
		ext  string
		want string
	}{
		{".go", "gopls"},
		{".zig", "zls"},
		{".cpp", "clangd"},
	}
	for _, tt := range tests {
		if got := table[tt.ext]; got != tt.want {
			t.Errorf("ExtensionTable()[%q] = %q, want %q", tt.ext, got, tt.want)
		}
	}
	if _, ok := table[".py"]; ok {
		t.Error("unexpected default mapping for .py")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected defaults for missing file, got log level %q", cfg.LogLevel)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if len(cfg.Servers) != 3 {
		t.Errorf("expected 3 default servers, got %d", len(cfg.Servers))
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"
workspace = "/tmp/proj"

[servers.rust]
command = "rust-analyzer"
extensions = [".rs"]

[servers.go]
command = "custom-gopls"
extensions = [".go"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %q", cfg.LogLevel)
	}
	if cfg.Workspace != "/tmp/proj" {
		t.Errorf("expected workspace /tmp/proj, got %q", cfg.Workspace)
	}

	table := cfg.ExtensionTable()
	if table[".rs"] != "rust-analyzer" {
		t.Errorf("expected rust-analyzer for .rs, got %q", table[".rs"])
	}
	if table[".go"] != "custom-gopls" {
		t.Errorf("expected override for .go, got %q", table[".go"])
	}
	if table[".zig"] != "zls" {
		t.Errorf("defaults should survive merge, got %q for .zig", table[".zig"])
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := writeConfig(t, `log_level = [broken`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: Config{LogLevel: "warn", Servers: map[string]ServerDef{
				"go": {Command: "gopls", Extensions: []string{".go"}},
			}},
		},
		{
			name:    "bad log level",
			cfg:     Config{LogLevel: "verbose"},
			wantErr: true,
		},
		{
			name: "missing command",
			cfg: Config{Servers: map[string]ServerDef{
				"go": {Extensions: []string{".go"}},
			}},
			wantErr: true,
		},
		{
			name: "extension without dot",
			cfg: Config{Servers: map[string]ServerDef{
				"go": {Command: "gopls", Extensions: []string{"go"}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveWorkspace(t *testing.T) {
	cfg := Config{Workspace: "/tmp/proj"}
	ws, err := cfg.ResolveWorkspace()
	if err != nil {
		t.Fatalf("ResolveWorkspace error: %v", err)
	}
	if ws != "/tmp/proj" {
		t.Errorf("expected /tmp/proj, got %q", ws)
	}

	cfg = Config{}
	ws, err = cfg.ResolveWorkspace()
	if err != nil {
		t.Fatalf("ResolveWorkspace error: %v", err)
	}
	if !filepath.IsAbs(ws) {
		t.Errorf("expected absolute fallback, got %q", ws)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skald.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
