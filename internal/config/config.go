// Package config loads and watches Skald's editor configuration.
//
// Configuration lives in a single TOML file. The servers section maps file
// extensions to language-server binaries and can extend or override the
// built-in table (gopls, zls, clangd).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level editor configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Workspace is the project root directory. Defaults to the current
	// working directory when empty.
	Workspace string `toml:"workspace"`

	// Servers maps a language name to its server definition.
	Servers map[string]ServerDef `toml:"servers"`
}

// ServerDef describes one language server.
type ServerDef struct {
	// Command is the server binary, e.g. "gopls".
	Command string `toml:"command"`

	// Args are extra command-line arguments. Most servers speak LSP over
	// stdio with no arguments.
	Args []string `toml:"args"`

	// Extensions are the file extensions this server handles, with the
	// leading dot (".go").
	Extensions []string `toml:"extensions"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Servers: map[string]ServerDef{
			"go":  {Command: "gopls", Extensions: []string{".go"}},
			"zig": {Command: "zls", Extensions: []string{".zig"}},
			"cpp": {Command: "clangd", Extensions: []string{".cpp"}},
		},
	}
}

// Load reads a TOML configuration file and merges it over Default.
// A missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var loaded Config
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	merge(&cfg, loaded)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// merge overlays loaded values onto the defaults. Server entries with the
// same language name replace the built-in definition.
func merge(dst *Config, src Config) {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.Workspace != "" {
		dst.Workspace = src.Workspace
	}
	for name, def := range src.Servers {
		dst.Servers[name] = def
	}
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	for name, def := range c.Servers {
		if def.Command == "" {
			return fmt.Errorf("server %q has no command", name)
		}
		for _, ext := range def.Extensions {
			if !strings.HasPrefix(ext, ".") {
				return fmt.Errorf("server %q extension %q must start with a dot", name, ext)
			}
		}
	}

	return nil
}

// ExtensionTable flattens the server definitions into an extension to
// command lookup table for the LSP client.
func (c Config) ExtensionTable() map[string]string {
	table := make(map[string]string)
	for _, def := range c.Servers {
		for _, ext := range def.Extensions {
			table[ext] = def.Command
		}
	}
	return table
}

// ResolveWorkspace returns the absolute workspace root, falling back to
// the current working directory.
func (c Config) ResolveWorkspace() (string, error) {
	ws := c.Workspace
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve workspace: %w", err)
		}
		ws = cwd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return "", fmt.Errorf("resolve workspace %s: %w", ws, err)
	}
	return abs, nil
}
