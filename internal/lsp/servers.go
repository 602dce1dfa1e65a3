package lsp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// builtinServers maps file extensions to the language server binary
// spoken for them out of the box. Configuration can extend or override
// this table, never shrink it below these entries unless overridden.
var builtinServers = map[string]string{
	".go":  "gopls",
	".zig": "zls",
	".cpp": "clangd",
}

// languageIDs maps extensions to LSP language identifiers for didOpen.
var languageIDs = map[string]string{
	".go":  "go",
	".zig": "zig",
	".cpp": "cpp",
	".cc":  "cpp",
	".h":   "cpp",
	".hpp": "cpp",
	".c":   "c",
}

// ServerFromExtension resolves the language server binary for a file
// path by extension. Entries in overrides win over the built-in table.
// An extension known to neither fails with ErrUnknownExtension.
func ServerFromExtension(path string, overrides map[string]string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownExtension, path)
	}
	if cmd, ok := overrides[ext]; ok && cmd != "" {
		return cmd, nil
	}
	if cmd, ok := builtinServers[ext]; ok {
		return cmd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
}

// DetectLanguageID returns the LSP language identifier for a file path,
// falling back to "plaintext" for anything unrecognized.
func DetectLanguageID(path string) string {
	if id, ok := languageIDs[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return "plaintext"
}
