// Package main is a command line probe for skald's language server
// client. It opens a file with the server configured for its extension,
// issues a request at a cursor position, and prints what comes back.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/skald-editor/skald/internal/config"
	"github.com/skald-editor/skald/internal/log"
	"github.com/skald-editor/skald/internal/lsp"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	ConfigPath string
	Workspace  string
	LogLevel   string
	Request    string
	Line       int
	Column     int
	Watch      bool
	Timeout    time.Duration
	File       string
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		return 1
	}
	if opts.Workspace != "" {
		cfg.Workspace = opts.Workspace
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Output: os.Stderr,
		Prefix: "skald-lsp",
	})

	workspace, err := cfg.ResolveWorkspace()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolve workspace: %v\n", err)
		return 1
	}

	filePath, err := filepath.Abs(opts.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	buf, err := loadBuffer(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read %s: %v\n", filePath, err)
		return 1
	}

	client, err := lsp.NewClientForFile(filePath, workspace, cfg.ExtensionTable(), lsp.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := client.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: start server: %v\n", err)
		return 1
	}
	defer client.Shutdown(5 * time.Second)

	// Reload the log level on config edits while the session runs.
	if opts.ConfigPath != "" && opts.Watch {
		watcher, err := config.NewWatcher(opts.ConfigPath, func(c config.Config) {
			logger.SetLevel(log.ParseLevel(c.LogLevel))
			logger.Info("config reloaded, log level %s", c.LogLevel)
		})
		if err != nil {
			logger.Warn("config watch: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	client.Initialize()
	client.Initialized()
	client.DidOpen(buf)

	pos := lsp.Position{Line: opts.Line, Character: opts.Column}
	var requestID int64
	switch opts.Request {
	case "completion":
		requestID, err = client.Completion(buf, pos)
	case "definition":
		requestID, err = client.Definition(buf, pos)
	case "references":
		requestID, err = client.References(buf, pos)
	case "none":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown request %q\n", opts.Request)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	deadline := time.After(opts.Timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, resp := range client.DrainResponses() {
				printResponse(resp)
				if !opts.Watch && opts.Request != "none" && resp.ID == requestID && resp.Kind != lsp.KindLogMessage {
					return 0
				}
			}
		case <-deadline:
			if opts.Watch {
				continue
			}
			fmt.Fprintf(os.Stderr, "Error: no response within %s\n", opts.Timeout)
			return 1
		case <-signals:
			return 0
		}
	}
}

func printResponse(resp lsp.Response) {
	switch resp.Kind {
	case lsp.KindCompletion:
		fmt.Printf("completions (%d):\n", len(resp.Completions))
		for _, c := range resp.Completions {
			fmt.Printf("  %-30s %s\n", c.Label, c.InsertText)
		}
	case lsp.KindDefinition, lsp.KindReferences:
		fmt.Printf("locations (%d):\n", len(resp.Locations))
		for _, l := range resp.Locations {
			fmt.Printf("  %s:%d:%d\n", l.Path, l.Start.Line+1, l.Start.Character+1)
		}
	case lsp.KindLogMessage:
		fmt.Printf("server: %s\n", resp.Log)
	case lsp.KindInitialize:
		fmt.Println("initialized")
	}
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.Workspace, "workspace", "", "Workspace/project directory")
	flag.StringVar(&opts.Workspace, "w", "", "Workspace/project directory (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.Request, "request", "completion", "Request to issue: completion, definition, references, none")
	flag.IntVar(&opts.Line, "line", 0, "Cursor line (zero based)")
	flag.IntVar(&opts.Column, "col", 0, "Cursor column (zero based)")
	flag.BoolVar(&opts.Watch, "watch", false, "Keep the session open and stream server messages")
	flag.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "How long to wait for the response")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "skald-lsp - language server client probe\n\n")
		fmt.Fprintf(os.Stderr, "Usage: skald-lsp [options] <file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  skald-lsp -request completion -line 10 -col 4 main.go\n")
		fmt.Fprintf(os.Stderr, "  skald-lsp -request references -line 3 -col 9 src/lib.zig\n")
		fmt.Fprintf(os.Stderr, "  skald-lsp -request none -watch main.cpp\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("skald-lsp %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	opts.File = flag.Arg(0)

	if opts.Workspace == "" {
		if abs, err := filepath.Abs(opts.File); err == nil {
			opts.Workspace = filepath.Dir(abs)
		}
	}

	return opts
}

// fileBuffer is a read-only line-indexed view of a file on disk.
type fileBuffer struct {
	path  string
	text  []byte
	lines [][]byte
}

func loadBuffer(path string) (*fileBuffer, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lines [][]byte
	rest := text
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			lines = append(lines, rest)
			break
		}
		lines = append(lines, rest[:i+1])
		rest = rest[i+1:]
	}

	return &fileBuffer{path: path, text: text, lines: lines}, nil
}

func (b *fileBuffer) Path() string     { return b.path }
func (b *fileBuffer) FullText() []byte { return b.text }

func (b *fileBuffer) LineRange(first, last int) ([][]byte, error) {
	if first < 0 || last >= len(b.lines) || first > last {
		return nil, fmt.Errorf("line range [%d, %d] outside buffer of %d lines", first, last, len(b.lines))
	}
	return b.lines[first : last+1], nil
}
