package lsp

import (
	"encoding/json"
	"errors"
	"runtime"
	"testing"
)

func TestFilePathToURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX path forms")
	}

	tests := []struct {
		path    string
		want    DocumentURI
		wantErr bool
	}{
		{path: "/home/dev/proj/main.go", want: "file:///home/dev/proj/main.go"},
		{path: "/tmp", want: "file:///tmp"},
		{path: "/home/dev/my project/a.go", want: "file:///home/dev/my%20project/a.go"},
		{path: "", wantErr: true},
		{path: "relative/main.go", wantErr: true},
		{path: "./main.go", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FilePathToURI(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedURI) {
					t.Errorf("FilePathToURI(%q) error = %v, want ErrMalformedURI", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FilePathToURI(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("FilePathToURI(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestURIToFilePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX path forms")
	}

	tests := []struct {
		uri  DocumentURI
		want string
	}{
		{"file:///home/dev/proj/main.go", "/home/dev/proj/main.go"},
		{"file:///home/dev/my%20project/a.go", "/home/dev/my project/a.go"},
		{"untitled:Untitled-1", "untitled:Untitled-1"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := URIToFilePath(tt.uri); got != tt.want {
			t.Errorf("URIToFilePath(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX path forms")
	}

	paths := []string{"/home/dev/proj/main.go", "/a/b c/d.zig", "/x.cpp"}
	for _, path := range paths {
		uri, err := FilePathToURI(path)
		if err != nil {
			t.Fatalf("FilePathToURI(%q) error = %v", path, err)
		}
		if got := URIToFilePath(uri); got != path {
			t.Errorf("round trip of %q via %q = %q", path, uri, got)
		}
	}
}

func TestClientCapabilitiesShape(t *testing.T) {
	data, err := json.Marshal(clientCapabilities())
	if err != nil {
		t.Fatalf("marshal capabilities: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	td, ok := got["textDocument"].(map[string]any)
	if !ok {
		t.Fatalf("capabilities = %s, want textDocument object", data)
	}
	for _, name := range []string{"references", "definition", "implementation"} {
		if _, ok := td[name]; !ok {
			t.Errorf("capability %s missing from %s", name, data)
		}
	}
}
