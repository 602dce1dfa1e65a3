package lsp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
)

// DocumentURI represents a URI as used in LSP, typically file://.
type DocumentURI string

// Position in a text document expressed as zero-based line and character
// offset, matching LSP's own indexing.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range in a text document expressed as start and end positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// protoLocation is a location inside a resource as it appears on the wire.
type protoLocation struct {
	URI   DocumentURI `json:"uri"`
	Range Range       `json:"range"`
}

// TextDocumentIdentifier identifies a text document.
type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

// VersionedTextDocumentIdentifier identifies a specific version of a text document.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int64 `json:"version"`
}

// TextDocumentItem transfers a text document from the client to the server.
type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int         `json:"version"`
	Text       string      `json:"text"`
}

// TextDocumentPositionParams passes a text document and a position inside it.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// TextDocumentContentChangeEvent describes a content change event.
type TextDocumentContentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

// WorkspaceFolder represents a workspace folder.
type WorkspaceFolder struct {
	URI  DocumentURI `json:"uri"`
	Name string      `json:"name"`
}

// --- Initialize ---

// InitializeParams are the parameters sent in an initialize request.
type InitializeParams struct {
	ProcessID        int                `json:"processId"`
	Capabilities     ClientCapabilities `json:"capabilities"`
	WorkspaceFolders []WorkspaceFolder  `json:"workspaceFolders"`
}

// InitializedParams are the parameters sent in an initialized notification.
type InitializedParams struct{}

// ClientCapabilities define capabilities the editor provides.
type ClientCapabilities struct {
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
}

// TextDocumentClientCapabilities define capabilities for text documents.
type TextDocumentClientCapabilities struct {
	References     *DynamicRegistrationCapability `json:"references,omitempty"`
	Implementation *DynamicRegistrationCapability `json:"implementation,omitempty"`
	Definition     *DynamicRegistrationCapability `json:"definition,omitempty"`
}

// DynamicRegistrationCapability flags support for dynamic registration.
type DynamicRegistrationCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

// clientCapabilities returns the capabilities Skald advertises on initialize.
func clientCapabilities() ClientCapabilities {
	dynamic := &DynamicRegistrationCapability{DynamicRegistration: true}
	return ClientCapabilities{
		TextDocument: &TextDocumentClientCapabilities{
			References:     dynamic,
			Implementation: dynamic,
			Definition:     dynamic,
		},
	}
}

// --- Document Sync ---

// DidOpenTextDocumentParams are parameters for textDocument/didOpen.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidChangeTextDocumentParams are parameters for textDocument/didChange.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// --- References ---

// ReferenceParams are parameters for textDocument/references.
type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

// ReferenceContext contains additional information for reference requests.
type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// --- Completion ---

// CompletionItem represents a completion suggestion on the wire.
// Only the fields Skald consumes are modeled.
type CompletionItem struct {
	Label      string `json:"label"`
	InsertText string `json:"insertText,omitempty"`
}

// CompletionList represents a collection of completion items.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// --- Notifications ---

// LogMessageParams are parameters for window/logMessage.
type LogMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}

// --- Result parsing ---

// parseCompletionResult parses a completion response, which servers send
// either as a CompletionList or as a bare item array.
func parseCompletionResult(data json.RawMessage) ([]Completion, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var list CompletionList
	if err := json.Unmarshal(data, &list); err == nil && (list.Items != nil || list.IsIncomplete) {
		return completionsFromItems(list.Items), nil
	}

	var items []CompletionItem
	if err := json.Unmarshal(data, &items); err == nil {
		return completionsFromItems(items), nil
	}

	return nil, fmt.Errorf("%w: completion result", ErrMalformedResponse)
}

// completionsFromItems converts wire items to editor completions.
// InsertText falls back to the label when the server omits it.
func completionsFromItems(items []CompletionItem) []Completion {
	completions := make([]Completion, 0, len(items))
	for _, item := range items {
		insert := item.InsertText
		if insert == "" {
			insert = item.Label
		}
		completions = append(completions, Completion{
			InsertText: insert,
			Label:      item.Label,
		})
	}
	return completions
}

// parseLocationResult parses a definition or references response, which
// servers send as a single Location or an array.
func parseLocationResult(data json.RawMessage) ([]Location, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var loc protoLocation
	if err := json.Unmarshal(data, &loc); err == nil && loc.URI != "" {
		return []Location{locationFromProto(loc)}, nil
	}

	var locs []protoLocation
	if err := json.Unmarshal(data, &locs); err == nil {
		result := make([]Location, 0, len(locs))
		for _, l := range locs {
			result = append(result, locationFromProto(l))
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: location result", ErrMalformedResponse)
}

// locationFromProto converts a wire location to an editor location.
func locationFromProto(loc protoLocation) Location {
	return Location{
		Path:  URIToFilePath(loc.URI),
		Start: loc.Range.Start,
		End:   loc.Range.End,
	}
}

// --- URI helpers ---

// FilePathToURI converts an absolute file path to a DocumentURI.
// Empty or relative paths fail with ErrMalformedURI.
func FilePathToURI(path string) (DocumentURI, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrMalformedURI)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: path %q is not absolute", ErrMalformedURI, path)
	}

	path = filepath.ToSlash(path)

	// On Windows, add extra slash for drive letter.
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}

	u := &url.URL{
		Scheme: "file",
		Path:   path,
	}
	return DocumentURI(u.String()), nil
}

// URIToFilePath converts a DocumentURI to a file path.
// Non-file URIs are returned unchanged.
func URIToFilePath(uri DocumentURI) string {
	if uri == "" {
		return ""
	}

	u, err := url.Parse(string(uri))
	if err != nil {
		return string(uri)
	}
	if u.Scheme != "file" {
		return string(uri)
	}

	path := u.Path

	// On Windows, remove leading slash before drive letter.
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}
