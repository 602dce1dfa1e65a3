package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MessageKind classifies a request or response by LSP method.
// The set is closed: adding a method means handling it everywhere
// the kind is switched on.
type MessageKind int

const (
	// KindInitialize is the initialize request.
	KindInitialize MessageKind = iota
	// KindInitialized is the initialized notification.
	KindInitialized
	// KindDidOpen is the textDocument/didOpen notification.
	KindDidOpen
	// KindDidChange is the textDocument/didChange notification.
	KindDidChange
	// KindCompletion is the textDocument/completion request.
	KindCompletion
	// KindDefinition is the textDocument/definition request.
	KindDefinition
	// KindReferences is the textDocument/references request.
	KindReferences
	// KindLogMessage tags inbound server notifications surfaced as log lines.
	KindLogMessage
	// KindTerminate is the shutdown sentinel. It only signals the Worker's
	// loop to stop and is never serialized to the protocol stream.
	KindTerminate
)

// String returns the LSP method name, or a descriptive tag for
// the non-protocol kinds.
func (k MessageKind) String() string {
	switch k {
	case KindInitialize:
		return "initialize"
	case KindInitialized:
		return "initialized"
	case KindDidOpen:
		return "textDocument/didOpen"
	case KindDidChange:
		return "textDocument/didChange"
	case KindCompletion:
		return "textDocument/completion"
	case KindDefinition:
		return "textDocument/definition"
	case KindReferences:
		return "textDocument/references"
	case KindLogMessage:
		return "log"
	case KindTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// carriesWireID reports whether this kind is a JSON-RPC request that
// expects a correlated response. Notifications carry no id.
func (k MessageKind) carriesWireID() bool {
	switch k {
	case KindInitialize, KindCompletion, KindDefinition, KindReferences:
		return true
	default:
		return false
	}
}

// Request is one outbound message. It is created by the Client and
// consumed by the Worker; neither side touches it while in flight.
type Request struct {
	// Kind classifies the message.
	Kind MessageKind

	// ID is the client-assigned monotonic request id. Every request gets
	// one, but only kinds with carriesWireID encode it on the wire.
	ID int64

	// Payload is the serialized JSON-RPC message. Empty for the
	// terminate sentinel.
	Payload []byte
}

// Response is one inbound message, created by the Worker and consumed
// by the UI goroutine.
//
// Response is a tagged union: Kind selects which payload field is
// populated, and at most one ever is. Log responses carry text,
// completion responses carry Completions, definition and references
// responses carry Locations, and everything else carries nothing.
type Response struct {
	// Kind classifies the message.
	Kind MessageKind

	// ID is the id of the request that caused this response. Zero and
	// meaningless for notifications (KindLogMessage without a cause).
	ID int64

	// Completions is set only when Kind is KindCompletion.
	Completions []Completion

	// Locations is set only when Kind is KindDefinition or KindReferences.
	Locations []Location

	// Log is set only when Kind is KindLogMessage.
	Log string
}

// Completion is one completion suggestion as the editor consumes it.
type Completion struct {
	// InsertText is the text inserted when the completion is accepted.
	InsertText string

	// Label is the text shown in the completion menu.
	Label string
}

// Location points at a range inside a file, used for both definition
// and references results.
type Location struct {
	Path  string
	Start Position
	End   Position
}

// requestEnvelope is the outbound JSON-RPC 2.0 envelope.
type requestEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// encodeRequest serializes one JSON-RPC message. Notifications omit the id.
func encodeRequest(kind MessageKind, id int64, params any) ([]byte, error) {
	env := requestEnvelope{
		JSONRPC: "2.0",
		Method:  kind.String(),
		Params:  params,
	}
	if kind.carriesWireID() {
		env.ID = &id
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return payload, nil
}

// encodeInitialize builds the initialize request.
//
// The process id is fixed at zero and the single workspace folder is
// always named "workspace"; servers key off the URI, not the name.
func encodeInitialize(id int64, workspaceURI DocumentURI) ([]byte, error) {
	params := InitializeParams{
		ProcessID:    0,
		Capabilities: clientCapabilities(),
		WorkspaceFolders: []WorkspaceFolder{
			{URI: workspaceURI, Name: "workspace"},
		},
	}
	return encodeRequest(KindInitialize, id, params)
}

// encodeInitialized builds the initialized notification.
func encodeInitialized(id int64) ([]byte, error) {
	return encodeRequest(KindInitialized, id, InitializedParams{})
}

// encodeDidOpen builds the didOpen notification with the full document text.
func encodeDidOpen(id int64, uri DocumentURI, languageID string, text []byte) ([]byte, error) {
	params := DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       string(text),
		},
	}
	return encodeRequest(KindDidOpen, id, params)
}

// encodeDidChange builds the didChange notification for a contiguous
// line range. The request id doubles as the document version, which
// keeps versions monotonic without separate bookkeeping.
//
// The replaced range runs from column 0 of the first line to the end of
// the last line's content, and the replacement text is the concatenation
// of every line in the inclusive range.
func encodeDidChange(id int64, uri DocumentURI, firstLine, lastLine int, lines [][]byte) ([]byte, error) {
	rng, text := contentChangeForLines(firstLine, lastLine, lines)
	params := DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                id,
		},
		ContentChanges: []TextDocumentContentChangeEvent{
			{Range: &rng, Text: text},
		},
	}
	return encodeRequest(KindDidChange, id, params)
}

// contentChangeForLines computes the replaced range and replacement text
// for a didChange over the inclusive line range [firstLine, lastLine].
// The end character is the length of the last line's content, excluding
// its line terminator.
func contentChangeForLines(firstLine, lastLine int, lines [][]byte) (Range, string) {
	var text bytes.Buffer
	for _, line := range lines {
		text.Write(line)
	}

	endCharacter := 0
	if n := len(lines); n > 0 {
		endCharacter = lineContentLength(lines[n-1])
	}

	rng := Range{
		Start: Position{Line: firstLine, Character: 0},
		End:   Position{Line: lastLine, Character: endCharacter},
	}
	return rng, text.String()
}

// lineContentLength returns the line length without its terminator.
func lineContentLength(line []byte) int {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return len(line)
}

// encodeCompletion builds the textDocument/completion request.
func encodeCompletion(id int64, uri DocumentURI, pos Position) ([]byte, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
	return encodeRequest(KindCompletion, id, params)
}

// encodeDefinition builds the textDocument/definition request.
func encodeDefinition(id int64, uri DocumentURI, pos Position) ([]byte, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
	return encodeRequest(KindDefinition, id, params)
}

// encodeReferences builds the textDocument/references request.
// Declarations are always included in the result set.
func encodeReferences(id int64, uri DocumentURI, pos Position) ([]byte, error) {
	params := ReferenceParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
		Context: ReferenceContext{IncludeDeclaration: true},
	}
	return encodeRequest(KindReferences, id, params)
}

// inboundMessage is the probe shape for classifying inbound JSON-RPC.
type inboundMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// decodeMessage parses one complete inbound JSON-RPC message.
// Unparsable bytes fail with ErrMalformedResponse.
func decodeMessage(data []byte) (*inboundMessage, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &msg, nil
}

// classifyResult converts a response result into a typed Response for
// the request kind it answers.
func classifyResult(kind MessageKind, id int64, result json.RawMessage) (*Response, error) {
	switch kind {
	case KindCompletion:
		completions, err := parseCompletionResult(result)
		if err != nil {
			return nil, err
		}
		return &Response{Kind: KindCompletion, ID: id, Completions: completions}, nil

	case KindDefinition, KindReferences:
		locations, err := parseLocationResult(result)
		if err != nil {
			return nil, err
		}
		return &Response{Kind: kind, ID: id, Locations: locations}, nil

	case KindInitialize:
		// The editor does not consume the server's capability set;
		// an empty response just acknowledges the handshake.
		return &Response{Kind: KindInitialize, ID: id}, nil

	default:
		return nil, fmt.Errorf("%w: unexpected response for %s", ErrMalformedResponse, kind)
	}
}

// classifyNotification converts a server notification into a log Response.
func classifyNotification(msg *inboundMessage) *Response {
	if msg.Method == "window/logMessage" || msg.Method == "window/showMessage" {
		var params LogMessageParams
		if err := json.Unmarshal(msg.Params, &params); err == nil && params.Message != "" {
			return &Response{Kind: KindLogMessage, Log: params.Message}
		}
	}
	return &Response{Kind: KindLogMessage, Log: fmt.Sprintf("%s: %s", msg.Method, msg.Params)}
}
