package lsp

import (
	"errors"
	"fmt"
)

// Standard errors returned by the LSP client.
var (
	// ErrUnknownExtension indicates no server mapping exists for a file type.
	// The editor disables LSP for that buffer.
	ErrUnknownExtension = errors.New("no language server for file extension")

	// ErrMalformedURI indicates a path could not be converted to a file URI.
	ErrMalformedURI = errors.New("malformed file uri")

	// ErrMalformedResponse indicates the server sent unparsable or
	// unexpected JSON. The offending message is dropped.
	ErrMalformedResponse = errors.New("malformed response from server")

	// ErrMissingRequestEntry indicates a response referenced a request id
	// with no known pending request. The response is dropped.
	ErrMissingRequestEntry = errors.New("response for unknown request id")

	// ErrAlreadyStarted indicates the client is already running.
	ErrAlreadyStarted = errors.New("lsp client already started")
)

// RPCError represents a JSON-RPC error from the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)
