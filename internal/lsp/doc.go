// Package lsp provides Language Server Protocol (LSP) client integration for Skald.
//
// The LSP layer enables code intelligence by communicating with external
// language servers (gopls, zls, clangd) over JSON-RPC 2.0 on stdio. It owns
// the server subprocess, the wire framing, and the cross-thread plumbing
// between the editor's UI loop and the protocol worker, while exposing a
// small fire-and-forget API to the rest of the editor.
//
// # Architecture
//
// The package is organized around these core components:
//
//   - Client: the public handle; builds requests and assigns request ids
//   - Worker: a dedicated goroutine owning the subprocess and protocol I/O
//   - Queue: unbounded single-producer/single-consumer queues in each direction
//   - Codec: encodes and classifies the supported JSON-RPC messages
//
// # Quick Start
//
//	client, err := lsp.NewClientForFile("/path/to/file.go", "/path/to/workspace", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(5 * time.Second)
//
//	client.Initialize()
//	client.Initialized()
//	client.DidOpen(buffer)
//	client.Completion(buffer, lsp.Position{Line: 10, Character: 5})
//
//	// Once per frame:
//	for _, resp := range client.DrainResponses() {
//	    // update completion list, jump to definition, show log line...
//	}
//
// # Concurrency
//
// Exactly two execution contexts touch a client: the UI goroutine (request
// producer, response consumer) and the Worker goroutine (request consumer,
// response producer, subprocess I/O). The UI side never blocks: request
// methods enqueue and return, and DrainResponses pops whatever has arrived.
// Responses may arrive out of request order; callers correlate by request id.
//
// # Supported methods
//
// initialize, initialized, textDocument/didOpen, textDocument/didChange,
// textDocument/completion, textDocument/definition, textDocument/references.
// The design is one client per server process; multi-server coordination
// belongs to a higher layer.
//
// # Shutdown
//
// Shutdown pushes a terminate sentinel through the outbound queue, joins the
// Worker, and discards any responses still queued. After shutdown every
// request method is a silent no-op, so callers need not special-case a dead
// server.
package lsp
