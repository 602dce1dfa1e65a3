package lsp

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/skald-editor/skald/internal/log"
)

// Client is the editor-facing handle for one language server session.
//
// Request methods serialize the message and push it onto the outbound
// queue without blocking; the Worker owns all process and wire I/O.
// A Client whose session has ended turns every request method into a
// silent no-op, so callers never need to guard against a dead server.
type Client struct {
	command   string
	args      []string
	workspace string
	wsURI     DocumentURI

	outbound *Queue[Request]
	inbound  *Queue[Response]

	running atomic.Bool
	nextID  atomic.Int64

	worker *Worker
	logger *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client and its worker.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithServerArgs sets extra arguments passed to the server binary.
func WithServerArgs(args ...string) ClientOption {
	return func(c *Client) { c.args = args }
}

// NewClient creates a client for the given server command rooted at the
// workspace directory. The workspace must be an absolute path.
func NewClient(command, workspace string, opts ...ClientOption) (*Client, error) {
	wsURI, err := FilePathToURI(workspace)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}

	c := &Client{
		command:   command,
		workspace: workspace,
		wsURI:     wsURI,
		outbound:  NewQueue[Request](),
		inbound:   NewQueue[Response](),
		logger:    log.Null,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.running.Store(true)
	return c, nil
}

// NewClientForFile resolves the server command from the file's
// extension and creates a client for it. Entries in overrides win over
// the built-in extension table.
func NewClientForFile(path, workspace string, overrides map[string]string, opts ...ClientOption) (*Client, error) {
	command, err := ServerFromExtension(path, overrides)
	if err != nil {
		return nil, err
	}
	return NewClient(command, workspace, opts...)
}

// Start launches the language server subprocess and the worker
// goroutines servicing it. Requests queued before Start are delivered
// once the worker comes up.
func (c *Client) Start(ctx context.Context) error {
	if c.worker != nil {
		return ErrAlreadyStarted
	}

	w := newWorker(c.command, c.args, c.workspace, c.outbound, c.inbound, c.logger)
	if err := w.Start(ctx); err != nil {
		return err
	}
	c.worker = w
	return nil
}

// Running reports whether the session still accepts requests.
func (c *Client) Running() bool {
	return c.running.Load()
}

// allocID hands out the next request id. Ids start at zero and increase
// by one per request for the lifetime of the client.
func (c *Client) allocID() int64 {
	return c.nextID.Add(1) - 1
}

// send encodes and enqueues one request. After shutdown it does
// nothing; the id returned is then meaningless.
func (c *Client) send(kind MessageKind, encode func(id int64) ([]byte, error)) (int64, error) {
	if !c.running.Load() {
		return 0, nil
	}

	id := c.allocID()
	payload, err := encode(id)
	if err != nil {
		return 0, err
	}
	c.outbound.Push(Request{Kind: kind, ID: id, Payload: payload})
	return id, nil
}

// Initialize sends the initialize request for the client's workspace.
func (c *Client) Initialize() (int64, error) {
	return c.send(KindInitialize, func(id int64) ([]byte, error) {
		return encodeInitialize(id, c.wsURI)
	})
}

// Initialized sends the initialized notification completing the handshake.
func (c *Client) Initialized() (int64, error) {
	return c.send(KindInitialized, encodeInitialized)
}

// DidOpen announces a buffer to the server with its full contents.
func (c *Client) DidOpen(buf Buffer) (int64, error) {
	uri, err := FilePathToURI(buf.Path())
	if err != nil {
		return 0, err
	}
	text := buf.FullText()
	langID := DetectLanguageID(buf.Path())
	return c.send(KindDidOpen, func(id int64) ([]byte, error) {
		return encodeDidOpen(id, uri, langID, text)
	})
}

// DidChange reports an edit covering the inclusive line range
// [firstLine, lastLine] of the buffer. The request id doubles as the
// new document version.
func (c *Client) DidChange(buf Buffer, firstLine, lastLine int) (int64, error) {
	uri, err := FilePathToURI(buf.Path())
	if err != nil {
		return 0, err
	}
	lines, err := buf.LineRange(firstLine, lastLine)
	if err != nil {
		return 0, err
	}
	return c.send(KindDidChange, func(id int64) ([]byte, error) {
		return encodeDidChange(id, uri, firstLine, lastLine, lines)
	})
}

// Completion requests completions at a position in the buffer.
func (c *Client) Completion(buf Buffer, pos Position) (int64, error) {
	uri, err := FilePathToURI(buf.Path())
	if err != nil {
		return 0, err
	}
	return c.send(KindCompletion, func(id int64) ([]byte, error) {
		return encodeCompletion(id, uri, pos)
	})
}

// Definition requests the definition of the symbol at a position.
func (c *Client) Definition(buf Buffer, pos Position) (int64, error) {
	uri, err := FilePathToURI(buf.Path())
	if err != nil {
		return 0, err
	}
	return c.send(KindDefinition, func(id int64) ([]byte, error) {
		return encodeDefinition(id, uri, pos)
	})
}

// References requests all references to the symbol at a position,
// including its declaration.
func (c *Client) References(buf Buffer, pos Position) (int64, error) {
	uri, err := FilePathToURI(buf.Path())
	if err != nil {
		return 0, err
	}
	return c.send(KindReferences, func(id int64) ([]byte, error) {
		return encodeReferences(id, uri, pos)
	})
}

// DrainResponses removes and returns every response received so far,
// oldest first. The editor calls this once per frame.
func (c *Client) DrainResponses() []Response {
	return c.inbound.Drain()
}

// Shutdown ends the session: it stops accepting requests, tells the
// worker to terminate, waits for the subprocess to exit (escalating to
// a kill after timeout), and discards any responses still queued.
//
// Shutdown is idempotent. On the second and later calls it only drains
// leftover responses.
func (c *Client) Shutdown(timeout time.Duration) error {
	if c.running.CompareAndSwap(true, false) {
		c.outbound.Push(Request{Kind: KindTerminate})
		if c.worker != nil {
			c.worker.Wait(timeout)
		}
	}
	c.inbound.Drain()
	return nil
}
