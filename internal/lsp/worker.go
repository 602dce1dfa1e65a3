package lsp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skald-editor/skald/internal/log"
	"github.com/skald-editor/skald/internal/process"
)

// Worker owns one language server subprocess and the goroutines that
// feed it. The write loop pops outbound requests and frames them onto
// the server's stdin; the read loop decodes framed responses from
// stdout, correlates them with their requests, and pushes typed
// responses inbound; a third loop drains stderr.
//
// Responses are matched to requests by id. A response whose id has no
// pending request, or whose body does not parse, is logged and dropped
// rather than surfaced.
type Worker struct {
	command string
	args    []string
	workDir string

	outbound *Queue[Request]
	inbound  *Queue[Response]

	supervisor *process.Supervisor
	server     *process.Server

	// pending maps in-flight request ids to their kinds so the read
	// loop can parse each response with the right schema.
	mu      sync.Mutex
	pending map[int64]MessageKind

	writerDone chan struct{}
	done       chan struct{}

	logger *log.Logger
}

func newWorker(command string, args []string, workDir string, outbound *Queue[Request], inbound *Queue[Response], logger *log.Logger) *Worker {
	return &Worker{
		command:    command,
		args:       args,
		workDir:    workDir,
		outbound:   outbound,
		inbound:    inbound,
		supervisor: process.NewSupervisor(),
		pending:    make(map[int64]MessageKind),
		writerDone: make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.WithComponent("lsp.worker"),
	}
}

// Start spawns the server subprocess and launches the service loops.
func (w *Worker) Start(ctx context.Context) error {
	server, err := w.supervisor.Spawn(w.command, w.workDir, w.args...)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", w.command, err)
	}
	w.server = server
	w.logger.Info("started %s (pid %d)", w.command, server.PID())

	group, _ := errgroup.WithContext(ctx)
	group.Go(w.writeLoop)
	group.Go(w.readLoop)
	group.Go(w.stderrLoop)

	go func() {
		if err := group.Wait(); err != nil {
			w.logger.Error("worker loop: %v", err)
		}
		close(w.done)
	}()
	return nil
}

// writeLoop frames outbound requests onto the server's stdin. It runs
// until the terminate sentinel arrives or the subprocess dies. Request
// ids are registered as pending before their bytes hit the wire, so a
// response can never outrun its bookkeeping.
func (w *Worker) writeLoop() error {
	defer close(w.writerDone)

	for {
		req, ok := w.outbound.Pop(w.server.Done())
		if !ok {
			w.logger.Warn("%s exited with %d requests unsent", w.command, w.outbound.Len())
			return nil
		}

		if req.Kind == KindTerminate {
			if err := w.server.Stdin.Close(); err != nil {
				w.logger.Debug("close stdin: %v", err)
			}
			return nil
		}

		if req.Kind.carriesWireID() {
			w.mu.Lock()
			w.pending[req.ID] = req.Kind
			w.mu.Unlock()
		}

		if err := writeFrame(w.server.Stdin, req.Payload); err != nil {
			return fmt.Errorf("send %s (id %d): %w", req.Kind, req.ID, err)
		}
		w.logger.Debug("sent %s (id %d, %d bytes)", req.Kind, req.ID, len(req.Payload))
	}
}

// readLoop decodes framed messages from the server's stdout until the
// stream ends. Malformed or uncorrelated messages are logged and
// dropped; they never stop the loop.
func (w *Worker) readLoop() error {
	reader := bufio.NewReader(w.server.Stdout)
	for {
		payload, err := readFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.ErrClosedPipe) {
				w.logger.Warn("read frame: %v", err)
			}
			return nil
		}

		msg, err := decodeMessage(payload)
		if err != nil {
			w.logger.Warn("drop inbound: %v", err)
			continue
		}

		switch {
		case msg.ID != nil && msg.Method == "":
			w.handleResponse(msg)
		case msg.Method != "":
			// Server-initiated requests get no reply; the methods the
			// servers actually send this way are informational.
			w.inbound.Push(*classifyNotification(msg))
		default:
			w.logger.Warn("drop inbound: %v: neither response nor notification", ErrMalformedResponse)
		}
	}
}

// handleResponse correlates one response with its pending request and
// pushes the typed result inbound.
func (w *Worker) handleResponse(msg *inboundMessage) {
	w.mu.Lock()
	kind, ok := w.pending[*msg.ID]
	if ok {
		delete(w.pending, *msg.ID)
	}
	w.mu.Unlock()

	if !ok {
		w.logger.Warn("drop response id %d: %v", *msg.ID, ErrMissingRequestEntry)
		return
	}

	if msg.Error != nil {
		w.logger.Warn("%s (id %d) failed: %v", kind, *msg.ID, msg.Error)
		w.inbound.Push(Response{
			Kind: KindLogMessage,
			ID:   *msg.ID,
			Log:  fmt.Sprintf("%s failed: %s", kind, msg.Error.Message),
		})
		return
	}

	resp, err := classifyResult(kind, *msg.ID, msg.Result)
	if err != nil {
		w.logger.Warn("drop response id %d: %v", *msg.ID, err)
		return
	}
	w.inbound.Push(*resp)
}

// stderrLoop surfaces the server's stderr lines as log responses so the
// editor can show them alongside window/logMessage traffic.
func (w *Worker) stderrLoop() error {
	scanner := bufio.NewScanner(w.server.Stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		w.logger.Debug("stderr: %s", line)
		w.inbound.Push(Response{Kind: KindLogMessage, Log: line})
	}
	return nil
}

// Wait blocks until the session is fully torn down. It waits for the
// write loop to flush and close stdin, gives the subprocess the timeout
// to exit on its own, escalates to a kill, and then joins the remaining
// loops.
func (w *Worker) Wait(timeout time.Duration) {
	select {
	case <-w.writerDone:
	case <-time.After(timeout):
		w.logger.Warn("write loop did not finish within %s", timeout)
	}

	w.supervisor.Shutdown(timeout)
	<-w.done
}
