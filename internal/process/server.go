package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State represents the lifecycle state of a spawned server.
type State int

const (
	// StateCreated indicates the server has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the server process is currently running.
	StateRunning
	// StateExited indicates the process has exited normally or with an error.
	StateExited
	// StateKilled indicates the process was killed by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Server represents a managed language-server subprocess.
//
// Server wraps an exec.Cmd with exit tracking and piped standard I/O.
// It is safe for concurrent use.
type Server struct {
	// ID is the unique identifier for this server instance.
	ID string

	// Command is the binary name the server was started from.
	Command string

	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Stdin carries outbound protocol frames to the server.
	Stdin io.WriteCloser

	// Stdout carries inbound protocol frames from the server.
	Stdout io.ReadCloser

	// Stderr carries the server's own log output.
	Stderr io.ReadCloser

	// Started is the time the process was started.
	Started time.Time

	// done is closed when the process exits.
	done chan struct{}

	// state tracks the current lifecycle state.
	state atomic.Int32

	// exitCode stores the exit code after the process exits, -1 before.
	exitCode atomic.Int32

	// exitErr stores any error from Wait().
	exitErr error

	// mu protects exitErr.
	mu sync.RWMutex

	// waitOnce ensures the wait loop runs once.
	waitOnce sync.Once
}

func newServer(id, command string, cmd *exec.Cmd) *Server {
	s := &Server{
		ID:      id,
		Command: command,
		Cmd:     cmd,
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateCreated))
	s.exitCode.Store(-1)
	return s
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// ExitCode returns the process exit code, or -1 if it has not exited.
func (s *Server) ExitCode() int {
	return int(s.exitCode.Load())
}

// ExitError returns any error from waiting on the process.
func (s *Server) ExitError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exitErr
}

// Done returns a channel that is closed when the process exits.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// IsRunning returns true if the process is currently running.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// HasExited returns true if the process has exited or been killed.
func (s *Server) HasExited() bool {
	state := s.State()
	return state == StateExited || state == StateKilled
}

// PID returns the process ID, or -1 if not started.
func (s *Server) PID() int {
	if s.Cmd.Process == nil {
		return -1
	}
	return s.Cmd.Process.Pid
}

// Signal sends a signal to the process.
// Returns an error if the process is not running.
func (s *Server) Signal(sig os.Signal) error {
	if !s.IsRunning() {
		return fmt.Errorf("server not running: %w", ErrNotStarted)
	}
	if s.Cmd.Process == nil {
		return ErrNotStarted
	}
	return s.Cmd.Process.Signal(sig)
}

// Terminate sends SIGTERM to the process.
func (s *Server) Terminate() error {
	return s.Signal(syscall.SIGTERM)
}

// Kill sends SIGKILL to the process.
func (s *Server) Kill() error {
	return s.Signal(syscall.SIGKILL)
}

// start launches the process and begins exit tracking.
// Called by the Supervisor.
func (s *Server) start() error {
	if s.State() != StateCreated {
		return ErrAlreadyStarted
	}

	if err := s.Cmd.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	s.Started = time.Now()
	s.state.Store(int32(StateRunning))

	go s.waitLoop()

	return nil
}

// waitLoop waits for the process to exit and records the outcome.
func (s *Server) waitLoop() {
	s.waitOnce.Do(func() {
		err := s.Cmd.Wait()

		s.mu.Lock()
		s.exitErr = err
		s.mu.Unlock()

		exitCode := 0
		state := StateExited

		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
					if status.Signaled() {
						state = StateKilled
					}
				}
			} else {
				exitCode = -1
			}
		}

		s.exitCode.Store(int32(exitCode))
		s.state.Store(int32(state))
		close(s.done)
	})
}

// Close closes the server's I/O handles. It does not kill the process.
func (s *Server) Close() error {
	var errs []error

	if s.Stdin != nil {
		if err := s.Stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
	}
	if s.Stdout != nil {
		if err := s.Stdout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdout: %w", err))
		}
	}
	if s.Stderr != nil {
		if err := s.Stderr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stderr: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close server io: %v", errs)
	}
	return nil
}
