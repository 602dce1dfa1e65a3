package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors.
var (
	// ErrNotStarted is returned when acting on a server that never started.
	ErrNotStarted = errors.New("server process not started")

	// ErrAlreadyStarted is returned when starting a server twice.
	ErrAlreadyStarted = errors.New("server process already started")

	// ErrNotFound is returned when a server ID is not tracked.
	ErrNotFound = errors.New("server not found")

	// ErrSupervisorShutdown is returned when the supervisor is shutting down.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")
)

// Supervisor spawns and tracks language-server subprocesses.
//
// Every server gets piped stdin/stdout/stderr, a uuid, and a monitor
// goroutine that removes it from tracking on exit. Supervisor is safe
// for concurrent use.
type Supervisor struct {
	mu      sync.RWMutex
	servers map[string]*Server

	// closed indicates the supervisor has been shut down.
	closed atomic.Bool

	// env holds extra environment variables applied to every spawn.
	env map[string]string

	// onExit is called when a server exits.
	onExit func(s *Server)
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithEnv sets extra environment variables applied to every spawned server.
func WithEnv(env map[string]string) SupervisorOption {
	return func(s *Supervisor) {
		s.env = env
	}
}

// WithExitCallback sets a callback invoked when a server exits.
func WithExitCallback(fn func(s *Server)) SupervisorOption {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// NewSupervisor creates a new supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		servers: make(map[string]*Server),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts a language server in its default LSP stdio mode.
//
// The binary is invoked with no arguments; workDir sets the working
// directory (the workspace root) and may be empty. All three standard
// streams are piped.
func (s *Supervisor) Spawn(command, workDir string, args ...string) (*Server, error) {
	cmd := exec.Command(command, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	cmd.Env = os.Environ()
	for k, v := range s.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	return s.spawnCmd(uuid.New().String(), command, cmd)
}

// spawnCmd wires stdio pipes, starts the process, and begins tracking.
func (s *Supervisor) spawnCmd(id, command string, cmd *exec.Cmd) (*Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}
	if _, exists := s.servers[id]; exists {
		return nil, fmt.Errorf("server ID already exists: %s", id)
	}

	server := newServer(id, command, cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	server.Stdin = stdin
	server.Stdout = stdout
	server.Stderr = stderr

	if err := server.start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, err
	}

	s.servers[id] = server

	go s.monitor(server)

	return server, nil
}

// monitor watches for server exit and cleans up tracking state.
func (s *Supervisor) monitor(server *Server) {
	<-server.Done()

	if s.onExit != nil {
		func() {
			defer func() {
				// Callback panics must not take down the supervisor.
				_ = recover()
			}()
			s.onExit(server)
		}()
	}

	s.mu.Lock()
	delete(s.servers, server.ID)
	s.mu.Unlock()
}

// Get returns a tracked server by ID, or nil.
func (s *Supervisor) Get(id string) *Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.servers[id]
}

// Count returns the number of tracked servers.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.servers)
}

// Stop gracefully stops one server: SIGTERM, wait up to timeout, SIGKILL.
// Returns ErrNotFound if the ID is not tracked. Blocks until the process
// has exited.
func (s *Supervisor) Stop(id string, timeout time.Duration) error {
	server := s.Get(id)
	if server == nil {
		return ErrNotFound
	}
	stopServer(server, timeout)
	return nil
}

// stopServer terminates, then kills after the timeout elapses.
func stopServer(server *Server, timeout time.Duration) {
	if !server.IsRunning() {
		return
	}

	_ = server.Terminate()

	select {
	case <-server.Done():
	case <-time.After(timeout):
		if server.IsRunning() {
			_ = server.Kill()
		}
		<-server.Done()
	}
}

// Shutdown gracefully stops all tracked servers.
//
// It sends SIGTERM to every running server, waits up to timeout for them
// to exit, and SIGKILLs the rest. Blocks until tracking is empty.
func (s *Supervisor) Shutdown(timeout time.Duration) {
	if s.closed.Swap(true) {
		return
	}

	s.mu.RLock()
	servers := make([]*Server, 0, len(s.servers))
	for _, server := range s.servers {
		servers = append(servers, server)
	}
	s.mu.RUnlock()

	if len(servers) == 0 {
		return
	}

	for _, server := range servers {
		if server.IsRunning() {
			_ = server.Terminate()
		}
	}

	done := make(chan struct{})
	go func() {
		for _, server := range servers {
			<-server.Done()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, server := range servers {
			if server.IsRunning() {
				_ = server.Kill()
			}
		}
		<-done
	}

	s.waitForCleanup()
}

// waitForCleanup waits for monitor goroutines to empty the tracking map.
func (s *Supervisor) waitForCleanup() {
	for {
		s.mu.RLock()
		count := len(s.servers)
		s.mu.RUnlock()
		if count == 0 {
			return
		}
		time.Sleep(1 * time.Millisecond)
	}
}

// IsShuttingDown returns true if Shutdown has begun.
func (s *Supervisor) IsShuttingDown() bool {
	return s.closed.Load()
}
