package process

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSupervisorSpawn(t *testing.T) {
	supervisor := NewSupervisor()
	defer supervisor.Shutdown(2 * time.Second)

	server, err := supervisor.Spawn("cat", "")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if server.ID == "" {
		t.Error("expected a generated server ID")
	}
	if !server.IsRunning() {
		t.Error("expected server to be running")
	}
	if server.Stdin == nil || server.Stdout == nil || server.Stderr == nil {
		t.Error("expected all stdio pipes to be wired")
	}
	if supervisor.Count() != 1 {
		t.Errorf("expected Count 1, got %d", supervisor.Count())
	}
	if got := supervisor.Get(server.ID); got != server {
		t.Error("Get returned a different server")
	}
}

func TestSupervisorSpawnStdioRoundTrip(t *testing.T) {
	supervisor := NewSupervisor()
	defer supervisor.Shutdown(2 * time.Second)

	server, err := supervisor.Spawn("cat", "")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if _, err := io.WriteString(server.Stdin, "ping\n"); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	server.Stdin.Close()

	out, err := io.ReadAll(server.Stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if !strings.Contains(string(out), "ping") {
		t.Errorf("expected echoed input, got %q", out)
	}

	<-server.Done()
	if server.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", server.ExitCode())
	}
}

func TestSupervisorSpawnMissingBinary(t *testing.T) {
	supervisor := NewSupervisor()
	defer supervisor.Shutdown(time.Second)

	if _, err := supervisor.Spawn("definitely-not-a-real-binary-xyz", ""); err == nil {
		t.Fatal("expected error spawning nonexistent binary")
	}
	if supervisor.Count() != 0 {
		t.Errorf("failed spawn should not be tracked, Count = %d", supervisor.Count())
	}
}

func TestSupervisorStop(t *testing.T) {
	supervisor := NewSupervisor()
	defer supervisor.Shutdown(2 * time.Second)

	server, err := supervisor.Spawn("sleep", "", "30")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if err := supervisor.Stop(server.ID, time.Second); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !server.HasExited() {
		t.Error("expected server to have exited after Stop")
	}
}

func TestSupervisorStopUnknownID(t *testing.T) {
	supervisor := NewSupervisor()
	defer supervisor.Shutdown(time.Second)

	if err := supervisor.Stop("no-such-id", time.Second); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSupervisorExitCallback(t *testing.T) {
	var mu sync.Mutex
	var exited []string

	supervisor := NewSupervisor(WithExitCallback(func(s *Server) {
		mu.Lock()
		exited = append(exited, s.Command)
		mu.Unlock()
	}))
	defer supervisor.Shutdown(time.Second)

	server, err := supervisor.Spawn("true", "")
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	<-server.Done()

	// Monitor goroutine runs the callback after Done closes.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(exited)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for exit callback")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSupervisorShutdownStopsAll(t *testing.T) {
	supervisor := NewSupervisor()

	for i := 0; i < 3; i++ {
		if _, err := supervisor.Spawn("sleep", "", "30"); err != nil {
			t.Fatalf("Spawn failed: %v", err)
		}
	}

	start := time.Now()
	supervisor.Shutdown(2 * time.Second)

	if supervisor.Count() != 0 {
		t.Errorf("expected Count 0 after Shutdown, got %d", supervisor.Count())
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Shutdown took too long: %v", elapsed)
	}
	if !supervisor.IsShuttingDown() {
		t.Error("expected IsShuttingDown true after Shutdown")
	}
}

func TestSupervisorSpawnAfterShutdown(t *testing.T) {
	supervisor := NewSupervisor()
	supervisor.Shutdown(time.Second)

	if _, err := supervisor.Spawn("true", ""); err != ErrSupervisorShutdown {
		t.Errorf("expected ErrSupervisorShutdown, got %v", err)
	}
}
