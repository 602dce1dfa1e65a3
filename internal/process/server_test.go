package process

import (
	"os/exec"
	"testing"
	"time"
)

func TestNewServerInitialState(t *testing.T) {
	cmd := exec.Command("echo", "hello")
	server := newServer("test-id", "echo", cmd)

	if server.ID != "test-id" {
		t.Errorf("expected ID 'test-id', got %q", server.ID)
	}
	if server.Command != "echo" {
		t.Errorf("expected Command 'echo', got %q", server.Command)
	}
	if server.State() != StateCreated {
		t.Errorf("expected StateCreated, got %v", server.State())
	}
	if server.ExitCode() != -1 {
		t.Errorf("expected exit code -1, got %d", server.ExitCode())
	}
	if server.PID() != -1 {
		t.Errorf("expected PID -1 before start, got %d", server.PID())
	}
	if server.IsRunning() {
		t.Error("expected IsRunning() false before start")
	}
	if server.HasExited() {
		t.Error("expected HasExited() false before start")
	}
}

func TestServerStartAndExit(t *testing.T) {
	cmd := exec.Command("true")
	server := newServer("test-id", "true", cmd)

	if err := server.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if server.Started.IsZero() {
		t.Error("expected Started time to be set")
	}

	<-server.Done()

	if server.State() != StateExited {
		t.Errorf("expected StateExited, got %v", server.State())
	}
	if server.ExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", server.ExitCode())
	}
	if !server.HasExited() {
		t.Error("expected HasExited() true after exit")
	}
}

func TestServerStartTwice(t *testing.T) {
	cmd := exec.Command("true")
	server := newServer("test-id", "true", cmd)

	if err := server.start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	<-server.Done()

	if err := server.start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestServerNonZeroExit(t *testing.T) {
	cmd := exec.Command("false")
	server := newServer("test-id", "false", cmd)

	if err := server.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-server.Done()

	if server.ExitCode() != 1 {
		t.Errorf("expected exit code 1, got %d", server.ExitCode())
	}
	if server.ExitError() == nil {
		t.Error("expected non-nil ExitError for failing command")
	}
}

func TestServerSignalNotRunning(t *testing.T) {
	cmd := exec.Command("true")
	server := newServer("test-id", "true", cmd)

	if err := server.Terminate(); err == nil {
		t.Error("expected error signaling a server that never started")
	}
}

func TestServerKilledState(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	server := newServer("test-id", "sleep", cmd)

	if err := server.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := server.Kill(); err != nil {
		t.Fatalf("kill failed: %v", err)
	}

	select {
	case <-server.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for killed process to exit")
	}

	if server.State() != StateKilled {
		t.Errorf("expected StateKilled, got %v", server.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateExited, "exited"},
		{StateKilled, "killed"},
		{State(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
