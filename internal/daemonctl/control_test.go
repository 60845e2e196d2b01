package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWaitForClientTimesOut(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	start := time.Now()
	if _, err := WaitForClient(socket, 250*time.Millisecond); err == nil {
		t.Fatal("expected timeout error for missing socket")
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Fatal("WaitForClient returned before the deadline")
	}
}

func TestStopAndTerminateWithoutDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	_, err := StopAndTerminate(socket, "", time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestProcessInfoMissingSocket(t *testing.T) {
	reachable, pid, err := ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if reachable || pid != 0 {
		t.Fatalf("expected unreachable daemon, got reachable=%v pid=%d", reachable, pid)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

func TestReadPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quilld.pid")
	if err := os.WriteFile(path, []byte("4321\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != 4321 {
		t.Fatalf("expected pid 4321, got %d", pid)
	}

	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatalf("rewrite pid file: %v", err)
	}
	if _, err := readPIDFile(path); err == nil {
		t.Fatal("expected error for malformed pid file")
	}
}
