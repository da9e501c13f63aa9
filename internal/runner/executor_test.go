package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// requirePython skips tests in environments without a Python interpreter.
func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func writeScript(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.py")
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSuccess(t *testing.T) {
	requirePython(t)

	e := NewExecutor("python3", nil)
	res, err := e.Run(context.Background(), writeScript(t, "print('hello')\n"), 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0, stderr: %s", res.ExitCode, res.Stderr)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if res.TimedOut {
		t.Error("TimedOut should be false")
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	requirePython(t)

	e := NewExecutor("python3", nil)
	res, err := e.Run(context.Background(), writeScript(t, "import sys\nsys.exit(3)\n"), 10*time.Second)
	if err != nil {
		t.Fatalf("non-zero exit must not be a pipeline error, got: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	requirePython(t)

	e := NewExecutor("python3", nil)
	script := writeScript(t, "print('partial', flush=True)\nimport time\ntime.sleep(30)\n")

	start := time.Now()
	res, err := e.Run(context.Background(), script, 1*time.Second)
	if err != nil {
		t.Fatalf("timeout must not be a pipeline error, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
	if res.ExitCode != TimeoutExitCode {
		t.Errorf("ExitCode = %d, want sentinel %d", res.ExitCode, TimeoutExitCode)
	}
	if res.Stderr != TimeoutMessage {
		t.Errorf("Stderr = %q, want fixed timeout message", res.Stderr)
	}
	if !res.TimedOut {
		t.Error("TimedOut should be true")
	}
}

func TestRunInterpreterNotFound(t *testing.T) {
	e := NewExecutor("definitely-not-a-real-interpreter", nil)
	_, err := e.Run(context.Background(), "/tmp/whatever.py", time.Second)
	if err == nil {
		t.Fatal("expected launch failure")
	}
	if !IsLaunchFailure(err) {
		t.Errorf("IsLaunchFailure(%v) = false, want true", err)
	}
}

func TestRunRuntimeErrorCapturesStderr(t *testing.T) {
	requirePython(t)

	e := NewExecutor("python3", nil)
	res, err := e.Run(context.Background(), writeScript(t, "import not_a_real_module_xyz\n"), 10*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode == 0 {
		t.Fatal("expected non-zero exit")
	}

	detail := Classify(res.ExitCode, res.Stderr)
	if detail.Kind != ErrorKindImport {
		t.Errorf("Kind = %q, want import", detail.Kind)
	}
	if len(detail.MissingModules) != 1 || detail.MissingModules[0] != "not_a_real_module_xyz" {
		t.Errorf("MissingModules = %v", detail.MissingModules)
	}
}

func TestTruncateOutput(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := truncateOutput(long, 10)
	if !strings.HasPrefix(got, "aaaaaaaaaa") || !strings.Contains(got, "truncated") {
		t.Errorf("truncateOutput = %q", got)
	}
	if truncateOutput("short", 10) != "short" {
		t.Error("short output should pass through unchanged")
	}
}
