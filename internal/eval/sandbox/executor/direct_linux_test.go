//go:build linux

package executor

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
)

func newShellSpec(t *testing.T, script, stdin string) spec.RunSpec {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return spec.RunSpec{
		SubmissionID: "sub-1",
		TestID:       "tc1",
		Language:     "shell",
		Files:        map[string][]byte{"run.sh": []byte(script)},
		RunCmd:       []string{"sh", "run.sh"},
		Stdin:        stdin,
		Limits:       spec.ResourceLimit{TimeLimitMs: 5000, MemoryLimitMB: 256},
	}
}

func TestDirectExecuteCapturesOutput(t *testing.T) {
	direct := NewDirectExecutor(Config{ScratchRoot: t.TempDir()}, nil)
	res, err := direct.Execute(context.Background(), newShellSpec(t, "read line\necho \"got $line\"\n", "42\n"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Outcome != result.OutcomeCompleted {
		t.Fatalf("outcome = %s, want %s", res.Outcome, result.OutcomeCompleted)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "got 42" {
		t.Fatalf("stdout = %q, want %q", res.Stdout, "got 42")
	}
}

func TestDirectExecuteNonZeroExit(t *testing.T) {
	direct := NewDirectExecutor(Config{ScratchRoot: t.TempDir()}, nil)
	res, err := direct.Execute(context.Background(), newShellSpec(t, "echo boom >&2\nexit 3\n", ""))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Outcome != result.OutcomeCompleted {
		t.Fatalf("outcome = %s, want %s", res.Outcome, result.OutcomeCompleted)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "boom") {
		t.Fatalf("stderr = %q, want to contain %q", res.Stderr, "boom")
	}
}

func TestDirectExecuteTimesOut(t *testing.T) {
	direct := NewDirectExecutor(Config{ScratchRoot: t.TempDir(), KillGrace: 200 * time.Millisecond}, nil)
	runSpec := newShellSpec(t, "sleep 30\n", "")
	runSpec.Limits.TimeLimitMs = 300

	start := time.Now()
	res, err := direct.Execute(context.Background(), runSpec)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Outcome != result.OutcomeTimedOut {
		t.Fatalf("outcome = %s, want %s", res.Outcome, result.OutcomeTimedOut)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timed-out process took %s to reap", elapsed)
	}
}

func TestDirectExecuteTruncatesOutput(t *testing.T) {
	direct := NewDirectExecutor(Config{ScratchRoot: t.TempDir(), OutputMaxBytes: 128}, nil)
	res, err := direct.Execute(context.Background(),
		newShellSpec(t, "i=0\nwhile [ $i -lt 1000 ]; do echo aaaaaaaaaaaaaaaa; i=$((i+1)); done\n", ""))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.StdoutTruncated {
		t.Fatal("expected stdout to be truncated")
	}
	if !strings.HasSuffix(res.Stdout, result.TruncationMarker) {
		t.Fatalf("stdout = %q, want truncation marker suffix", tail16(res.Stdout))
	}
}

func TestDirectExecuteMissingToolchain(t *testing.T) {
	direct := NewDirectExecutor(Config{ScratchRoot: t.TempDir()}, nil)
	runSpec := newShellSpec(t, "echo hi\n", "")
	runSpec.RunCmd = []string{"no-such-interpreter-xyzzy", "run.sh"}

	res, err := direct.Execute(context.Background(), runSpec)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Outcome != result.OutcomeToolchainMissing {
		t.Fatalf("outcome = %s, want %s", res.Outcome, result.OutcomeToolchainMissing)
	}
}

func TestDirectExecuteCancelledContext(t *testing.T) {
	direct := NewDirectExecutor(Config{ScratchRoot: t.TempDir(), KillGrace: 200 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	res, err := direct.Execute(ctx, newShellSpec(t, "sleep 30\n", ""))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Outcome != result.OutcomeKilled {
		t.Fatalf("outcome = %s, want %s", res.Outcome, result.OutcomeKilled)
	}
}

func tail16(s string) string {
	if len(s) <= 64 {
		return s
	}
	return "..." + s[len(s)-64:]
}
