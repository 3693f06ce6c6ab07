package executor

import (
	"testing"

	"codeval/internal/eval/sandbox/result"
)

func TestApplyCompileFailureKeepsTruncationFlags(t *testing.T) {
	res := result.ExecutionResult{BackendUsed: result.BackendIsolated}
	applyCompileFailure(&res, procResult{
		stdout:          "partial build log",
		stderr:          "error: too much output",
		stdoutTruncated: true,
		stderrTruncated: true,
		exitCode:        1,
		runtimeMs:       40,
	})

	if res.Outcome != result.OutcomeCompileError {
		t.Fatalf("expected compile error outcome, got %v", res.Outcome)
	}
	if !res.StdoutTruncated || !res.StderrTruncated {
		t.Fatalf("truncation flags must carry over: stdout=%v stderr=%v",
			res.StdoutTruncated, res.StderrTruncated)
	}
	if res.Stdout != "partial build log" || res.Stderr != "error: too much output" {
		t.Fatalf("compiler output lost: %q / %q", res.Stdout, res.Stderr)
	}
	if res.ExitCode != 1 || res.RuntimeMs != 40 {
		t.Fatalf("exit code / runtime lost: %d / %d", res.ExitCode, res.RuntimeMs)
	}
	if res.BackendUsed != result.BackendIsolated {
		t.Fatalf("backend field should be untouched, got %v", res.BackendUsed)
	}
}
