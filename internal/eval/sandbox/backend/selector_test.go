package backend

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
)

type stubExecutor struct {
	backend result.Backend
}

func (s stubExecutor) Execute(context.Context, spec.RunSpec) (result.ExecutionResult, error) {
	return result.ExecutionResult{Outcome: result.OutcomeCompleted, BackendUsed: s.backend}, nil
}

func (s stubExecutor) Backend() result.Backend { return s.backend }

func TestSelectorPrefersIsolated(t *testing.T) {
	var probes atomic.Int64
	sel := NewSelector(
		stubExecutor{backend: result.BackendIsolated},
		stubExecutor{backend: result.BackendDirect},
		ProberFunc(func(context.Context) error {
			probes.Add(1)
			return nil
		}),
	)

	exec, err := sel.Executor(context.Background())
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	if exec.Backend() != result.BackendIsolated {
		t.Fatalf("expected isolated backend, got %s", exec.Backend())
	}
	if sel.State() != StateIsolatedAvailable {
		t.Fatalf("state: %s", sel.State())
	}

	// Probe result is cached.
	for i := 0; i < 3; i++ {
		if _, err := sel.Executor(context.Background()); err != nil {
			t.Fatalf("executor: %v", err)
		}
	}
	if probes.Load() != 1 {
		t.Fatalf("probe should run once, ran %d times", probes.Load())
	}
}

func TestSelectorFallsBackToDirect(t *testing.T) {
	probeErr := errors.New("unshare not permitted")
	sel := NewSelector(
		stubExecutor{backend: result.BackendIsolated},
		stubExecutor{backend: result.BackendDirect},
		ProberFunc(func(context.Context) error { return probeErr }),
	)

	exec, err := sel.Executor(context.Background())
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	if exec.Backend() != result.BackendDirect {
		t.Fatalf("expected direct fallback, got %s", exec.Backend())
	}
	if sel.State() != StateIsolatedUnavailable {
		t.Fatalf("state: %s", sel.State())
	}
	if !errors.Is(sel.ProbeError(), probeErr) {
		t.Fatalf("probe error not preserved: %v", sel.ProbeError())
	}
}

func TestSelectorNilIsolated(t *testing.T) {
	sel := NewSelector(nil, stubExecutor{backend: result.BackendDirect}, nil)
	exec, err := sel.Executor(context.Background())
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	if exec.Backend() != result.BackendDirect {
		t.Fatalf("expected direct backend, got %s", exec.Backend())
	}
}

func TestReprobe(t *testing.T) {
	var probes atomic.Int64
	fail := atomic.Bool{}
	fail.Store(true)
	sel := NewSelector(
		stubExecutor{backend: result.BackendIsolated},
		stubExecutor{backend: result.BackendDirect},
		ProberFunc(func(context.Context) error {
			probes.Add(1)
			if fail.Load() {
				return errors.New("no namespace support")
			}
			return nil
		}),
	)

	exec, _ := sel.Executor(context.Background())
	if exec.Backend() != result.BackendDirect {
		t.Fatalf("expected direct while probe fails, got %s", exec.Backend())
	}

	fail.Store(false)
	sel.Reprobe()
	exec, _ = sel.Executor(context.Background())
	if exec.Backend() != result.BackendIsolated {
		t.Fatalf("expected isolated after reprobe, got %s", exec.Backend())
	}
	if probes.Load() != 2 {
		t.Fatalf("expected 2 probes, got %d", probes.Load())
	}
}
