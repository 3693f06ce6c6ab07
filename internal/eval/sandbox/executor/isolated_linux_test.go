//go:build linux

package executor

import (
	"testing"

	"codeval/internal/eval/sandbox/spec"
)

func TestHelperLimitsDefaults(t *testing.T) {
	cfg := Config{OutputMaxBytes: 1000}.withDefaults()

	got := helperLimits(cfg, spec.ResourceLimit{TimeLimitMs: 2000})
	if got.OutputBytes <= cfg.OutputMaxBytes {
		t.Fatalf("output rlimit needs headroom over the capture cap, got %d", got.OutputBytes)
	}
	if got.PIDs != defaultPIDLimit {
		t.Fatalf("expected default pid limit %d, got %d", defaultPIDLimit, got.PIDs)
	}
	if got.TimeLimitMs != 2000 {
		t.Fatalf("time limit must pass through, got %d", got.TimeLimitMs)
	}
}

func TestHelperLimitsKeepsExplicitValues(t *testing.T) {
	cfg := Config{OutputMaxBytes: 1000}.withDefaults()

	got := helperLimits(cfg, spec.ResourceLimit{OutputBytes: 512, PIDs: 8})
	if got.OutputBytes != 512 {
		t.Fatalf("explicit output limit overridden: %d", got.OutputBytes)
	}
	if got.PIDs != 8 {
		t.Fatalf("explicit pid limit overridden: %d", got.PIDs)
	}
}
