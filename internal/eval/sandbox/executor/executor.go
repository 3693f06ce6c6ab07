// Package executor runs one materialized program under a time and
// resource budget and reports a structured result.
package executor

import (
	"context"
	"time"

	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
)

const (
	defaultOutputMaxBytes int64 = 100_000
	defaultKillGrace            = time.Second
	defaultCompileTimeout       = 30 * time.Second

	// defaultPIDLimit bounds the process tree when the run spec does
	// not set its own limit.
	defaultPIDLimit int64 = 64
)

// Executor runs exactly one RunSpec per call: an optional compile step
// followed by the run step, both inside a fresh scratch directory.
type Executor interface {
	Execute(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionResult, error)
	Backend() result.Backend
}

// Config holds executor settings shared by all backends.
type Config struct {
	// ScratchRoot is the host directory under which per-execution
	// scratch directories are created.
	ScratchRoot string

	// OutputMaxBytes caps stdout and stderr independently.
	OutputMaxBytes int64

	// KillGrace is the window between SIGTERM and SIGKILL on timeout.
	KillGrace time.Duration

	// CompileTimeout bounds the compile step; it is independent of the
	// per-test time limit.
	CompileTimeout time.Duration

	// HelperPath locates the sandbox-init binary (isolated backend only).
	HelperPath string

	// SeccompProfile is an optional profile path applied by the helper.
	SeccompProfile string

	// EnableCgroup turns on cgroup v2 accounting and limits (isolated
	// backend only; requires a writable CgroupRoot).
	EnableCgroup bool
	CgroupRoot   string
}

func (c Config) withDefaults() Config {
	out := c
	if out.OutputMaxBytes <= 0 {
		out.OutputMaxBytes = defaultOutputMaxBytes
	}
	if out.KillGrace <= 0 {
		out.KillGrace = defaultKillGrace
	}
	if out.CompileTimeout <= 0 {
		out.CompileTimeout = defaultCompileTimeout
	}
	if out.HelperPath == "" {
		out.HelperPath = "sandbox-init"
	}
	return out
}
