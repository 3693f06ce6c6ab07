package executor

import (
	"context"
	"time"

	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/logger"

	"go.uber.org/zap"
)

// DirectExecutor runs the language toolchain directly on the host
// process tree. Timeout and kill semantics match the isolated backend,
// but isolation is weaker; unsafe for untrusted code in production.
type DirectExecutor struct {
	cfg     Config
	metrics MetricsRecorder
}

// NewDirectExecutor creates a direct-host executor.
func NewDirectExecutor(cfg Config, metrics MetricsRecorder) *DirectExecutor {
	if metrics == nil {
		metrics = NoopMetricsRecorder{}
	}
	return &DirectExecutor{cfg: cfg.withDefaults(), metrics: metrics}
}

func (e *DirectExecutor) Backend() result.Backend {
	return result.BackendDirect
}

func (e *DirectExecutor) Execute(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionResult, error) {
	res := result.ExecutionResult{BackendUsed: result.BackendDirect}
	if err := validateRunSpec(runSpec); err != nil {
		return res, err
	}

	// Resolve toolchains before anything touches the filesystem, so an
	// absent compiler or interpreter spawns nothing.
	if len(runSpec.CompileCmd) > 0 && !lookupToolchain(runSpec.CompileCmd) {
		res.Outcome = result.OutcomeToolchainMissing
		return res, nil
	}
	if !lookupToolchain(runSpec.RunCmd) {
		res.Outcome = result.OutcomeToolchainMissing
		return res, nil
	}

	scratch, cleanup, err := createScratchDir(e.cfg.ScratchRoot, runSpec.SubmissionID, runSpec.TestID)
	if err != nil {
		return res, err
	}
	defer cleanup()

	if err := writeUnitFiles(scratch, runSpec.Files); err != nil {
		return res, err
	}

	env := defaultEnv(runSpec.Env)

	if len(runSpec.CompileCmd) > 0 {
		e.metrics.ObserveSpawn(ctx, runSpec.Language)
		compileRes, err := runProcess(ctx, procOptions{
			workDir:   scratch,
			argv:      runSpec.CompileCmd,
			env:       env,
			timeLimit: e.cfg.CompileTimeout,
			grace:     e.cfg.KillGrace,
			capBytes:  e.cfg.OutputMaxBytes,
		})
		if err != nil {
			if isSpawnNotFound(err) {
				res.Outcome = result.OutcomeToolchainMissing
				return res, nil
			}
			return res, appErr.Wrapf(err, appErr.ProcessSpawnFailed, "start compile step failed")
		}
		if compileRes.exitCode != 0 || compileRes.timedOut {
			applyCompileFailure(&res, compileRes)
			e.metrics.ObserveExecution(ctx, result.BackendDirect, res.Outcome, res.RuntimeMs)
			return res, nil
		}
	}

	e.metrics.ObserveSpawn(ctx, runSpec.Language)
	runRes, err := runProcess(ctx, procOptions{
		workDir:       scratch,
		argv:          runSpec.RunCmd,
		env:           env,
		stdin:         runSpec.Stdin,
		timeLimit:     time.Duration(runSpec.Limits.TimeLimitMs) * time.Millisecond,
		grace:         e.cfg.KillGrace,
		capBytes:      e.cfg.OutputMaxBytes,
		memoryLimitKB: uint64(runSpec.Limits.MemoryLimitMB) * 1024,
		sampleMemory:  true,
	})
	if err != nil {
		if isSpawnNotFound(err) {
			res.Outcome = result.OutcomeToolchainMissing
			return res, nil
		}
		return res, appErr.Wrapf(err, appErr.ProcessSpawnFailed, "start run step failed")
	}

	res.Stdout = runRes.stdout
	res.Stderr = runRes.stderr
	res.StdoutTruncated = runRes.stdoutTruncated
	res.StderrTruncated = runRes.stderrTruncated
	res.ExitCode = runRes.exitCode
	res.RuntimeMs = runRes.runtimeMs
	res.MemoryKB = runRes.memoryKB

	switch {
	case runRes.timedOut:
		res.Outcome = result.OutcomeTimedOut
	case runRes.killed:
		res.Outcome = result.OutcomeKilled
	default:
		res.Outcome = result.OutcomeCompleted
	}

	if runRes.stdoutTruncated || runRes.stderrTruncated {
		logger.Warn(ctx, "execution output truncated",
			zap.String("test_id", runSpec.TestID),
			zap.Int64("cap_bytes", e.cfg.OutputMaxBytes))
	}

	e.metrics.ObserveExecution(ctx, result.BackendDirect, res.Outcome, res.RuntimeMs)
	return res, nil
}
