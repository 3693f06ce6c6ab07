//go:build linux

package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/security"
	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	stdinFileName  = "stdin.txt"
	stdoutFileName = "stdout.log"
	stderrFileName = "stderr.log"
)

// IsolatedExecutor runs each step through the sandbox-init helper inside
// fresh namespaces: no network, private mounts, an unprivileged identity
// mapped via a user namespace, and optional cgroup v2 limits.
type IsolatedExecutor struct {
	cfg     Config
	metrics MetricsRecorder
}

// NewIsolatedExecutor creates a namespace-isolated executor.
func NewIsolatedExecutor(cfg Config, metrics MetricsRecorder) *IsolatedExecutor {
	if metrics == nil {
		metrics = NoopMetricsRecorder{}
	}
	return &IsolatedExecutor{cfg: cfg.withDefaults(), metrics: metrics}
}

func (e *IsolatedExecutor) Backend() result.Backend {
	return result.BackendIsolated
}

func (e *IsolatedExecutor) Execute(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionResult, error) {
	res := result.ExecutionResult{BackendUsed: result.BackendIsolated}
	if err := validateRunSpec(runSpec); err != nil {
		return res, err
	}
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
	if err := os.WriteFile(filepath.Join(scratch, stdinFileName), []byte(runSpec.Stdin), 0644); err != nil {
		return res, appErr.Wrapf(err, appErr.ScratchDirFailed, "write stdin file failed")
	}

	env := defaultEnv(runSpec.Env)

	if len(runSpec.CompileCmd) > 0 {
		e.metrics.ObserveSpawn(ctx, runSpec.Language)
		compileRes, err := e.runStep(ctx, runSpec, scratch, runSpec.CompileCmd, env, e.cfg.CompileTimeout, false)
		if err != nil {
			return res, err
		}
		if compileRes.exitCode != 0 || compileRes.timedOut {
			applyCompileFailure(&res, compileRes)
			e.metrics.ObserveExecution(ctx, result.BackendIsolated, res.Outcome, res.RuntimeMs)
			return res, nil
		}
	}

	e.metrics.ObserveSpawn(ctx, runSpec.Language)
	runRes, err := e.runStep(ctx, runSpec, scratch, runSpec.RunCmd, env,
		time.Duration(runSpec.Limits.TimeLimitMs)*time.Millisecond, true)
	if err != nil {
		return res, err
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

	e.metrics.ObserveExecution(ctx, result.BackendIsolated, res.Outcome, res.RuntimeMs)
	return res, nil
}

// helperLimits fills in the limits the helper enforces through rlimits.
// The output ceiling gets headroom over the capture cap so read-back
// still observes that the file exceeded it and reports truncation.
func helperLimits(cfg Config, limits spec.ResourceLimit) spec.ResourceLimit {
	out := limits
	if out.OutputBytes == 0 {
		out.OutputBytes = cfg.OutputMaxBytes * 2
	}
	if out.PIDs == 0 {
		out.PIDs = defaultPIDLimit
	}
	return out
}

// runStep launches one helper process inside fresh namespaces and reads
// its redirected output back from the scratch directory.
func (e *IsolatedExecutor) runStep(ctx context.Context, runSpec spec.RunSpec, scratch string, argv, env []string, timeLimit time.Duration, attachStdin bool) (procResult, error) {
	stdoutPath := filepath.Join(scratch, stdoutFileName)
	stderrPath := filepath.Join(scratch, stderrFileName)
	initReq := security.InitRequest{
		WorkDir:    scratch,
		Cmd:        argv,
		Env:        env,
		StdoutPath: stdoutPath,
		StderrPath: stderrPath,
		Limits:     helperLimits(e.cfg, runSpec.Limits),
		Seccomp:    e.cfg.SeccompProfile,
	}
	if attachStdin {
		initReq.StdinPath = filepath.Join(scratch, stdinFileName)
	}

	payload, err := json.Marshal(initReq)
	if err != nil {
		return procResult{}, appErr.Wrapf(err, appErr.SandboxError, "encode init request failed")
	}

	cmd := exec.Command(e.cfg.HelperPath)
	cmd.Dir = scratch
	cmd.SysProcAttr = isolationSysProcAttr()
	cmd.Stdin = bytes.NewReader(payload)

	helperStderr := newCappedBuffer(e.cfg.OutputMaxBytes)
	cmd.Stderr = helperStderr

	var cgroupPath string
	cgroupCleanup := func() {}
	if e.cfg.EnableCgroup {
		cgroupPath, cgroupCleanup, err = createRunCgroup(e.cfg.CgroupRoot, runSpec.SubmissionID, runSpec.TestID)
		if err != nil {
			return procResult{}, appErr.Wrapf(err, appErr.SandboxError, "create cgroup failed")
		}
		if err := applyCgroupLimits(cgroupPath, runSpec.Limits); err != nil {
			cgroupCleanup()
			return procResult{}, appErr.Wrapf(err, appErr.SandboxError, "apply cgroup limits failed")
		}
	}
	defer cgroupCleanup()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return procResult{}, appErr.Wrapf(err, appErr.ProcessSpawnFailed, "start sandbox helper failed")
	}
	pid := cmd.Process.Pid
	if e.cfg.EnableCgroup {
		if err := addProcessToCgroup(cgroupPath, pid); err != nil {
			logger.Warn(ctx, "add process to cgroup failed",
				zap.String("cgroup", cgroupPath), zap.Error(err))
		}
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	var timer <-chan time.Time
	if timeLimit > 0 {
		timer = time.After(timeLimit)
	}

	res := procResult{}
	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-timer:
		res.timedOut = true
		terminateProcessGroup(pid)
		select {
		case waitErr = <-waitCh:
		case <-time.After(e.cfg.KillGrace):
			killProcessGroup(pid)
			waitErr = <-waitCh
		}
	case <-ctx.Done():
		res.killed = true
		killProcessGroup(pid)
		if e.cfg.EnableCgroup {
			if err := killCgroup(cgroupPath); err != nil {
				logger.Warn(ctx, "kill cgroup failed",
					zap.String("cgroup", cgroupPath), zap.Error(err))
			}
		}
		waitErr = <-waitCh
	}

	res.runtimeMs = uint(time.Since(start).Milliseconds())
	res.stdout, res.stdoutTruncated = readCappedFile(stdoutPath, e.cfg.OutputMaxBytes)
	res.stderr, res.stderrTruncated = readCappedFile(stderrPath, e.cfg.OutputMaxBytes)

	if e.cfg.EnableCgroup {
		res.memoryKB = cgroupPeakKB(cgroupPath)
		if cgroupOomKilled(cgroupPath) {
			res.killed = true
		}
	}

	res.exitCode = exitCodeOf(waitErr, cmd)
	if waitErr != nil && helperStderr != nil {
		if msg, _ := helperStderr.Contents(); msg != "" {
			logger.Warn(ctx, "sandbox helper stderr",
				zap.String("test_id", runSpec.TestID), zap.String("stderr", msg))
		}
	}
	return res, nil
}

func exitCodeOf(waitErr error, cmd *exec.Cmd) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// isolationSysProcAttr clones the helper into fresh namespaces with the
// current user mapped to an unprivileged in-namespace root.
func isolationSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
		Cloneflags: syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS |
			syscall.CLONE_NEWIPC | syscall.CLONE_NEWNET | syscall.CLONE_NEWUSER,
		GidMappingsEnableSetgroups: false,
		UidMappings: []syscall.SysProcIDMap{{
			ContainerID: 0,
			HostID:      os.Getuid(),
			Size:        1,
		}},
		GidMappings: []syscall.SysProcIDMap{{
			ContainerID: 0,
			HostID:      os.Getgid(),
			Size:        1,
		}},
	}
}

// ProbeIsolation verifies that the helper binary is installed and that
// this host permits unprivileged namespace creation. Called once by the
// backend selector.
func ProbeIsolation(ctx context.Context, helperPath string) error {
	if helperPath == "" {
		helperPath = "sandbox-init"
	}
	if _, err := exec.LookPath(helperPath); err != nil {
		return appErr.Wrapf(err, appErr.BackendProbeFailed, "sandbox helper not found")
	}
	probe := exec.CommandContext(ctx, "true")
	probe.SysProcAttr = isolationSysProcAttr()
	if err := probe.Run(); err != nil {
		return appErr.Wrapf(err, appErr.BackendProbeFailed, "namespace probe failed")
	}
	return nil
}

// readCappedFile reads at most maxBytes from path, reporting whether the
// file was larger than the ceiling.
func readCappedFile(path string, maxBytes int64) (string, bool) {
	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return "", false
	}
	info, statErr := file.Stat()
	truncated := statErr == nil && info.Size() > maxBytes
	if truncated {
		return string(data) + result.TruncationMarker, true
	}
	return string(data), false
}
