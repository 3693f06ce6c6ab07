package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"codeval/internal/eval/sandbox/result"
)

// procResult is the raw outcome of one child process tree.
type procResult struct {
	stdout          string
	stderr          string
	stdoutTruncated bool
	stderrTruncated bool
	exitCode        int
	runtimeMs       uint
	memoryKB        uint
	timedOut        bool
	killed          bool
}

// procOptions controls one runProcess call.
type procOptions struct {
	workDir   string
	argv      []string
	env       []string
	stdin     string
	timeLimit time.Duration
	grace     time.Duration
	capBytes  int64

	// memoryLimitKB enables best-effort RSS polling; the process is
	// killed when it exceeds the limit. Zero disables enforcement but
	// sampling still runs so the result can report usage.
	memoryLimitKB uint64
	sampleMemory  bool
}

// runProcess spawns one process tree and drives it through a single
// completion channel: completed, timed out (SIGTERM, then SIGKILL after
// the grace window), killed by memory enforcement, or cancelled.
func runProcess(ctx context.Context, opts procOptions) (procResult, error) {
	cmd := exec.Command(opts.argv[0], opts.argv[1:]...)
	cmd.Dir = opts.workDir
	cmd.Env = opts.env
	cmd.Stdin = strings.NewReader(opts.stdin)

	stdout := newCappedBuffer(opts.capBytes)
	stderr := newCappedBuffer(opts.capBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return procResult{}, err
	}
	pid := cmd.Process.Pid

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	var memKilled atomic.Bool
	var peakKB atomic.Uint64
	sampleCtx, stopSampling := context.WithCancel(context.Background())
	defer stopSampling()
	if opts.sampleMemory {
		go sampleProcessMemory(sampleCtx, pid, opts.memoryLimitKB, &peakKB, func() {
			memKilled.Store(true)
			killProcessGroup(pid)
		})
	}

	var timer <-chan time.Time
	if opts.timeLimit > 0 {
		timer = time.After(opts.timeLimit)
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
		case <-time.After(opts.grace):
			killProcessGroup(pid)
			waitErr = <-waitCh
		}
	case <-ctx.Done():
		res.killed = true
		killProcessGroup(pid)
		waitErr = <-waitCh
	}
	stopSampling()

	res.runtimeMs = uint(time.Since(start).Milliseconds())
	res.memoryKB = uint(peakKB.Load())
	res.stdout, res.stdoutTruncated = stdout.Contents()
	res.stderr, res.stderrTruncated = stderr.Contents()
	if memKilled.Load() {
		res.killed = true
	}

	res.exitCode = 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.exitCode = exitErr.ExitCode()
		} else {
			res.exitCode = -1
		}
	}
	if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() >= 0 {
		res.exitCode = cmd.ProcessState.ExitCode()
	}
	return res, nil
}

// applyCompileFailure fills res with the compile step's output when
// compilation fails or times out. Both backends report the same shape.
func applyCompileFailure(res *result.ExecutionResult, pr procResult) {
	res.Outcome = result.OutcomeCompileError
	res.Stdout = pr.stdout
	res.Stderr = pr.stderr
	res.StdoutTruncated = pr.stdoutTruncated
	res.StderrTruncated = pr.stderrTruncated
	res.ExitCode = pr.exitCode
	res.RuntimeMs = pr.runtimeMs
}

// lookupToolchain reports whether the first element of argv resolves to
// an installed binary. Used to surface ToolchainMissing before spawning.
func lookupToolchain(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	_, err := exec.LookPath(argv[0])
	return err == nil
}

func isSpawnNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
