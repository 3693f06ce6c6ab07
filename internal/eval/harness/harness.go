// Package harness drives a submission through a problem's test suite:
// it materializes one executable unit per test case, runs them through
// the selected sandbox backend under the global execution cap, and
// classifies each outcome into a redacted test result.
package harness

import (
	"context"
	"fmt"
	"sync"

	"codeval/internal/eval/language"
	"codeval/internal/eval/model"
	"codeval/internal/eval/sandbox/executor"
	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"
	"codeval/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultParallelism    = 4
	defaultDiagnosticSize = 2048

	hiddenWrongAnswerMsg = "incorrect output on hidden test case"
)

// ExecutorSource yields the executor to run a suite on. The backend
// selector satisfies this.
type ExecutorSource interface {
	Executor(ctx context.Context) (executor.Executor, error)
}

// SlotPool gates individual test executions against the process-wide
// concurrency cap.
type SlotPool interface {
	Acquire(ctx context.Context) error
	Release()
}

// Config tunes per-suite behavior.
type Config struct {
	// Parallelism bounds concurrent test executions within one
	// submission. The SlotPool still applies across submissions.
	Parallelism int `yaml:"parallelism"`

	// DiagnosticBytes caps how much program output a diagnostic quotes.
	DiagnosticBytes int `yaml:"diagnosticBytes"`
}

func (c Config) withDefaults() Config {
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
	if c.DiagnosticBytes <= 0 {
		c.DiagnosticBytes = defaultDiagnosticSize
	}
	return c
}

type Harness struct {
	backends ExecutorSource
	registry *language.Registry
	slots    SlotPool
	cfg      Config
}

func New(backends ExecutorSource, registry *language.Registry, slots SlotPool, cfg Config) *Harness {
	return &Harness{
		backends: backends,
		registry: registry,
		slots:    slots,
		cfg:      cfg.withDefaults(),
	}
}

// SuiteOutcome carries the per-case results of one full suite run, in
// the suite's original order, plus the backend that produced them.
type SuiteOutcome struct {
	Results []model.TestResult
	Backend result.Backend
}

// RunSuite executes every test case of the problem against the
// submitted code. Individual test failures never stop the suite;
// infrastructure faults abort it with a distinct error so a broken
// worker is never reported as a zero score.
func (h *Harness) RunSuite(ctx context.Context, req model.EvaluationRequest, problem model.Problem) (SuiteOutcome, error) {
	langSpec, err := h.registry.Get(req.Language)
	if err != nil {
		return SuiteOutcome{}, err
	}
	if len(problem.TestCases) == 0 {
		return SuiteOutcome{}, appErr.Newf(appErr.NoTestCases, "problem %s has no test cases", problem.ID)
	}

	exec, err := h.backends.Executor(ctx)
	if err != nil {
		return SuiteOutcome{}, err
	}

	suiteCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		abortOnce sync.Once
		abortErr  error
	)
	abort := func(err error) {
		abortOnce.Do(func() {
			abortErr = err
			cancel()
		})
	}

	results := make([]model.TestResult, len(problem.TestCases))
	jobs := make(chan int)

	workers := h.cfg.Parallelism
	if workers > len(problem.TestCases) {
		workers = len(problem.TestCases)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				tc := problem.TestCases[idx]
				res, execErr := h.runOne(suiteCtx, exec, langSpec, req, problem, tc)
				if execErr != nil {
					if appErr.IsInfrastructure(execErr) {
						abort(execErr)
						return
					}
					results[idx] = h.classifyError(suiteCtx, tc, execErr)
					continue
				}
				tr, infra := h.classify(tc, res)
				if infra != nil {
					abort(infra)
					return
				}
				results[idx] = tr
			}
		}()
	}

feed:
	for i := range problem.TestCases {
		select {
		case jobs <- i:
		case <-suiteCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if abortErr != nil {
		return SuiteOutcome{}, abortErr
	}
	if err := ctx.Err(); err != nil {
		return SuiteOutcome{}, appErr.Wrap(err, appErr.EvaluationCancelled)
	}
	return SuiteOutcome{Results: results, Backend: exec.Backend()}, nil
}

func (h *Harness) runOne(ctx context.Context, exec executor.Executor, langSpec language.Spec, req model.EvaluationRequest, problem model.Problem, tc model.TestCase) (result.ExecutionResult, error) {
	if err := h.slots.Acquire(ctx); err != nil {
		// Only a cancelled context is a cancellation. Pool exhaustion
		// keeps its own code so it aborts the suite as an
		// infrastructure fault instead of scoring as a failed test.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result.ExecutionResult{}, appErr.Wrap(ctxErr, appErr.EvaluationCancelled)
		}
		return result.ExecutionResult{}, err
	}
	defer h.slots.Release()

	unit, err := langSpec.Materialize(req.Code, tc.Input)
	if err != nil {
		return result.ExecutionResult{}, err
	}

	limits := spec.ResourceLimit{TimeLimitMs: tc.TimeLimitMs, MemoryLimitMB: tc.MemoryLimitMB}
	limits = limits.Merge(spec.ResourceLimit{TimeLimitMs: problem.TimeLimitMs, MemoryLimitMB: problem.MemoryLimitMB})
	limits = langSpec.ScaleLimits(limits)

	return exec.Execute(ctx, spec.RunSpec{
		SubmissionID: req.SubmissionID,
		TestID:       tc.ID,
		Language:     langSpec.ID,
		Files:        unit.Files,
		CompileCmd:   unit.CompileCmd,
		RunCmd:       unit.RunCmd,
		Stdin:        unit.Stdin,
		Env:          unit.Env,
		Limits:       limits,
	})
}

// classify maps a sandbox outcome to a redacted test result. A non-nil
// second return means the suite must abort for an infrastructure fault.
func (h *Harness) classify(tc model.TestCase, res result.ExecutionResult) (model.TestResult, error) {
	tr := model.TestResult{
		TestCaseID:  tc.ID,
		Category:    tc.Category,
		Visibility:  tc.Visibility,
		RuntimeMs:   int64(res.RuntimeMs),
		MemoryKB:    uint64(res.MemoryKB),
		Provisional: tc.Provisional,
	}
	hidden := tc.Visibility == model.VisibilityHidden

	switch res.Outcome {
	case result.OutcomeToolchainMissing:
		return tr, appErr.Newf(appErr.ToolchainMissing, "toolchain for test %s unavailable on worker", tc.ID)

	case result.OutcomeCompileError:
		tr.ErrorKind = model.ErrorCompile
		// Compiler output quotes the submission, not case data, so it
		// stays visible even for hidden cases.
		tr.Diagnostic = h.tail(firstNonEmpty(res.Stderr, res.Stdout))
		return tr, nil

	case result.OutcomeTimedOut:
		tr.ErrorKind = model.ErrorTimedOut
		tr.Diagnostic = "time limit exceeded"
		return tr, nil

	case result.OutcomeKilled:
		tr.ErrorKind = model.ErrorRuntime
		tr.Diagnostic = "process killed (memory limit exceeded)"
		return tr, nil
	}

	if res.ExitCode != 0 {
		tr.ErrorKind = model.ErrorRuntime
		if hidden {
			tr.Diagnostic = fmt.Sprintf("runtime error on hidden test case (exit code %d)", res.ExitCode)
		} else {
			tr.Diagnostic = fmt.Sprintf("exit code %d: %s", res.ExitCode, h.tail(res.Stderr))
		}
		return tr, nil
	}

	if OutputsMatch(res.Stdout, tc.ExpectedOutput) {
		tr.Passed = true
		if !hidden {
			tr.ActualOutput = res.Stdout
		}
		// Truncation on a passing verdict is a warning, never a
		// failure by itself.
		if res.StdoutTruncated || res.StderrTruncated {
			tr.ErrorKind = model.ErrorOutputTruncated
			tr.Diagnostic = "output exceeded the size ceiling and was truncated"
		}
		return tr, nil
	}

	if res.StdoutTruncated {
		// The compared stream itself was cut off, so the mismatch may
		// be an artifact of the ceiling rather than a wrong answer.
		tr.ErrorKind = model.ErrorOutputTruncated
		if hidden {
			tr.Diagnostic = "output exceeded the size ceiling on hidden test case"
		} else {
			tr.ActualOutput = res.Stdout
			tr.Diagnostic = "output exceeded the size ceiling and was truncated"
		}
		return tr, nil
	}

	if hidden {
		tr.Diagnostic = hiddenWrongAnswerMsg
	} else {
		tr.ActualOutput = res.Stdout
		tr.Diagnostic = fmt.Sprintf("output differs from expected (%.0f%% similar)", Similarity(res.Stdout, tc.ExpectedOutput)*100)
	}
	return tr, nil
}

// classifyError converts a per-test execution error that is not an
// infrastructure fault into a failing result so the rest of the suite
// keeps running.
func (h *Harness) classifyError(ctx context.Context, tc model.TestCase, err error) model.TestResult {
	logger.Warn(ctx, "test execution failed",
		zap.String("test_id", tc.ID), zap.Error(err))
	tr := model.TestResult{
		TestCaseID:  tc.ID,
		Category:    tc.Category,
		Visibility:  tc.Visibility,
		ErrorKind:   model.ErrorRuntime,
		Provisional: tc.Provisional,
	}
	if appErr.GetCode(err) == appErr.EvaluationCancelled {
		tr.ErrorKind = model.ErrorCancelled
		tr.Diagnostic = "evaluation cancelled"
		return tr
	}
	if tc.Visibility == model.VisibilityHidden {
		tr.Diagnostic = "execution failed on hidden test case"
	} else {
		tr.Diagnostic = appErr.GetError(err).Message
	}
	return tr
}

func (h *Harness) tail(s string) string {
	if len(s) <= h.cfg.DiagnosticBytes {
		return s
	}
	return s[len(s)-h.cfg.DiagnosticBytes:]
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
