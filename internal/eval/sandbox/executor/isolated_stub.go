//go:build !linux

package executor

import (
	"context"

	"codeval/internal/eval/sandbox/result"
	"codeval/internal/eval/sandbox/spec"
	appErr "codeval/pkg/errors"
)

// IsolatedExecutor is only implemented on Linux. On other platforms the
// backend probe fails and the selector falls back to the direct backend.
type IsolatedExecutor struct{}

func NewIsolatedExecutor(cfg Config, metrics MetricsRecorder) *IsolatedExecutor {
	return &IsolatedExecutor{}
}

func (e *IsolatedExecutor) Backend() result.Backend {
	return result.BackendIsolated
}

func (e *IsolatedExecutor) Execute(ctx context.Context, runSpec spec.RunSpec) (result.ExecutionResult, error) {
	return result.ExecutionResult{BackendUsed: result.BackendIsolated},
		appErr.New(appErr.BackendUnavailable).WithMessage("isolated backend requires linux")
}

// ProbeIsolation always fails off Linux; the selector falls back to the
// direct backend.
func ProbeIsolation(ctx context.Context, helperPath string) error {
	return appErr.New(appErr.BackendProbeFailed).WithMessage("isolated backend requires linux")
}
