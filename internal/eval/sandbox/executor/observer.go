package executor

import (
	"context"

	"codeval/internal/eval/sandbox/result"
)

// MetricsRecorder receives execution lifecycle hooks. The spawn hook
// fires once per child process started, before the compile or run step.
type MetricsRecorder interface {
	ObserveSpawn(ctx context.Context, language string)
	ObserveExecution(ctx context.Context, backend result.Backend, outcome result.Outcome, runtimeMs uint)
}

// NoopMetricsRecorder discards all observations.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObserveSpawn(ctx context.Context, language string) {}
func (NoopMetricsRecorder) ObserveExecution(ctx context.Context, backend result.Backend, outcome result.Outcome, runtimeMs uint) {
}
